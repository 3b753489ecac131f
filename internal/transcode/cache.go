// Package transcode resolves stored blobs to browser-playable files,
// converting and caching unsuitable containers on demand.
package transcode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/screenbin/screenbin/internal/logger"
)

// ErrNotFound is returned when the requested blob does not exist.
var ErrNotFound = errors.New("file not found")

// convertedSuffix marks cached conversion siblings in the content root.
const convertedSuffix = "_converted"

// Cache serves playable paths for stored blobs. Containers unsuitable for
// direct playback are converted once and the result cached as a sibling
// file; concurrent requests for the same blob share a single conversion.
type Cache struct {
	uploadsDir     string
	transcoder     Transcoder
	convertTimeout time.Duration
	group          singleflight.Group
}

// NewCache creates a transcode cache over the given content root
func NewCache(uploadsDir string, transcoder Transcoder, convertTimeout time.Duration) *Cache {
	if convertTimeout <= 0 {
		convertTimeout = 5 * time.Minute
	}
	return &Cache{
		uploadsDir:     uploadsDir,
		transcoder:     transcoder,
		convertTimeout: convertTimeout,
	}
}

// ResolveForPlayback returns the path of a playable file for the named blob.
// Playable originals are returned unchanged. Unsuitable containers are
// converted to a cached MP4 sibling; if conversion fails the original path
// is returned so the caller can still serve something.
func (c *Cache) ResolveForPlayback(ctx context.Context, filename string) (string, error) {
	// The filename is an external input; never let it escape the content root.
	filename = filepath.Base(filename)

	original := filepath.Join(c.uploadsDir, filename)
	if _, err := os.Stat(original); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, filename)
		}
		return "", fmt.Errorf("failed to stat %s: %w", filename, err)
	}

	format, err := SniffFile(original)
	if err != nil {
		return "", err
	}

	if !format.NeedsConversion() {
		return original, nil
	}

	converted := ConvertedSiblingPath(original)
	if _, err := os.Stat(converted); err == nil {
		cacheHitsTotal.Inc()
		return converted, nil
	}

	// Singleflight keyed by filename: the second concurrent request for the
	// same blob waits for the first conversion instead of racing it.
	result, err, _ := c.group.Do(filename, func() (interface{}, error) {
		return c.convert(original, converted, format), nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// convert produces the cached sibling, returning its path on success and the
// original path on failure. Conversion runs on a detached context: a client
// dropping mid-conversion must not abort the work, the cache should be
// populated for the next reader.
func (c *Cache) convert(original, converted string, format Format) string {
	// Another request may have completed the conversion while this one was
	// waiting on the singleflight group.
	if _, err := os.Stat(converted); err == nil {
		cacheHitsTotal.Inc()
		return converted
	}

	conversionsTotal.Inc()
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), c.convertTimeout)
	defer cancel()

	tempPath := converted + ".tmp"
	if err := c.transcoder.Convert(ctx, original, tempPath); err != nil {
		conversionFailuresTotal.Inc()
		os.Remove(tempPath)
		logger.Warn("Conversion failed for %s (%s), serving original: %v",
			filepath.Base(original), format, err)
		return original
	}

	// The rename is the atomicity boundary: readers either see no cached
	// sibling or a complete one, never a partial write.
	if err := os.Rename(tempPath, converted); err != nil {
		conversionFailuresTotal.Inc()
		os.Remove(tempPath)
		logger.Error("Failed to move converted file into place for %s: %v",
			filepath.Base(original), err)
		return original
	}

	conversionDurationSeconds.Observe(time.Since(start).Seconds())
	logger.Info("Converted %s (%s) for playback", filepath.Base(original), format)
	return converted
}

// ConvertedSiblingPath returns the deterministic cache path for a blob:
// the original path without its extension plus "_converted.mp4".
func ConvertedSiblingPath(originalPath string) string {
	ext := filepath.Ext(originalPath)
	stem := strings.TrimSuffix(originalPath, ext)
	return stem + convertedSuffix + ".mp4"
}

// IsConvertedSibling reports whether the blob name denotes a cached
// conversion rather than an original upload.
func IsConvertedSibling(filename string) bool {
	ext := filepath.Ext(filename)
	return strings.HasSuffix(strings.TrimSuffix(filename, ext), convertedSuffix)
}
