package ingest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// thumbSuffix marks preview siblings in the content root.
const thumbSuffix = "_thumb"

// thumbWidth is the target width of preview thumbnails; height follows the
// source aspect ratio.
const thumbWidth = 320

// thumbQuality is the WebP quality factor for previews.
const thumbQuality = 80

// Thumbnailer produces WebP preview images for uploaded screenshots
type Thumbnailer struct{}

// NewThumbnailer creates a new thumbnailer instance
func NewThumbnailer() *Thumbnailer {
	return &Thumbnailer{}
}

// WriteThumbnail decodes the screenshot data, scales it down and writes a
// WebP preview next to the blob, using the same temp-then-rename pattern as
// blob writes.
func (t *Thumbnailer) WriteThumbnail(blobPath string, data []byte) error {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > thumbWidth {
		img = imaging.Resize(img, thumbWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: thumbQuality}); err != nil {
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	thumbPath := ThumbSiblingPath(blobPath)
	tempPath := thumbPath + ".tmp"
	if err := os.WriteFile(tempPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write thumbnail: %w", err)
	}
	if err := os.Rename(tempPath, thumbPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to move thumbnail into place: %w", err)
	}

	return nil
}

// ThumbSiblingPath returns the deterministic preview path for a blob: the
// original path without its extension plus "_thumb.webp".
func ThumbSiblingPath(originalPath string) string {
	ext := filepath.Ext(originalPath)
	stem := strings.TrimSuffix(originalPath, ext)
	return stem + thumbSuffix + ".webp"
}

// IsThumbSibling reports whether the blob name denotes a preview thumbnail
// rather than an original upload.
func IsThumbSibling(filename string) bool {
	ext := filepath.Ext(filename)
	return strings.HasSuffix(strings.TrimSuffix(filename, ext), thumbSuffix)
}
