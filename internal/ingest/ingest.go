// Package ingest accepts raw upload bytes and turns them into stored blobs
// with committed metadata records.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/screenbin/screenbin/internal/database"
	"github.com/screenbin/screenbin/internal/logger"
	"github.com/screenbin/screenbin/internal/metadata"
	"github.com/screenbin/screenbin/internal/slugs"
	"github.com/screenbin/screenbin/internal/store"
)

// Kind is the declared type of an uploaded asset
type Kind string

const (
	KindVideo      Kind = "video"
	KindScreenshot Kind = "screenshot"
)

// ErrUnknownKind is returned for an upload kind outside the supported set.
var ErrUnknownKind = errors.New("unknown upload kind")

// Extension returns the on-disk extension implied by the kind
func (k Kind) Extension() string {
	switch k {
	case KindVideo:
		return ".webm"
	case KindScreenshot:
		return ".png"
	default:
		return ""
	}
}

// maxInsertRetries bounds how often a duplicate-slug rejection from the
// store triggers a fresh allocation. Collisions surviving the pre-check are
// rare, so retries are immediate with no backoff.
const maxInsertRetries = 5

// RecordStore is the slice of the metadata store the ingestor needs: slug
// availability checks and record inserts. Satisfied by store.RecordingStore.
type RecordStore interface {
	slugs.Checker
	Insert(rec *database.Recording) error
}

// Ingestor writes upload blobs to the content root and commits their
// metadata records
type Ingestor struct {
	records     RecordStore
	blobs       *BlobStore
	prober      *metadata.Prober
	thumbnailer *Thumbnailer
	retention   time.Duration
}

// NewIngestor creates an ingestor. The prober may be nil to skip duration
// extraction.
func NewIngestor(records RecordStore, blobs *BlobStore, prober *metadata.Prober, retention time.Duration) *Ingestor {
	return &Ingestor{
		records:     records,
		blobs:       blobs,
		prober:      prober,
		thumbnailer: NewThumbnailer(),
		retention:   retention,
	}
}

// Ingest stores the upload and commits its record:
//
//  1. the label is sanitized and composed with a timestamp and random suffix
//     into a blob filename (a namespace independent of the slug),
//  2. the blob is written atomically — this is the durability checkpoint,
//  3. a unique slug is allocated and the record inserted, re-allocating on a
//     duplicate-slug rejection.
//
// If the insert ultimately fails the just-written blob is removed again, so
// a failed ingestion leaves no orphan behind.
func (ing *Ingestor) Ingest(ctx context.Context, data []byte, kind Kind, label string) (*database.Recording, error) {
	if kind != KindVideo && kind != KindScreenshot {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("upload data cannot be empty")
	}

	filename := composeFilename(SanitizeLabel(label), kind)

	if err := ing.blobs.Save(filename, data); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	// Content sniffing is advisory at ingest time: a mismatched payload is
	// logged but stored as declared. Playback re-sniffs before serving.
	detected := mimetype.Detect(data)
	if kind == KindVideo && !strings.HasPrefix(detected.String(), "video/") {
		logger.Warn("Video upload %s does not sniff as video (%s)", filename, detected.String())
	}

	var duration *float64
	if kind == KindVideo && ing.prober != nil && ing.prober.IsAvailable() {
		if d, err := ing.prober.ProbeDuration(ctx, ing.blobs.Path(filename)); err == nil {
			duration = &d
		} else {
			logger.Debug("Duration probe failed for %s: %v", filename, err)
		}
	}

	if kind == KindScreenshot {
		if err := ing.thumbnailer.WriteThumbnail(ing.blobs.Path(filename), data); err != nil {
			logger.Warn("Thumbnail generation failed for %s: %v", filename, err)
		}
	}

	rec, err := ing.commitRecord(filename, label, int64(len(data)), duration)
	if err != nil {
		ing.rollbackBlob(filename, kind)
		return nil, err
	}

	logger.Info("Ingested %s as %s (slug %s, %d bytes)", kind, filename, rec.Slug, rec.FileSize)
	return rec, nil
}

// commitRecord allocates a slug and inserts the record, retrying allocation
// when the insert loses a slug race to a concurrent ingestion.
func (ing *Ingestor) commitRecord(filename, label string, size int64, duration *float64) (*database.Recording, error) {
	for attempt := 0; attempt < maxInsertRetries; attempt++ {
		slug, err := slugs.Allocate(ing.records)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate slug: %w", err)
		}

		// CreatedAt is set explicitly so the expiry is exactly creation
		// time plus the retention window. UTC keeps sqlite's textual
		// timestamp comparisons consistent with CURRENT_TIMESTAMP.
		now := time.Now().UTC()
		rec := &database.Recording{
			Filename:  filename,
			Slug:      slug,
			Prompt:    label,
			CreatedAt: now,
			ExpiresAt: now.Add(ing.retention),
			FileSize:  size,
			Duration:  duration,
		}

		err = ing.records.Insert(rec)
		if err == nil {
			return rec, nil
		}
		if errors.Is(err, store.ErrSlugTaken) {
			logger.Debug("Slug %s lost an insert race, reallocating", slug)
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("failed to insert recording after %d slug retries", maxInsertRetries)
}

// rollbackBlob removes a blob (and any preview sibling) whose record could
// not be committed.
func (ing *Ingestor) rollbackBlob(filename string, kind Kind) {
	if err := ing.blobs.Remove(filename); err != nil {
		logger.Error("Failed to roll back blob %s: %v", filename, err)
	}
	if kind == KindScreenshot {
		if err := ing.blobs.Remove(ThumbSiblingPath(filename)); err != nil {
			logger.Error("Failed to roll back thumbnail for %s: %v", filename, err)
		}
	}
}

// composeFilename builds the on-disk blob name from the sanitized label, a
// millisecond timestamp and a short random suffix, mirroring the upload
// naming scheme of the web recorder clients. Colons and dots in the ISO
// timestamp become dashes to stay filename-safe.
func composeFilename(sanitizedLabel string, kind Kind) string {
	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	timestamp = strings.NewReplacer(":", "-", ".", "-").Replace(timestamp)
	suffix := uuid.New().String()[:6]
	return fmt.Sprintf("%s_%s_%s%s", sanitizedLabel, timestamp, suffix, kind.Extension())
}
