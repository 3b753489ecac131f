// Package store implements the metadata store for recordings: one table
// mapping slugs to asset records, with expiry enforced at read time.
package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/screenbin/screenbin/internal/database"
)

var (
	// ErrNotFound is returned when a slug does not resolve to a live record.
	// Expired records behave as not found even before the sweeper removes them.
	ErrNotFound = errors.New("recording not found")

	// ErrSlugTaken is returned when an insert collides with an existing slug.
	// Callers recover by allocating a fresh slug and retrying.
	ErrSlugTaken = errors.New("slug already taken")
)

// RecordingStore provides access to recording metadata
type RecordingStore struct {
	db *gorm.DB
}

// NewRecordingStore creates a new recording store backed by db
func NewRecordingStore(db *gorm.DB) *RecordingStore {
	return &RecordingStore{db: db}
}

// Insert persists a new recording. The store assigns the surrogate ID and
// creation timestamp. Returns ErrSlugTaken if the slug is already in use,
// regardless of the existing record's expiry state.
func (s *RecordingStore) Insert(rec *database.Recording) error {
	if err := s.db.Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrSlugTaken, rec.Slug)
		}
		return fmt.Errorf("failed to insert recording: %w", err)
	}
	return nil
}

// GetBySlug returns the recording for slug if it has not expired. The expiry
// comparison runs against the database clock, so a record past its window is
// invisible to readers even if the sweeper has not run yet.
func (s *RecordingStore) GetBySlug(slug string) (*database.Recording, error) {
	var rec database.Recording
	err := s.db.Where("slug = ? AND expires_at > CURRENT_TIMESTAMP", slug).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up slug %s: %w", slug, err)
	}
	return &rec, nil
}

// GetByFilename returns the recording that owns the given blob, expired or not.
func (s *RecordingStore) GetByFilename(filename string) (*database.Recording, error) {
	var rec database.Recording
	err := s.db.Where("filename = ?", filename).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up filename %s: %w", filename, err)
	}
	return &rec, nil
}

// SlugExists reports whether any record holds the given slug. This is a
// pre-check only; concurrent ingestions racing on the same candidate are
// resolved by the unique constraint at insert time.
func (s *RecordingStore) SlugExists(slug string) (bool, error) {
	var count int64
	if err := s.db.Model(&database.Recording{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check slug %s: %w", slug, err)
	}
	return count > 0, nil
}

// FilenameExists reports whether any record references the given blob name.
func (s *RecordingStore) FilenameExists(filename string) (bool, error) {
	var count int64
	if err := s.db.Model(&database.Recording{}).Where("filename = ?", filename).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check filename %s: %w", filename, err)
	}
	return count > 0, nil
}

// ListExpired returns every record whose expiry is at or before now. The
// sweeper passes a single captured instant to both ListExpired and
// DeleteExpired so the two steps target the same set.
func (s *RecordingStore) ListExpired(now time.Time) ([]database.Recording, error) {
	var recs []database.Recording
	if err := s.db.Where("expires_at <= ?", now).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list expired recordings: %w", err)
	}
	return recs, nil
}

// DeleteExpired removes every record whose expiry is at or before now and
// returns how many rows were deleted.
func (s *RecordingStore) DeleteExpired(now time.Time) (int64, error) {
	result := s.db.Where("expires_at <= ?", now).Delete(&database.Recording{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired recordings: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Count returns the total number of surviving records
func (s *RecordingStore) Count() (int64, error) {
	var count int64
	if err := s.db.Model(&database.Recording{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count recordings: %w", err)
	}
	return count, nil
}

// DeleteAll removes every record. Administrative use only; the caller is
// responsible for clearing the blob store in the same operation.
func (s *RecordingStore) DeleteAll() (int64, error) {
	result := s.db.Where("1 = 1").Delete(&database.Recording{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to clear recordings: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// isUniqueViolation detects a unique constraint failure across the supported
// drivers. TranslateError covers the common path; the message checks catch
// drivers that predate error translation.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
