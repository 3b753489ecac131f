package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screenbin/screenbin/internal/config"
	"github.com/screenbin/screenbin/internal/database"
)

func newTestStore(t *testing.T) *RecordingStore {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Type:            "sqlite",
		DatabasePath:    filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
	}

	db, err := database.Initialize(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = database.Close(db)
	})

	return NewRecordingStore(db)
}

func newRecording(slug, filename string, expiresAt time.Time) *database.Recording {
	now := time.Now().UTC()
	return &database.Recording{
		Filename:  filename,
		Slug:      slug,
		Prompt:    "test prompt",
		CreatedAt: now,
		ExpiresAt: expiresAt,
		FileSize:  1024,
	}
}

func TestInsertAndGetBySlug(t *testing.T) {
	s := newTestStore(t)
	future := time.Now().UTC().Add(48 * time.Hour)

	rec := newRecording("otter-lamp-123", "clip.webm", future)
	require.NoError(t, s.Insert(rec))
	assert.NotZero(t, rec.ID)

	got, err := s.GetBySlug("otter-lamp-123")
	require.NoError(t, err)
	assert.Equal(t, "clip.webm", got.Filename)
	assert.Equal(t, "test prompt", got.Prompt)
	assert.Equal(t, int64(1024), got.FileSize)
}

func TestInsertDuplicateSlug(t *testing.T) {
	s := newTestStore(t)
	future := time.Now().UTC().Add(48 * time.Hour)

	require.NoError(t, s.Insert(newRecording("otter-lamp-123", "first.webm", future)))

	err := s.Insert(newRecording("otter-lamp-123", "second.webm", future))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSlugTaken)
}

func TestGetBySlugMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetBySlug("no-such-slug-999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetBySlugExpired(t *testing.T) {
	s := newTestStore(t)
	past := time.Now().UTC().Add(-48 * time.Hour)

	require.NoError(t, s.Insert(newRecording("otter-lamp-123", "old.webm", past)))

	// An expired record is invisible to readers even before the sweeper runs.
	_, err := s.GetBySlug("otter-lamp-123")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetByFilenameIgnoresExpiry(t *testing.T) {
	s := newTestStore(t)
	past := time.Now().UTC().Add(-48 * time.Hour)

	require.NoError(t, s.Insert(newRecording("otter-lamp-123", "old.webm", past)))

	got, err := s.GetByFilename("old.webm")
	require.NoError(t, err)
	assert.Equal(t, "otter-lamp-123", got.Slug)

	_, err = s.GetByFilename("missing.webm")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSlugExists(t *testing.T) {
	s := newTestStore(t)
	past := time.Now().UTC().Add(-48 * time.Hour)

	require.NoError(t, s.Insert(newRecording("otter-lamp-123", "old.webm", past)))

	// Expired slugs still count as taken until their record is deleted.
	exists, err := s.SlugExists("otter-lamp-123")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.SlugExists("fox-chair-456")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFilenameExists(t *testing.T) {
	s := newTestStore(t)
	future := time.Now().UTC().Add(48 * time.Hour)

	require.NoError(t, s.Insert(newRecording("otter-lamp-123", "clip.webm", future)))

	exists, err := s.FilenameExists("clip.webm")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.FilenameExists("other.webm")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestListAndDeleteExpired(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()

	expired := []*database.Recording{
		newRecording("otter-lamp-100", "a.webm", now.Add(-72*time.Hour)),
		newRecording("fox-chair-200", "b.webm", now.Add(-48*time.Hour)),
		newRecording("panda-desk-300", "c.webm", now.Add(-time.Minute)),
	}
	live := []*database.Recording{
		newRecording("koala-vase-400", "d.webm", now.Add(time.Hour)),
		newRecording("lemur-sofa-500", "e.webm", now.Add(48*time.Hour)),
	}
	for _, rec := range append(expired, live...) {
		require.NoError(t, s.Insert(rec))
	}

	listed, err := s.ListExpired(now)
	require.NoError(t, err)
	assert.Len(t, listed, 3)

	deleted, err := s.DeleteExpired(now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// Survivors must still resolve.
	for _, rec := range live {
		_, err := s.GetBySlug(rec.Slug)
		assert.NoError(t, err)
	}
}

func TestDeleteExpiredIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()

	require.NoError(t, s.Insert(newRecording("otter-lamp-100", "a.webm", now.Add(-time.Hour))))

	deleted, err := s.DeleteExpired(now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	deleted, err = s.DeleteExpired(now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
}

func TestDeleteAll(t *testing.T) {
	s := newTestStore(t)
	future := time.Now().UTC().Add(48 * time.Hour)

	require.NoError(t, s.Insert(newRecording("otter-lamp-100", "a.webm", future)))
	require.NoError(t, s.Insert(newRecording("fox-chair-200", "b.webm", future)))

	deleted, err := s.DeleteAll()
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
