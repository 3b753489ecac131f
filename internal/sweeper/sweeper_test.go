package sweeper

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screenbin/screenbin/internal/config"
	"github.com/screenbin/screenbin/internal/database"
	"github.com/screenbin/screenbin/internal/ingest"
	"github.com/screenbin/screenbin/internal/store"
)

func testRetentionConfig() config.RetentionConfig {
	return config.RetentionConfig{
		Window:            14 * 24 * time.Hour,
		SweepHour:         2,
		SweepInterval:     24 * time.Hour,
		OrphanGracePeriod: 24 * time.Hour,
		EnableReconcile:   false,
	}
}

func newTestSweeper(t *testing.T, retention config.RetentionConfig) (*Sweeper, *store.RecordingStore, *ingest.BlobStore) {
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

	records := store.NewRecordingStore(db)
	blobs := ingest.NewBlobStore(t.TempDir())
	require.NoError(t, blobs.EnsureRoot())

	return NewSweeper(records, blobs, retention), records, blobs
}

func insertRecording(t *testing.T, records *store.RecordingStore, slug, filename string, expiresAt time.Time) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, records.Insert(&database.Recording{
		Filename:  filename,
		Slug:      slug,
		Prompt:    "test",
		CreatedAt: now,
		ExpiresAt: expiresAt,
		FileSize:  10,
	}))
}

func TestRunOnceDeletesExpired(t *testing.T) {
	sw, records, blobs := newTestSweeper(t, testRetentionConfig())
	now := time.Now().UTC()

	insertRecording(t, records, "otter-lamp-100", "old.webm", now.Add(-time.Hour))
	insertRecording(t, records, "fox-chair-200", "live.webm", now.Add(time.Hour))
	require.NoError(t, blobs.Save("old.webm", []byte("x")))
	require.NoError(t, blobs.Save("live.webm", []byte("x")))

	result := sw.RunOnce(context.Background())

	assert.False(t, result.HasErrors())
	assert.Equal(t, 1, result.FilesDeleted)
	assert.Equal(t, int64(1), result.RecordsDeleted)

	assert.False(t, blobs.Exists("old.webm"))
	assert.True(t, blobs.Exists("live.webm"))

	count, err := records.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRunOnceDeletesSiblings(t *testing.T) {
	sw, records, blobs := newTestSweeper(t, testRetentionConfig())
	now := time.Now().UTC()

	insertRecording(t, records, "otter-lamp-100", "clip.webm", now.Add(-time.Hour))
	require.NoError(t, blobs.Save("clip.webm", []byte("x")))
	require.NoError(t, blobs.Save("clip_converted.mp4", []byte("x")))
	require.NoError(t, blobs.Save("clip_thumb.webp", []byte("x")))

	result := sw.RunOnce(context.Background())

	assert.False(t, result.HasErrors())
	assert.Equal(t, 3, result.FilesDeleted)
	assert.False(t, blobs.Exists("clip.webm"))
	assert.False(t, blobs.Exists("clip_converted.mp4"))
	assert.False(t, blobs.Exists("clip_thumb.webp"))
}

func TestRunOnceMissingBlobIsBenign(t *testing.T) {
	sw, records, _ := newTestSweeper(t, testRetentionConfig())
	now := time.Now().UTC()

	// Record exists, blob already gone: the sweep still deletes the record
	// and reports no errors.
	insertRecording(t, records, "otter-lamp-100", "ghost.webm", now.Add(-time.Hour))

	result := sw.RunOnce(context.Background())

	assert.False(t, result.HasErrors())
	assert.Equal(t, 0, result.FilesDeleted)
	assert.Equal(t, int64(1), result.RecordsDeleted)
}

func TestRunOnceIsIdempotent(t *testing.T) {
	sw, records, blobs := newTestSweeper(t, testRetentionConfig())
	now := time.Now().UTC()

	insertRecording(t, records, "otter-lamp-100", "old.webm", now.Add(-time.Hour))
	require.NoError(t, blobs.Save("old.webm", []byte("x")))

	first := sw.RunOnce(context.Background())
	assert.Equal(t, int64(1), first.RecordsDeleted)

	second := sw.RunOnce(context.Background())
	assert.False(t, second.HasErrors())
	assert.Equal(t, 0, second.FilesDeleted)
	assert.Equal(t, int64(0), second.RecordsDeleted)
}

func TestRunOnceEmptyStore(t *testing.T) {
	sw, _, _ := newTestSweeper(t, testRetentionConfig())

	result := sw.RunOnce(context.Background())

	assert.False(t, result.HasErrors())
	assert.Equal(t, 0, result.FilesDeleted)
	assert.Equal(t, int64(0), result.RecordsDeleted)
}

func TestReconcileRemovesAgedOrphans(t *testing.T) {
	retention := testRetentionConfig()
	retention.EnableReconcile = true
	sw, records, blobs := newTestSweeper(t, retention)
	now := time.Now().UTC()

	// Referenced blob, aged orphan, and a fresh orphan inside the grace period.
	insertRecording(t, records, "otter-lamp-100", "kept.webm", now.Add(time.Hour))
	require.NoError(t, blobs.Save("kept.webm", []byte("x")))
	require.NoError(t, blobs.Save("orphan.webm", []byte("x")))
	require.NoError(t, blobs.Save("fresh.webm", []byte("x")))

	aged := now.Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(blobs.Path("orphan.webm"), aged, aged))

	result := sw.RunOnce(context.Background())

	assert.False(t, result.HasErrors())
	assert.True(t, blobs.Exists("kept.webm"))
	assert.True(t, blobs.Exists("fresh.webm"))
	assert.False(t, blobs.Exists("orphan.webm"))
}

func TestReconcileRemovesSiblingsWithoutOriginal(t *testing.T) {
	retention := testRetentionConfig()
	retention.EnableReconcile = true
	sw, records, blobs := newTestSweeper(t, retention)
	now := time.Now().UTC()

	insertRecording(t, records, "otter-lamp-100", "kept.webm", now.Add(time.Hour))
	require.NoError(t, blobs.Save("kept.webm", []byte("x")))
	require.NoError(t, blobs.Save("kept_converted.mp4", []byte("x")))
	require.NoError(t, blobs.Save("gone_converted.mp4", []byte("x")))
	require.NoError(t, blobs.Save("gone_thumb.webp", []byte("x")))

	aged := now.Add(-48 * time.Hour)
	for _, name := range []string{"kept_converted.mp4", "gone_converted.mp4", "gone_thumb.webp"} {
		require.NoError(t, os.Chtimes(blobs.Path(name), aged, aged))
	}

	result := sw.RunOnce(context.Background())

	assert.False(t, result.HasErrors())
	// Siblings whose original survives stay; siblings without one go.
	assert.True(t, blobs.Exists("kept_converted.mp4"))
	assert.False(t, blobs.Exists("gone_converted.mp4"))
	assert.False(t, blobs.Exists("gone_thumb.webp"))
}

func TestReconcileTempFiles(t *testing.T) {
	retention := testRetentionConfig()
	retention.EnableReconcile = true
	sw, _, blobs := newTestSweeper(t, retention)
	now := time.Now().UTC()

	// A fresh temp file belongs to an in-flight write and stays; one past the
	// grace period was abandoned by a crashed writer and is reclaimed.
	fresh := filepath.Join(blobs.Root(), "inflight.webm.tmp")
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0644))

	stale := filepath.Join(blobs.Root(), "abandoned.webm.tmp")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0644))
	aged := now.Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(stale, aged, aged))

	result := sw.RunOnce(context.Background())

	assert.False(t, result.HasErrors())
	_, err := os.Stat(fresh)
	assert.NoError(t, err)
	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}

func TestNextRunAfter(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		hour     int
		expected time.Time
	}{
		{
			name:     "later today",
			now:      time.Date(2026, 8, 28, 1, 30, 0, 0, time.UTC),
			hour:     2,
			expected: time.Date(2026, 8, 28, 2, 0, 0, 0, time.UTC),
		},
		{
			name:     "hour already passed rolls to tomorrow",
			now:      time.Date(2026, 8, 28, 14, 0, 0, 0, time.UTC),
			hour:     2,
			expected: time.Date(2026, 8, 29, 2, 0, 0, 0, time.UTC),
		},
		{
			name:     "exactly at the hour rolls to tomorrow",
			now:      time.Date(2026, 8, 28, 2, 0, 0, 0, time.UTC),
			hour:     2,
			expected: time.Date(2026, 8, 29, 2, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, nextRunAfter(tt.now, tt.hour))
		})
	}
}
