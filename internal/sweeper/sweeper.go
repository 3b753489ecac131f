// Package sweeper reclaims storage from expired recordings: it deletes their
// blobs (and any cached conversion or preview siblings) and then their
// metadata records, on a daily schedule.
package sweeper

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/screenbin/screenbin/internal/config"
	"github.com/screenbin/screenbin/internal/ingest"
	"github.com/screenbin/screenbin/internal/logger"
	"github.com/screenbin/screenbin/internal/store"
	"github.com/screenbin/screenbin/internal/transcode"
)

// Result summarizes one sweep invocation
type Result struct {
	FilesDeleted   int
	RecordsDeleted int64
	Errors         []string
	Duration       time.Duration
}

// HasErrors reports whether any step of the sweep failed
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// Sweeper deletes expired recordings and reconciles orphaned blobs
type Sweeper struct {
	records   *store.RecordingStore
	blobs     *ingest.BlobStore
	retention config.RetentionConfig

	mu     sync.Mutex // guards against overlapping sweeps
	cancel context.CancelFunc
}

// NewSweeper creates a sweeper over the given stores
func NewSweeper(records *store.RecordingStore, blobs *ingest.BlobStore, retention config.RetentionConfig) *Sweeper {
	return &Sweeper{
		records:   records,
		blobs:     blobs,
		retention: retention,
	}
}

// Start launches the background sweep loop: the first run fires at the
// configured wall-clock hour (tomorrow if that hour has already passed
// today), subsequent runs follow the configured interval.
func (s *Sweeper) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	firstRun := nextRunAfter(time.Now(), s.retention.SweepHour)
	logger.Info("Next cleanup scheduled for %s", firstRun.Format(time.RFC1123))

	go s.run(runCtx, firstRun)
}

// Stop cancels the background sweep loop
func (s *Sweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Sweeper) run(ctx context.Context, firstRun time.Time) {
	timer := time.NewTimer(time.Until(firstRun))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
		s.RunOnce(ctx)
	}

	ticker := time.NewTicker(s.retention.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single sweep. It captures one instant, lists the
// records expired at that instant, attempts blob deletion for each, then
// deletes the same set of records in one statement. Blob deletion failures
// are counted but never abort the sweep, and a blob that is already gone is
// a benign no-op, so running the sweep twice in succession is safe.
func (s *Sweeper) RunOnce(ctx context.Context) *Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	result := &Result{}

	// One captured instant targets the same record set in both the list and
	// the delete. UTC matches how record timestamps are stored.
	now := time.Now().UTC()

	expired, err := s.records.ListExpired(now)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		result.Duration = time.Since(start)
		return result
	}

	for _, rec := range expired {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, ctx.Err().Error())
			break
		}
		s.deleteBlobWithSiblings(rec.Filename, result)
	}

	deleted, err := s.records.DeleteExpired(now)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
	}
	result.RecordsDeleted = deleted

	if s.retention.EnableReconcile {
		s.reconcileOrphans(now, result)
	}

	result.Duration = time.Since(start)

	sweepRunsTotal.Inc()
	sweepFilesDeletedTotal.Add(float64(result.FilesDeleted))
	sweepRecordsDeletedTotal.Add(float64(result.RecordsDeleted))
	sweepErrorsTotal.Add(float64(len(result.Errors)))
	sweepDurationSeconds.Observe(result.Duration.Seconds())

	logger.Info("Sweep finished: %d files deleted, %d records deleted, %d errors (%s)",
		result.FilesDeleted, result.RecordsDeleted, len(result.Errors), result.Duration)

	return result
}

// deleteBlobWithSiblings removes a recording's blob plus its cached
// conversion and preview thumbnail. Absent files are no-ops; I/O failures
// are recorded and the sweep moves on.
func (s *Sweeper) deleteBlobWithSiblings(filename string, result *Result) {
	paths := []string{
		s.blobs.Path(filename),
		transcode.ConvertedSiblingPath(s.blobs.Path(filename)),
		ingest.ThumbSiblingPath(s.blobs.Path(filename)),
	}

	for _, path := range paths {
		err := os.Remove(path)
		if err == nil {
			result.FilesDeleted++
			continue
		}
		if os.IsNotExist(err) {
			continue
		}
		result.Errors = append(result.Errors, fmt.Sprintf("failed to delete %s: %v", path, err))
	}
}

// nextRunAfter returns the next occurrence of the given local wall-clock
// hour strictly after now.
func nextRunAfter(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
