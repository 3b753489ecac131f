package sweeper

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/screenbin/screenbin/internal/ingest"
	"github.com/screenbin/screenbin/internal/logger"
	"github.com/screenbin/screenbin/internal/transcode"
)

// reconcileOrphans removes content-root files that no record references and
// that are older than the grace period. A blob can be orphaned by a crash
// between the blob write and the record insert; without this pass it would
// persist indefinitely.
//
// Derived siblings (cached conversions, thumbnails) are judged by the
// presence of their original blob rather than by record lookup, since the
// record stores only the original filename.
func (s *Sweeper) reconcileOrphans(now time.Time, result *Result) {
	entries, err := os.ReadDir(s.blobs.Root())
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("reconcile: failed to read content root: %v", err))
		return
	}

	cutoff := now.Add(-s.retention.OrphanGracePeriod)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		// A temp file past the grace period has lost its writer (crashed
		// blob save or conversion) and is reclaimed directly. Fresh ones
		// are in flight and excluded by the mtime check above.
		if filepath.Ext(name) == ".tmp" {
			if err := os.Remove(s.blobs.Path(name)); err != nil && !os.IsNotExist(err) {
				result.Errors = append(result.Errors, fmt.Sprintf("reconcile: failed to delete stale temp file %s: %v", name, err))
				continue
			}
			result.FilesDeleted++
			logger.Info("Reconcile removed stale temp file %s", name)
			continue
		}

		orphaned := false
		if transcode.IsConvertedSibling(name) || ingest.IsThumbSibling(name) {
			orphaned = !s.originalBlobPresent(name)
		} else {
			referenced, err := s.records.FilenameExists(name)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("reconcile: %v", err))
				continue
			}
			orphaned = !referenced
		}

		if !orphaned {
			continue
		}

		if err := os.Remove(s.blobs.Path(name)); err != nil && !os.IsNotExist(err) {
			result.Errors = append(result.Errors, fmt.Sprintf("reconcile: failed to delete orphan %s: %v", name, err))
			continue
		}
		result.FilesDeleted++
		logger.Info("Reconcile removed orphaned file %s", name)
	}
}

// originalBlobPresent reports whether the original upload that a derived
// sibling belongs to still exists in the content root.
func (s *Sweeper) originalBlobPresent(siblingName string) bool {
	stem := siblingStem(siblingName)
	if stem == "" {
		return false
	}

	matches, err := filepath.Glob(filepath.Join(s.blobs.Root(), stem+".*"))
	if err != nil {
		return true // malformed pattern, leave the file alone
	}
	for _, match := range matches {
		base := filepath.Base(match)
		if !transcode.IsConvertedSibling(base) && !ingest.IsThumbSibling(base) {
			return true
		}
	}
	return false
}

// siblingStem strips the derived-file suffix and extension, recovering the
// stem of the original blob the sibling was produced from.
func siblingStem(name string) string {
	stem := name[:len(name)-len(filepath.Ext(name))]
	for _, suffix := range []string{"_converted", "_thumb"} {
		if len(stem) > len(suffix) && stem[len(stem)-len(suffix):] == suffix {
			return stem[:len(stem)-len(suffix)]
		}
	}
	return ""
}
