package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// BlobStore handles filesystem operations for the uploads content root
type BlobStore struct {
	uploadsDir string
}

// NewBlobStore creates a blob store rooted at uploadsDir
func NewBlobStore(uploadsDir string) *BlobStore {
	return &BlobStore{uploadsDir: uploadsDir}
}

// EnsureRoot creates the content root directory if it does not exist
func (bs *BlobStore) EnsureRoot() error {
	if err := os.MkdirAll(bs.uploadsDir, 0755); err != nil {
		return fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return nil
}

// Root returns the content root directory
func (bs *BlobStore) Root() string {
	return bs.uploadsDir
}

// Path returns the absolute path for a blob name. The name is stripped to
// its base component so external input cannot escape the content root.
func (bs *BlobStore) Path(filename string) string {
	return filepath.Join(bs.uploadsDir, filepath.Base(filename))
}

// Save writes blob data under the given name. The write goes to a temporary
// file first and is renamed into place, so a reader never observes a
// partially written blob.
func (bs *BlobStore) Save(filename string, data []byte) error {
	fullPath := bs.Path(filename)

	tempPath := fullPath + ".tmp"
	tempFile, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, writeErr := tempFile.Write(data)
	closeErr := tempFile.Close()

	if writeErr != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to write data: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temporary file: %w", closeErr)
	}

	if err := os.Rename(tempPath, fullPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to move file to final location: %w", err)
	}

	return nil
}

// Remove deletes a blob. A blob that is already absent is not an error.
func (bs *BlobStore) Remove(filename string) error {
	err := os.Remove(bs.Path(filename))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove blob %s: %w", filename, err)
	}
	return nil
}

// Exists reports whether a blob is present in the content root
func (bs *BlobStore) Exists(filename string) bool {
	_, err := os.Stat(bs.Path(filename))
	return err == nil
}

// ListByExtensions returns blob names whose extension matches one of exts,
// sorted by modification time. With newestFirst set the most recent blobs
// come first. A limit of 0 means no limit.
func (bs *BlobStore) ListByExtensions(exts []string, limit int, newestFirst bool) ([]string, error) {
	entries, err := os.ReadDir(bs.uploadsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploads directory: %w", err)
	}

	type fileInfo struct {
		name  string
		mtime int64
	}

	extSet := make(map[string]bool, len(exts))
	for _, ext := range exts {
		extSet[strings.ToLower(ext)] = true
	}

	var files []fileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !extSet[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{name: entry.Name(), mtime: info.ModTime().UnixNano()})
	}

	sort.Slice(files, func(i, j int) bool {
		if newestFirst {
			return files[i].mtime > files[j].mtime
		}
		return files[i].mtime < files[j].mtime
	})

	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.name)
	}

	if limit > 0 && len(names) > limit {
		if newestFirst {
			names = names[:limit]
		} else {
			names = names[len(names)-limit:]
		}
	}

	return names, nil
}

// RemoveAll deletes every regular file in the content root and returns how
// many were removed. Administrative use only.
func (bs *BlobStore) RemoveAll() (int, error) {
	entries, err := os.ReadDir(bs.uploadsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read uploads directory: %w", err)
	}

	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(bs.uploadsDir, entry.Name())); err != nil {
			return deleted, fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
		}
		deleted++
	}
	return deleted, nil
}
