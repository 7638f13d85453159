/*
Package artifact owns the lifecycle of invoice txt artifacts: deterministic
naming, backup-before-mutate safety, date-based retrieval, ZIP export and
aggregate statistics.

PURPOSE:
  Artifacts are plain text files in a single flat directory, consumed by
  external accounting tooling. The Manager computes names, writes content
  verbatim, and never mutates a file without first copying its bytes to a
  backup file.

KEY CONCEPTS IN THIS FILE (store.go):
  - Store: the flat-directory file interface (list/read/write/delete/stat)
  - DirStore: local filesystem implementation

CREATION TIME:
  os.FileInfo exposes no portable birth time. Artifacts are write-once
  (updates go through backup + overwrite), so ModTime stands in for both
  created and modified.

SEE ALSO:
  - manager.go: lifecycle operations
  - naming.go: filename grammar and sanitization
*/
package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/retailops/delivery-engine/ledger"
)

// =============================================================================
// STORE - Flat directory of text files
// =============================================================================

// FileStat describes one stored file.
type FileStat struct {
	Name     string
	Size     int64
	Created  time.Time
	Modified time.Time
}

// Store is the artifact directory. Names are bare filenames; path
// resolution is the implementation's concern.
type Store interface {
	List() ([]FileStat, error)
	Read(name string) ([]byte, error)
	Write(name string, data []byte) error
	Delete(name string) error
	Stat(name string) (FileStat, error)
}

// =============================================================================
// DIR STORE - Local filesystem implementation
// =============================================================================

// DirStore stores artifacts in a single local directory.
type DirStore struct {
	root string
}

// NewDirStore creates the directory if needed.
func NewDirStore(root string) (*DirStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create artifact dir: %v", ledger.ErrIO, err)
	}
	return &DirStore{root: root}, nil
}

// Root returns the directory path.
func (d *DirStore) Root() string { return d.root }

func (d *DirStore) List() ([]FileStat, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("%w: list artifact dir: %v", ledger.ErrIO, err)
	}

	stats := make([]FileStat, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		stats = append(stats, statFromInfo(info))
	}
	return stats, nil
}

func (d *DirStore) Read(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(d.root, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ledger.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("%w: read %s: %v", ledger.ErrIO, name, err)
	}
	return data, nil
}

func (d *DirStore) Write(name string, data []byte) error {
	if err := os.WriteFile(filepath.Join(d.root, name), data, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", ledger.ErrIO, name, err)
	}
	return nil
}

func (d *DirStore) Delete(name string) error {
	if err := os.Remove(filepath.Join(d.root, name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ledger.ErrArtifactNotFound
		}
		return fmt.Errorf("%w: delete %s: %v", ledger.ErrIO, name, err)
	}
	return nil
}

func (d *DirStore) Stat(name string) (FileStat, error) {
	info, err := os.Stat(filepath.Join(d.root, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return FileStat{}, ledger.ErrArtifactNotFound
		}
		return FileStat{}, fmt.Errorf("%w: stat %s: %v", ledger.ErrIO, name, err)
	}
	return statFromInfo(info), nil
}

func statFromInfo(info fs.FileInfo) FileStat {
	return FileStat{
		Name:     info.Name(),
		Size:     info.Size(),
		Created:  info.ModTime(),
		Modified: info.ModTime(),
	}
}
