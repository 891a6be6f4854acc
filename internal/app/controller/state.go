package controller

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"immich-wallpaper/internal/fileutil"
)

// StateStore persists the rotation index between runs. Persistence is
// best-effort: Load falls back to 0 and Save never fails the caller.
type StateStore interface {
	Load() int
	Save(index int)
}

// PersistenceError is logged when the rotation index could not be read or
// written.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s rotation state %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// FileStateStore keeps the index as a decimal string in a single file.
type FileStateStore struct {
	Path string
}

// NewFileStateStore returns a store for the file at path.
func NewFileStateStore(path string) *FileStateStore {
	return &FileStateStore{Path: path}
}

// Load returns the persisted index, or 0 if the file is absent or does not
// hold a non-negative integer.
func (f *FileStateStore) Load() int {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0
	}
	if err != nil {
		slog.Warn("using default rotation index", "error", &PersistenceError{"read", f.Path, err})
		return 0
	}
	i, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || i < 0 {
		slog.Warn("ignoring unparsable rotation state", "path", f.Path, "content", bodyPrefix(data))
		return 0
	}
	return i
}

// Save writes the index atomically. Failures are only logged.
func (f *FileStateStore) Save(index int) {
	if err := f.save(index); err != nil {
		slog.Error("failed to persist rotation index", "index", index, "error", err)
	}
}

func (f *FileStateStore) save(index int) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return &PersistenceError{"write", f.Path, err}
	}
	if err := fileutil.WriteFileAtomic(f.Path, []byte(strconv.Itoa(index)), 0o644); err != nil {
		return &PersistenceError{"write", f.Path, err}
	}
	return nil
}

func bodyPrefix(data []byte) string {
	if len(data) > 32 {
		data = data[:32]
	}
	return string(data)
}
