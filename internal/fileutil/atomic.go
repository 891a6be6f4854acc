// Package fileutil holds small filesystem helpers shared by the cache and the
// rotation state store.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TempPrefix marks in-progress writes. Files starting with it are never
// valid cache entries.
const TempPrefix = ".tmp-"

// WriteFileAtomic writes data to a temporary file in the same directory as
// name, syncs it and renames it over name. Readers either see the previous
// content or the complete new content, never a truncated file.
func WriteFileAtomic(name string, data []byte, perm os.FileMode) (err error) {
	dir, base := filepath.Split(name)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, TempPrefix+base+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = f.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err = f.Chmod(perm); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err = os.Rename(tmpName, name); err != nil {
		return fmt.Errorf("rename %s: %w", tmpName, err)
	}
	return nil
}

// IsTemp reports whether a directory entry name is a leftover temporary file
// from WriteFileAtomic.
func IsTemp(name string) bool {
	return strings.HasPrefix(name, TempPrefix)
}
