// Package atomicfile writes files the way a content-addressed store needs
// to: temp file in the target directory, fsync, rename, and (optionally)
// fsync of the containing directory so the rename itself survives a crash.
// The temp-file-plus-rename shape matches a config writer's
// AtomicWrite helper; this package adds directory fsync on top, needed
// for persisted objects but not for small config side-files.
package atomicfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// Write atomically replaces path with data: create a temp file alongside
// it, write, fsync, close, then rename over the target.
func Write(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".fukura-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	ok := false
	defer func() {
		if !ok {
			os.Remove(tmpPath)
		}
	}()

	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file to %s: %w", path, err)
	}
	ok = true
	return nil
}

// WriteSynced does what Write does, and additionally fsyncs the containing
// directory (and, if ancestorDir is non-empty, that ancestor too) so the
// rename is durable even across a crash — the guarantee spec.md §4.2 asks
// for when persisting loose objects ("fsync file, containing dir, and
// objects dir").
func WriteSynced(path string, data []byte, perm os.FileMode, ancestorDir string) error {
	if err := Write(path, data, perm); err != nil {
		return err
	}
	if err := SyncDir(filepath.Dir(path)); err != nil {
		return err
	}
	if ancestorDir != "" {
		if err := SyncDir(ancestorDir); err != nil {
			return err
		}
	}
	return nil
}

// SyncDir fsyncs a directory so that entries created or renamed within it
// are durable. Best-effort on platforms where directory fsync is not
// meaningful (e.g. it is a no-op error on some filesystems); such errors
// are reported to the caller, who may choose to log and continue.
func SyncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open directory %s: %w", dir, err)
	}
	defer f.Close()
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync directory %s: %w", dir, err)
	}
	return nil
}
