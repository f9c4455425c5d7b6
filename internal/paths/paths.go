// Package paths resolves filesystem locations for a fukura repository and
// the user's global home directory. It has no internal imports (only
// stdlib) to avoid import cycles; every function returns an error so
// callers can log appropriately rather than panic.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// DotDir is the marker directory name that identifies a fukura repository.
const DotDir = ".fukura"

// GlobalBaseDir returns the user's global fukura directory (~/.fukura),
// used for the global config fallback described in spec.md §6.7.
func GlobalBaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, DotDir), nil
}

// GlobalConfigPath returns $HOME/.fukura/config.toml.
func GlobalConfigPath() (string, error) {
	base, err := GlobalBaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "config.toml"), nil
}

// Discover walks start (or the current directory, if start is empty) and its
// ancestors looking for a ".fukura" marker directory, implementing the
// repository-discovery algorithm of spec.md §4.6/§4.13. It returns the
// repository root (the directory containing .fukura), not the .fukura
// directory itself.
func Discover(start string) (string, error) {
	dir := start
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}

	for {
		candidate := filepath.Join(abs, DotDir)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return abs, nil
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", ErrNotARepository
		}
		abs = parent
	}
}

// ErrNotARepository is returned by Discover when no ancestor contains a
// .fukura marker directory.
var ErrNotARepository = fmt.Errorf("not a fukura repository (or any parent up to /)")

// RepoDir returns the .fukura directory within root.
func RepoDir(root string) string {
	return filepath.Join(root, DotDir)
}

// EnsureDir creates a directory (and parents) if it doesn't exist, with
// owner-only permissions appropriate for a local data store.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0750); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// EnsureParentDir creates the parent directory of filePath if needed.
func EnsureParentDir(filePath string) error {
	return EnsureDir(filepath.Dir(filePath))
}

// ExpandTilde expands a leading ~ to the user's home directory.
func ExpandTilde(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	if len(path) == 1 {
		return home, nil
	}
	return filepath.Join(home, path[1:]), nil
}
