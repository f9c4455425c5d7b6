// Package objstore implements the loose half of the content-addressed
// object store described in spec.md §4.2: SHA-256 identity over a typed
// "<type> <len>\0"||payload frame, zlib compression, and atomic
// temp-file-plus-rename writes into objects/<xx>/<rest>. Pack-file reads
// and writes live in the sibling internal/pack package; the repository
// facade (internal/repo) composes the two to answer "does this id
// exist anywhere".
package objstore

import (
	"bytes"
	"compress/zlib"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fukura-dev/fukura/internal/atomicfile"
	. "github.com/fukura-dev/fukura/internal/logging"
)

// NoteType is the object type string used for stored notes (spec.md §3).
const NoteType = "note"

// ErrNotFound is returned when an object id cannot be resolved to any
// loose file (callers combine this with the pack package's own lookup).
type ErrNotFound struct{ ID string }

func (e *ErrNotFound) Error() string { return fmt.Sprintf("object not found: %s", e.ID) }

// ErrInvalidType is returned by Unframe when the stored header's type
// doesn't match what the caller expected.
type ErrInvalidType struct{ Expected, Found string }

func (e *ErrInvalidType) Error() string {
	return fmt.Sprintf("invalid object type: expected %q, found %q", e.Expected, e.Found)
}

// ErrCorrupt wraps decompression or frame-parsing failures.
type ErrCorrupt struct{ Cause error }

func (e *ErrCorrupt) Error() string { return fmt.Sprintf("corrupt object: %v", e.Cause) }
func (e *ErrCorrupt) Unwrap() error { return e.Cause }

// Store persists and retrieves loose objects under <root>/objects.
type Store struct {
	objectsDir string
}

// Open returns a Store rooted at <root>/objects. The directory is created
// lazily on first write, not here.
func Open(root string) *Store {
	return &Store{objectsDir: filepath.Join(root, "objects")}
}

// Frame builds the "<type> <len>\0"||payload byte sequence whose SHA-256
// is the object id (spec.md §6.2).
func Frame(typ string, payload []byte) []byte {
	header := fmt.Sprintf("%s %d\x00", typ, len(payload))
	buf := make([]byte, 0, len(header)+len(payload))
	buf = append(buf, header...)
	buf = append(buf, payload...)
	return buf
}

// compress deflates framed bytes with zlib at the default level.
func compress(framed []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(framed); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress inflates a zlib-compressed framed object.
func Decompress(compressed []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, &ErrCorrupt{Cause: err}
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, &ErrCorrupt{Cause: err}
	}
	return out, nil
}

// Unframe parses "<type> <len>\0"||payload, verifying the declared length
// and (if expectedType is non-empty) the type.
func Unframe(framed []byte, expectedType string) (typ string, payload []byte, err error) {
	nul := bytes.IndexByte(framed, 0)
	if nul < 0 {
		return "", nil, &ErrCorrupt{Cause: fmt.Errorf("missing NUL frame terminator")}
	}
	header := string(framed[:nul])
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", nil, &ErrCorrupt{Cause: fmt.Errorf("malformed frame header %q", header)}
	}
	typ = parts[0]
	var length int
	if _, err := fmt.Sscanf(parts[1], "%d", &length); err != nil {
		return "", nil, &ErrCorrupt{Cause: fmt.Errorf("malformed frame length %q", parts[1])}
	}
	payload = framed[nul+1:]
	if len(payload) != length {
		return "", nil, &ErrCorrupt{Cause: fmt.Errorf("frame length mismatch: header says %d, got %d", length, len(payload))}
	}
	if expectedType != "" && typ != expectedType {
		return typ, payload, &ErrInvalidType{Expected: expectedType, Found: typ}
	}
	return typ, payload, nil
}

// ObjectID returns the hex SHA-256 of framed bytes.
func ObjectID(framed []byte) string {
	sum := sha256.Sum256(framed)
	return hex.EncodeToString(sum[:])
}

func (s *Store) loosePath(id string) (string, error) {
	if len(id) < 3 {
		return "", fmt.Errorf("object id too short: %q", id)
	}
	return filepath.Join(s.objectsDir, id[:2], id[2:]), nil
}

// Persist frames and compresses typ+payload, computes its id, and writes
// it to objects/<xx>/<rest> via atomicfile.WriteSynced. Re-persisting an
// id that already exists is a no-op (spec.md §4.2).
func (s *Store) Persist(typ string, payload []byte) (string, error) {
	framed := Frame(typ, payload)
	id := ObjectID(framed)

	path, err := s.loosePath(id)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err == nil {
		L_debug("objstore: object already exists, no-op", "id", id)
		return id, nil
	}

	compressed, err := compress(framed)
	if err != nil {
		return "", fmt.Errorf("compress object %s: %w", id, err)
	}

	if err := atomicfile.WriteSynced(path, compressed, 0644, s.objectsDir); err != nil {
		return "", fmt.Errorf("persist object %s: %w", id, err)
	}
	L_debug("objstore: persisted object", "id", id, "type", typ, "bytes", len(payload))
	return id, nil
}

// LoadBytes returns the compressed framed bytes for a loose object, or
// ErrNotFound if id has no loose file.
func (s *Store) LoadBytes(id string) ([]byte, error) {
	path, err := s.loosePath(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ErrNotFound{ID: id}
		}
		return nil, err
	}
	return data, nil
}

// Exists reports whether id has a loose file.
func (s *Store) Exists(id string) bool {
	path, err := s.loosePath(id)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Delete removes a loose object file, used by the pack engine's prune
// step. Missing files are not an error.
func (s *Store) Delete(id string) error {
	path, err := s.loosePath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// PruneEmptyPrefixDirs walks the 256 possible prefix directories and
// removes any that are empty, without ever removing the objects
// directory itself (spec.md §4.3).
func (s *Store) PruneEmptyPrefixDirs() error {
	entries, err := os.ReadDir(s.objectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(s.objectsDir, e.Name())
		inner, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		if len(inner) == 0 {
			os.Remove(dir)
		}
	}
	return nil
}

// ObjectsDir returns the root loose-objects directory.
func (s *Store) ObjectsDir() string { return s.objectsDir }

// LooseEntry pairs an object id with its loose file path, used for
// enumeration by the pack engine and prefix resolution.
type LooseEntry struct {
	ID   string
	Path string
}

// EnumerateLoose lists every loose object under objects/, sorted by id
// for deterministic iteration.
func (s *Store) EnumerateLoose() ([]LooseEntry, error) {
	var out []LooseEntry
	prefixes, err := os.ReadDir(s.objectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	for _, p := range prefixes {
		if !p.IsDir() || len(p.Name()) != 2 {
			continue
		}
		dir := filepath.Join(s.objectsDir, p.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() || strings.HasPrefix(f.Name(), ".") {
				continue
			}
			out = append(out, LooseEntry{ID: p.Name() + f.Name(), Path: filepath.Join(dir, f.Name())})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// MatchPrefix returns every loose object id beginning with prefix.
func (s *Store) MatchPrefix(prefix string) ([]string, error) {
	entries, err := s.EnumerateLoose()
	if err != nil {
		return nil, err
	}
	var matches []string
	for _, e := range entries {
		if strings.HasPrefix(e.ID, prefix) {
			matches = append(matches, e.ID)
		}
	}
	return matches, nil
}
