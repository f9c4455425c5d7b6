// Package pack implements the append-only pack file format of spec.md
// §4.3/§6.3 and its JSON sidecar index (§6.4): bundling loose objects so
// they can be read back at random offsets without per-object files. The
// binary layout (magic, LE counts, fixed-width entries) is a small
// header struct plus fixed-size records, packed binary rather than JSON
// since spec.md pins the exact byte layout.
package pack

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fukura-dev/fukura/internal/atomicfile"
	. "github.com/fukura-dev/fukura/internal/logging"
	"github.com/fukura-dev/fukura/internal/objstore"
)

// Magic is the 4-byte file header prefix of a pack file.
var Magic = [4]byte{'F', 'O', 'P', 0}

// FormatVersion is the only pack format version this package writes or reads.
const FormatVersion uint32 = 1

// MaxObjectSize is the largest compressed object a pack entry can hold,
// since the per-entry length field is a 32-bit unsigned integer.
const MaxObjectSize = 0xFFFFFFFF

// headerSize is magic(4) + version(4) + count(4).
const headerSize = 12

// entryFixedSize is id(64 hex ascii) + length(4 LE) preceding the payload.
const entryFixedSize = 64 + 4

// ErrOversized is returned when an object's compressed size exceeds
// MaxObjectSize.
type ErrOversized struct {
	ID   string
	Size int
}

func (e *ErrOversized) Error() string {
	return fmt.Sprintf("object %s is %d bytes, exceeds pack entry limit of %d", e.ID, e.Size, MaxObjectSize)
}

// ErrEmptyPack is returned by Create when there are no loose objects to
// bundle (spec.md §4.3, "refuses to produce an empty pack").
var ErrEmptyPack = fmt.Errorf("refusing to create an empty pack")

// ErrFormat wraps malformed pack headers, entry lengths, or index JSON.
type ErrFormat struct{ Cause error }

func (e *ErrFormat) Error() string { return fmt.Sprintf("pack format error: %v", e.Cause) }
func (e *ErrFormat) Unwrap() error { return e.Cause }

// IndexEntry is one object's location within a pack file.
type IndexEntry struct {
	ID     string `json:"id"`
	Offset uint64 `json:"offset"`
	Length uint32 `json:"length"`
}

// Index is the JSON sidecar for one pack file (spec.md §6.4).
type Index struct {
	PackFile  string       `json:"pack_file"`
	CreatedAt string       `json:"created_at"`
	Objects   []IndexEntry `json:"objects"`
}

// Report summarizes one pack_loose_objects operation.
type Report struct {
	PackPath    string
	IndexPath   string
	ObjectCount int
	Pruned      bool
}

// packsDir returns <root>/packs, creating it if necessary.
func packsDir(root string) (string, error) {
	dir := filepath.Join(root, "packs")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("create packs directory: %w", err)
	}
	return dir, nil
}

// Create bundles every loose object in store into a new pack file plus
// JSON index. When prune is true, packed loose files (and any now-empty
// prefix directories) are removed afterward.
func Create(root string, store *objstore.Store, prune bool, now time.Time) (Report, error) {
	loose, err := store.EnumerateLoose()
	if err != nil {
		return Report{}, fmt.Errorf("enumerate loose objects: %w", err)
	}
	if len(loose) == 0 {
		return Report{}, ErrEmptyPack
	}

	dir, err := packsDir(root)
	if err != nil {
		return Report{}, err
	}

	stamp := now.UTC().Format("20060102T150405Z")
	packPath := filepath.Join(dir, fmt.Sprintf("pack-%s.fop", stamp))
	indexPath := packPath + ".idx"

	var body []byte
	idx := Index{PackFile: filepath.Base(packPath), CreatedAt: now.UTC().Format(time.RFC3339)}

	offset := uint64(headerSize)
	for _, entry := range loose {
		compressed, err := os.ReadFile(entry.Path)
		if err != nil {
			return Report{}, fmt.Errorf("read loose object %s: %w", entry.ID, err)
		}
		if len(compressed) > MaxObjectSize {
			return Report{}, &ErrOversized{ID: entry.ID, Size: len(compressed)}
		}

		idBytes := []byte(entry.ID)
		if len(idBytes) != 64 {
			return Report{}, &ErrFormat{Cause: fmt.Errorf("object id %q is not 64 hex characters", entry.ID)}
		}

		body = append(body, idBytes...)
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(compressed)))
		body = append(body, lenBuf[:]...)

		payloadOffset := offset + entryFixedSize
		idx.Objects = append(idx.Objects, IndexEntry{ID: entry.ID, Offset: payloadOffset, Length: uint32(len(compressed))})

		body = append(body, compressed...)
		offset += entryFixedSize + uint64(len(compressed))
	}

	header := make([]byte, headerSize)
	copy(header[0:4], Magic[:])
	binary.LittleEndian.PutUint32(header[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(loose)))

	full := append(header, body...)
	if err := atomicfile.WriteSynced(packPath, full, 0644, dir); err != nil {
		return Report{}, fmt.Errorf("write pack file: %w", err)
	}

	indexJSON, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return Report{}, fmt.Errorf("marshal pack index: %w", err)
	}
	if err := atomicfile.Write(indexPath, indexJSON, 0644); err != nil {
		return Report{}, fmt.Errorf("write pack index: %w", err)
	}

	L_info("pack: created", "path", packPath, "objects", len(loose), "prune", prune)

	if prune {
		for _, entry := range loose {
			if err := store.Delete(entry.ID); err != nil {
				L_warn("pack: failed to prune loose object", "id", entry.ID, "error", err)
			}
		}
		if err := store.PruneEmptyPrefixDirs(); err != nil {
			L_warn("pack: failed to prune empty prefix directories", "error", err)
		}
	}

	return Report{PackPath: packPath, IndexPath: indexPath, ObjectCount: len(loose), Pruned: prune}, nil
}

// listIndices returns every *.idx file path under <root>/packs, in
// arbitrary (directory) order, matching spec.md §4.3's "iterates all
// *.idx files in arbitrary order".
func listIndices(root string) ([]string, error) {
	dir, err := packsDir(root)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".idx" {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}

func readIndex(path string) (Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Index{}, err
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return Index{}, &ErrFormat{Cause: fmt.Errorf("parse index %s: %w", path, err)}
	}
	return idx, nil
}

// LoadBytes scans every pack index under root looking for id, stopping at
// the first match, and returns the compressed framed object bytes.
func LoadBytes(root, id string) ([]byte, bool, error) {
	indices, err := listIndices(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	for _, indexPath := range indices {
		idx, err := readIndex(indexPath)
		if err != nil {
			L_warn("pack: skipping unreadable index", "path", indexPath, "error", err)
			continue
		}
		for _, obj := range idx.Objects {
			if obj.ID != id {
				continue
			}
			packPath := filepath.Join(filepath.Dir(indexPath), idx.PackFile)
			f, err := os.Open(packPath)
			if err != nil {
				return nil, false, fmt.Errorf("open pack file %s: %w", packPath, err)
			}
			defer f.Close()

			buf := make([]byte, obj.Length)
			if _, err := f.ReadAt(buf, int64(obj.Offset)); err != nil {
				return nil, false, &ErrFormat{Cause: fmt.Errorf("read pack entry %s at offset %d: %w", id, obj.Offset, err)}
			}
			return buf, true, nil
		}
	}
	return nil, false, nil
}

// MatchPrefix returns every id across every pack index beginning with
// prefix, deduplicated and sorted.
func MatchPrefix(root, prefix string) ([]string, error) {
	indices, err := listIndices(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	seen := make(map[string]struct{})
	var out []string
	for _, indexPath := range indices {
		idx, err := readIndex(indexPath)
		if err != nil {
			continue
		}
		for _, obj := range idx.Objects {
			if len(obj.ID) >= len(prefix) && obj.ID[:len(prefix)] == prefix {
				if _, dup := seen[obj.ID]; !dup {
					seen[obj.ID] = struct{}{}
					out = append(out, obj.ID)
				}
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// DecodeHexID is a small helper validating a 64-hex-character object id.
func DecodeHexID(id string) error {
	if len(id) != 64 {
		return fmt.Errorf("object id must be 64 hex characters, got %d", len(id))
	}
	_, err := hex.DecodeString(id)
	return err
}
