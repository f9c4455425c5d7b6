// Package note defines the Note value type and its versioned envelope
// (spec.md §3, "Note", "NoteEnvelope"). Field order here is the wire
// order: the codec package encodes struct fields in declaration order
// and relies on callers having already normalized Tags and sorted Meta,
// exactly as the original Rust implementation relies on a BTreeMap for
// meta ordering (original_source/src/models.rs).
package note

import (
	"sort"
	"strings"
	"time"
)

// Privacy is the note's visibility scope.
type Privacy string

const (
	PrivacyPrivate Privacy = "private"
	PrivacyOrg     Privacy = "org"
	PrivacyPublic  Privacy = "public"
)

// Author identifies who wrote a note.
type Author struct {
	Name  string `cbor:"name"`
	Email string `cbor:"email,omitempty"`
}

// MetaEntry is one key/value pair of a Note's meta mapping. Entries are
// kept in a slice rather than a Go map so that canonical encoding order
// is explicit and doesn't depend on map iteration, which Go deliberately
// randomizes.
type MetaEntry struct {
	Key   string `cbor:"key"`
	Value string `cbor:"value"`
}

// Solution is one proposed fix attached to a note.
type Solution struct {
	Steps   []string `cbor:"steps"`
	Links   []string `cbor:"links"`
	Likes   uint32   `cbor:"likes"`
	Adopted uint32   `cbor:"adopted"`
}

// Note is the value unit stored by the repository.
type Note struct {
	Title     string      `cbor:"title"`
	Body      string      `cbor:"body"`
	Tags      []string    `cbor:"tags"`
	Links     []string    `cbor:"links"`
	Meta      []MetaEntry `cbor:"meta"`
	Solutions []Solution  `cbor:"solutions"`
	Privacy   Privacy     `cbor:"privacy"`
	CreatedAt time.Time   `cbor:"created_at"`
	UpdatedAt time.Time   `cbor:"updated_at"`
	Author    Author      `cbor:"author"`
}

// Envelope is the versioned wrapper persisted as object payload.
type Envelope struct {
	Schema  string `cbor:"schema"`
	Version uint32 `cbor:"version"`
	Note    Note   `cbor:"note"`
}

// SchemaName and CurrentVersion identify the only envelope shape this
// codec accepts (spec.md §4.4).
const (
	SchemaName     = "fuku.note"
	CurrentVersion = 1
)

// Wrap builds the canonical envelope for n.
func Wrap(n Note) Envelope {
	return Envelope{Schema: SchemaName, Version: CurrentVersion, Note: n}
}

// NormalizeTags trims, lowercases, replaces inner whitespace with '-',
// drops empties, dedups, and sorts tags — the normalization spec.md's
// invariants section requires of stored tags.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		t = strings.Join(strings.Fields(t), "-")
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// NormalizeMeta sorts meta entries by key in ascending byte order, as
// spec.md's invariants require for canonical bytes. Later duplicate keys
// overwrite earlier ones, mirroring map semantics.
func NormalizeMeta(meta map[string]string) []MetaEntry {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]MetaEntry, 0, len(keys))
	for _, k := range keys {
		out = append(out, MetaEntry{Key: k, Value: meta[k]})
	}
	return out
}

// MetaMap converts the ordered entries back into a map for callers that
// want keyed access (e.g. the redaction pass).
func (n Note) MetaMap() map[string]string {
	m := make(map[string]string, len(n.Meta))
	for _, e := range n.Meta {
		m[e.Key] = e.Value
	}
	return m
}
