// Package repo implements the repository facade of spec.md §4.6: the sole
// permitted mutator of a <repo>/.fukura tree, composing redaction, the
// object store, the pack engine, the note codec, and the search index
// behind one API: one facade type wrapping several collaborators, with
// typed errors at the boundary.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	. "github.com/fukura-dev/fukura/internal/logging"
	"github.com/fukura-dev/fukura/internal/note"
	"github.com/fukura-dev/fukura/internal/notecodec"
	"github.com/fukura-dev/fukura/internal/objstore"
	"github.com/fukura-dev/fukura/internal/pack"
	"github.com/fukura-dev/fukura/internal/paths"
	"github.com/fukura-dev/fukura/internal/redact"
	"github.com/fukura-dev/fukura/internal/searchindex"
)

// NoteRecord pairs a stored note with its content-addressed id (spec.md §3).
type NoteRecord struct {
	ObjectID string
	Note     note.Note
}

// Repository is the facade over one <repo>/.fukura tree.
type Repository struct {
	root      string
	objects   *objstore.Store
	index     *searchindex.Index
	redactor  *redact.Redactor
}

const dirPerm = 0750

// subdirs lists every directory Init creates directly under the dot
// directory (spec.md §6.1).
var subdirs = []string{"objects", "packs", "refs", "locks"}

// Init creates <path>/.fukura/{objects,packs,refs,index,locks}. If the dot
// directory already exists and force is false, it opens the existing
// repository instead of failing (spec.md §4.6).
func Init(path string, force bool, redactOverrides map[string]string) (*Repository, error) {
	root := paths.RepoDir(path)

	if _, err := os.Stat(root); err == nil {
		if !force {
			return Open(path, redactOverrides)
		}
	}

	for _, d := range subdirs {
		if err := os.MkdirAll(filepath.Join(root, d), dirPerm); err != nil {
			return nil, fmt.Errorf("init repository directory %s: %w", d, err)
		}
	}

	idx, err := searchindex.Open(filepath.Join(root, "index"))
	if err != nil {
		return nil, fmt.Errorf("init search index: %w", err)
	}

	L_info("repo: initialized", "root", root)
	return &Repository{
		root:     root,
		objects:  objstore.Open(root),
		index:    idx,
		redactor: redact.New(redactOverrides),
	}, nil
}

// Open opens an existing repository rooted at path's .fukura directory.
func Open(path string, redactOverrides map[string]string) (*Repository, error) {
	root := paths.RepoDir(path)
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("open repository at %s: %w", root, err)
	}

	idx, err := searchindex.Open(filepath.Join(root, "index"))
	if err != nil {
		return nil, fmt.Errorf("open search index: %w", err)
	}

	return &Repository{
		root:     root,
		objects:  objstore.Open(root),
		index:    idx,
		redactor: redact.New(redactOverrides),
	}, nil
}

// Discover walks ancestors of start (cwd if empty) looking for a .fukura
// directory, then opens it.
func Discover(start string, redactOverrides map[string]string) (*Repository, error) {
	if start == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		start = cwd
	}
	projectRoot, err := paths.Discover(start)
	if err != nil {
		return nil, err
	}
	return Open(projectRoot, redactOverrides)
}

// Close releases the search index's file handles.
func (r *Repository) Close() error {
	return r.index.Close()
}

// Root returns the <repo>/.fukura directory path.
func (r *Repository) Root() string { return r.root }

// redactNote applies the redactor to body and every meta value, in place
// on a copy (spec.md §4.6: "redact body and every meta value").
func (r *Repository) redactNote(n note.Note) note.Note {
	out := n
	out.Body = r.redactor.Redact(n.Body)
	if len(n.Meta) > 0 {
		meta := make([]note.MetaEntry, len(n.Meta))
		for i, m := range n.Meta {
			meta[i] = note.MetaEntry{Key: m.Key, Value: r.redactor.Redact(m.Value)}
		}
		out.Meta = meta
	}
	out.Tags = note.NormalizeTags(n.Tags)
	return out
}

func validateNote(n note.Note) error {
	if strings.TrimSpace(n.Title) == "" {
		return &ErrEmptyNote{Reason: "title is empty"}
	}
	if strings.TrimSpace(n.Body) == "" {
		return &ErrEmptyNote{Reason: "body is empty"}
	}
	return nil
}

func (r *Repository) persistAndIndex(n note.Note) (NoteRecord, error) {
	if err := validateNote(n); err != nil {
		return NoteRecord{}, err
	}

	redacted := r.redactNote(n)

	canonical, err := notecodec.Encode(redacted)
	if err != nil {
		return NoteRecord{}, fmt.Errorf("encode note: %w", err)
	}

	id, err := r.objects.Persist(objstore.NoteType, canonical)
	if err != nil {
		return NoteRecord{}, fmt.Errorf("persist note object: %w", err)
	}

	doc := toSearchDocument(id, redacted)
	if err := r.index.AddNote(doc); err != nil {
		return NoteRecord{}, fmt.Errorf("index note %s: %w", id, err)
	}

	return NoteRecord{ObjectID: id, Note: redacted}, nil
}

// StoreNote redacts, canonicalizes, persists, indexes, and updates latest
// (spec.md §4.6).
func (r *Repository) StoreNote(n note.Note) (NoteRecord, error) {
	record, err := r.persistAndIndex(n)
	if err != nil {
		return NoteRecord{}, err
	}
	if err := writeLatestRef(r.root, record.ObjectID); err != nil {
		return NoteRecord{}, fmt.Errorf("update latest ref: %w", err)
	}
	L_info("repo: stored note", "id", record.ObjectID, "title", record.Note.Title)
	return record, nil
}

// StoreNotesBatch stores many notes, committing the index once and setting
// latest to the last successfully written id (spec.md §4.6).
func (r *Repository) StoreNotesBatch(notes []note.Note) ([]NoteRecord, error) {
	if len(notes) == 0 {
		return nil, nil
	}

	records := make([]NoteRecord, 0, len(notes))
	docs := make([]searchindex.Document, 0, len(notes))
	var lastID string

	for _, n := range notes {
		if err := validateNote(n); err != nil {
			return nil, err
		}
		redacted := r.redactNote(n)
		canonical, err := notecodec.Encode(redacted)
		if err != nil {
			return nil, fmt.Errorf("encode note %q: %w", redacted.Title, err)
		}
		id, err := r.objects.Persist(objstore.NoteType, canonical)
		if err != nil {
			return nil, fmt.Errorf("persist note %q: %w", redacted.Title, err)
		}
		records = append(records, NoteRecord{ObjectID: id, Note: redacted})
		docs = append(docs, toSearchDocument(id, redacted))
		lastID = id
	}

	if err := r.index.AddNotesBatch(docs); err != nil {
		return nil, fmt.Errorf("commit index batch of %d notes: %w", len(docs), err)
	}
	if err := writeLatestRef(r.root, lastID); err != nil {
		return nil, fmt.Errorf("update latest ref: %w", err)
	}

	L_info("repo: stored note batch", "count", len(records))
	return records, nil
}

// LoadNote resolves id's object bytes, verifies its type, and decodes the
// canonical note (spec.md §4.6).
func (r *Repository) LoadNote(id string) (NoteRecord, error) {
	compressed, err := r.loadObjectBytes(id)
	if err != nil {
		return NoteRecord{}, err
	}

	framed, err := objstore.Decompress(compressed)
	if err != nil {
		return NoteRecord{}, fmt.Errorf("decompress object %s: %w", id, err)
	}

	typ, payload, err := objstore.Unframe(framed, objstore.NoteType)
	if err != nil {
		var te *objstore.ErrInvalidType
		if asErrInvalidType(err, &te) {
			return NoteRecord{}, &ErrInvalidObjectType{Expected: te.Expected, Found: te.Found}
		}
		return NoteRecord{}, fmt.Errorf("unframe object %s: %w", id, err)
	}
	_ = typ

	n, err := notecodec.Decode(payload)
	if err != nil {
		return NoteRecord{}, fmt.Errorf("decode note %s: %w", id, err)
	}

	return NoteRecord{ObjectID: id, Note: n}, nil
}

func asErrInvalidType(err error, target **objstore.ErrInvalidType) bool {
	if te, ok := err.(*objstore.ErrInvalidType); ok {
		*target = te
		return true
	}
	return false
}

// loadObjectBytes tries the loose store, then falls back to packs,
// surfacing objstore.ErrNotFound only if neither has the id (spec.md §4.2).
func (r *Repository) loadObjectBytes(id string) ([]byte, error) {
	data, err := r.objects.LoadBytes(id)
	if err == nil {
		return data, nil
	}
	var nf *objstore.ErrNotFound
	if te, ok := err.(*objstore.ErrNotFound); ok {
		nf = te
	} else {
		return nil, err
	}

	packed, found, perr := pack.LoadBytes(r.root, id)
	if perr != nil {
		return nil, fmt.Errorf("scan packs for %s: %w", id, perr)
	}
	if found {
		return packed, nil
	}
	return nil, nf
}

// toSearchDocument projects a redacted note into the search index's shape,
// summing solution likes and deriving the summary (spec.md §3, §4.5).
func toSearchDocument(id string, n note.Note) searchindex.Document {
	var likes int64
	for _, s := range n.Solutions {
		likes += int64(s.Likes)
	}
	return searchindex.Document{
		ObjectID:  id,
		Title:     n.Title,
		Body:      n.Body,
		Tags:      n.Tags,
		Summary:   searchindex.Summarize(n.Body),
		Author:    n.Author.Name,
		Privacy:   string(n.Privacy),
		UpdatedAt: n.UpdatedAt,
		Likes:     likes,
	}
}

func toSortOrder(s string) searchindex.Sort {
	switch strings.ToLower(s) {
	case "updated":
		return searchindex.SortUpdated
	case "likes":
		return searchindex.SortLikes
	default:
		return searchindex.SortRelevance
	}
}

// Search delegates to the index and caches the hit list for "@N"
// resolution (spec.md §4.6).
func (r *Repository) Search(query string, limit int, sortOrder string) ([]SearchHit, error) {
	hits, err := r.index.Search(query, limit, toSortOrder(sortOrder))
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	out := make([]SearchHit, len(hits))
	for i, h := range hits {
		out[i] = SearchHit{
			ObjectID:  h.ObjectID,
			Title:     h.Title,
			Tags:      h.Tags,
			Summary:   h.Summary,
			UpdatedAt: h.UpdatedAt,
			Author:    h.Author,
			Likes:     h.Likes,
			Score:     h.Score,
			Privacy:   h.Privacy,
		}
	}

	if err := writeLastSearchCache(r.root, out); err != nil {
		L_warn("repo: failed to write last-search cache", "error", err)
	}
	return out, nil
}

const hexDigits = "0123456789abcdef"

func looksLikeHexPrefix(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range strings.ToLower(s) {
		if !strings.ContainsRune(hexDigits, c) {
			return false
		}
	}
	return true
}

// ResolveObjectID implements spec.md §4.2's resolution rules: "@latest",
// "@N" positional references into the last search cache (falling back to
// the top-100 most-recently-updated notes), and hex-prefix matching across
// loose objects and pack indices.
func (r *Repository) ResolveObjectID(input string) (string, error) {
	input = strings.TrimSpace(input)

	if input == "@latest" {
		return readLatestRef(r.root)
	}

	if strings.HasPrefix(input, "@") {
		n, err := strconv.Atoi(input[1:])
		if err != nil || n < 1 {
			return "", fmt.Errorf("invalid positional reference %q", input)
		}
		return r.resolvePositional(n)
	}

	if len(input) == 64 && looksLikeHexPrefix(input) {
		if r.objects.Exists(input) {
			return input, nil
		}
		if _, found, err := pack.LoadBytes(r.root, input); err == nil && found {
			return input, nil
		}
	}

	if len(input) < 2 || !looksLikeHexPrefix(input) {
		return "", &objstore.ErrNotFound{ID: input}
	}

	looseMatches, err := r.objects.MatchPrefix(input)
	if err != nil {
		return "", err
	}
	packMatches, err := pack.MatchPrefix(r.root, input)
	if err != nil {
		return "", err
	}

	seen := make(map[string]struct{})
	var all []string
	for _, id := range append(looseMatches, packMatches...) {
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			all = append(all, id)
		}
	}
	sort.Strings(all)

	switch len(all) {
	case 0:
		return "", &objstore.ErrNotFound{ID: input}
	case 1:
		return all[0], nil
	default:
		examples := all
		if len(examples) > 3 {
			examples = examples[:3]
		}
		return "", &ErrAmbiguousID{Prefix: input, Examples: examples}
	}
}

// resolvePositional implements "@N" per spec.md §4.2: index into the
// cached last-search result list, falling back to the top-100 all-notes
// list sorted by updated_at descending.
func (r *Repository) resolvePositional(n int) (string, error) {
	hits, err := readLastSearchCache(r.root)
	if err != nil {
		return "", err
	}
	if len(hits) == 0 {
		all, err := r.ListAllNotes()
		if err != nil {
			return "", err
		}
		sort.Slice(all, func(i, j int) bool { return all[i].Note.UpdatedAt.After(all[j].Note.UpdatedAt) })
		if len(all) > 100 {
			all = all[:100]
		}
		hits = make([]SearchHit, len(all))
		for i, rec := range all {
			hits[i] = SearchHit{ObjectID: rec.ObjectID, Title: rec.Note.Title, UpdatedAt: rec.Note.UpdatedAt}
		}
	}
	if n > len(hits) {
		return "", &ErrPositionOutOfRange{N: n, Count: len(hits)}
	}
	return hits[n-1].ObjectID, nil
}

// PackReport is returned by PackLooseObjects.
type PackReport = pack.Report

// PackLooseObjects delegates to the pack engine.
func (r *Repository) PackLooseObjects(prune bool) (PackReport, error) {
	return pack.Create(r.root, r.objects, prune, time.Now())
}

// Latest reads the latest ref, returning ErrNoLatest if unset.
func (r *Repository) Latest() (string, error) {
	return readLatestRef(r.root)
}

// ListAllNotes performs a match-all search with a large limit, then loads
// each hit, skipping any individual load failure (spec.md §4.6).
func (r *Repository) ListAllNotes() ([]NoteRecord, error) {
	hits, err := r.index.Search("", 100000, searchindex.SortRelevance)
	if err != nil {
		return nil, fmt.Errorf("list all notes: %w", err)
	}

	records := make([]NoteRecord, 0, len(hits))
	for _, h := range hits {
		rec, err := r.LoadNote(h.ObjectID)
		if err != nil {
			L_warn("repo: skipping unloadable note", "id", h.ObjectID, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// CollectTags delegates to the index.
func (r *Repository) CollectTags() ([]string, error) {
	return r.index.CollectTags()
}
