// Package searchindex implements spec.md §4.5's segmented inverted index
// over note title/body/tags with stored fields for snippet/sort, using
// github.com/blevesearch/bleve/v2 for segments, BM25 ranking, term
// queries, and stored fields.
package searchindex

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/google/uuid"

	. "github.com/fukura-dev/fukura/internal/logging"
)

// Sort selects how Search orders its results after retrieval.
type Sort int

const (
	SortRelevance Sort = iota
	SortUpdated
	SortLikes
)

// Document is what the repository facade upserts for each stored note.
type Document struct {
	ObjectID  string
	Title     string
	Body      string
	Tags      []string
	Summary   string
	Author    string
	Privacy   string
	UpdatedAt time.Time
	Likes     int64
}

// Hit is one search result (spec.md §4.5).
type Hit struct {
	ObjectID  string
	Title     string
	Tags      []string
	Summary   string
	UpdatedAt time.Time
	Author    string
	Likes     int64
	Score     float64
	Privacy   string
}

// Index wraps a bleve index rooted at <repo>/index.
type Index struct {
	path string
	idx  bleve.Index
}

func buildMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()

	analyzed := bleve.NewTextFieldMapping()
	analyzed.Store = true

	exact := bleve.NewTextFieldMapping()
	exact.Analyzer = keyword.Name
	exact.Store = true

	numeric := bleve.NewNumericFieldMapping()
	numeric.Store = true

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("title", analyzed)
	doc.AddFieldMappingsAt("body", analyzed)
	doc.AddFieldMappingsAt("tags", analyzed)
	doc.AddFieldMappingsAt("summary", exact)
	doc.AddFieldMappingsAt("object_id", exact)
	doc.AddFieldMappingsAt("author", exact)
	doc.AddFieldMappingsAt("privacy", exact)
	doc.AddFieldMappingsAt("updated_at", numeric)
	doc.AddFieldMappingsAt("likes", numeric)

	im.DefaultMapping = doc
	return im
}

// Open opens the index at <root>/index, creating it with the fixed
// mapping above if it doesn't exist yet.
func Open(root string) (*Index, error) {
	path := root
	idx, err := bleve.Open(path)
	if err == nil {
		return &Index{path: path, idx: idx}, nil
	}

	idx, err = bleve.New(path, buildMapping())
	if err != nil {
		return nil, fmt.Errorf("create search index at %s: %w", path, err)
	}
	return &Index{path: path, idx: idx}, nil
}

// Close releases the underlying index's file handles.
func (i *Index) Close() error {
	return i.idx.Close()
}

func toBleveDoc(d Document) map[string]interface{} {
	return map[string]interface{}{
		"object_id":  d.ObjectID,
		"title":      d.Title,
		"body":       d.Body,
		"tags":       d.Tags,
		"summary":    d.Summary,
		"author":     d.Author,
		"privacy":    d.Privacy,
		"updated_at": d.UpdatedAt.UTC().Unix(),
		"likes":      d.Likes,
	}
}

// AddNote upserts semantics are deliberately NOT implemented here: every
// call indexes under a fresh synthetic document id (spec.md §4.5, "writing
// a second document with the same object_id appends a duplicate doc").
// Callers must only call this for genuinely new notes.
func (i *Index) AddNote(d Document) error {
	docID := uuid.NewString()
	if err := i.idx.Index(docID, toBleveDoc(d)); err != nil {
		return fmt.Errorf("index note %s: %w", d.ObjectID, err)
	}
	return nil
}

// AddNotesBatch indexes many documents and commits once.
func (i *Index) AddNotesBatch(docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	batch := i.idx.NewBatch()
	for _, d := range docs {
		if err := batch.Index(uuid.NewString(), toBleveDoc(d)); err != nil {
			return fmt.Errorf("batch index note %s: %w", d.ObjectID, err)
		}
	}
	if err := i.idx.Batch(batch); err != nil {
		return fmt.Errorf("commit batch of %d notes: %w", len(docs), err)
	}
	return nil
}

var storedFields = []string{"object_id", "title", "tags", "summary", "author", "privacy", "updated_at", "likes"}

// Search runs a match-all or disjunctive term query over title/body/tags,
// retrieves up to limit documents, then re-sorts per the requested order
// (spec.md §4.5).
func (i *Index) Search(query string, limit int, order Sort) ([]Hit, error) {
	if limit < 1 {
		limit = 1
	}

	var q query.Query
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		q = bleve.NewMatchAllQuery()
	} else {
		title := bleve.NewMatchQuery(trimmed)
		title.SetField("title")
		body := bleve.NewMatchQuery(trimmed)
		body.SetField("body")
		tags := bleve.NewMatchQuery(trimmed)
		tags.SetField("tags")
		q = bleve.NewDisjunctionQuery(title, body, tags)
	}

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = storedFields

	result, err := i.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, h := range result.Hits {
		hits = append(hits, hitFromMatch(h))
	}

	switch order {
	case SortUpdated:
		sort.SliceStable(hits, func(a, b int) bool { return hits[a].UpdatedAt.After(hits[b].UpdatedAt) })
	case SortLikes:
		sort.SliceStable(hits, func(a, b int) bool { return hits[a].Likes > hits[b].Likes })
	case SortRelevance:
		// retrieval order already reflects bleve's relevance ranking
	}

	return hits, nil
}

func hitFromMatch(h *search.DocumentMatch) Hit {
	get := func(field string) string {
		v, _ := h.Fields[field].(string)
		return v
	}
	var likes int64
	if v, ok := h.Fields["likes"].(float64); ok {
		likes = int64(v)
	}
	var updated time.Time
	if v, ok := h.Fields["updated_at"].(float64); ok {
		updated = time.Unix(int64(v), 0).UTC()
	}
	return Hit{
		ObjectID:  get("object_id"),
		Title:     get("title"),
		Tags:      stringSliceField(h.Fields["tags"]),
		Summary:   get("summary"),
		UpdatedAt: updated,
		Author:    get("author"),
		Likes:     likes,
		Score:     h.Score,
		Privacy:   get("privacy"),
	}
}

func stringSliceField(v interface{}) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return []string{val}
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, e := range val {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// CollectTags walks every stored note's tags field and returns the sorted
// unique set (spec.md §4.5). It retrieves stored (not tokenized) values,
// so multi-word tags aren't fragmented by the tags field's analyzer.
func (i *Index) CollectTags() ([]string, error) {
	count, err := i.idx.DocCount()
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), int(count), 0, false)
	req.Fields = []string{"tags"}

	result, err := i.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("collect tags: %w", err)
	}

	seen := make(map[string]struct{})
	for _, h := range result.Hits {
		for _, tag := range stringSliceField(h.Fields["tags"]) {
			seen[tag] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for tag := range seen {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out, nil
}

// DocCount reports how many documents (including duplicates) are indexed.
func (i *Index) DocCount() (uint64, error) {
	return i.idx.DocCount()
}

const summaryByteLimit = 160

// Summarize derives a SearchDocument's summary field: the first three
// non-blank lines of body, joined with a single space, truncated to 160
// bytes with a trailing ellipsis glyph if truncation occurred (spec.md
// §4.5).
func Summarize(body string) string {
	var lines []string
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		lines = append(lines, trimmed)
		if len(lines) == 3 {
			break
		}
	}
	joined := strings.Join(lines, " ")
	if len(joined) <= summaryByteLimit {
		return joined
	}

	truncated := joined[:summaryByteLimit]
	for len(truncated) > 0 && !utf8RuneStart(truncated[len(truncated)-1]) {
		truncated = truncated[:len(truncated)-1]
	}
	return truncated + "…"
}

func utf8RuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

func init() {
	L_trace("searchindex: package initialized")
}
