package searchindex

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Open(filepath.Join(t.TempDir(), "index"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestAddNoteAndSearchByTitle(t *testing.T) {
	idx := newTestIndex(t)
	err := idx.AddNote(Document{
		ObjectID:  "abc123",
		Title:     "panic in websocket handler",
		Body:      "goroutine leaked after close",
		Tags:      []string{"go", "websocket"},
		Author:    "alice",
		Privacy:   "private",
		UpdatedAt: time.Now(),
		Likes:     2,
	})
	require.NoError(t, err)

	hits, err := idx.Search("websocket", 10, SortRelevance)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "abc123", hits[0].ObjectID)
}

func TestSearchEmptyQueryMatchesAll(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.AddNote(Document{ObjectID: "a", Title: "one", UpdatedAt: time.Now()}))
	require.NoError(t, idx.AddNote(Document{ObjectID: "b", Title: "two", UpdatedAt: time.Now()}))

	hits, err := idx.Search("", 10, SortRelevance)
	require.NoError(t, err)
	require.Len(t, hits, 2)
}

func TestAddNoteDoesNotUpsertDuplicateObjectID(t *testing.T) {
	idx := newTestIndex(t)
	doc := Document{ObjectID: "dup", Title: "first version", UpdatedAt: time.Now()}
	require.NoError(t, idx.AddNote(doc))
	doc.Title = "second version"
	require.NoError(t, idx.AddNote(doc))

	count, err := idx.DocCount()
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}

func TestSearchSortByLikes(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.AddNote(Document{ObjectID: "low", Title: "fix", UpdatedAt: time.Now(), Likes: 1}))
	require.NoError(t, idx.AddNote(Document{ObjectID: "high", Title: "fix", UpdatedAt: time.Now(), Likes: 9}))

	hits, err := idx.Search("fix", 10, SortLikes)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, "high", hits[0].ObjectID)
}

func TestSearchSortByUpdated(t *testing.T) {
	idx := newTestIndex(t)
	older := time.Now().Add(-time.Hour)
	newer := time.Now()
	require.NoError(t, idx.AddNote(Document{ObjectID: "older", Title: "fix", UpdatedAt: older}))
	require.NoError(t, idx.AddNote(Document{ObjectID: "newer", Title: "fix", UpdatedAt: newer}))

	hits, err := idx.Search("fix", 10, SortUpdated)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, "newer", hits[0].ObjectID)
}

func TestCollectTagsReturnsWholeUntokenizedTags(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.AddNote(Document{ObjectID: "a", Title: "x", Tags: []string{"foo-bar", "baz"}, UpdatedAt: time.Now()}))
	require.NoError(t, idx.AddNote(Document{ObjectID: "b", Title: "y", Tags: []string{"baz"}, UpdatedAt: time.Now()}))

	tags, err := idx.CollectTags()
	require.NoError(t, err)
	require.Equal(t, []string{"baz", "foo-bar"}, tags)
}

func TestCollectTagsOnEmptyIndex(t *testing.T) {
	idx := newTestIndex(t)
	tags, err := idx.CollectTags()
	require.NoError(t, err)
	require.Empty(t, tags)
}

func TestAddNotesBatch(t *testing.T) {
	idx := newTestIndex(t)
	docs := []Document{
		{ObjectID: "a", Title: "alpha", UpdatedAt: time.Now()},
		{ObjectID: "b", Title: "beta", UpdatedAt: time.Now()},
	}
	require.NoError(t, idx.AddNotesBatch(docs))

	count, err := idx.DocCount()
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}

func TestOpenReopensExistingIndex(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	idx, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, idx.AddNote(Document{ObjectID: "a", Title: "persisted", UpdatedAt: time.Now()}))
	require.NoError(t, idx.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.DocCount()
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}
