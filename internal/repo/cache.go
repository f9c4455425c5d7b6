package repo

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fukura-dev/fukura/internal/atomicfile"
)

// SearchHit mirrors spec.md §3's SearchDocument projection returned from
// search() and cached to last_search.json for "@N" resolution.
type SearchHit struct {
	ObjectID  string    `json:"object_id"`
	Title     string    `json:"title"`
	Tags      []string  `json:"tags"`
	Summary   string    `json:"summary"`
	UpdatedAt time.Time `json:"updated_at"`
	Author    string    `json:"author"`
	Likes     int64     `json:"likes"`
	Score     float64   `json:"score"`
	Privacy   string    `json:"privacy"`
}

func latestRefPath(root string) string      { return filepath.Join(root, "refs", "latest") }
func lastSearchCachePath(root string) string { return filepath.Join(root, "last_search.json") }

// writeLatestRef atomically writes the single-line latest ref (spec.md §3,
// "Ref").
func writeLatestRef(root, id string) error {
	return atomicfile.Write(latestRefPath(root), []byte(id), 0644)
}

// readLatestRef reads the latest ref, tolerating a trailing newline
// (spec.md §3 invariant: "no trailing newline required... but tolerated").
func readLatestRef(root string) (string, error) {
	data, err := os.ReadFile(latestRefPath(root))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoLatest
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// writeLastSearchCache persists the most recent search's hit list so "@N"
// references can resolve positionally (spec.md §4.6, §4.2).
func writeLastSearchCache(root string, hits []SearchHit) error {
	data, err := json.MarshalIndent(hits, "", "  ")
	if err != nil {
		return err
	}
	return atomicfile.Write(lastSearchCachePath(root), data, 0644)
}

// readLastSearchCache loads the cached hit list, returning (nil, nil) if no
// search has ever been run.
func readLastSearchCache(root string) ([]SearchHit, error) {
	data, err := os.ReadFile(lastSearchCachePath(root))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var hits []SearchHit
	if err := json.Unmarshal(data, &hits); err != nil {
		return nil, err
	}
	return hits, nil
}
