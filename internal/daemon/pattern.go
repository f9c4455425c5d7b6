// Pattern store: spec.md §4.7.5. Persists fingerprinted error patterns to
// a SQLite database (patterns.db) via github.com/mattn/go-sqlite3 as the
// embedded-database driver for local persistence.
package daemon

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"regexp"
	"time"

	_ "github.com/mattn/go-sqlite3"

	. "github.com/fukura-dev/fukura/internal/logging"
)

// ErrorPattern aggregates occurrences of one normalized error fingerprint
// (spec.md §3).
type ErrorPattern struct {
	NormalizedMessage string
	Fingerprint       string
	Occurrences       uint32
	LastSeen          time.Time
}

var pathExtRe = regexp.MustCompile(`[^\s:]+\.[A-Za-z0-9]{1,10}`)

// NormalizeErrorMessage replaces file paths with a generic placeholder
// while preserving trailing line:column numerics (spec.md §4.7.5).
func NormalizeErrorMessage(message string) string {
	return pathExtRe.ReplaceAllString(message, "<path>")
}

// Fingerprint returns the hex SHA-256 of a normalized error message
// (spec.md §4.7.5, "Error fingerprint").
func Fingerprint(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// PatternStore persists ErrorPattern rows in <repo>/.fukura/patterns.db.
type PatternStore struct {
	db *sql.DB
}

// OpenPatternStore opens (creating if needed) the pattern database.
func OpenPatternStore(path string) (*PatternStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open pattern store %s: %w", path, err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS patterns (
	fingerprint TEXT PRIMARY KEY,
	normalized_message TEXT NOT NULL,
	occurrences INTEGER NOT NULL DEFAULT 0,
	last_seen TEXT NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create patterns schema: %w", err)
	}
	return &PatternStore{db: db}, nil
}

// Close releases the underlying database handle.
func (p *PatternStore) Close() error { return p.db.Close() }

// RecordOccurrence increments (or creates) the pattern for a normalized
// message and refreshes last_seen. The counter is never decremented
// (spec.md §4.7.5, "advisory only").
func (p *PatternStore) RecordOccurrence(normalized string, now time.Time) (ErrorPattern, error) {
	fingerprint := Fingerprint(normalized)

	tx, err := p.db.Begin()
	if err != nil {
		return ErrorPattern{}, err
	}
	defer tx.Rollback()

	var occurrences uint32
	err = tx.QueryRow(`SELECT occurrences FROM patterns WHERE fingerprint = ?`, fingerprint).Scan(&occurrences)
	switch {
	case err == sql.ErrNoRows:
		occurrences = 1
		_, err = tx.Exec(`INSERT INTO patterns (fingerprint, normalized_message, occurrences, last_seen) VALUES (?, ?, ?, ?)`,
			fingerprint, normalized, occurrences, now.UTC().Format(time.RFC3339))
	case err == nil:
		occurrences++
		_, err = tx.Exec(`UPDATE patterns SET occurrences = ?, last_seen = ? WHERE fingerprint = ?`,
			occurrences, now.UTC().Format(time.RFC3339), fingerprint)
	}
	if err != nil {
		return ErrorPattern{}, fmt.Errorf("record pattern occurrence: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return ErrorPattern{}, err
	}

	L_debug("daemon: pattern recorded", "fingerprint", fingerprint[:12], "occurrences", occurrences)
	return ErrorPattern{NormalizedMessage: normalized, Fingerprint: fingerprint, Occurrences: occurrences, LastSeen: now}, nil
}

// Get returns the pattern for a fingerprint, if any.
func (p *PatternStore) Get(fingerprint string) (ErrorPattern, bool, error) {
	var pat ErrorPattern
	var lastSeen string
	err := p.db.QueryRow(`SELECT fingerprint, normalized_message, occurrences, last_seen FROM patterns WHERE fingerprint = ?`, fingerprint).
		Scan(&pat.Fingerprint, &pat.NormalizedMessage, &pat.Occurrences, &lastSeen)
	if err == sql.ErrNoRows {
		return ErrorPattern{}, false, nil
	}
	if err != nil {
		return ErrorPattern{}, false, err
	}
	pat.LastSeen, _ = time.Parse(time.RFC3339, lastSeen)
	return pat, true, nil
}

// All returns every stored pattern, most frequent first.
func (p *PatternStore) All() ([]ErrorPattern, error) {
	rows, err := p.db.Query(`SELECT fingerprint, normalized_message, occurrences, last_seen FROM patterns ORDER BY occurrences DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ErrorPattern
	for rows.Next() {
		var pat ErrorPattern
		var lastSeen string
		if err := rows.Scan(&pat.Fingerprint, &pat.NormalizedMessage, &pat.Occurrences, &lastSeen); err != nil {
			return nil, err
		}
		pat.LastSeen, _ = time.Parse(time.RFC3339, lastSeen)
		out = append(out, pat)
	}
	return out, rows.Err()
}
