// Package search maintains the per-photo search entries: one lowercase blob
// per indexed photo, matched by plain substring. The index lives in an
// in-memory SQLite database and is rebuilt from disk on every project open;
// nothing is persisted between sessions.
package search

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rewdy/snaption/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS entries (
	path TEXT PRIMARY KEY,
	text TEXT NOT NULL
);
`

// Index stores search entries keyed by photo ID (absolute image path).
// A photo without an entry has not completed indexing yet and never matches
// a non-empty query (fail-closed).
type Index struct {
	db *sql.DB
}

// OpenIndex creates a fresh in-memory index.
func OpenIndex() (*Index, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("search: open index: %w", err)
	}
	// A :memory: DSN yields a distinct database per connection; pin to one.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("search: apply schema: %w", err)
	}
	return &Index{db: db}, nil
}

// Close releases the underlying database.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Reset drops every entry; called when a project is (re)opened.
func (ix *Index) Reset() error {
	if _, err := ix.db.Exec(`DELETE FROM entries`); err != nil {
		return fmt.Errorf("search: reset: %w", err)
	}
	return nil
}

// Upsert stores the combined searchable text for a photo.
func (ix *Index) Upsert(photoID, text string) error {
	_, err := ix.db.Exec(`
		INSERT INTO entries (path, text) VALUES (?, ?)
		ON CONFLICT(path) DO UPDATE SET text = excluded.text
	`, photoID, strings.ToLower(text))
	if err != nil {
		return fmt.Errorf("search: upsert: %w", err)
	}
	return nil
}

// Delete removes a photo's entry.
func (ix *Index) Delete(photoID string) error {
	if _, err := ix.db.Exec(`DELETE FROM entries WHERE path = ?`, photoID); err != nil {
		return fmt.Errorf("search: delete: %w", err)
	}
	return nil
}

// Has reports whether a photo has completed indexing.
func (ix *Index) Has(photoID string) (bool, error) {
	var one int
	err := ix.db.QueryRow(`SELECT 1 FROM entries WHERE path = ?`, photoID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("search: has: %w", err)
	}
	return true, nil
}

// Count returns the number of indexed photos.
func (ix *Index) Count() (int, error) {
	var n int
	if err := ix.db.QueryRow(`SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("search: count: %w", err)
	}
	return n, nil
}

// Match returns the set of photo IDs whose entry contains query as a
// substring. The query is trimmed and lowercased; callers are expected to
// have short-circuited the empty query (it matches everything, including
// photos that are not indexed yet).
func (ix *Index) Match(query string) (map[string]struct{}, error) {
	normalized := strings.ToLower(strings.TrimSpace(query))
	if normalized == "" {
		return nil, fmt.Errorf("search: empty query")
	}

	rows, err := ix.db.Query(
		`SELECT path FROM entries WHERE text LIKE ? ESCAPE '\'`,
		"%"+escapeLike(normalized)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("search: match: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// escapeLike neutralizes LIKE metacharacters so queries stay literal
// substring matches.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// BuildText derives the combined searchable blob for one photo from its
// filename, notes body, tags, and point-label texts.
func BuildText(filename, notes string, tags []string, labels []models.PointLabel) string {
	labelTexts := make([]string, len(labels))
	for i, l := range labels {
		labelTexts[i] = l.Text
	}
	parts := []string{filename, notes, strings.Join(tags, " "), strings.Join(labelTexts, " ")}
	return strings.ToLower(strings.Join(parts, " "))
}
