package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const maxIndexNameLen = 255

var (
	invalidIndexChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
	repeatedUnders    = regexp.MustCompile(`_+`)
)

// SanitizeIndexName derives an index name from a page title
func SanitizeIndexName(title string) string {
	name := invalidIndexChars.ReplaceAllString(title, "_")
	name = repeatedUnders.ReplaceAllString(name, "_")
	name = strings.ToLower(strings.Trim(name, "_"))
	if name != "" && !isASCIILetter(name[0]) {
		name = "index_" + name
	}
	if len(name) > maxIndexNameLen {
		name = name[:maxIndexNameLen]
	}
	return name
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// StoredChunk is one indexed piece of a page
type StoredChunk struct {
	Index     string `json:"index"`
	SourceURL string `json:"source_url"`
	Seq       int    `json:"seq"`
	Text      string `json:"text"`
}

// Index is a sqlite-backed store of page chunks grouped by index name
type Index struct {
	db *sql.DB
}

func OpenIndex(path string) (*Index, error) {
	p := filepath.Clean(strings.TrimSpace(path))
	if p == "" || p == "." {
		return nil, errors.New("missing index path")
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return &Index{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS chunks (
  index_name TEXT NOT NULL,
  source_url TEXT NOT NULL,
  seq INTEGER NOT NULL,
  text TEXT NOT NULL,
  indexed_at_unix_ms INTEGER NOT NULL,
  PRIMARY KEY (index_name, seq)
);
CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source_url);
`)
	return err
}

func (ix *Index) Close() error {
	if ix == nil || ix.db == nil {
		return nil
	}
	return ix.db.Close()
}

func (ix *Index) Ping(ctx context.Context) error {
	return ix.db.PingContext(ctx)
}

// Replace swaps every chunk stored under name for the given ones
func (ix *Index) Replace(ctx context.Context, name, sourceURL string, chunks []string) error {
	if name == "" {
		return errors.New("missing index name")
	}
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE index_name = ?`, name); err != nil {
		return fmt.Errorf("clear index %s: %w", name, err)
	}
	now := time.Now().UnixMilli()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks (index_name, source_url, seq, text, indexed_at_unix_ms) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, c := range chunks {
		if _, err := stmt.ExecContext(ctx, name, sourceURL, i, c, now); err != nil {
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Chunks returns the chunks of an index in order
func (ix *Index) Chunks(ctx context.Context, name string) ([]StoredChunk, error) {
	rows, err := ix.db.QueryContext(ctx, `SELECT index_name, source_url, seq, text FROM chunks WHERE index_name = ? ORDER BY seq ASC`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunks(rows)
}

// Lookup returns up to limit chunks of sourceURL ranked by how many of the
// query's terms they contain. Chunks matching no term are omitted.
func (ix *Index) Lookup(ctx context.Context, sourceURL, query string, limit int) ([]StoredChunk, error) {
	rows, err := ix.db.QueryContext(ctx, `SELECT index_name, source_url, seq, text FROM chunks WHERE source_url = ? ORDER BY seq ASC`, sourceURL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	all, err := scanChunks(rows)
	if err != nil {
		return nil, err
	}

	terms := queryTerms(query)
	type scored struct {
		chunk StoredChunk
		score int
	}
	var hits []scored
	for _, c := range all {
		lower := strings.ToLower(c.Text)
		n := 0
		for _, t := range terms {
			if strings.Contains(lower, t) {
				n++
			}
		}
		if n > 0 {
			hits = append(hits, scored{c, n})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]StoredChunk, len(hits))
	for i, h := range hits {
		out[i] = h.chunk
	}
	return out, nil
}

func queryTerms(q string) []string {
	seen := map[string]bool{}
	var out []string
	for _, f := range strings.FieldsFunc(strings.ToLower(q), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		if len(f) < 3 || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

func scanChunks(rows *sql.Rows) ([]StoredChunk, error) {
	var out []StoredChunk
	for rows.Next() {
		var c StoredChunk
		if err := rows.Scan(&c.Index, &c.SourceURL, &c.Seq, &c.Text); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
