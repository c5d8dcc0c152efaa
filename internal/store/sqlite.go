package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/trailofbits/necessist-go/internal/offset"
	"github.com/trailofbits/necessist-go/internal/outcome"
	"github.com/trailofbits/necessist-go/internal/span"
)

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	return string(data), err
}

// SQLiteStore is the relational backend enabled by --sqlite, schema
// `removal(span TEXT PRIMARY KEY, outcome TEXT NOT NULL, url TEXT)` per
// spec §4.5/§6. github.com/mattn/go-sqlite3 is adopted from the wider
// example pack (the teacher itself carries no SQL dependency) since it is
// the attested idiomatic choice for an embedded relational store in Go.
type SQLiteStore struct {
	root string
	db   *sql.DB
	seen map[string]struct{}
}

// OpenSQLiteStore opens (creating if absent) a sqlite database at path and
// loads existing records into memory for O(1) skip checks.
func OpenSQLiteStore(root, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS removal (
		span TEXT PRIMARY KEY,
		outcome TEXT NOT NULL,
		url TEXT
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create removal table: %w", err)
	}

	s := &SQLiteStore{root: root, db: db, seen: make(map[string]struct{})}

	rows, err := db.Query(`SELECT span, outcome, url FROM removal`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load removal keys: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var locator, outcomeStr string
		var url sql.NullString
		if err := rows.Scan(&locator, &outcomeStr, &url); err != nil {
			continue
		}
		if rec, err := recordFromRow(root, locator, outcomeStr, url.String); err == nil {
			s.seen[rec.Span.Key()] = struct{}{}
		}
	}

	return s, rows.Err()
}

// Contains reports whether key has already been persisted.
func (s *SQLiteStore) Contains(key string) bool {
	_, ok := s.seen[key]
	return ok
}

// Append inserts rec, replacing any prior row for the same span (idempotent
// re-append after a resumed run observes an already-classified span).
func (s *SQLiteStore) Append(rec Record) error {
	locator := rec.Span.String()
	if _, err := s.db.Exec(
		`INSERT OR REPLACE INTO removal (span, outcome, url) VALUES (?, ?, ?)`,
		locator, rec.Outcome.String(), nullableURL(rec.URL),
	); err != nil {
		return fmt.Errorf("append removal record: %w", err)
	}
	s.seen[rec.Span.Key()] = struct{}{}
	return nil
}

// Load returns every persisted record.
func (s *SQLiteStore) Load() ([]Record, error) {
	rows, err := s.db.Query(`SELECT span, outcome, url FROM removal`)
	if err != nil {
		return nil, fmt.Errorf("load removal records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var locator, outcomeStr string
		var url sql.NullString
		if err := rows.Scan(&locator, &outcomeStr, &url); err != nil {
			continue
		}
		rec, err := recordFromRow(s.root, locator, outcomeStr, url.String)
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullableURL(url string) interface{} {
	if url == "" {
		return nil
	}
	return url
}

func recordFromRow(root, locator, outcomeStr, url string) (Record, error) {
	relPath, start, end, err := span.ParseLocator(locator)
	if err != nil {
		return Record{}, err
	}
	o, err := outcome.Parse(outcomeStr)
	if err != nil {
		return Record{}, err
	}

	absPath := filepath.Join(root, filepath.FromSlash(relPath))
	sf, err := span.NewSourceFile(root, absPath)
	if err != nil {
		return Record{}, err
	}

	startPos := span.Position{Line: start.Line, Column: start.Column}
	endPos := span.Position{Line: end.Line, Column: end.Column}
	if contents, readErr := readFile(absPath); readErr == nil {
		calc := offset.New(contents)
		off, _ := calc.OffsetFromLineColumn(offset.Position{Line: startPos.Line, Column: startPos.Column})
		startPos.Offset = off
		off, _ = calc.OffsetFromLineColumn(offset.Position{Line: endPos.Line, Column: endPos.Column})
		endPos.Offset = off
	}

	s, err := span.New(sf, startPos, endPos)
	if err != nil {
		return Record{}, err
	}
	return Record{Span: s, Outcome: o, URL: strings.TrimSpace(url)}, nil
}
