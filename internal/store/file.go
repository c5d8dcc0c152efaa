package store

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/trailofbits/necessist-go/internal/offset"
	"github.com/trailofbits/necessist-go/internal/outcome"
	"github.com/trailofbits/necessist-go/internal/span"
)

// FileStore is the line-oriented text-log backend from spec §4.5/§6: one
// record per line, tab-delimited "span_locator outcome [url]", appended and
// flushed before the next span is attempted. Grounded on
// internal/storage/file.go's FileStorage: mutex-guarded append, records
// loaded into memory once at open for O(1) skip checks.
type FileStore struct {
	root string
	path string

	mu   sync.Mutex
	f    *os.File
	seen map[string]struct{}
}

// OpenFileStore opens (creating if absent) the log file at path, rooted at
// root for span reconstruction, and loads existing records into memory.
func OpenFileStore(root, path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	fs := &FileStore{root: root, path: path, seen: make(map[string]struct{})}

	if existing, err := os.Open(path); err == nil {
		scanner := bufio.NewScanner(existing)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.TrimSpace(line) == "" {
				continue
			}
			rec, err := parseLine(root, line)
			if err != nil {
				// Adapter/corruption errors on individual lines are
				// skipped, not fatal — the rest of the log still loads.
				continue
			}
			fs.seen[rec.Span.Key()] = struct{}{}
		}
		_ = existing.Close()
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read store %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open store for append %s: %w", path, err)
	}
	fs.f = f

	return fs, nil
}

// Contains reports whether key has already been persisted.
func (fs *FileStore) Contains(key string) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	_, ok := fs.seen[key]
	return ok
}

// Append writes rec as one line and syncs before returning, satisfying the
// "flushed before the next span is attempted" invariant.
func (fs *FileStore) Append(rec Record) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	line := FormatLine(rec) + "\n"
	if _, err := fs.f.WriteString(line); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	if err := fs.f.Sync(); err != nil {
		return fmt.Errorf("sync store: %w", err)
	}

	fs.seen[rec.Span.Key()] = struct{}{}
	return nil
}

// Load re-reads every record from disk, in file order.
func (fs *FileStore) Load() ([]Record, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, err := os.Open(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := parseLine(fs.root, line)
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, scanner.Err()
}

// Close closes the underlying file handle.
func (fs *FileStore) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.f == nil {
		return nil
	}
	err := fs.f.Close()
	fs.f = nil
	return err
}

// parseLine parses one tab-delimited log line back into a Record. The
// SourceFile is reconstructed relative to root; byte offsets are recovered
// by re-scanning the file with the offset calculator, since the locator
// format only encodes line/column (spec §6).
func parseLine(root, line string) (Record, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 2 {
		return Record{}, fmt.Errorf("malformed store line: %q", line)
	}

	relPath, start, end, err := span.ParseLocator(fields[0])
	if err != nil {
		return Record{}, err
	}

	o, err := outcome.Parse(fields[1])
	if err != nil {
		return Record{}, err
	}

	url := ""
	if len(fields) >= 3 {
		url = fields[2]
	}

	absPath := filepath.Join(root, filepath.FromSlash(relPath))
	sf, err := span.NewSourceFile(root, absPath)
	if err != nil {
		return Record{}, err
	}

	startPos := span.Position{Line: start.Line, Column: start.Column}
	endPos := span.Position{Line: end.Line, Column: end.Column}
	if contents, readErr := os.ReadFile(absPath); readErr == nil {
		calc := offset.New(string(contents))
		off, _ := calc.OffsetFromLineColumn(offset.Position{Line: startPos.Line, Column: startPos.Column})
		startPos.Offset = off
		off, _ = calc.OffsetFromLineColumn(offset.Position{Line: endPos.Line, Column: endPos.Column})
		endPos.Offset = off
	}

	s, err := span.New(sf, startPos, endPos)
	if err != nil {
		return Record{}, err
	}

	return Record{Span: s, Outcome: o, URL: url}, nil
}
