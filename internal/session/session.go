// Package session holds resumable run state: the set of spans already
// recorded (for warm-start skip checks) and a dirty-repo detector that
// reports when a file's content hash changes after this session first
// observed it. Baselines are held in memory only, so edits made between
// separate runs are not detected, and mtimes are not consulted. Supplements spec.md's distillation with a feature present
// in the original (necessist/src/main.rs's LightContext bootstrap, kept
// separate from framework selection — see Bootstrap below and DESIGN.md).
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/trailofbits/necessist-go/internal/config"
	"github.com/trailofbits/necessist-go/internal/framework"
	"github.com/trailofbits/necessist-go/internal/store"
)

// Session tracks the in-memory state of one run: a unique run identifier
// (not written to any store), the records already persisted,
// and a per-file content-hash baseline for dirty-repo detection.
type Session struct {
	ID uuid.UUID

	mu        sync.RWMutex
	seen      map[string]store.Record
	baselines map[string]string
}

// New loads st's existing records into memory and starts a fresh session
// identity.
func New(st store.Store) (*Session, error) {
	records, err := st.Load()
	if err != nil {
		return nil, fmt.Errorf("load prior records: %w", err)
	}

	seen := make(map[string]store.Record, len(records))
	for _, rec := range records {
		seen[rec.Span.Key()] = rec
	}

	return &Session{
		ID:        uuid.New(),
		seen:      seen,
		baselines: make(map[string]string),
	}, nil
}

// Seen reports whether key was already recorded in a prior run, returning
// its record.
func (s *Session) Seen(key string) (store.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.seen[key]
	return rec, ok
}

// Record registers a newly-persisted record in memory, so a subsequent
// Seen call in the same run observes it immediately (the driver also
// appends it to the backing Store; this keeps the two in sync without a
// second Load round-trip).
func (s *Session) Record(rec store.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[rec.Span.Key()] = rec
}

// Stale reports whether path's content has changed since the first time
// this session observed it, per the dirty-repo Open Question resolution
// (spec §9): invalidate on any content-hash change. The first observation
// of a given path always reports false and establishes the baseline.
func (s *Session) Stale(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("hash %s for staleness check: %w", path, err)
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.baselines[path]
	if !ok {
		s.baselines[path] = hash
		return false, nil
	}
	return prev != hash, nil
}

// Forget drops path's baseline, forcing the next Stale call to re-establish
// it rather than compare — used after a file is legitimately re-mutated so
// the driver's own writes aren't mistaken for external drift.
func (s *Session) Forget(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.baselines, path)
}

// BootstrapResult is what Bootstrap resolves before any framework work
// begins: a validated project root and, if one could be determined, the
// selected framework adapter.
type BootstrapResult struct {
	Root      string
	Framework framework.Interface
}

// Bootstrap validates that cfg.Root names a real directory, then resolves
// a framework adapter against it via registry. Separated into two steps —
// matching necessist/src/main.rs's LightContext construction happening
// before framework `to_implementation` dispatch — so a missing/invalid
// project root is reported distinctly from "no framework recognizes this
// project".
func Bootstrap(ctx context.Context, cfg *config.Config, registry *framework.Registry) (*BootstrapResult, error) {
	info, err := os.Stat(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("project root %s: %w", cfg.Root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", cfg.Root)
	}

	fw, err := registry.Resolve(ctx, cfg.Root, cfg.Framework)
	if err != nil {
		return nil, fmt.Errorf("resolve framework: %w", err)
	}

	return &BootstrapResult{Root: cfg.Root, Framework: fw}, nil
}
