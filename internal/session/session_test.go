package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/trailofbits/necessist-go/internal/config"
	"github.com/trailofbits/necessist-go/internal/framework"
	"github.com/trailofbits/necessist-go/internal/outcome"
	"github.com/trailofbits/necessist-go/internal/span"
	"github.com/trailofbits/necessist-go/internal/store"
)

type memStore struct {
	records []store.Record
}

func (m *memStore) Contains(key string) bool { return false }
func (m *memStore) Append(rec store.Record) error {
	m.records = append(m.records, rec)
	return nil
}
func (m *memStore) Load() ([]store.Record, error) { return m.records, nil }
func (m *memStore) Close() error                   { return nil }

func testSpan(t *testing.T, root string) span.Span {
	t.Helper()
	sf, err := span.NewSourceFile(root, filepath.Join(root, "a_test.go"))
	if err != nil {
		t.Fatal(err)
	}
	s, err := span.New(sf, span.Position{Line: 1}, span.Position{Line: 1, Column: 5, Offset: 5})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNewLoadsExistingRecordsAsSeen(t *testing.T) {
	root := t.TempDir()
	s := testSpan(t, root)
	st := &memStore{records: []store.Record{{Span: s, Outcome: outcome.Passed}}}

	sess, err := New(st)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rec, ok := sess.Seen(s.Key())
	if !ok {
		t.Fatal("expected span to be seen from loaded records")
	}
	if rec.Outcome != outcome.Passed {
		t.Errorf("Outcome = %v, want Passed", rec.Outcome)
	}
}

func TestSessionHasUniqueID(t *testing.T) {
	a, err := New(&memStore{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(&memStore{})
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == b.ID {
		t.Error("expected distinct session IDs across New calls")
	}
}

func TestStaleDetectsContentChange(t *testing.T) {
	sess, err := New(&memStore{})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "a_test.go")
	if err := os.WriteFile(path, []byte("package a\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	stale, err := sess.Stale(path)
	if err != nil {
		t.Fatalf("Stale: %v", err)
	}
	if stale {
		t.Error("first observation should never be stale")
	}

	if err := os.WriteFile(path, []byte("package a // changed\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	stale, err = sess.Stale(path)
	if err != nil {
		t.Fatalf("Stale: %v", err)
	}
	if !stale {
		t.Error("expected a content change to be detected as stale")
	}
}

func TestForgetResetsBaseline(t *testing.T) {
	sess, err := New(&memStore{})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "a_test.go")
	os.WriteFile(path, []byte("v1"), 0o644)
	sess.Stale(path)

	os.WriteFile(path, []byte("v2"), 0o644)
	sess.Forget(path)

	stale, err := sess.Stale(path)
	if err != nil {
		t.Fatal(err)
	}
	if stale {
		t.Error("Forget should reset the baseline so the next Stale call establishes a fresh one")
	}
}

type stubFramework struct{ applicable bool }

func (f *stubFramework) Name() string { return "stub" }
func (f *stubFramework) Applicable(ctx context.Context, root string) (bool, error) {
	return f.applicable, nil
}
func (f *stubFramework) Parse(ctx context.Context, files []string) ([]span.Span, error) {
	return nil, nil
}
func (f *stubFramework) DryRun(ctx context.Context, file string) error { return nil }
func (f *stubFramework) Exec(ctx context.Context, s span.Span) (*framework.Execution, error) {
	return nil, nil
}

func TestBootstrapResolvesFramework(t *testing.T) {
	root := t.TempDir()
	registry := framework.NewRegistry()
	registry.Register("stub", func() framework.Interface { return &stubFramework{applicable: true} })

	cfg := &config.Config{Root: root, Framework: "auto"}
	result, err := Bootstrap(context.Background(), cfg, registry)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if result.Framework.Name() != "stub" {
		t.Errorf("Framework = %q, want %q", result.Framework.Name(), "stub")
	}
}

func TestBootstrapRejectsMissingRoot(t *testing.T) {
	registry := framework.NewRegistry()
	cfg := &config.Config{Root: filepath.Join(t.TempDir(), "does-not-exist"), Framework: "auto"}

	if _, err := Bootstrap(context.Background(), cfg, registry); err == nil {
		t.Fatal("expected an error for a nonexistent project root")
	}
}
