package framework

import (
	"context"
	"testing"

	"github.com/trailofbits/necessist-go/internal/span"
)

type stubFramework struct {
	name        string
	applicable  bool
	applyErr    error
}

func (s *stubFramework) Name() string { return s.name }
func (s *stubFramework) Applicable(ctx context.Context, root string) (bool, error) {
	return s.applicable, s.applyErr
}
func (s *stubFramework) Parse(ctx context.Context, files []string) ([]span.Span, error) {
	return nil, nil
}
func (s *stubFramework) DryRun(ctx context.Context, file string) error { return nil }
func (s *stubFramework) Exec(ctx context.Context, sp span.Span) (*Execution, error) {
	return nil, nil
}

func TestEmptyRegistryResolveFails(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Resolve(context.Background(), "/proj", ""); err == nil {
		t.Error("expected error resolving against an empty registry")
	}
}

func TestRegistryAutoDetectsFirstApplicable(t *testing.T) {
	r := NewRegistry()
	r.Register("cargo", func() Interface { return &stubFramework{name: "cargo", applicable: false} })
	r.Register("jest", func() Interface { return &stubFramework{name: "jest", applicable: true} })

	impl, err := r.Resolve(context.Background(), "/proj", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if impl.Name() != "jest" {
		t.Errorf("Resolve picked %q, want %q", impl.Name(), "jest")
	}
}

func TestRegistryExplicitNameSkipsApplicabilityProbe(t *testing.T) {
	r := NewRegistry()
	r.Register("cargo", func() Interface { return &stubFramework{name: "cargo", applicable: false} })

	impl, err := r.Resolve(context.Background(), "/proj", "cargo")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if impl.Name() != "cargo" {
		t.Errorf("Resolve picked %q, want %q", impl.Name(), "cargo")
	}
}

func TestRegistryUnknownExplicitName(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Resolve(context.Background(), "/proj", "nonexistent"); err == nil {
		t.Error("expected error for unknown framework name")
	}
}

func TestRegistryNamesPreservesPriorityOrder(t *testing.T) {
	r := NewRegistry()
	r.Register("a", func() Interface { return &stubFramework{name: "a"} })
	r.Register("b", func() Interface { return &stubFramework{name: "b"} })
	names := r.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Names() = %v, want [a b]", names)
	}
}
