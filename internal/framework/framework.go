// Package framework defines the abstract contract every concrete
// test-framework adapter satisfies. Adapters themselves (go test, jest,
// pytest, ...) are out of scope per spec §1; only the contract and the
// zero-adapter selector live here, grounded on
// necessist/src/framework/mod.rs and core/src/framework/empty.rs.
package framework

import (
	"context"
	"os/exec"

	"github.com/trailofbits/necessist-go/internal/span"
)

// Postprocess interprets a completed process's captured output into an
// outcome-relevant verdict once the process has exited. Returning an error
// signals the framework could not interpret the output (treated as
// Nonbuildable by the driver); a nil error with ok=false signals the test
// runner reported a failure.
type Postprocess func(stdout, stderr []byte) (ok bool, err error)

// Execution is what Exec hands back to the driver: a running process plus
// an optional Postprocess to interpret it.
type Execution struct {
	Cmd         *exec.Cmd
	Postprocess Postprocess
}

// Interface is the contract the Mutation Driver depends on. Every concrete
// adapter (external to this module) satisfies it.
type Interface interface {
	// Name identifies the adapter, e.g. "cargo", "jest", "pytest".
	Name() string

	// Applicable reports whether this adapter recognizes the project
	// rooted at root (a marker file, a config fragment, ...).
	Applicable(ctx context.Context, root string) (bool, error)

	// Parse enumerates syntactic removal candidates across the given
	// files. Returned spans are duplicate-free and non-overlapping within
	// a single test.
	Parse(ctx context.Context, files []string) ([]span.Span, error)

	// DryRun establishes the baseline: file must build and its tests must
	// pass before any mutation of it is attempted.
	DryRun(ctx context.Context, file string) error

	// Exec launches the test(s) whose outcome decides s. A nil Execution
	// with a nil error means the span is inconclusive and should be
	// skipped rather than classified.
	Exec(ctx context.Context, s span.Span) (*Execution, error)
}
