// Package mutate implements the scoped acquisition of a file mutation: it
// writes a span-deleted version of a file to disk and guarantees the
// original bytes are restored on every exit path — success, error, panic,
// or cancellation — per spec §4.4/§4.6/§9's "scoped acquisition of
// mutations" design note.
//
// Grounded on core/src/util.rs's RemoveFile (a Drop-based scope guard) and
// the teacher's create/cleanup symmetry in its worktree lifecycle
// (cmd/ao/worktree.go, read for shape and deleted once adapted — see
// DESIGN.md): acquire mutates, release restores, unconditionally.
package mutate

import (
	"fmt"
	"os"

	"github.com/trailofbits/necessist-go/internal/rewriter"
	"github.com/trailofbits/necessist-go/internal/span"
)

// Guard holds the original bytes of a mutated file and restores them when
// Release is called. Callers must always `defer guard.Release()` immediately
// after a successful Acquire.
type Guard struct {
	path     string
	original []byte
	released bool
}

// Option configures Acquire. The one option, WithLinePreservingBlank,
// replaces a span's bytes with whitespace of equal byte length (preserving
// line/column numbers for the test runner's diagnostics) instead of
// deleting them outright. Spec §9 leaves this an
// implementation freedom; both behave identically from the driver's point
// of view since span byte ranges stay valid against the pre-mutation file
// either way.
type Option func(*options)

type options struct {
	linePreservingBlank bool
}

// WithLinePreservingBlank enables whitespace-of-equal-length substitution
// instead of outright deletion.
func WithLinePreservingBlank() Option {
	return func(o *options) { o.linePreservingBlank = true }
}

// Acquire reads path, writes a version with s's bytes removed (or blanked,
// per opts), and returns a Guard over the original contents. The caller
// owns restoring the file via Guard.Release.
func Acquire(path string, s span.Span, opts ...Option) (*Guard, error) {
	cfg := options{}
	for _, opt := range opts {
		opt(&cfg)
	}

	original, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s for mutation: %w", path, err)
	}

	replacement := ""
	if cfg.linePreservingBlank {
		replacement = blankPreservingNewlines(string(original[s.Start.Offset:s.End.Offset]))
	}

	r := rewriter.New(string(original))
	r.Rewrite(s.Start.Offset, s.End.Offset, replacement)
	mutated := r.Contents()

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s for mutation: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(mutated), info.Mode()); err != nil {
		return nil, fmt.Errorf("write mutated %s: %w", path, err)
	}

	return &Guard{path: path, original: original}, nil
}

// Release restores the file's original bytes. It is safe to call more than
// once; subsequent calls are no-ops. Intended to run via defer, including on
// panic unwind — os.WriteFile here is best-effort but failures are returned
// so the driver can log them rather than silently losing a file's content.
func (g *Guard) Release() error {
	if g.released {
		return nil
	}
	g.released = true

	info, err := os.Stat(g.path)
	mode := os.FileMode(0o644)
	if err == nil {
		mode = info.Mode()
	}
	if err := os.WriteFile(g.path, g.original, mode); err != nil {
		return fmt.Errorf("restore %s after mutation: %w", g.path, err)
	}
	return nil
}

// blankPreservingNewlines replaces every non-newline byte of removed with a
// space, keeping embedded newlines intact so line numbers downstream of the
// span are unaffected.
func blankPreservingNewlines(removed string) string {
	out := make([]byte, len(removed))
	for i := 0; i < len(removed); i++ {
		if removed[i] == '\n' {
			out[i] = '\n'
		} else {
			out[i] = ' '
		}
	}
	return string(out)
}
