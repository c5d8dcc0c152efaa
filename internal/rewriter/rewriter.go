// Package rewriter implements the offset-based source rewriter: given a
// sequence of non-overlapping, strictly ascending byte ranges and their
// replacement text, it produces the rewritten source in a single pass.
// Grounded on core/src/offset_based_rewriter/{mod,impls}.rs.
package rewriter

import "fmt"

// Rewriter accumulates a monotone sequence of range replacements over an
// immutable original string.
type Rewriter struct {
	original string
	built    []byte
	offset   int
	done     bool
}

// New creates a Rewriter over original. The original string must outlive
// every call to Rewrite.
func New(original string) *Rewriter {
	return &Rewriter{original: original, built: make([]byte, 0, len(original))}
}

// Rewrite replaces original[start:end] with replacement and returns the
// slice of original text that was replaced, for caller inspection (e.g. the
// driver logs or re-checks the removed text). It panics if start is before
// the end of the previously rewritten range, or if end < start — the
// monotone-disjoint precondition from spec §4.2.
func (r *Rewriter) Rewrite(start, end int, replacement string) string {
	if r.done {
		panic("rewriter: Rewrite called after contents() finalized")
	}
	if end < start {
		panic(fmt.Sprintf("rewriter: end %d precedes start %d", end, start))
	}
	if start < r.offset {
		panic(fmt.Sprintf("rewriter: non-monotone or overlapping rewrite: start %d < current offset %d", start, r.offset))
	}
	if end > len(r.original) {
		panic(fmt.Sprintf("rewriter: end %d exceeds original length %d", end, len(r.original)))
	}

	r.built = append(r.built, r.original[r.offset:start]...)
	replaced := r.original[start:end]
	r.built = append(r.built, replacement...)
	r.offset = end

	return replaced
}

// Contents finalizes the rewrite, appending the original's unconsumed tail,
// and returns the full rewritten string. The Rewriter must not be used
// again afterward.
func (r *Rewriter) Contents() string {
	if !r.done {
		r.built = append(r.built, r.original[r.offset:]...)
		r.done = true
	}
	return string(r.built)
}
