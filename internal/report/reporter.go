// Package report streams per-span outcomes to the user and prints a final
// tally. Grounded on spec §4.7 and the teacher's use of text/tabwriter for
// aligned CLI output (its deleted cmd/ao/store.go); colorization reuses
// internal/outcome.Color's intentionally inverted palette.
package report

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"text/tabwriter"

	"github.com/trailofbits/necessist-go/internal/outcome"
	"github.com/trailofbits/necessist-go/internal/span"
)

// Reporter streams (span, outcome) pairs and accumulates a per-outcome
// tally. Safe for concurrent use by multiple worker goroutines; Emit calls
// are serialized so lines from different files never interleave mid-write.
type Reporter struct {
	out io.Writer
	mu  sync.Mutex

	counts map[outcome.Outcome]int
}

// New returns a Reporter that writes to out.
func New(out io.Writer) *Reporter {
	return &Reporter{
		out:    out,
		counts: make(map[outcome.Outcome]int),
	}
}

// Emit streams a single span/outcome result and records it into the tally.
func (r *Reporter) Emit(s span.Span, o outcome.Outcome, url string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counts[o]++

	line := s.String()
	if url != "" {
		line = fmt.Sprintf("%s (%s)", line, url)
	}
	o.Color().Fprintf(r.out, "[%s] %s\n", o, line)
}

// Tally writes the final per-outcome counts as an aligned table.
func (r *Reporter) Tally() {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "outcome\tcount")
	for _, o := range sortedOutcomes(r.counts) {
		fmt.Fprintf(w, "%s\t%d\n", o, r.counts[o])
	}
	w.Flush()
}

// Count returns the number of times o has been emitted so far.
func (r *Reporter) Count(o outcome.Outcome) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[o]
}

// Findings returns the number of Passed outcomes emitted so far — the
// count of removals the test suite failed to detect.
func (r *Reporter) Findings() int {
	return r.Count(outcome.Passed)
}

func sortedOutcomes(counts map[outcome.Outcome]int) []outcome.Outcome {
	outcomes := make([]outcome.Outcome, 0, len(counts))
	for o := range counts {
		outcomes = append(outcomes, o)
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i] < outcomes[j] })
	return outcomes
}
