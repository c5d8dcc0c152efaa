// Package outcome defines the four-valued classification of a mutation's
// effect on a test suite. Grounded on core/src/outcome.rs; the stable string
// forms and the (deliberately inverted) color mapping are load-bearing for
// the text log and the reporter.
package outcome

import (
	"fmt"

	"github.com/fatih/color"
)

// Outcome classifies what happened when a span was removed and the
// enclosing test(s) were rerun.
type Outcome int

const (
	// Nonbuildable means the project would not build after the removal, or
	// the framework's dry-run baseline itself failed.
	Nonbuildable Outcome = iota
	// Failed means a test failed after the removal — the removal was
	// detected, a good sign for the suite.
	Failed
	// TimedOut means the per-mutation deadline elapsed before the test
	// runner produced a verdict.
	TimedOut
	// Passed means the suite still passed after the removal — the removal
	// went undetected, the finding this tool exists to surface.
	Passed
)

// all enumerates every Outcome value, in the same order as the Rust
// original's EnumIter-derived iteration, used by Parse.
var all = []Outcome{Nonbuildable, Failed, TimedOut, Passed}

// String renders the outcome's stable, kebab-case wire form, matching the
// original's ToKebabCase-on-Debug implementation.
func (o Outcome) String() string {
	switch o {
	case Nonbuildable:
		return "nonbuildable"
	case Failed:
		return "failed"
	case TimedOut:
		return "timed-out"
	case Passed:
		return "passed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Parse parses an Outcome from its String form, the inverse used when
// reloading persisted records.
func Parse(s string) (Outcome, error) {
	for _, o := range all {
		if o.String() == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("unknown outcome %q", s)
}

// Color returns the outcome's reporter color.
//
// The mapping is intentionally inverted from what a reader expects:
// Passed is red because a test suite passing after code was deleted from it
// is the alarming signal in this domain, not a good one. Nonbuildable/Failed/
// TimedOut are all inconclusive-to-reassuring by comparison. Preserve this
// exactly; it is not a bug.
func (o Outcome) Color() *color.Color {
	switch o {
	case Nonbuildable:
		return color.New(color.FgBlue)
	case Failed:
		return color.New(color.FgGreen)
	case TimedOut:
		return color.New(color.FgYellow)
	case Passed:
		return color.New(color.FgRed)
	default:
		return color.New(color.Reset)
	}
}

// Finding reports whether this outcome is the kind the tool exists to
// surface: a removal that nothing detected.
func (o Outcome) Finding() bool { return o == Passed }

// Inconclusive reports whether this outcome leaves no signal either way.
func (o Outcome) Inconclusive() bool { return o == Nonbuildable || o == TimedOut }
