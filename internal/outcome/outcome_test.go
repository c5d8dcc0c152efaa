package outcome

import "testing"

func TestOutcomeStringRoundTrip(t *testing.T) {
	for _, o := range all {
		s := o.String()
		parsed, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q): %v", s, err)
		}
		if parsed != o {
			t.Errorf("Parse(String(%v)) = %v, want %v", o, parsed, o)
		}
	}
}

func TestParseUnknown(t *testing.T) {
	if _, err := Parse("bogus"); err == nil {
		t.Error("expected error for unknown outcome string")
	}
}

func TestOutcomeStrings(t *testing.T) {
	cases := map[Outcome]string{
		Nonbuildable: "nonbuildable",
		Failed:       "failed",
		TimedOut:     "timed-out",
		Passed:       "passed",
	}
	for o, want := range cases {
		if got := o.String(); got != want {
			t.Errorf("%v.String() = %q, want %q", o, got, want)
		}
	}
}

func TestFindingOnlyPassed(t *testing.T) {
	for _, o := range all {
		want := o == Passed
		if got := o.Finding(); got != want {
			t.Errorf("%v.Finding() = %v, want %v", o, got, want)
		}
	}
}

func TestInconclusive(t *testing.T) {
	if !Nonbuildable.Inconclusive() || !TimedOut.Inconclusive() {
		t.Error("expected Nonbuildable and TimedOut to be inconclusive")
	}
	if Failed.Inconclusive() || Passed.Inconclusive() {
		t.Error("expected Failed and Passed not to be inconclusive")
	}
}
