// Package store provides append-only persistence of removal records,
// keyed by span, giving the driver its resumability. Generalized from the
// teacher's internal/storage package: the same mutex-guarded,
// load-into-memory-then-append shape, adapted from session/provenance
// records to removal records and from pure JSONL to the spec's tab-
// delimited locator format (plus an optional relational backend).
package store

import (
	"fmt"

	"github.com/trailofbits/necessist-go/internal/outcome"
	"github.com/trailofbits/necessist-go/internal/span"
)

// Record is a single persisted removal outcome, per spec §3.
type Record struct {
	Span    span.Span
	Outcome outcome.Outcome
	URL     string
}

// Store is the removal log's contract. Both the text-log and relational
// implementations satisfy it, so the driver is backend-agnostic — mirroring
// the teacher's storage.Storage interface over FileStorage.
type Store interface {
	// Contains reports whether a record for the given span key was already
	// persisted, the O(1) skip check that drives resumability.
	Contains(key string) bool

	// Append persists a new record. Implementations flush before
	// returning, so an abrupt exit leaves at most one span ambiguous.
	Append(rec Record) error

	// Load returns every record persisted so far, in append order.
	Load() ([]Record, error)

	// Close releases any resources (file handles, DB connections).
	Close() error
}

// FormatLine renders a record in the spec's §6 log line format:
// "span_locator outcome [url]", tab-delimited.
func FormatLine(rec Record) string {
	if rec.URL == "" {
		return fmt.Sprintf("%s\t%s", rec.Span.String(), rec.Outcome.String())
	}
	return fmt.Sprintf("%s\t%s\t%s", rec.Span.String(), rec.Outcome.String(), rec.URL)
}
