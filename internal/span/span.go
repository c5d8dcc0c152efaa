package span

import (
	"fmt"
	"strconv"
	"strings"
)

// Position is a (line, column, byte offset) triple. Line is 1-based, column
// is 0-based, matching the convention parsers hand the offset calculator.
type Position struct {
	Line   int
	Column int
	Offset int
}

// Less orders positions by line then column.
func (p Position) Less(other Position) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Column < other.Column
}

// Span is a contiguous byte range in a SourceFile, the core datum this
// module enumerates and removes.
type Span struct {
	File  *SourceFile
	Start Position
	End   Position
}

// New validates the start<=end invariant in both line/column and byte order
// before constructing a Span.
func New(file *SourceFile, start, end Position) (Span, error) {
	if end.Less(start) {
		return Span{}, fmt.Errorf("span end %v precedes start %v", end, start)
	}
	if end.Offset < start.Offset {
		return Span{}, fmt.Errorf("span end offset %d precedes start offset %d", end.Offset, start.Offset)
	}
	return Span{File: file, Start: start, End: end}, nil
}

// Text returns the span's slice of the given full file contents.
func (s Span) Text(contents string) string {
	return contents[s.Start.Offset:s.End.Offset]
}

// Less gives the total order used to process spans within a file: ascending
// start line, then column, then end.
func (s Span) Less(other Span) bool {
	if !s.Start.Less(other.Start) && !other.Start.Less(s.Start) {
		return s.End.Less(other.End)
	}
	return s.Start.Less(other.Start)
}

// Overlaps reports whether two spans (assumed to be in the same file) share
// any bytes.
func (s Span) Overlaps(other Span) bool {
	return s.Start.Offset < other.End.Offset && other.Start.Offset < s.End.Offset
}

// Key is the store's lookup key: relative path plus the byte range, per
// spec §4.5.
func (s Span) Key() string {
	return fmt.Sprintf("%s:%d:%d", s.File.RelativePath(), s.Start.Offset, s.End.Offset)
}

// String renders the span's stable locator form:
// <relative_path>:<start_line>:<start_column>-<end_line>:<end_column>.
func (s Span) String() string {
	return fmt.Sprintf("%s:%d:%d-%d:%d", s.File.RelativePath(), s.Start.Line, s.Start.Column, s.End.Line, s.End.Column)
}

// ParseLocator parses a locator string produced by Span.String back into its
// file-relative path and line/column endpoints. Byte offsets are not encoded
// in the locator and are left zero; callers that need them must re-derive
// them from the source text via the offset calculator.
func ParseLocator(s string) (relPath string, start, end Position, err error) {
	// <path>:<l>:<c>-<l>:<c> — split from the right since the path itself
	// may contain colons on some platforms, but never contains the dash
	// that separates start from end once the last two colon-delimited
	// fields are stripped off each side.
	dash := strings.LastIndex(s, "-")
	if dash < 0 {
		return "", Position{}, Position{}, fmt.Errorf("invalid span locator %q: missing '-'", s)
	}
	head, tail := s[:dash], s[dash+1:]

	headParts := strings.Split(head, ":")
	if len(headParts) < 3 {
		return "", Position{}, Position{}, fmt.Errorf("invalid span locator %q: malformed start", s)
	}
	startCol, err := strconv.Atoi(headParts[len(headParts)-1])
	if err != nil {
		return "", Position{}, Position{}, fmt.Errorf("invalid span locator %q: %w", s, err)
	}
	startLine, err := strconv.Atoi(headParts[len(headParts)-2])
	if err != nil {
		return "", Position{}, Position{}, fmt.Errorf("invalid span locator %q: %w", s, err)
	}
	relPath = strings.Join(headParts[:len(headParts)-2], ":")

	tailParts := strings.Split(tail, ":")
	if len(tailParts) != 2 {
		return "", Position{}, Position{}, fmt.Errorf("invalid span locator %q: malformed end", s)
	}
	endLine, err := strconv.Atoi(tailParts[0])
	if err != nil {
		return "", Position{}, Position{}, fmt.Errorf("invalid span locator %q: %w", s, err)
	}
	endCol, err := strconv.Atoi(tailParts[1])
	if err != nil {
		return "", Position{}, Position{}, fmt.Errorf("invalid span locator %q: %w", s, err)
	}

	return relPath, Position{Line: startLine, Column: startCol}, Position{Line: endLine, Column: endCol}, nil
}

// VCSURL derives the spec's §6 blob-URL form when a remote base and commit
// are known; it returns "" when either input is empty, matching "when
// available" in the spec.
func VCSURL(remoteBase, commit string, s Span) string {
	if remoteBase == "" || commit == "" {
		return ""
	}
	return fmt.Sprintf("%s/blob/%s/%s#L%d-L%d", strings.TrimRight(remoteBase, "/"), commit, s.File.RelativePath(), s.Start.Line, s.End.Line)
}
