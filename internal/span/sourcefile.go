// Package span holds the core data model shared by every other package in this
// module: the project-relative source file handle and the byte-range span
// candidates discovered within it.
package span

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SourceFile is a project-relative file handle. It is immutable after
// construction and shared read-only by every Span derived from it.
type SourceFile struct {
	root string
	path string
}

// NewSourceFile builds a SourceFile, asserting that path lies under root.
// Both must already be absolute, cleaned paths.
func NewSourceFile(root, path string) (*SourceFile, error) {
	if !filepath.IsAbs(root) {
		return nil, fmt.Errorf("source file root is not absolute: %s", root)
	}
	if !filepath.IsAbs(path) {
		return nil, fmt.Errorf("source file path is not absolute: %s", path)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
		return nil, fmt.Errorf("%s is not under root %s", path, root)
	}
	return &SourceFile{root: root, path: path}, nil
}

// Root returns the project root this file was discovered under.
func (f *SourceFile) Root() string { return f.root }

// Path returns the absolute path to the file.
func (f *SourceFile) Path() string { return f.path }

// RelativePath returns the path relative to Root, the form used for display
// and as the stable part of a span locator.
func (f *SourceFile) RelativePath() string {
	rel, err := filepath.Rel(f.root, f.path)
	if err != nil {
		return f.path
	}
	return filepath.ToSlash(rel)
}

// Key is the canonical comparison/map key for a SourceFile. Go's value
// semantics make the original's Rc<PathBuf> sharing unnecessary; two
// independently constructed handles to the same file compare equal via Key
// rather than pointer identity.
func (f *SourceFile) Key() string { return f.root + "\x00" + f.path }

// String gives the path relative to root, matching the original's Display
// implementation.
func (f *SourceFile) String() string { return f.RelativePath() }

// Less orders source files by relative path, for deterministic discovery
// iteration order.
func (f *SourceFile) Less(other *SourceFile) bool {
	return f.RelativePath() < other.RelativePath()
}

// Equal reports whether two handles refer to the same file.
func (f *SourceFile) Equal(other *SourceFile) bool {
	if f == nil || other == nil {
		return f == other
	}
	return f.Key() == other.Key()
}
