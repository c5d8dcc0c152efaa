// Package discover implements the spec's first data-flow step ("Discover
// files → Framework.parse → ..."): producing the candidate file list a
// framework adapter will narrow down to actual test files. Framework-
// specific test-file recognition (is this a Cargo test module, a Jest
// spec, ...) is an adapter concern and stays out of scope; this package
// only walks the project tree and applies the CLI's positional-argument
// restriction.
package discover

import (
	"fmt"
	"os"
	"path/filepath"
)

// skipDirs names directories never descended into: VCS metadata and the
// package-manager/build caches the spec calls out as shared, built-once
// resources (§5) rather than scan targets.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"target":       true,
	"vendor":       true,
	".necessist":   true,
}

// Files resolves the set of files a run should consider. If explicit is
// non-empty (the CLI's positional file arguments), each path is resolved
// relative to root and returned verbatim — the caller is restricting the
// scan. Otherwise every regular file under root is walked and returned,
// skipDirs pruned, for the framework adapter to filter down to real test
// files via its own Parse logic.
func Files(root string, explicit []string) ([]string, error) {
	if len(explicit) > 0 {
		out := make([]string, 0, len(explicit))
		for _, f := range explicit {
			path := f
			if !filepath.IsAbs(path) {
				path = filepath.Join(root, f)
			}
			if _, err := os.Stat(path); err != nil {
				return nil, fmt.Errorf("file %s: %w", f, err)
			}
			out = append(out, path)
		}
		return out, nil
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}
