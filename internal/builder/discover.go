// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package builder

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cockroachdb/errors"
)

// defaultExcludes are never treated as documents.
var defaultExcludes = []string{
	"**/.git/**",
	"**/node_modules/**",
}

// Discover walks sourceDir and returns the slash-separated relative paths of
// regular files matching at least one include pattern and no exclude
// pattern, sorted. Directories listed in skipDirs are not descended into.
func Discover(sourceDir string, include, exclude []string, skipDirs ...string) ([]string, error) {
	absSource, err := filepath.Abs(sourceDir)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving source directory %s", sourceDir)
	}

	skip := make(map[string]bool, len(skipDirs))
	for _, dir := range skipDirs {
		if dir == "" {
			continue
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving %s", dir)
		}
		skip[abs] = true
	}

	excludes := append(append([]string(nil), defaultExcludes...), exclude...)

	var paths []string
	err = filepath.WalkDir(absSource, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if p != absSource && skip[p] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(absSource, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if matchAny(include, rel) && !matchAny(excludes, rel) {
			paths = append(paths, rel)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrapf(err, "source directory %s", sourceDir)
		}
		return nil, errors.Wrapf(err, "walking %s", sourceDir)
	}

	sort.Strings(paths)
	return paths, nil
}

// Matches reports whether the slash-separated relative path rel is selected
// by include and not removed by exclude or the default excludes.
func Matches(rel string, include, exclude []string) bool {
	rel = filepath.ToSlash(rel)
	return matchAny(include, rel) && !matchAny(defaultExcludes, rel) && !matchAny(exclude, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if matched, err := doublestar.Match(pat, rel); err == nil && matched {
			return true
		}
	}
	return false
}
