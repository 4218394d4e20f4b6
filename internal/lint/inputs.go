package lint

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/moby/patternmatcher"

	"winter/internal/plugin"
)

// ExpandInputs turns CLI arguments (files, directories, globs with ** support)
// into a sorted, de-duplicated list of files some bundle handles. Paths
// matching an exclude pattern are dropped. Directories named .git,
// node_modules, bin and obj are never descended into.
func ExpandInputs(reg *plugin.Registry, args, exclude []string) ([]string, error) {
	var excl *patternmatcher.PatternMatcher
	if len(exclude) > 0 {
		pm, err := patternmatcher.New(exclude)
		if err != nil {
			return nil, fmt.Errorf("exclude patterns: %w", err)
		}
		excl = pm
	}
	excluded := func(p string) bool {
		if excl == nil {
			return false
		}
		ok, err := excl.MatchesOrParentMatches(filepath.Clean(p))
		return err == nil && ok
	}

	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		p = filepath.Clean(p)
		key := pathKey(p)
		if seen[key] || excluded(p) || !reg.Supports(p) {
			return
		}
		seen[key] = true
		out = append(out, p)
	}

	for _, arg := range args {
		if hasMeta(arg) {
			if err := expandGlob(arg, add, excluded); err != nil {
				return nil, err
			}
			continue
		}
		info, err := os.Stat(arg)
		if err != nil {
			// отсутствующий файл попадёт в результат как io-error
			if reg.Supports(arg) {
				add(arg)
				continue
			}
			return nil, fmt.Errorf("input %s: %w", arg, err)
		}
		if !info.IsDir() {
			if !reg.Supports(arg) {
				log.Warningf("skipping %s: no bundle for its extension", arg)
			}
			add(arg)
			continue
		}
		if err := walkSupported(arg, add, excluded); err != nil {
			return nil, err
		}
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil, ErrNoInputs
	}
	return out, nil
}

// pathKey identifies a file independently of how it was spelled.
func pathKey(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// uniquePaths drops later spellings of a path already listed.
func uniquePaths(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		key := pathKey(p)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

func hasMeta(p string) bool {
	return strings.ContainsAny(p, "*?[")
}

var skippedDirs = map[string]bool{".git": true, "node_modules": true, "bin": true, "obj": true}

func walkSupported(root string, add func(string), excluded func(string) bool) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && (skippedDirs[d.Name()] || excluded(p)) {
				return filepath.SkipDir
			}
			return nil
		}
		add(p)
		return nil
	})
}

// expandGlob walks the static prefix of pattern and keeps files matching it.
func expandGlob(pattern string, add func(string), excluded func(string) bool) error {
	pm, err := patternmatcher.New([]string{pattern})
	if err != nil {
		return fmt.Errorf("glob %s: %w", pattern, err)
	}
	root := globRoot(pattern)
	if _, err := os.Stat(root); err != nil {
		return nil
	}
	return walkSupported(root, func(p string) {
		if ok, err := pm.MatchesOrParentMatches(p); err == nil && ok {
			add(p)
		}
	}, excluded)
}

func globRoot(pattern string) string {
	parts := strings.Split(filepath.ToSlash(pattern), "/")
	var static []string
	for _, part := range parts {
		if hasMeta(part) {
			break
		}
		static = append(static, part)
	}
	if len(static) == 0 {
		return "."
	}
	root := strings.Join(static, "/")
	if root == "" {
		root = "/"
	}
	return filepath.FromSlash(root)
}
