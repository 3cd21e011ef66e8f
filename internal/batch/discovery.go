package batch

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultIncludes matches every Python source file.
var DefaultIncludes = []string{"**/*.py"}

// DefaultIgnores skips virtualenvs, caches and VCS metadata.
var DefaultIgnores = []string{
	".git/**",
	".logsift/**",
	"**/__pycache__/**",
	"**/.venv/**",
	"**/venv/**",
	"**/.tox/**",
	"**/node_modules/**",
}

// compiledPattern holds the pattern string and its compiled globs. rooted
// is the pattern without a leading "**/", so "**/*.py" also matches
// "app.py" and "**/venv/**" also matches "venv/lib".
type compiledPattern struct {
	pattern string
	glob    glob.Glob
	rooted  glob.Glob
}

// Discovery finds source files under a root with include and ignore globs.
type Discovery struct {
	rootDir        string
	includes       []compiledPattern
	ignorePatterns []compiledPattern
}

// NewDiscovery compiles the patterns. Patterns use '/' as separator and are
// matched against paths relative to rootDir.
func NewDiscovery(rootDir string, includes, ignores []string) (*Discovery, error) {
	d := &Discovery{rootDir: rootDir}

	var err error
	if d.includes, err = compilePatterns(includes); err != nil {
		return nil, err
	}
	if d.ignorePatterns, err = compilePatterns(ignores); err != nil {
		return nil, err
	}
	return d, nil
}

func compilePatterns(patterns []string) ([]compiledPattern, error) {
	out := make([]compiledPattern, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		cp := compiledPattern{pattern: pattern, glob: g}
		if simplified, ok := strings.CutPrefix(pattern, "**/"); ok {
			if cp.rooted, err = glob.Compile(simplified, '/'); err != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
			}
		}
		out = append(out, cp)
	}
	return out, nil
}

// Discover walks the tree and returns matching files in lexical order.
// A root that is itself a file is returned as is.
func (d *Discovery) Discover() ([]string, error) {
	files := []string{}

	err := filepath.WalkDir(d.rootDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == d.rootDir && !entry.IsDir() {
			files = append(files, path)
			return nil
		}

		relPath, err := filepath.Rel(d.rootDir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if entry.IsDir() {
			if relPath != "." && d.shouldIgnore(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Matches(relPath) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// Matches reports whether a slash-separated relative path is included and
// not ignored.
func (d *Discovery) Matches(relPath string) bool {
	return !d.shouldIgnore(relPath) && matchesAnyPattern(relPath, d.includes)
}

// shouldIgnore checks if a path matches any ignore pattern.
func (d *Discovery) shouldIgnore(relPath string) bool {
	if matchesAnyPattern(relPath, d.ignorePatterns) {
		return true
	}

	// A directory "venv" should match the pattern "venv/**".
	return matchesAnyPattern(relPath+"/**", d.ignorePatterns)
}

// matchesAnyPattern checks if a path matches any of the given patterns.
func matchesAnyPattern(path string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(path) || (cp.rooted != nil && cp.rooted.Match(path)) {
			return true
		}
	}
	return false
}
