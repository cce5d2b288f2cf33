package index

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// DefaultIgnorePatterns are skipped in every tree.
var DefaultIgnorePatterns = []string{
	".git",
	"node_modules",
	"__pycache__",
	"*.pyc",
	".DS_Store",
	"*.lock",
	"*.log",
	"vendor",
	"dist",
	"build",
	".idea",
	".vscode",
}

// IgnoreFileNames are read from the walk root, in order.
var IgnoreFileNames = []string{".gitignore", ".chunkignore"}

// IgnoreFilter decides which paths under root are skipped, using gitignore
// semantics: later patterns win and "!" re-includes.
type IgnoreFilter struct {
	root    string
	matcher gitignore.Matcher
}

// NewIgnoreFilter loads the default patterns plus root's ignore files.
func NewIgnoreFilter(root string, extra ...string) (*IgnoreFilter, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	patterns := make([]gitignore.Pattern, 0, len(DefaultIgnorePatterns)+len(extra))
	for _, list := range [][]string{DefaultIgnorePatterns, extra} {
		for _, p := range list {
			patterns = append(patterns, gitignore.ParsePattern(p, nil))
		}
	}
	for _, name := range IgnoreFileNames {
		loaded, err := readIgnoreFile(filepath.Join(abs, name))
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, loaded...)
	}

	return &IgnoreFilter{root: abs, matcher: gitignore.NewMatcher(patterns)}, nil
}

func readIgnoreFile(path string) ([]gitignore.Pattern, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var patterns []gitignore.Pattern
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return patterns, scanner.Err()
}

// Root returns the absolute root the filter is anchored at.
func (f *IgnoreFilter) Root() string {
	return f.root
}

// ShouldIgnore reports whether path (absolute, or relative to the root) is
// excluded. Paths outside the root are never ignored.
func (f *IgnoreFilter) ShouldIgnore(path string, isDir bool) bool {
	if !filepath.IsAbs(path) {
		path = filepath.Join(f.root, path)
	}
	rel, err := filepath.Rel(f.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}

	return f.matcher.Match(strings.Split(filepath.ToSlash(rel), "/"), isDir)
}
