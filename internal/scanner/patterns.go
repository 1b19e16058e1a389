package scanner

import (
	"path"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gobwas/glob"
)

// Pattern is one compiled ignore or include entry.
//
// Entries follow .gitignore conventions: a name without '/' or '*' matches a
// file or directory of that name at any depth, a trailing '/' restricts the
// entry to directories, and a leading '/' anchors it to the scan root.
type Pattern struct {
	raw      string
	globs    []glob.Glob
	nameOnly bool
	dirOnly  bool
}

// String returns the pattern as written
func (p Pattern) String() string {
	return p.raw
}

// CompilePattern compiles a single entry
func CompilePattern(raw string) (Pattern, error) {
	p := Pattern{raw: raw}
	expr := strings.TrimSpace(raw)
	if expr == "" {
		return p, errors.New("empty pattern")
	}

	if strings.HasSuffix(expr, "/") {
		p.dirOnly = true
		expr = strings.TrimRight(expr, "/")
	}
	anchored := strings.HasPrefix(expr, "/")
	expr = strings.TrimLeft(expr, "/")
	if expr == "" {
		return p, errors.Newf("pattern %q matches nothing", raw)
	}
	p.nameOnly = !anchored && !strings.Contains(expr, "/")

	exprs := []string{expr}
	// "**/x" must also match x at the root
	if strings.HasPrefix(expr, "**/") {
		exprs = append(exprs, strings.TrimPrefix(expr, "**/"))
	}
	for _, e := range exprs {
		g, err := glob.Compile(e, '/')
		if err != nil {
			return p, errors.Wrapf(err, "invalid pattern %q", raw)
		}
		p.globs = append(p.globs, g)
	}
	return p, nil
}

// Match reports whether the slash-separated path rel (relative to the scan
// root) matches. isDir marks directory entries.
func (p Pattern) Match(rel string, isDir bool) bool {
	if p.dirOnly && !isDir {
		return false
	}
	subject := rel
	if p.nameOnly {
		subject = path.Base(rel)
	}
	for _, g := range p.globs {
		if g.Match(subject) {
			return true
		}
		// directories are tested with a trailing slash too, so "build/**"
		// prunes build itself
		if isDir && g.Match(subject+"/") {
			return true
		}
	}
	return false
}

// PatternSet is an ordered list of patterns
type PatternSet struct {
	patterns []Pattern
}

// CompilePatterns compiles entries, skipping blanks and '#' comments
func CompilePatterns(entries []string) (*PatternSet, error) {
	set := &PatternSet{}
	for _, entry := range entries {
		trimmed := strings.TrimSpace(entry)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		p, err := CompilePattern(trimmed)
		if err != nil {
			return nil, err
		}
		set.patterns = append(set.patterns, p)
	}
	return set, nil
}

// Empty reports whether the set has no patterns
func (s *PatternSet) Empty() bool {
	return s == nil || len(s.patterns) == 0
}

// Match reports whether any pattern matches rel
func (s *PatternSet) Match(rel string, isDir bool) bool {
	if s == nil {
		return false
	}
	for _, p := range s.patterns {
		if p.Match(rel, isDir) {
			return true
		}
	}
	return false
}

// MatchPath reports whether any pattern matches the file rel or one of its
// ancestor directories
func (s *PatternSet) MatchPath(rel string) bool {
	if s.Match(rel, false) {
		return true
	}
	for dir := path.Dir(rel); dir != "." && dir != "/"; dir = path.Dir(dir) {
		if s.Match(dir, true) {
			return true
		}
	}
	return false
}
