// Package policy decides which container members a scan accepts.
//
// Decisions are made per directory: Classify returns a models.Verdict for a
// directory path ending in "/" (or the root sentinel "/"). Directories that
// only hold specifically included files are reported as
// AtIncludedPackageWithOverride, and the scanner then asks
// IsPathSpecificallyIncluded for each member.
package policy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar"
	"github.com/harrison/resscan/internal/models"
)

// Root is the directory path of members that have no parent directory.
const Root = "/"

// ErrInvalidPattern indicates a malformed accept-file glob.
var ErrInvalidPattern = errors.New("invalid pattern")

// Evaluator classifies directories and checks per-path overrides.
// Implementations must be safe for concurrent use.
type Evaluator interface {
	Classify(dir string) models.Verdict
	IsPathSpecificallyIncluded(path string) bool
}

// PrefixPolicy accepts members by directory prefix.
//
// Accept and Reject hold directory paths such as "com/example/". Reject wins
// over Accept. With no Accept or AcceptFiles entries every directory that is
// not rejected is included. AcceptFiles holds doublestar globs matched against
// full member paths; the directory part of each glob (up to its first
// wildcard) is reported as an override directory.
type PrefixPolicy struct {
	accept      []string
	reject      []string
	acceptFiles []string
	overrides   map[string]struct{}
	anyOverride bool
}

// NewPrefixPolicy builds a policy, normalising directory entries and
// validating every accept-file glob.
func NewPrefixPolicy(accept, reject, acceptFiles []string) (*PrefixPolicy, error) {
	p := &PrefixPolicy{
		accept:    normalizeDirs(accept),
		reject:    normalizeDirs(reject),
		overrides: make(map[string]struct{}),
	}
	for _, pat := range acceptFiles {
		pat = strings.TrimPrefix(strings.TrimSpace(pat), "/")
		if pat == "" {
			continue
		}
		// Matching a glob against itself parses every component.
		if _, err := doublestar.Match(pat, pat); err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, pat, err)
		}
		p.acceptFiles = append(p.acceptFiles, pat)
		dir, wild := patternDir(pat)
		if wild {
			// A glob like "**/*.properties" or "com/*/x.txt" can hit
			// any directory below its fixed part.
			p.anyOverride = true
		}
		p.overrides[dir] = struct{}{}
	}
	return p, nil
}

// MustPrefixPolicy is like NewPrefixPolicy but panics on an invalid glob.
func MustPrefixPolicy(accept, reject, acceptFiles []string) *PrefixPolicy {
	p, err := NewPrefixPolicy(accept, reject, acceptFiles)
	if err != nil {
		panic(err)
	}
	return p
}

// Classify returns the verdict for dir.
func (p *PrefixPolicy) Classify(dir string) models.Verdict {
	dir = normalizeDir(dir)

	for _, r := range p.reject {
		if hasDirPrefix(dir, r) {
			return models.NoMatch
		}
	}
	if len(p.accept) == 0 && len(p.acceptFiles) == 0 {
		return models.HasIncludedPrefix
	}
	for _, a := range p.accept {
		if dir == a {
			return models.AtIncludedPath
		}
	}
	for _, a := range p.accept {
		if hasDirPrefix(dir, a) {
			return models.HasIncludedPrefix
		}
	}
	if _, ok := p.overrides[dir]; ok {
		return models.AtIncludedPackageWithOverride
	}
	if p.anyOverride {
		for od := range p.overrides {
			if hasDirPrefix(dir, od) {
				return models.AtIncludedPackageWithOverride
			}
		}
	}
	return models.NoMatch
}

// IsPathSpecificallyIncluded reports whether path matches an accept-file glob.
func (p *PrefixPolicy) IsPathSpecificallyIncluded(path string) bool {
	path = strings.TrimPrefix(path, "/")
	for _, pat := range p.acceptFiles {
		if ok, err := doublestar.Match(pat, path); err == nil && ok {
			return true
		}
	}
	return false
}

// ParentDir returns the directory of a member path including the trailing
// separator, or Root when the member sits at the top of the container.
func ParentDir(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return Root
	}
	return path[:i+1]
}

// hasDirPrefix reports whether dir is prefix or lies below it. Root is the
// prefix of everything.
func hasDirPrefix(dir, prefix string) bool {
	if prefix == Root {
		return true
	}
	return strings.HasPrefix(dir, prefix)
}

// patternDir returns the fixed directory part of a glob and whether any
// wildcard appears before the file name.
func patternDir(pat string) (string, bool) {
	fixed := pat
	wild := false
	if i := strings.IndexAny(pat, "*?[{"); i >= 0 {
		fixed = pat[:i]
		wild = strings.Contains(pat[i:], "/") || strings.HasPrefix(pat[i:], "**")
	}
	return ParentDir(fixed), wild
}

func normalizeDirs(dirs []string) []string {
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if strings.TrimSpace(d) == "" {
			continue
		}
		out = append(out, normalizeDir(d))
	}
	return out
}

// normalizeDir strips a leading "/" and ensures a trailing one. Empty and "/"
// both become Root.
func normalizeDir(dir string) string {
	dir = strings.TrimSpace(dir)
	dir = strings.Trim(dir, "/")
	if dir == "" {
		return Root
	}
	return dir + "/"
}
