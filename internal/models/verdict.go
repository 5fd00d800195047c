package models

import "fmt"

// Verdict classifies a directory path against an inclusion policy.
// It is computed per directory, not per member.
type Verdict int

const (
	// NoMatch means nothing directly inside the directory is included.
	NoMatch Verdict = iota
	// HasIncludedPrefix means the directory lies below an included path.
	HasIncludedPrefix
	// AtIncludedPath means the directory is itself an included path.
	AtIncludedPath
	// AtIncludedPackageWithOverride means only specifically included
	// members of the directory are accepted.
	AtIncludedPackageWithOverride
)

// String returns the string representation of Verdict.
func (v Verdict) String() string {
	switch v {
	case NoMatch:
		return "NO_MATCH"
	case HasIncludedPrefix:
		return "HAS_INCLUDED_PREFIX"
	case AtIncludedPath:
		return "AT_INCLUDED_PATH"
	case AtIncludedPackageWithOverride:
		return "AT_INCLUDED_PACKAGE_WITH_POSSIBLE_OVERRIDE"
	default:
		return "UNKNOWN"
	}
}

// Includes reports whether every member under a directory with this
// verdict is accepted without a per-path check.
func (v Verdict) Includes() bool {
	return v == HasIncludedPrefix || v == AtIncludedPath
}

// MarshalText implements encoding.TextMarshaler.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Verdict) UnmarshalText(text []byte) error {
	for _, candidate := range []Verdict{NoMatch, HasIncludedPrefix, AtIncludedPath, AtIncludedPackageWithOverride} {
		if candidate.String() == string(text) {
			*v = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown verdict %q", string(text))
}
