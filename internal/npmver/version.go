// Package npmver implements version parsing and npm-style constraint
// matching: the resolver's sole source of truth for "does this version
// satisfy that specifier".
package npmver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/npmyap/yap/internal/yaperr"
)

// Version is a parsed semver triple plus optional prerelease and build
// metadata. Build metadata is retained for String() but never affects
// ordering or equality, per semver precedence rules.
type Version struct {
	Major, Minor, Patch int
	Pre                 string
	Build               string
}

// IsPrerelease reports whether v carries a prerelease identifier.
func (v Version) IsPrerelease() bool { return v.Pre != "" }

func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Pre != "" {
		s += "-" + v.Pre
	}
	if v.Build != "" {
		s += "+" + v.Build
	}
	return s
}

// ParseVersion parses a "M.m.p[-pre][+build]" string.
func ParseVersion(s string) (Version, error) {
	v, err := parseVersion(s)
	if err != nil {
		return Version{}, &yaperr.InvalidVersionError{Input: s, Err: err}
	}
	return v, nil
}

func parseVersion(s string) (Version, error) {
	rest := s
	var build string
	if i := strings.IndexByte(rest, '+'); i >= 0 {
		build = rest[i+1:]
		rest = rest[:i]
		if build == "" {
			return Version{}, fmt.Errorf("empty build metadata in %q", s)
		}
	}
	var pre string
	if i := strings.IndexByte(rest, '-'); i >= 0 {
		pre = rest[i+1:]
		rest = rest[:i]
		if pre == "" {
			return Version{}, fmt.Errorf("empty prerelease in %q", s)
		}
	}
	parts := strings.Split(rest, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("expected M.m.p, got %q", s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		if p == "" {
			return Version{}, fmt.Errorf("empty version component in %q", s)
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("non-numeric version component %q in %q", p, s)
		}
		nums[i] = n
	}
	if pre != "" {
		for _, id := range strings.Split(pre, ".") {
			if id == "" {
				return Version{}, fmt.Errorf("empty prerelease identifier in %q", s)
			}
		}
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2], Pre: pre, Build: build}, nil
}

// Compare returns -1, 0, or 1 as a is less than, equal to, or greater than
// b, by semver precedence. Build metadata never participates.
func Compare(a, b Version) int {
	if c := compareInt(a.Major, b.Major); c != 0 {
		return c
	}
	if c := compareInt(a.Minor, b.Minor); c != 0 {
		return c
	}
	if c := compareInt(a.Patch, b.Patch); c != 0 {
		return c
	}
	return comparePre(a.Pre, b.Pre)
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// comparePre compares prerelease strings per semver precedence rules: a
// version with no prerelease outranks one with a prerelease, and shared
// dot-separated identifiers compare numerically when both are numeric and
// lexically otherwise.
func comparePre(a, b string) int {
	if a == "" && b == "" {
		return 0
	}
	if a == "" {
		return 1
	}
	if b == "" {
		return -1
	}
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := comparePreIdentifier(as[i], bs[i]); c != 0 {
			return c
		}
	}
	return compareInt(len(as), len(bs))
}

func comparePreIdentifier(a, b string) int {
	an, aerr := strconv.Atoi(a)
	bn, berr := strconv.Atoi(b)
	switch {
	case aerr == nil && berr == nil:
		return compareInt(an, bn)
	case aerr == nil:
		return -1 // numeric identifiers always sort before alphanumeric ones
	case berr == nil:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

// Equal reports whether a and b have identical major, minor, patch and
// prerelease (build metadata is ignored).
func Equal(a, b Version) bool { return Compare(a, b) == 0 }

// Max returns the highest of the given versions by semver precedence. It
// panics if versions is empty; callers are expected to guard that.
func Max(versions []Version) Version {
	best := versions[0]
	for _, v := range versions[1:] {
		if Compare(v, best) > 0 {
			best = v
		}
	}
	return best
}
