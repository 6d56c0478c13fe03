package npmver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/npmyap/yap/internal/yaperr"
)

// op identifies the kind of a parsed comparator atom.
type op int

const (
	opAny op = iota
	opExact
	opGT
	opGTE
	opLT
	opLTE
	opTilde
	opCaret
	opRange
	opXRange
)

// atom is one parsed comparator, e.g. ">=1.2.0" or the two-version range
// "1.0.0 - 2.0.0".
type atom struct {
	kind op
	v    Version // the comparator's pivot version (unused for opAny)
	hi   Version // upper bound, only used for opRange

	// xMajor/xMinor/xSpecified describe a partial version like "1.x" or
	// bare "1" or "1.2": xSpecified is how many of the leading components
	// are fixed (1 or 2), the rest are wild.
	xMajor, xMinor, xSpecified int
}

// Constraint is a parsed version specifier: a disjunction of conjunctions
// of atoms. "||" separates disjuncts, whitespace separates the comparator
// atoms of a conjunct.
type Constraint struct {
	raw       string
	disjuncts [][]atom
}

// String returns the original specifier text the Constraint was parsed
// from.
func (c Constraint) String() string { return c.raw }

// ParseConstraint parses a version specifier into its disjunction-of-
// conjunctions form.
func ParseConstraint(s string) (Constraint, error) {
	raw := s
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || trimmed == "*" {
		return Constraint{raw: raw, disjuncts: [][]atom{{{kind: opAny}}}}, nil
	}

	var disjuncts [][]atom
	for _, side := range strings.Split(trimmed, "||") {
		atoms, err := parseConjunction(side)
		if err != nil {
			return Constraint{}, &yaperr.InvalidConstraintError{Input: raw, Err: err}
		}
		disjuncts = append(disjuncts, atoms)
	}
	return Constraint{raw: raw, disjuncts: disjuncts}, nil
}

func parseConjunction(side string) ([]atom, error) {
	tokens := strings.Fields(side)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty comparator expression")
	}

	var atoms []atom
	for i := 0; i < len(tokens); {
		// Range form: "a - b" is exactly three whitespace-separated tokens
		// with a bare "-" in the middle.
		if i+2 < len(tokens) && tokens[i+1] == "-" {
			lo, err := parsePivot(tokens[i])
			if err != nil {
				return nil, err
			}
			hi, err := parsePivot(tokens[i+2])
			if err != nil {
				return nil, err
			}
			atoms = append(atoms, atom{kind: opRange, v: lo, hi: hi})
			i += 3
			continue
		}

		a, err := parseAtom(tokens[i])
		if err != nil {
			return nil, err
		}
		atoms = append(atoms, a)
		i++
	}
	return atoms, nil
}

// parseAtom recognizes a single comparator token. The operator is
// determined strictly by prefix, checked longest-first so ">=" is never
// mistaken for ">" followed by a stray "=".
func parseAtom(tok string) (atom, error) {
	if tok == "*" || tok == "" || tok == "x" || tok == "X" {
		return atom{kind: opAny}, nil
	}

	type prefixOp struct {
		prefix string
		kind   op
	}
	prefixes := []prefixOp{
		{">=", opGTE},
		{"<=", opLTE},
		{">", opGT},
		{"<", opLT},
		{"~", opTilde},
		{"^", opCaret},
	}
	for _, p := range prefixes {
		if strings.HasPrefix(tok, p.prefix) {
			v, err := parsePivot(strings.TrimSpace(tok[len(p.prefix):]))
			if err != nil {
				return atom{}, err
			}
			return atom{kind: p.kind, v: v}, nil
		}
	}

	if maj, min, n, ok := parsePartial(tok); ok {
		return atom{kind: opXRange, xMajor: maj, xMinor: min, xSpecified: n}, nil
	}

	v, err := ParseVersion(tok)
	if err != nil {
		return atom{}, err
	}
	return atom{kind: opExact, v: v}, nil
}

// parsePivot parses the version following a comparator, tilde or caret
// prefix. npm accepts partial pivots there ("^1", "~1.2"), so missing
// (or x/X/*) minor and patch components are treated as zero rather than
// rejected the way a standalone version string would be.
func parsePivot(s string) (Version, error) {
	if v, err := ParseVersion(s); err == nil {
		return v, nil
	}
	rest := s
	if i := strings.IndexByte(rest, '+'); i >= 0 {
		rest = rest[:i]
	}
	if i := strings.IndexByte(rest, '-'); i >= 0 {
		rest = rest[:i]
	}
	parts := strings.Split(rest, ".")
	if len(parts) > 3 {
		return Version{}, &yaperr.InvalidVersionError{Input: s, Err: fmt.Errorf("too many components")}
	}
	nums := [3]int{}
	for i, p := range parts {
		if p == "x" || p == "X" || p == "*" {
			break
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, &yaperr.InvalidVersionError{Input: s, Err: fmt.Errorf("non-numeric component %q", p)}
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// parsePartial recognizes a partial version like "1", "1.2", "1.x", or
// "1.2.x" — npm's shorthand for "any version with this major (and minor)".
// A fully-specified numeric "1.2.3" is left to the caller's exact-version
// path and returns ok=false here.
func parsePartial(tok string) (major, minor, specified int, ok bool) {
	isWild := func(s string) bool { return s == "x" || s == "X" || s == "*" }
	parts := strings.Split(tok, ".")
	if len(parts) == 0 || len(parts) > 3 || isWild(parts[0]) {
		return 0, 0, 0, false
	}
	m, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, false
	}
	if len(parts) == 1 {
		return m, 0, 1, true
	}
	if isWild(parts[1]) {
		return m, 0, 1, true
	}
	mi, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, 0, false
	}
	if len(parts) == 2 {
		return m, mi, 2, true
	}
	if isWild(parts[2]) {
		return m, mi, 2, true
	}
	return 0, 0, 0, false
}

// Match reports whether v satisfies c: true if any disjunct (conjunction
// of atoms) matches in full.
func (c Constraint) Match(v Version) bool {
	for _, conj := range c.disjuncts {
		if matchesAll(v, conj) {
			return true
		}
	}
	return false
}

func matchesAll(v Version, atoms []atom) bool {
	for _, a := range atoms {
		if !matchesAtom(v, a) {
			return false
		}
	}
	return true
}

func matchesAtom(v Version, a atom) bool {
	switch a.kind {
	case opAny:
		return true
	case opExact:
		return Equal(v, a.v)
	case opGT:
		return Compare(v, a.v) > 0
	case opGTE:
		return Compare(v, a.v) >= 0
	case opLT:
		return Compare(v, a.v) < 0
	case opLTE:
		return Compare(v, a.v) <= 0
	case opTilde:
		return v.Major == a.v.Major && v.Minor == a.v.Minor && v.Patch >= a.v.Patch
	case opCaret:
		return matchesCaret(v, a.v)
	case opRange:
		return Compare(v, a.v) >= 0 && Compare(v, a.hi) <= 0
	case opXRange:
		if a.xSpecified == 1 {
			return v.Major == a.xMajor
		}
		return v.Major == a.xMajor && v.Minor == a.xMinor
	default:
		return false
	}
}

// matchesCaret implements npm's caret semantics: the left-most non-zero
// component of the pivot is the compatibility boundary.
//
//   - major > 0: match same major, >= pivot.
//   - major == 0, minor > 0: match major 0, same minor, >= pivot.
//   - major == 0, minor == 0: pin to the exact patch (only the given patch
//     matches — there is no wider compatible range left to express).
func matchesCaret(v, c Version) bool {
	switch {
	case c.Major > 0:
		return v.Major == c.Major && Compare(v, c) >= 0
	case c.Minor > 0:
		return v.Major == 0 && v.Minor == c.Minor && Compare(v, c) >= 0
	default:
		return v.Major == 0 && v.Minor == 0 && v.Patch == c.Patch && comparePre(v.Pre, c.Pre) == 0
	}
}

// pivots collects every version literal appearing in the constraint, used
// to decide whether a prerelease candidate is in scope for Select.
func (c Constraint) pivots() []Version {
	var out []Version
	for _, conj := range c.disjuncts {
		for _, a := range conj {
			switch a.kind {
			case opAny:
			case opRange:
				out = append(out, a.v, a.hi)
			default:
				out = append(out, a.v)
			}
		}
	}
	return out
}

// allowsPrerelease reports whether v's prerelease status is permitted by
// the constraint: npm only considers a prerelease version a candidate when
// the constraint itself pins to the same major.minor.patch with a
// prerelease tag.
func (c Constraint) allowsPrerelease(v Version) bool {
	for _, p := range c.pivots() {
		if p.Pre != "" && p.Major == v.Major && p.Minor == v.Minor && p.Patch == v.Patch {
			return true
		}
	}
	return false
}

// Select returns the highest version in available that satisfies c,
// excluding prereleases unless the constraint's own pivot version carries
// one for the same major.minor.patch (per npm rules).
func Select(c Constraint, available []Version) (Version, bool) {
	var candidates []Version
	for _, v := range available {
		if !c.Match(v) {
			continue
		}
		if v.IsPrerelease() && !c.allowsPrerelease(v) {
			continue
		}
		candidates = append(candidates, v)
	}
	if len(candidates) == 0 {
		return Version{}, false
	}
	return Max(candidates), true
}
