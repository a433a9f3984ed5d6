// Package version defines the total order over project version strings
// and the constraint-matching rules used by environment lookup, index
// resolution, and graph building.
//
// Versions are compared by semantic-version precedence. A string that
// does not parse as a semantic version still participates: it matches
// only exact-equality constraints and orders lexicographically below
// every valid semantic version. This keeps selection total and
// deterministic without rejecting free-form versions outright.
package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Compare returns -1, 0, or 1 ordering a before, equal to, or after b.
func Compare(a, b string) int {
	va, errA := semver.StrictNewVersion(a)
	vb, errB := semver.StrictNewVersion(b)
	switch {
	case errA == nil && errB == nil:
		return va.Compare(vb)
	case errA == nil:
		return 1
	case errB == nil:
		return -1
	default:
		return strings.Compare(a, b)
	}
}

// Matches reports whether v satisfies constraint. An empty constraint
// means any version. A constraint that is itself not parseable, or a
// version that is not semantic, degrades to exact string equality.
func Matches(v, constraint string) bool {
	if constraint == "" {
		return true
	}
	ver, err := semver.StrictNewVersion(v)
	if err != nil {
		return v == constraint
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return v == constraint
	}
	return c.Check(ver)
}

// Select picks the best version from candidates: the greatest one
// satisfying constraint. It returns false when none satisfies.
func Select(candidates []string, constraint string) (string, bool) {
	best := ""
	found := false
	for _, v := range candidates {
		v = strings.TrimSpace(v)
		if v == "" || !Matches(v, constraint) {
			continue
		}
		if !found || Compare(v, best) > 0 {
			best = v
			found = true
		}
	}
	return best, found
}
