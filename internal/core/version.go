package core

import (
	"sort"

	"github.com/ZanzyTHEbar/errbuilder-go"
	debversion "github.com/knqyf263/go-deb-version"

	"debstage/internal/types"
)

// versionCache memoizes parsed Debian versions; the same version strings
// are compared many times while walking dependency groups.
type versionCache struct {
	deb map[string]debversion.Version
}

func newVersionCache() *versionCache {
	return &versionCache{deb: map[string]debversion.Version{}}
}

func (c *versionCache) debVersion(value string) (debversion.Version, error) {
	if parsed, ok := c.deb[value]; ok {
		return parsed, nil
	}
	parsed, err := debversion.NewVersion(value)
	if err != nil {
		return debversion.Version{}, err
	}
	c.deb[value] = parsed
	return parsed, nil
}

// compare returns -1, 0, or 1. Unparseable versions fall back to a plain
// string comparison so ordering stays deterministic.
func (c *versionCache) compare(a string, b string) int {
	v1, err1 := c.debVersion(a)
	v2, err2 := c.debVersion(b)
	if err1 != nil || err2 != nil {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		default:
			return 0
		}
	}
	return v1.Compare(v2)
}

// satisfies checks a version against every constraint using Debian
// version semantics.
func (c *versionCache) satisfies(version string, constraints []types.Constraint) (bool, error) {
	if len(constraints) == 0 {
		return true, nil
	}
	v, err := c.debVersion(version)
	if err != nil {
		return false, err
	}
	for _, constraint := range constraints {
		if constraint.Op == types.ConstraintOpNone {
			continue
		}
		want, err := c.debVersion(constraint.Version)
		if err != nil {
			return false, err
		}
		switch constraint.Op {
		case types.ConstraintOpEq:
			if !v.Equal(want) {
				return false, nil
			}
		case types.ConstraintOpGte:
			if v.LessThan(want) {
				return false, nil
			}
		case types.ConstraintOpLte:
			if v.GreaterThan(want) {
				return false, nil
			}
		case types.ConstraintOpGt:
			if !v.GreaterThan(want) {
				return false, nil
			}
		case types.ConstraintOpLt:
			if !v.LessThan(want) {
				return false, nil
			}
		default:
			return false, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("unsupported constraint operator")
		}
	}
	return true, nil
}

// sortNewestFirst returns a copy of versions ordered from highest to
// lowest Debian version.
func sortNewestFirst(versions []types.AptPackage, cache *versionCache) []types.AptPackage {
	ordered := append([]types.AptPackage(nil), versions...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return cache.compare(ordered[i].Version, ordered[j].Version) > 0
	})
	return ordered
}
