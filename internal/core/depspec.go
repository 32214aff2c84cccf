package core

import (
	"strings"

	"debstage/internal/types"
)

// aptDepSpec is a single parsed dependency token with an optional version
// constraint (e.g. "libfoo (>= 1.0)").
type aptDepSpec struct {
	Name        string
	Constraints []types.Constraint
}

// parseAptAlternatives splits a pipe-separated dependency group (e.g.
// "libfoo | libbar (>= 2)") into individual aptDepSpec values.
func parseAptAlternatives(group string) []aptDepSpec {
	parts := strings.Split(group, "|")
	var out []aptDepSpec
	for _, part := range parts {
		spec := parseAptDepSpec(part)
		if spec.Name == "" {
			continue
		}
		out = append(out, spec)
	}
	return out
}

// parseAptDepSpec parses "libfoo:any (>= 1.2) [amd64]" into a name and an
// optional constraint. Architecture qualifiers and filters are dropped.
func parseAptDepSpec(value string) aptDepSpec {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return aptDepSpec{}
	}
	if idx := strings.Index(raw, "["); idx >= 0 {
		raw = strings.TrimSpace(raw[:idx])
	}
	if idx := strings.Index(raw, " <"); idx >= 0 {
		raw = strings.TrimSpace(raw[:idx])
	}
	name := raw
	constraintPart := ""
	if before, after, ok := strings.Cut(raw, "("); ok {
		name = strings.TrimSpace(before)
		constraintPart = strings.TrimSpace(after)
		if trimmed, ok := strings.CutSuffix(constraintPart, ")"); ok {
			constraintPart = trimmed
		}
	}
	name = normalizeAptDepName(name)
	if name == "" {
		return aptDepSpec{}
	}
	op, version, ok := splitAptRelation(constraintPart)
	if !ok {
		return aptDepSpec{Name: name}
	}
	return aptDepSpec{
		Name: name,
		Constraints: []types.Constraint{
			{Name: name, Op: op, Version: version},
		},
	}
}

// splitAptRelation handles both "(>= 1.0)" and the unspaced "(>=1.0)".
func splitAptRelation(value string) (types.ConstraintOp, string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", "", false
	}
	for _, token := range []string{">=", "<=", "<<", ">>", "=", "<", ">"} {
		if rest, ok := strings.CutPrefix(value, token); ok {
			version := strings.TrimSpace(rest)
			op, known := aptConstraintOp(token)
			if !known || version == "" {
				return "", "", false
			}
			return op, version, true
		}
	}
	return "", "", false
}

func normalizeAptDepName(value string) string {
	name := strings.TrimSpace(value)
	if idx := strings.Index(name, ":"); idx >= 0 {
		name = strings.TrimSpace(name[:idx])
	}
	return name
}

// aptConstraintOp maps an apt relation token to a ConstraintOp. The
// deprecated "<" and ">" mean "<=" and ">=" in Debian policy.
func aptConstraintOp(token string) (types.ConstraintOp, bool) {
	switch token {
	case ">=", ">":
		return types.ConstraintOpGte, true
	case "<=", "<":
		return types.ConstraintOpLte, true
	case "=":
		return types.ConstraintOpEq, true
	case "<<":
		return types.ConstraintOpLt, true
	case ">>":
		return types.ConstraintOpGt, true
	default:
		return "", false
	}
}
