package types

// Constraint is a single version relation parsed from a Depends-style
// field, e.g. "libc6 (>= 2.31)".
type Constraint struct {
	Name    string
	Op      ConstraintOp
	Version string
}
