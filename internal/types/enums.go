package types

type Decision string

const (
	DecisionUnresolved Decision = "unresolved"
	DecisionInstall    Decision = "install"
	DecisionKeep       Decision = "keep"
)

type Priority string

const (
	PriorityEssential Priority = "essential"
	PriorityRequired  Priority = "required"
	PriorityImportant Priority = "important"
	PriorityStandard  Priority = "standard"
	PriorityOptional  Priority = "optional"
	PriorityExtra     Priority = "extra"
)

type SkipReason string

const (
	SkipReasonEssential SkipReason = "essential"
	SkipReasonManifest  SkipReason = "manifest"
)

type ExtractorBackend string

const (
	ExtractorAuto    ExtractorBackend = "auto"
	ExtractorDpkgDeb ExtractorBackend = "dpkg-deb"
	ExtractorNative  ExtractorBackend = "native"
)

type ConstraintOp string

const (
	ConstraintOpNone ConstraintOp = ""
	ConstraintOpEq   ConstraintOp = "="
	ConstraintOpGte  ConstraintOp = ">="
	ConstraintOpLte  ConstraintOp = "<="
	ConstraintOpGt   ConstraintOp = ">"
	ConstraintOpLt   ConstraintOp = "<"
)
