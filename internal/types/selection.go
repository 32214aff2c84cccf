package types

import "sort"

// SelectionEvent records a package the selector forced to keep. Pulled
// is true when dependency resolution had marked it for install.
type SelectionEvent struct {
	Package string
	Reason  SkipReason
	Pulled  bool
}

// Selection is the outcome of one selection pass. It is a plain value:
// nothing in the index session is mutated to produce it.
//
// Installs may reference packages whose dependencies were forced to keep.
// That is intentional: essential and manifest packages are assumed to be
// present on the consuming system, so the install set is allowed to be
// inconsistent from the index's point of view.
type Selection struct {
	Decisions map[string]Decision
	Versions  map[string]string
	Requested []string
	Events    []SelectionEvent
}

func NewSelection() Selection {
	return Selection{
		Decisions: map[string]Decision{},
		Versions:  map[string]string{},
	}
}

// Decision returns the decision for name, unresolved when it was never
// touched.
func (s Selection) Decision(name string) Decision {
	if d, ok := s.Decisions[name]; ok {
		return d
	}
	return DecisionUnresolved
}

// Installs returns every install-marked package name, sorted.
func (s Selection) Installs() []string {
	var out []string
	for name, decision := range s.Decisions {
		if decision == DecisionInstall {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Kept returns every package forced to keep, sorted.
func (s Selection) Kept() []string {
	var out []string
	for name, decision := range s.Decisions {
		if decision == DecisionKeep {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// UnpackReport summarizes an extraction run.
type UnpackReport struct {
	Archives         []string
	RepairedSymlinks int
}
