package types

// IndexSnapshot is the merged view of every Packages list fetched for a
// root. It is persisted as YAML so later runs can reopen it offline.
type IndexSnapshot struct {
	Architecture string                  `yaml:"architecture,omitempty"`
	Packages     map[string][]AptPackage `yaml:"packages"`
}

// AptPackage is one binary package stanza from a Packages list.
type AptPackage struct {
	Name         string   `yaml:"name"`
	Version      string   `yaml:"version"`
	Architecture string   `yaml:"architecture,omitempty"`
	Priority     Priority `yaml:"priority,omitempty"`
	Essential    bool     `yaml:"essential,omitempty"`
	Depends      []string `yaml:"depends,omitempty"`
	PreDepends   []string `yaml:"pre_depends,omitempty"`
	Recommends   []string `yaml:"recommends,omitempty"`
	Provides     []string `yaml:"provides,omitempty"`
	Filename     string   `yaml:"filename,omitempty"`
	Size         int64    `yaml:"size,omitempty"`
	SHA256       string   `yaml:"sha256,omitempty"`
	BaseURL      string   `yaml:"base_url,omitempty"`
}

// IsEssentialTier reports whether the package is assumed present on any
// base system, either by priority or by the Essential control field.
func (p AptPackage) IsEssentialTier() bool {
	return p.Priority == PriorityEssential || p.Essential
}
