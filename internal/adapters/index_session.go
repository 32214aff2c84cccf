package adapters

import (
	"sort"

	debversion "github.com/knqyf263/go-deb-version"

	"debstage/internal/ports"
	"debstage/internal/types"
)

// IndexSession is an opened, read-only package index for one root.
type IndexSession struct {
	root       string
	packages   map[string][]types.AptPackage
	candidates map[string]types.AptPackage
	names      []string
}

func NewIndexSession(root string, snapshot types.IndexSnapshot) *IndexSession {
	session := &IndexSession{
		root:       root,
		packages:   map[string][]types.AptPackage{},
		candidates: map[string]types.AptPackage{},
	}
	for name, versions := range snapshot.Packages {
		if len(versions) == 0 {
			continue
		}
		ordered := sortDebPackages(append([]types.AptPackage(nil), versions...))
		session.packages[name] = ordered
		session.candidates[name] = ordered[len(ordered)-1]
		session.names = append(session.names, name)
	}
	sort.Strings(session.names)
	return session
}

func (s *IndexSession) Root() string {
	return s.root
}

func (s *IndexSession) Names() []string {
	return append([]string(nil), s.names...)
}

func (s *IndexSession) Candidate(name string) (types.AptPackage, bool) {
	pkg, ok := s.candidates[name]
	return pkg, ok
}

func (s *IndexSession) Packages() map[string][]types.AptPackage {
	return s.packages
}

// sortDebPackages orders versions ascending by Debian version. Unparseable
// versions fall back to lexicographic ordering.
func sortDebPackages(versions []types.AptPackage) []types.AptPackage {
	sort.SliceStable(versions, func(i, j int) bool {
		vi, err := debversion.NewVersion(versions[i].Version)
		if err != nil {
			return versions[i].Version < versions[j].Version
		}
		vj, err := debversion.NewVersion(versions[j].Version)
		if err != nil {
			return versions[i].Version < versions[j].Version
		}
		return vi.Compare(vj) < 0
	})
	return versions
}

var _ ports.IndexPort = (*IndexSession)(nil)
