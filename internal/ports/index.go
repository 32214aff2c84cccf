package ports

import (
	"context"

	"debstage/internal/types"
)

// IndexPort is an open package index scoped to one root directory. It is
// read-only: selection state lives in types.Selection, not in the index.
type IndexPort interface {
	Root() string
	Names() []string
	// Candidate returns the version apt would pick for name, the highest
	// one known to the index.
	Candidate(name string) (types.AptPackage, bool)
	Packages() map[string][]types.AptPackage
}

// IndexOpenerPort refreshes and opens a package index for a root using
// the given sources.list document.
type IndexOpenerPort interface {
	Open(ctx context.Context, root string, sources string) (IndexPort, error)
}
