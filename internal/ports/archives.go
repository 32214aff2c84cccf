package ports

import (
	"context"

	"debstage/internal/types"
)

// ArchiveFetcherPort downloads the archives of every install-marked
// package into stagingDir and returns the staged file paths.
type ArchiveFetcherPort interface {
	Fetch(ctx context.Context, index IndexPort, selection types.Selection, stagingDir string) ([]string, error)
}

// ExtractorPort extracts a single .deb archive into destRoot.
type ExtractorPort interface {
	Name() string
	Extract(ctx context.Context, archivePath string, destRoot string) error
}

// UnpackerPort extracts every staged archive into targetRoot and repairs
// absolute symlinks afterwards.
type UnpackerPort interface {
	Unpack(ctx context.Context, stagingDir string, targetRoot string) (types.UnpackReport, error)
}
