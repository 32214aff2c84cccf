package adapters

import (
	"context"
	"os"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"debstage/internal/ports"
	"debstage/internal/types"
)

// IndexFileAdapter opens a previously persisted index snapshot instead of
// refreshing from the network. The sources document is still written so
// the root looks the same as after an online refresh.
type IndexFileAdapter struct {
	Path string
}

func NewIndexFileAdapter(path string) IndexFileAdapter {
	return IndexFileAdapter{Path: path}
}

func (a IndexFileAdapter) Open(ctx context.Context, root string, sources string) (ports.IndexPort, error) {
	if _, err := ParseSources(sources); err != nil {
		return nil, &types.IndexOpenError{Root: root, Cause: err}
	}
	if err := writeSourcesList(root, sources); err != nil {
		return nil, &types.IndexOpenError{Root: root, Cause: err}
	}
	snapshot, err := loadSnapshot(a.Path)
	if err != nil {
		return nil, &types.IndexOpenError{Root: root, Cause: err}
	}
	log.Ctx(ctx).Info().
		Str("snapshot", a.Path).
		Int("packages", len(snapshot.Packages)).
		Msg("package index loaded")
	return NewIndexSession(root, snapshot), nil
}

func loadSnapshot(path string) (types.IndexSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.IndexSnapshot{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("index snapshot not found").
			WithCause(err)
	}
	var snapshot types.IndexSnapshot
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return types.IndexSnapshot{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid index snapshot format").
			WithCause(err)
	}
	if snapshot.Packages == nil {
		snapshot.Packages = map[string][]types.AptPackage{}
	}
	for name, versions := range snapshot.Packages {
		for i := range versions {
			if versions[i].Name == "" {
				versions[i].Name = name
			}
		}
	}
	return snapshot, nil
}

var _ ports.IndexOpenerPort = IndexFileAdapter{}
