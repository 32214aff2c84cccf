package core

import (
	"context"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"debstage/internal/ports"
	"debstage/internal/types"
)

// Selector decides which packages of an index get installed into a root.
//
// Packages in the essential tier and packages listed in the manifest are
// forced to keep unless they were requested explicitly, even when a
// requested package depends on them. The resulting install set therefore
// has unmet dependencies from the index's point of view; those packages
// are assumed present on every system consuming the root.
type Selector struct {
	Closure ClosureOptions
}

func NewSelector(opts ClosureOptions) Selector {
	return Selector{Closure: opts}
}

// Select marks requested and their dependencies for install and applies
// the exclusion policy. The first requested name missing from the index
// aborts selection with a *types.PackageNotFoundError.
func (s Selector) Select(ctx context.Context, index ports.IndexPort, manifest []string, requested []string) (types.Selection, error) {
	if index == nil {
		return types.Selection{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("selector requires an open index")
	}
	requested = normalizeRequested(requested)
	for _, name := range requested {
		if _, ok := index.Candidate(name); !ok {
			return types.Selection{}, &types.PackageNotFoundError{Name: name}
		}
	}
	manifestDeps := intersectManifest(manifest, index.Names())

	closure, err := resolveClosure(ctx, index.Packages(), requested, s.Closure)
	if err != nil {
		return types.Selection{}, err
	}

	selection := types.NewSelection()
	selection.Requested = requested
	for name, pkg := range closure {
		selection.Decisions[name] = types.DecisionInstall
		selection.Versions[name] = pkg.Version
	}

	wanted := toSet(requested)
	for _, name := range index.Names() {
		if _, ok := wanted[name]; ok {
			continue
		}
		pkg, ok := index.Candidate(name)
		if ok {
			assert.NotEmpty(ctx, pkg.Name, "index candidate must carry a package name")
		}
		if ok && pkg.IsEssentialTier() {
			selection = skip(ctx, selection, name, types.SkipReasonEssential)
			continue
		}
		if _, listed := manifestDeps[name]; listed {
			selection = skip(ctx, selection, name, types.SkipReasonManifest)
		}
	}

	log.Ctx(ctx).Debug().
		Int("install", len(selection.Installs())).
		Int("kept", len(selection.Kept())).
		Msg("selection completed")
	return selection, nil
}

// skip forces name to keep and records why. Packages the closure had
// pulled in are reported at info level, the rest at debug.
func skip(ctx context.Context, selection types.Selection, name string, reason types.SkipReason) types.Selection {
	pulled := selection.Decision(name) == types.DecisionInstall
	selection.Decisions[name] = types.DecisionKeep
	delete(selection.Versions, name)
	selection.Events = append(selection.Events, types.SelectionEvent{Package: name, Reason: reason, Pulled: pulled})
	event := log.Ctx(ctx).Debug()
	if pulled {
		event = log.Ctx(ctx).Info()
	}
	event.Str("package", name).
		Str("reason", string(reason)).
		Msg("skipping package assumed present on base system")
	return selection
}

func normalizeRequested(values []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, value := range values {
		name := strings.TrimSpace(value)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func intersectManifest(manifest []string, known []string) map[string]struct{} {
	index := toSet(known)
	out := map[string]struct{}{}
	for _, name := range manifest {
		name = strings.TrimSpace(name)
		if _, ok := index[name]; ok {
			out[name] = struct{}{}
		}
	}
	return out
}

func toSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, value := range values {
		out[value] = struct{}{}
	}
	return out
}
