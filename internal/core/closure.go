package core

import (
	"context"

	"github.com/rs/zerolog/log"

	"debstage/internal/shared"
	"debstage/internal/types"
)

// ClosureOptions controls how install marks propagate to dependencies.
type ClosureOptions struct {
	Recommends bool
	UseSAT     bool
}

// providedBy maps a virtual package name to the concrete package versions
// declaring it in Provides.
type providedBy map[string][]types.AptPackage

// closureState is shared by the breadth-first and SAT resolvers.
type closureState struct {
	packages  map[string][]types.AptPackage
	providers providedBy
	cache     *versionCache
	opts      ClosureOptions
}

func newClosureState(packages map[string][]types.AptPackage, opts ClosureOptions) closureState {
	cache := newVersionCache()
	ordered := make(map[string][]types.AptPackage, len(packages))
	for name, versions := range packages {
		ordered[name] = sortNewestFirst(versions, cache)
	}
	return closureState{
		packages:  ordered,
		providers: buildProvideIndex(ordered),
		cache:     cache,
		opts:      opts,
	}
}

// resolveClosure returns the package versions that marking requested for
// install pulls in, requested packages included.
func resolveClosure(ctx context.Context, packages map[string][]types.AptPackage, requested []string, opts ClosureOptions) (map[string]types.AptPackage, error) {
	state := newClosureState(packages, opts)
	if opts.UseSAT {
		return state.solveSAT(ctx, requested)
	}
	return state.walk(ctx, requested)
}

// walk follows dependency groups breadth-first, always taking the newest
// candidate of the first satisfiable alternative, like apt's mark_install.
func (s closureState) walk(ctx context.Context, requested []string) (map[string]types.AptPackage, error) {
	selected := map[string]types.AptPackage{}
	queue := append([]string(nil), requested...)
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := queue[0]
		queue = queue[1:]
		if _, done := selected[name]; done {
			continue
		}
		versions := s.packages[name]
		if len(versions) == 0 {
			continue
		}
		pkg := versions[0]
		selected[name] = pkg
		for _, group := range s.dependencyGroups(pkg) {
			alts := parseAptAlternatives(group)
			if s.groupSatisfied(alts, selected) {
				continue
			}
			choice, ok, err := s.pickAlternative(alts)
			if err != nil {
				return nil, err
			}
			if !ok {
				log.Ctx(ctx).Debug().
					Str("package", name).
					Str("dependency", group).
					Msg("dependency cannot be satisfied from index")
				continue
			}
			queue = append(queue, choice.Name)
		}
	}
	return selected, nil
}

func (s closureState) dependencyGroups(pkg types.AptPackage) []string {
	groups := append([]string{}, pkg.PreDepends...)
	groups = append(groups, pkg.Depends...)
	if s.opts.Recommends {
		groups = append(groups, pkg.Recommends...)
	}
	return groups
}

// groupSatisfied reports whether an already selected package fulfills one
// of the alternatives.
func (s closureState) groupSatisfied(alts []aptDepSpec, selected map[string]types.AptPackage) bool {
	for _, alt := range alts {
		if pkg, ok := selected[alt.Name]; ok {
			if ok, err := s.cache.satisfies(pkg.Version, alt.Constraints); err == nil && ok {
				return true
			}
		}
		for _, provider := range s.providers[alt.Name] {
			chosen, ok := selected[provider.Name]
			if ok && chosen.Version == provider.Version && s.providesSatisfies(provider, alt) {
				return true
			}
		}
	}
	return false
}

// pickAlternative returns the first alternative whose install candidate
// satisfies it, preferring real packages over virtual providers. Only the
// newest version of a package is its candidate, since walk installs
// nothing else.
func (s closureState) pickAlternative(alts []aptDepSpec) (types.AptPackage, bool, error) {
	for _, alt := range alts {
		if versions := s.packages[alt.Name]; len(versions) > 0 {
			ok, err := s.cache.satisfies(versions[0].Version, alt.Constraints)
			if err != nil {
				return types.AptPackage{}, false, err
			}
			if ok {
				return versions[0], true, nil
			}
		}
		for _, provider := range s.providers[alt.Name] {
			if s.isCandidate(provider) && s.providesSatisfies(provider, alt) {
				return provider, true, nil
			}
		}
	}
	return types.AptPackage{}, false, nil
}

func (s closureState) isCandidate(pkg types.AptPackage) bool {
	versions := s.packages[pkg.Name]
	return len(versions) > 0 && versions[0].Version == pkg.Version
}

// candidates returns every version satisfying spec, real packages first
// (newest first) followed by providers ordered by name.
func (s closureState) candidates(spec aptDepSpec) ([]types.AptPackage, error) {
	var out []types.AptPackage
	for _, pkg := range s.packages[spec.Name] {
		ok, err := s.cache.satisfies(pkg.Version, spec.Constraints)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, pkg)
		}
	}
	for _, provider := range s.providers[spec.Name] {
		if s.providesSatisfies(provider, spec) {
			out = append(out, provider)
		}
	}
	return out, nil
}

// providesSatisfies checks a versioned requirement on a virtual package
// against the version the provider declares. Unversioned provides only
// satisfy unversioned requirements.
func (s closureState) providesSatisfies(provider types.AptPackage, spec aptDepSpec) bool {
	if len(spec.Constraints) == 0 {
		return true
	}
	for _, raw := range provider.Provides {
		provided := parseAptDepSpec(raw)
		if provided.Name != spec.Name || len(provided.Constraints) == 0 {
			continue
		}
		ok, err := s.cache.satisfies(provided.Constraints[0].Version, spec.Constraints)
		if err == nil && ok {
			return true
		}
	}
	return false
}

// reachable returns every package name that could be pulled in from
// requested through any alternative.
func (s closureState) reachable(requested []string) []string {
	seen := map[string]struct{}{}
	queue := append([]string(nil), requested...)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if _, ok := seen[name]; ok {
			continue
		}
		versions := s.packages[name]
		if len(versions) == 0 {
			continue
		}
		seen[name] = struct{}{}
		for _, pkg := range versions {
			for _, group := range s.dependencyGroups(pkg) {
				for _, alt := range parseAptAlternatives(group) {
					queue = append(queue, alt.Name)
					for _, provider := range s.providers[alt.Name] {
						queue = append(queue, provider.Name)
					}
				}
			}
		}
	}
	return shared.SortedKeys(seen)
}

// buildProvideIndex creates a reverse map from virtual package names to
// the concrete package versions that declare them.
func buildProvideIndex(packages map[string][]types.AptPackage) providedBy {
	out := providedBy{}
	for _, name := range shared.SortedKeys(packages) {
		for _, pkg := range packages[name] {
			for _, provide := range pkg.Provides {
				parsed := parseAptDepSpec(provide)
				if parsed.Name == "" {
					continue
				}
				out[parsed.Name] = append(out[parsed.Name], pkg)
			}
		}
	}
	return out
}
