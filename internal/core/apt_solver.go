package core

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/crillab/gophersat/solver"

	"debstage/internal/types"
)

// aptVarKey maps a SAT variable ID back to its package name and version.
type aptVarKey struct {
	Name    string
	Version string
}

// aptSolverState holds the bookkeeping for one SAT solver invocation.
type aptSolverState struct {
	packageVars map[string][]int
	varMeta     map[int]types.AptPackage
	varKey      map[int]aptVarKey
	varID       int
	costLits    []solver.Lit
	costWeights []int
}

// solveSAT picks the cheapest consistent set of package versions that
// includes every requested package. Each selected package costs one unit
// plus one per version it lags behind the newest, so the solver prefers a
// small closure of current versions.
func (s closureState) solveSAT(ctx context.Context, requested []string) (map[string]types.AptPackage, error) {
	state := s.buildSolverState(s.reachable(requested))
	if state.varID == 0 {
		return map[string]types.AptPackage{}, nil
	}
	clauses, err := s.buildSolverClauses(state, requested)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	problem := solver.ParseSliceNb(clauses, state.varID)
	problem.SetCostFunc(state.costLits, state.costWeights)
	sat := solver.New(problem)
	if cost := sat.Minimize(); cost < 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("apt solver found no satisfiable solution")
	}
	model := sat.Model()
	selected := map[string]types.AptPackage{}
	for id, key := range state.varKey {
		if id-1 < 0 || id-1 >= len(model) || !model[id-1] {
			continue
		}
		selected[key.Name] = state.varMeta[id]
	}
	return selected, nil
}

// buildSolverState enumerates every (package, version) pair of names as a
// SAT variable.
func (s closureState) buildSolverState(names []string) aptSolverState {
	state := aptSolverState{
		packageVars: map[string][]int{},
		varMeta:     map[int]types.AptPackage{},
		varKey:      map[int]aptVarKey{},
	}
	for _, name := range names {
		for rank, pkg := range s.packages[name] {
			if pkg.Version == "" {
				continue
			}
			state.varID++
			id := state.varID
			state.packageVars[name] = append(state.packageVars[name], id)
			state.varMeta[id] = pkg
			state.varKey[id] = aptVarKey{Name: name, Version: pkg.Version}
			state.costLits = append(state.costLits, solver.IntToLit(int32(id))) //nolint:gosec // bounded by the number of package versions
			state.costWeights = append(state.costWeights, 1+rank)
		}
	}
	return state
}

// buildSolverClauses generates at-most-one clauses per package, a demand
// clause per requested package and an implication clause per dependency
// group of every candidate version.
func (s closureState) buildSolverClauses(state aptSolverState, requested []string) ([][]int, error) {
	var clauses [][]int
	for _, ids := range state.packageVars {
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				clauses = append(clauses, []int{-ids[i], -ids[j]})
			}
		}
	}
	for _, name := range requested {
		ids := state.packageVars[name]
		if len(ids) == 0 {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg(fmt.Sprintf("no apt candidates for %s", name))
		}
		clauses = append(clauses, append([]int(nil), ids...))
	}
	for id, meta := range state.varMeta {
		for _, group := range s.dependencyGroups(meta) {
			var candidates []int
			for _, alt := range parseAptAlternatives(group) {
				matches, err := s.candidates(alt)
				if err != nil {
					return nil, err
				}
				for _, match := range matches {
					if versionIDs, ok := state.packageVars[match.Name]; ok {
						for _, vid := range versionIDs {
							if state.varKey[vid].Version == match.Version {
								candidates = append(candidates, vid)
							}
						}
					}
				}
			}
			candidates = uniqueInts(candidates)
			if len(candidates) == 0 {
				clauses = append(clauses, []int{-id})
				continue
			}
			clauses = append(clauses, uniqueInts(append([]int{-id}, candidates...)))
		}
	}
	return clauses, nil
}

// uniqueInts deduplicates a slice of ints while preserving order.
func uniqueInts(values []int) []int {
	seen := map[int]struct{}{}
	out := make([]int, 0, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
