package app

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"debstage/internal/adapters"
	"debstage/internal/core"
	"debstage/internal/ports"
	"debstage/internal/types"
)

const downloadDirName = "download"

// Sources renders the sources document for the service architecture. The
// geo hint is only consulted for architectures served by the main archive.
func (s Service) Sources(ctx context.Context, req SourcesRequest) (SourcesResult, error) {
	hint := types.GeoHintUnavailable()
	if core.IsPrimaryArchitecture(s.Arch) && s.Geo != nil {
		hint = s.Geo.Lookup(ctx)
	}
	document, err := core.FormatSources(ctx, req.Template, s.Arch, req.Release, hint)
	if err != nil {
		return SourcesResult{}, err
	}
	return SourcesResult{Document: document, Hint: hint}, nil
}

// Plan opens the index for req.Root and runs selection without fetching.
func (s Service) Plan(ctx context.Context, req GetRequest) (PlanResult, error) {
	plan, _, err := s.plan(ctx, req)
	return plan, err
}

func (s Service) plan(ctx context.Context, req GetRequest) (PlanResult, ports.IndexPort, error) {
	root, err := requireRoot(req.Root)
	if err != nil {
		return PlanResult{}, nil, err
	}
	sources, err := s.Sources(ctx, SourcesRequest{Template: req.Template, Release: req.Release})
	if err != nil {
		return PlanResult{}, nil, err
	}
	manifest, err := s.Manifest.Load(req.ManifestPath)
	if err != nil {
		return PlanResult{}, nil, err
	}
	index, err := s.IndexOpener.Open(ctx, root, sources.Document)
	if err != nil {
		return PlanResult{}, nil, err
	}
	selector := core.NewSelector(core.ClosureOptions{Recommends: req.Recommends, UseSAT: req.UseSAT})
	selection, err := selector.Select(ctx, index, manifest, req.Packages)
	if err != nil {
		return PlanResult{}, nil, err
	}
	if outputDir := strings.TrimSpace(req.OutputDir); outputDir != "" {
		if err := adapters.NewSelectionFileAdapter(outputDir).WriteSelection(selection); err != nil {
			return PlanResult{}, nil, err
		}
	}
	return PlanResult{Root: root, Sources: sources.Document, Selection: selection}, index, nil
}

// Get selects and downloads archives into the staging directory, which
// defaults to <root>/download.
func (s Service) Get(ctx context.Context, req GetRequest) (GetResult, error) {
	plan, index, err := s.plan(ctx, req)
	if err != nil {
		return GetResult{}, err
	}
	stagingDir := stagingDirFor(plan.Root, req.StagingDir)
	archives, err := s.Fetcher.Fetch(ctx, index, plan.Selection, stagingDir)
	if err != nil {
		return GetResult{}, err
	}
	log.Ctx(ctx).Info().
		Str("staging", stagingDir).
		Int("archives", len(archives)).
		Msg("archives fetched")
	return GetResult{
		Root:       plan.Root,
		StagingDir: stagingDir,
		Selection:  plan.Selection,
		Archives:   archives,
	}, nil
}

// Unpack extracts every archive of the staging directory into req.Root.
func (s Service) Unpack(ctx context.Context, req UnpackRequest) (UnpackResult, error) {
	root, err := requireRoot(req.Root)
	if err != nil {
		return UnpackResult{}, err
	}
	stagingDir := stagingDirFor(root, req.StagingDir)
	report, err := s.Unpacker.Unpack(ctx, stagingDir, root)
	if err != nil {
		return UnpackResult{}, err
	}
	return UnpackResult{Root: root, Report: report}, nil
}

// Stage runs Get and then Unpack. Archives land in TargetRoot, or in the
// apt root itself when no separate target is given.
func (s Service) Stage(ctx context.Context, req StageRequest) (StageResult, error) {
	got, err := s.Get(ctx, req.GetRequest)
	if err != nil {
		return StageResult{}, err
	}
	target := got.Root
	if trimmed := strings.TrimSpace(req.TargetRoot); trimmed != "" {
		target = trimmed
	}
	unpacked, err := s.Unpack(ctx, UnpackRequest{StagingDir: got.StagingDir, Root: target})
	if err != nil {
		return StageResult{Get: got}, err
	}
	return StageResult{Get: got, Unpack: unpacked}, nil
}

func requireRoot(root string) (string, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("root directory is required")
	}
	return filepath.Clean(root), nil
}

func stagingDirFor(root string, override string) string {
	if override = strings.TrimSpace(override); override != "" {
		return override
	}
	return filepath.Join(root, downloadDirName)
}
