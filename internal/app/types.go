package app

import "debstage/internal/types"

type SourcesRequest struct {
	Template string
	Release  string
}

type SourcesResult struct {
	Document string
	Hint     types.GeoHint
}

type GetRequest struct {
	Root         string
	Packages     []string
	Template     string
	Release      string
	ManifestPath string
	Recommends   bool
	UseSAT       bool
	StagingDir   string
	OutputDir    string
}

type PlanResult struct {
	Root      string
	Sources   string
	Selection types.Selection
}

type GetResult struct {
	Root       string
	StagingDir string
	Selection  types.Selection
	Archives   []string
}

type UnpackRequest struct {
	StagingDir string
	Root       string
}

type UnpackResult struct {
	Root   string
	Report types.UnpackReport
}

// StageRequest unpacks into TargetRoot when set. Root keeps the apt
// state (sources.list, index snapshot, download/) either way.
type StageRequest struct {
	GetRequest
	TargetRoot string
}

type StageResult struct {
	Get    GetResult
	Unpack UnpackResult
}
