package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debstage/internal/adapters"
	"debstage/internal/ports"
	"debstage/internal/types"
)

type countingGeo struct {
	hint  types.GeoHint
	calls int
}

func (g *countingGeo) Lookup(context.Context) types.GeoHint {
	g.calls++
	return g.hint
}

type staticManifest struct {
	names []string
	path  string
}

func (m *staticManifest) Load(path string) ([]string, error) {
	m.path = path
	return m.names, nil
}

type snapshotOpener struct {
	snapshot types.IndexSnapshot
	err      error
	root     string
	sources  string
}

func (o *snapshotOpener) Open(_ context.Context, root string, sources string) (ports.IndexPort, error) {
	o.root = root
	o.sources = sources
	if o.err != nil {
		return nil, o.err
	}
	return adapters.NewIndexSession(root, o.snapshot), nil
}

type recordingFetcher struct {
	stagingDir string
	installs   []string
	err        error
}

func (f *recordingFetcher) Fetch(_ context.Context, _ ports.IndexPort, selection types.Selection, stagingDir string) ([]string, error) {
	f.stagingDir = stagingDir
	f.installs = selection.Installs()
	if f.err != nil {
		return nil, f.err
	}
	var out []string
	for _, name := range f.installs {
		out = append(out, filepath.Join(stagingDir, name+".deb"))
	}
	return out, nil
}

type recordingUnpacker struct {
	stagingDir string
	root       string
	err        error
}

func (u *recordingUnpacker) Unpack(_ context.Context, stagingDir string, root string) (types.UnpackReport, error) {
	u.stagingDir = stagingDir
	u.root = root
	if u.err != nil {
		return types.UnpackReport{}, u.err
	}
	return types.UnpackReport{Archives: []string{"curl.deb"}, RepairedSymlinks: 1}, nil
}

type fakes struct {
	geo      *countingGeo
	manifest *staticManifest
	opener   *snapshotOpener
	fetcher  *recordingFetcher
	unpacker *recordingUnpacker
}

func newTestService(arch string) (Service, fakes) {
	f := fakes{
		geo:      &countingGeo{hint: types.GeoHintOf("nl")},
		manifest: &staticManifest{names: []string{"zlib1g"}},
		opener: &snapshotOpener{snapshot: types.IndexSnapshot{Packages: map[string][]types.AptPackage{
			"curl":   {{Name: "curl", Version: "7.38.0-4", Depends: []string{"libc6", "zlib1g"}}},
			"libc6":  {{Name: "libc6", Version: "2.21-0ubuntu4", Priority: types.PriorityEssential}},
			"zlib1g": {{Name: "zlib1g", Version: "1.2.8.dfsg-2"}},
		}}},
		fetcher:  &recordingFetcher{},
		unpacker: &recordingUnpacker{},
	}
	svc := Service{
		Arch:        arch,
		Geo:         f.geo,
		IndexOpener: f.opener,
		Manifest:    f.manifest,
		Fetcher:     f.fetcher,
		Unpacker:    f.unpacker,
	}
	return svc, f
}

func TestSourcesUsesGeoOnlyForPrimaryArchitecture(t *testing.T) {
	svc, f := newTestService("amd64")
	result, err := svc.Sources(t.Context(), SourcesRequest{Template: "${prefix} ${release}"})
	require.NoError(t, err)
	assert.Equal(t, "nl.archive vivid", result.Document)
	assert.Equal(t, types.GeoHintOf("nl"), result.Hint)
	assert.Equal(t, 1, f.geo.calls)

	svc, f = newTestService("armhf")
	result, err = svc.Sources(t.Context(), SourcesRequest{Template: "${prefix} ${release}", Release: "wily"})
	require.NoError(t, err)
	assert.Equal(t, "ports wily", result.Document)
	assert.False(t, result.Hint.Available)
	assert.Zero(t, f.geo.calls)
}

func TestPlanSelectsWithoutFetching(t *testing.T) {
	svc, f := newTestService("amd64")
	root := filepath.Join(t.TempDir(), "root") + "/"

	plan, err := svc.Plan(t.Context(), GetRequest{Root: root, Packages: []string{"curl"}, ManifestPath: "base.txt"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(root), plan.Root)
	assert.Equal(t, filepath.Clean(root), f.opener.root)
	assert.Equal(t, plan.Sources, f.opener.sources)
	assert.Equal(t, "base.txt", f.manifest.path)
	assert.Equal(t, []string{"curl"}, plan.Selection.Installs())
	assert.Empty(t, f.fetcher.stagingDir)

	want := []types.SelectionEvent{
		{Package: "libc6", Reason: types.SkipReasonEssential, Pulled: true},
		{Package: "zlib1g", Reason: types.SkipReasonManifest, Pulled: true},
	}
	if diff := cmp.Diff(want, plan.Selection.Events); diff != "" {
		t.Fatalf("unexpected events (-want +got):\n%s", diff)
	}
}

func TestPlanWritesSelectionFiles(t *testing.T) {
	svc, _ := newTestService("amd64")
	out := filepath.Join(t.TempDir(), "out")

	_, err := svc.Plan(t.Context(), GetRequest{Root: t.TempDir(), Packages: []string{"curl"}, OutputDir: out})
	require.NoError(t, err)

	lock, err := os.ReadFile(filepath.Join(out, "install.lock"))
	require.NoError(t, err)
	assert.Equal(t, "curl=7.38.0-4\n", string(lock))
	report, err := os.ReadFile(filepath.Join(out, "keep.report"))
	require.NoError(t, err)
	assert.Equal(t, "libc6,essential,true\nzlib1g,manifest,true\n", string(report))
}

func TestPlanErrors(t *testing.T) {
	t.Run("missing root", func(t *testing.T) {
		svc, f := newTestService("amd64")
		_, err := svc.Plan(t.Context(), GetRequest{Root: "  ", Packages: []string{"curl"}})
		require.Error(t, err)
		assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
		assert.Empty(t, f.opener.root)
	})

	t.Run("index open failure propagates", func(t *testing.T) {
		svc, f := newTestService("amd64")
		f.opener.err = &types.IndexOpenError{Root: "/r", Cause: errors.New("offline")}
		_, err := svc.Plan(t.Context(), GetRequest{Root: t.TempDir(), Packages: []string{"curl"}})
		var indexErr *types.IndexOpenError
		require.ErrorAs(t, err, &indexErr)
	})

	t.Run("unknown package", func(t *testing.T) {
		svc, _ := newTestService("amd64")
		_, err := svc.Plan(t.Context(), GetRequest{Root: t.TempDir(), Packages: []string{"wget"}})
		var notFound *types.PackageNotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "wget", notFound.Name)
	})
}

func TestGetDefaultsStagingDir(t *testing.T) {
	svc, f := newTestService("amd64")
	root := t.TempDir()

	got, err := svc.Get(t.Context(), GetRequest{Root: root, Packages: []string{"curl"}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "download"), got.StagingDir)
	assert.Equal(t, got.StagingDir, f.fetcher.stagingDir)
	assert.Equal(t, []string{"curl"}, f.fetcher.installs)
	assert.Equal(t, []string{filepath.Join(root, "download", "curl.deb")}, got.Archives)
}

func TestGetStagingOverrideAndFailure(t *testing.T) {
	svc, f := newTestService("amd64")
	staging := filepath.Join(t.TempDir(), "cache")
	_, err := svc.Get(t.Context(), GetRequest{Root: t.TempDir(), Packages: []string{"curl"}, StagingDir: staging})
	require.NoError(t, err)
	assert.Equal(t, staging, f.fetcher.stagingDir)

	f.fetcher.err = &types.FetchError{Package: "curl", Cause: errors.New("404")}
	_, err = svc.Get(t.Context(), GetRequest{Root: t.TempDir(), Packages: []string{"curl"}})
	var fetchErr *types.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "curl", fetchErr.Package)
}

func TestUnpack(t *testing.T) {
	svc, f := newTestService("amd64")
	root := t.TempDir()

	result, err := svc.Unpack(t.Context(), UnpackRequest{Root: root})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "download"), f.unpacker.stagingDir)
	assert.Equal(t, root, f.unpacker.root)
	assert.Equal(t, 1, result.Report.RepairedSymlinks)

	_, err = svc.Unpack(t.Context(), UnpackRequest{})
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestStage(t *testing.T) {
	svc, f := newTestService("amd64")
	root := t.TempDir()

	result, err := svc.Stage(t.Context(), StageRequest{GetRequest: GetRequest{Root: root, Packages: []string{"curl"}}})
	require.NoError(t, err)
	assert.Equal(t, result.Get.StagingDir, f.unpacker.stagingDir)
	assert.Equal(t, root, f.unpacker.root)
	assert.Equal(t, []string{"curl.deb"}, result.Unpack.Report.Archives)
}

func TestStageIntoSeparateTarget(t *testing.T) {
	svc, f := newTestService("amd64")
	root := t.TempDir()
	target := filepath.Join(t.TempDir(), "rootfs")

	result, err := svc.Stage(t.Context(), StageRequest{
		GetRequest: GetRequest{Root: root, Packages: []string{"curl"}},
		TargetRoot: target + " ",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "download"), f.unpacker.stagingDir)
	assert.Equal(t, target, f.unpacker.root)
	assert.Equal(t, target, result.Unpack.Root)
	assert.Equal(t, root, result.Get.Root)
}

func TestStageKeepsGetResultOnUnpackFailure(t *testing.T) {
	svc, f := newTestService("amd64")
	f.unpacker.err = &types.UnpackError{Archive: "curl.deb", Cause: errors.New("corrupt")}

	result, err := svc.Stage(t.Context(), StageRequest{GetRequest: GetRequest{Root: t.TempDir(), Packages: []string{"curl"}}})
	var unpackErr *types.UnpackError
	require.ErrorAs(t, err, &unpackErr)
	assert.Equal(t, []string{"curl"}, result.Get.Selection.Installs())
	assert.Empty(t, result.Unpack.Root)
}

func TestStageSkipsUnpackWhenGetFails(t *testing.T) {
	svc, f := newTestService("amd64")
	f.fetcher.err = &types.FetchError{Package: "curl", Cause: errors.New("timeout")}

	_, err := svc.Stage(t.Context(), StageRequest{GetRequest: GetRequest{Root: t.TempDir(), Packages: []string{"curl"}}})
	require.Error(t, err)
	assert.Empty(t, f.unpacker.root)
}

func TestNewServiceSelectsAdapters(t *testing.T) {
	svc, err := NewService(Config{Arch: "armhf", DisableGeoIP: true, Extractor: types.ExtractorNative})
	require.NoError(t, err)
	assert.Equal(t, "armhf", svc.Arch)
	assert.IsType(t, adapters.DisabledGeoLocator{}, svc.Geo)
	assert.IsType(t, &adapters.AptIndexAdapter{}, svc.IndexOpener)

	svc, err = NewService(Config{IndexFile: "/tmp/index.yaml", Extractor: types.ExtractorNative})
	require.NoError(t, err)
	assert.NotEmpty(t, svc.Arch)
	assert.IsType(t, adapters.GeoIPAdapter{}, svc.Geo)
	assert.IsType(t, adapters.IndexFileAdapter{}, svc.IndexOpener)

	_, err = NewService(Config{Extractor: "bsdtar"})
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}
