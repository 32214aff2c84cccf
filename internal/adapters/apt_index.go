package adapters

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/renameio"
	"github.com/klauspost/pgzip"
	"github.com/rs/zerolog/log"
	"github.com/ulikunitz/xz"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"debstage/internal/ports"
	"debstage/internal/shared"
	"debstage/internal/types"
)

const defaultListFetchWorkers = 4

// SourcesListPath is where the formatted sources document is persisted
// under a root.
func SourcesListPath(root string) string {
	return filepath.Join(root, "etc", "apt", "sources.list")
}

// SnapshotPath is where the merged index of a root is persisted.
func SnapshotPath(root string) string {
	return filepath.Join(root, "var", "lib", "debstage", "index.yaml")
}

// AptIndexAdapter refreshes an index from the mirrors named in a sources
// document, the way "apt-get update" does for a chroot.
type AptIndexAdapter struct {
	Arch     string
	Workers  int
	HTTP     HTTPConfig
	Progress ports.ProgressPort
	Client   *http.Client
}

// packagesList is one Packages file to download.
type packagesList struct {
	BaseURL string
	URL     string
}

func NewAptIndexAdapter(arch string, workers int, httpCfg HTTPConfig, progress ports.ProgressPort) *AptIndexAdapter {
	return &AptIndexAdapter{
		Arch:     arch,
		Workers:  workers,
		HTTP:     httpCfg,
		Progress: progress,
	}
}

func (a *AptIndexAdapter) Open(ctx context.Context, root string, sources string) (ports.IndexPort, error) {
	if err := writeSourcesList(root, sources); err != nil {
		return nil, &types.IndexOpenError{Root: root, Cause: err}
	}
	entries, err := ParseSources(sources)
	if err != nil {
		return nil, &types.IndexOpenError{Root: root, Cause: err}
	}
	lists := a.packagesLists(entries)
	snapshot, err := a.refresh(ctx, lists)
	if err != nil {
		return nil, &types.IndexOpenError{Root: root, Cause: err}
	}
	if err := writeSnapshot(SnapshotPath(root), snapshot); err != nil {
		return nil, &types.IndexOpenError{Root: root, Cause: err}
	}
	log.Ctx(ctx).Info().
		Str("root", root).
		Int("lists", len(lists)).
		Int("packages", len(snapshot.Packages)).
		Msg("package index refreshed")
	return NewIndexSession(root, snapshot), nil
}

func (a *AptIndexAdapter) packagesLists(entries []types.SourceEntry) []packagesList {
	arch := strings.TrimSpace(a.Arch)
	if arch == "" {
		arch = "amd64"
	}
	var out []packagesList
	for _, entry := range entries {
		components := entry.Components
		if len(components) == 0 {
			components = []string{"main"}
		}
		for _, component := range components {
			out = append(out, packagesList{
				BaseURL: entry.URI,
				URL:     fmt.Sprintf("%s/dists/%s/%s/binary-%s/Packages", entry.URI, entry.Suite, component, arch),
			})
		}
	}
	return out
}

// refresh downloads every list with a bounded worker pool. The first
// failure cancels the remaining downloads.
func (a *AptIndexAdapter) refresh(ctx context.Context, lists []packagesList) (types.IndexSnapshot, error) {
	client := newMirrorClient(a.Client, a.HTTP)
	workers := a.Workers
	if workers <= 0 {
		workers = defaultListFetchWorkers
	}
	task := startProgress(a.Progress, "Updating package lists", len(lists))
	defer task.Finish()

	results := make([][]types.AptPackage, len(lists))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for i, list := range lists {
		group.Go(func() error {
			packages, err := fetchPackagesList(groupCtx, client, list)
			if err != nil {
				return err
			}
			results[i] = packages
			task.Increment(list.URL)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return types.IndexSnapshot{}, err
	}
	return mergeSnapshot(a.Arch, results), nil
}

// fetchPackagesList tries Packages.xz, Packages.gz and the plain list in
// that order, moving on only when the mirror reports the file missing.
func fetchPackagesList(ctx context.Context, client mirrorClient, list packagesList) ([]types.AptPackage, error) {
	for _, suffix := range []string{".xz", ".gz", ""} {
		url := list.URL + suffix
		packages, notFound, err := fetchPackagesFile(ctx, client, url, list.BaseURL)
		if err != nil {
			return nil, err
		}
		if notFound {
			continue
		}
		log.Ctx(ctx).Debug().Str("url", url).Int("packages", len(packages)).Msg("packages list fetched")
		return packages, nil
	}
	return nil, errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg("packages list not found on mirror").
		WithCause(fmt.Errorf("url=%s", list.URL))
}

func fetchPackagesFile(ctx context.Context, client mirrorClient, url string, baseURL string) ([]types.AptPackage, bool, error) {
	resp, err := client.get(ctx, url)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, true, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to fetch apt packages").
			WithCause(shared.HTTPStatusError(resp.StatusCode, url))
	}
	reader, closer, err := decompressList(url, resp.Body)
	if err != nil {
		return nil, false, err
	}
	defer closer()
	packages, err := parseAptPackages(reader, baseURL)
	if err != nil {
		return nil, false, err
	}
	return packages, false, nil
}

func decompressList(url string, body io.Reader) (io.Reader, func(), error) {
	switch {
	case strings.HasSuffix(url, ".xz"):
		xr, err := xz.NewReader(body)
		if err != nil {
			return nil, nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to read xz apt packages").
				WithCause(err)
		}
		return xr, func() {}, nil
	case strings.HasSuffix(url, ".gz"):
		gz, err := pgzip.NewReader(body)
		if err != nil {
			return nil, nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to read gzipped apt packages").
				WithCause(err)
		}
		return gz, func() { _ = gz.Close() }, nil
	default:
		return body, func() {}, nil
	}
}

// mergeSnapshot combines lists in source order. The first list carrying
// a given package version wins, like apt's source priority by position.
func mergeSnapshot(arch string, lists [][]types.AptPackage) types.IndexSnapshot {
	snapshot := types.IndexSnapshot{Architecture: arch, Packages: map[string][]types.AptPackage{}}
	seen := map[string]struct{}{}
	for _, list := range lists {
		for _, pkg := range list {
			key := pkg.Name + "\x00" + pkg.Version
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			snapshot.Packages[pkg.Name] = append(snapshot.Packages[pkg.Name], pkg)
		}
	}
	for name, versions := range snapshot.Packages {
		snapshot.Packages[name] = sortDebPackages(versions)
	}
	return snapshot
}

func writeSourcesList(root string, sources string) error {
	path := SourcesListPath(root)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create apt configuration directory").
			WithCause(err)
	}
	if err := renameio.WriteFile(path, []byte(sources), 0644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write sources list").
			WithCause(err)
	}
	return nil
}

func writeSnapshot(path string, snapshot types.IndexSnapshot) error {
	data, err := yaml.Marshal(snapshot)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to marshal index snapshot").
			WithCause(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create index snapshot directory").
			WithCause(err)
	}
	if err := renameio.WriteFile(path, data, 0644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write index snapshot").
			WithCause(err)
	}
	return nil
}

var _ ports.IndexOpenerPort = (*AptIndexAdapter)(nil)
