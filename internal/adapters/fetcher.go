package adapters

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"debstage/internal/ports"
	"debstage/internal/shared"
	"debstage/internal/types"
)

const defaultArchiveFetchWorkers = 4

// ArchiveFetcherAdapter downloads package archives into a staging
// directory. Archives already staged with a matching checksum are reused.
// A failed download is not retried.
type ArchiveFetcherAdapter struct {
	Workers  int
	Timeout  time.Duration
	Progress ports.ProgressPort
	Client   *http.Client
}

func NewArchiveFetcherAdapter(workers int, timeout time.Duration, progress ports.ProgressPort) ArchiveFetcherAdapter {
	return ArchiveFetcherAdapter{Workers: workers, Timeout: timeout, Progress: progress}
}

func (a ArchiveFetcherAdapter) Fetch(ctx context.Context, index ports.IndexPort, selection types.Selection, stagingDir string) ([]string, error) {
	if strings.TrimSpace(stagingDir) == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("staging directory is required")
	}
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return nil, &types.FetchError{Cause: err}
	}
	archives, err := archivesFor(index, selection)
	if err != nil {
		return nil, err
	}

	client := newOneShotClient(a.Client, a.Timeout)
	workers := a.Workers
	if workers <= 0 {
		workers = defaultArchiveFetchWorkers
	}
	task := startProgress(a.Progress, "Fetching archives", len(archives))
	defer task.Finish()

	staged := make([]string, len(archives))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for i, pkg := range archives {
		group.Go(func() error {
			dest, err := fetchArchive(groupCtx, client, pkg, stagingDir)
			if err != nil {
				return &types.FetchError{Package: pkg.Name, Cause: err}
			}
			staged[i] = dest
			task.Increment(pkg.Name)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(staged)
	log.Ctx(ctx).Info().Int("archives", len(staged)).Str("staging", stagingDir).Msg("archives fetched")
	return staged, nil
}

// archivesFor resolves the index record of every install-marked package.
func archivesFor(index ports.IndexPort, selection types.Selection) ([]types.AptPackage, error) {
	var out []types.AptPackage
	packages := index.Packages()
	for _, name := range selection.Installs() {
		pkg, ok := index.Candidate(name)
		if version, pinned := selection.Versions[name]; pinned {
			for _, candidate := range packages[name] {
				if candidate.Version == version {
					pkg, ok = candidate, true
					break
				}
			}
		}
		if !ok {
			return nil, &types.FetchError{Package: name, Cause: fmt.Errorf("package is not in the index")}
		}
		if strings.TrimSpace(pkg.Filename) == "" || strings.TrimSpace(pkg.BaseURL) == "" {
			return nil, &types.FetchError{Package: name, Cause: fmt.Errorf("index has no archive location")}
		}
		out = append(out, pkg)
	}
	return out, nil
}

func fetchArchive(ctx context.Context, client mirrorClient, pkg types.AptPackage, stagingDir string) (string, error) {
	dest := filepath.Join(stagingDir, path.Base(pkg.Filename))
	if pkg.SHA256 != "" {
		if sum, err := fileSHA256(dest); err == nil && sum == pkg.SHA256 {
			log.Ctx(ctx).Debug().Str("package", pkg.Name).Msg("archive already staged")
			return dest, nil
		}
	}
	url := strings.TrimRight(pkg.BaseURL, "/") + "/" + strings.TrimLeft(pkg.Filename, "/")
	resp, err := client.get(ctx, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("failed to download archive").
			WithCause(shared.HTTPStatusError(resp.StatusCode, url))
	}

	partial := dest + ".partial"
	out, err := os.Create(partial)
	if err != nil {
		return "", err
	}
	hash := sha256.New()
	_, copyErr := io.Copy(io.MultiWriter(out, hash), resp.Body)
	closeErr := out.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(partial)
		if copyErr != nil {
			return "", copyErr
		}
		return "", closeErr
	}
	if sum := hex.EncodeToString(hash.Sum(nil)); pkg.SHA256 != "" && sum != pkg.SHA256 {
		_ = os.Remove(partial)
		return "", errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("checksum mismatch for %s", path.Base(pkg.Filename)))
	}
	if err := os.Rename(partial, dest); err != nil {
		_ = os.Remove(partial)
		return "", err
	}
	return dest, nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

var _ ports.ArchiveFetcherPort = ArchiveFetcherAdapter{}
