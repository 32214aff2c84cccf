package adapters

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"debstage/internal/ports"
	"debstage/internal/shared"
	"debstage/internal/types"
)

const dpkgDebBinary = "dpkg-deb"

// DpkgDebExtractor shells out to dpkg-deb.
type DpkgDebExtractor struct {
	Binary string
}

func NewDpkgDebExtractor() DpkgDebExtractor {
	return DpkgDebExtractor{Binary: dpkgDebBinary}
}

func (e DpkgDebExtractor) Name() string {
	return string(types.ExtractorDpkgDeb)
}

func (e DpkgDebExtractor) Extract(ctx context.Context, archivePath string, destRoot string) error {
	binary := e.Binary
	if binary == "" {
		binary = dpkgDebBinary
	}
	cmd := exec.CommandContext(ctx, binary, "--extract", archivePath, destRoot)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("dpkg-deb failed").
			WithCause(shared.CommandError(output, err))
	}
	return nil
}

// NewExtractor picks the extraction backend. Auto uses dpkg-deb when it
// is on PATH and the native extractor otherwise.
func NewExtractor(backend types.ExtractorBackend) (ports.ExtractorPort, error) {
	switch backend {
	case types.ExtractorDpkgDeb:
		return NewDpkgDebExtractor(), nil
	case types.ExtractorNative:
		return NewNativeDebExtractor(), nil
	case types.ExtractorAuto, "":
		if _, err := exec.LookPath(dpkgDebBinary); err == nil {
			return NewDpkgDebExtractor(), nil
		}
		return NewNativeDebExtractor(), nil
	default:
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("unknown extractor backend " + string(backend))
	}
}

// ArchiveUnpackerAdapter extracts every staged archive into a target root
// and then repairs absolute symlinks. The first failing archive stops the
// batch; archives extracted before it stay in place.
type ArchiveUnpackerAdapter struct {
	Extractor ports.ExtractorPort
	Progress  ports.ProgressPort
}

func NewArchiveUnpackerAdapter(extractor ports.ExtractorPort, progress ports.ProgressPort) ArchiveUnpackerAdapter {
	return ArchiveUnpackerAdapter{Extractor: extractor, Progress: progress}
}

func (a ArchiveUnpackerAdapter) Unpack(ctx context.Context, stagingDir string, targetRoot string) (types.UnpackReport, error) {
	if a.Extractor == nil {
		return types.UnpackReport{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("unpacker requires an extractor")
	}
	archives, err := StagedArchives(stagingDir)
	if err != nil {
		return types.UnpackReport{}, err
	}
	if err := os.MkdirAll(targetRoot, 0755); err != nil {
		return types.UnpackReport{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create target root").
			WithCause(err)
	}

	task := startProgress(a.Progress, "Unpacking archives", len(archives))
	report := types.UnpackReport{}
	for _, archive := range archives {
		if err := a.Extractor.Extract(ctx, archive, targetRoot); err != nil {
			task.Finish()
			return report, &types.UnpackError{Archive: archive, Cause: err}
		}
		report.Archives = append(report.Archives, archive)
		task.Increment(filepath.Base(archive))
	}
	task.Finish()

	report.RepairedSymlinks = RepairSymlinks(ctx, targetRoot)
	log.Ctx(ctx).Info().
		Str("extractor", a.Extractor.Name()).
		Int("archives", len(report.Archives)).
		Int("symlinks", report.RepairedSymlinks).
		Msg("archives unpacked")
	return report, nil
}

// StagedArchives lists the .deb files of a staging directory in sorted
// order. A missing directory holds no archives.
func StagedArchives(stagingDir string) ([]string, error) {
	entries, err := os.ReadDir(stagingDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read staging directory").
			WithCause(err)
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".deb") {
			continue
		}
		out = append(out, filepath.Join(stagingDir, entry.Name()))
	}
	sort.Strings(out)
	return out, nil
}

var _ ports.ExtractorPort = DpkgDebExtractor{}
var _ ports.UnpackerPort = ArchiveUnpackerAdapter{}
