package app

import (
	"io"
	"runtime"
	"strings"
	"time"

	"debstage/internal/adapters"
	"debstage/internal/core"
	"debstage/internal/ports"
	"debstage/internal/types"
)

// Config selects and tunes the adapters behind a Service.
type Config struct {
	Arch          string
	IndexFile     string
	DisableGeoIP  bool
	GeoIPEndpoint string
	GeoIPTimeout  time.Duration
	Workers       int
	HTTP          adapters.HTTPConfig
	FetchTimeout  time.Duration
	Extractor     types.ExtractorBackend
	ProgressOut   io.Writer
}

type Service struct {
	Arch        string
	Geo         ports.GeoLocatorPort
	IndexOpener ports.IndexOpenerPort
	Manifest    ports.ManifestPort
	Fetcher     ports.ArchiveFetcherPort
	Unpacker    ports.UnpackerPort
}

func NewService(cfg Config) (Service, error) {
	arch := strings.TrimSpace(cfg.Arch)
	if arch == "" {
		arch = core.HostArchitecture(runtime.GOARCH)
	}

	var progress ports.ProgressPort = adapters.NoopProgress{}
	if cfg.ProgressOut != nil {
		progress = adapters.NewProgressBarAdapter(cfg.ProgressOut)
	}

	var geo ports.GeoLocatorPort = adapters.NewGeoIPAdapter(cfg.GeoIPEndpoint, cfg.GeoIPTimeout)
	if cfg.DisableGeoIP {
		geo = adapters.DisabledGeoLocator{}
	}

	var opener ports.IndexOpenerPort = adapters.NewAptIndexAdapter(arch, cfg.Workers, cfg.HTTP, progress)
	if strings.TrimSpace(cfg.IndexFile) != "" {
		opener = adapters.NewIndexFileAdapter(cfg.IndexFile)
	}

	extractor, err := adapters.NewExtractor(cfg.Extractor)
	if err != nil {
		return Service{}, err
	}

	return Service{
		Arch:        arch,
		Geo:         geo,
		IndexOpener: opener,
		Manifest:    adapters.NewManifestAdapter(),
		Fetcher:     adapters.NewArchiveFetcherAdapter(cfg.Workers, cfg.FetchTimeout, progress),
		Unpacker:    adapters.NewArchiveUnpackerAdapter(extractor, progress),
	}, nil
}
