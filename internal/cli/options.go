package cli

import (
	"os"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"debstage/internal/adapters"
	"debstage/internal/app"
	"debstage/internal/types"
)

// pipelineOptions holds every flag shared by the pipeline commands. Each
// command binds only the groups it uses.
type pipelineOptions struct {
	Root             string
	Arch             string
	Release          string
	SourcesFile      string
	NoGeoIP          bool
	GeoIPEndpoint    string
	GeoIPTimeout     time.Duration
	Manifest         string
	OutputDir        string
	IndexFile        string
	Recommends       bool
	SATSolver        bool
	Workers          int
	HTTPTimeoutSec   int
	HTTPRetries      int
	HTTPRetryDelayMs int
	StagingDir       string
	TargetRoot       string
	FetchTimeout     time.Duration
	Extractor        string
	Progress         bool
}

func bindSourceFlags(cmd *cobra.Command, opts *pipelineOptions) {
	cmd.Flags().StringVar(&opts.Arch, "arch", "", "Target Debian architecture (defaults to the host)")
	cmd.Flags().StringVar(&opts.Release, "release", "", "Distribution release codename")
	cmd.Flags().StringVar(&opts.SourcesFile, "sources", "", "Sources template file")
	cmd.Flags().BoolVar(&opts.NoGeoIP, "no-geoip", false, "Skip the mirror geo lookup")
	cmd.Flags().StringVar(&opts.GeoIPEndpoint, "geoip-endpoint", adapters.DefaultGeoIPEndpoint, "Geo lookup endpoint")
	cmd.Flags().DurationVar(&opts.GeoIPTimeout, "geoip-timeout", adapters.DefaultGeoIPTimeout, "Geo lookup timeout")

	_ = viper.BindPFlag("arch", cmd.Flags().Lookup("arch"))
	_ = viper.BindPFlag("release", cmd.Flags().Lookup("release"))
	_ = viper.BindPFlag("sources", cmd.Flags().Lookup("sources"))
	_ = viper.BindPFlag("no_geoip", cmd.Flags().Lookup("no-geoip"))
	_ = viper.BindPFlag("geoip_endpoint", cmd.Flags().Lookup("geoip-endpoint"))
	_ = viper.BindPFlag("geoip_timeout", cmd.Flags().Lookup("geoip-timeout"))
}

func bindIndexFlags(cmd *cobra.Command, opts *pipelineOptions) {
	cmd.Flags().StringVar(&opts.Root, "root", "", "Root directory to stage into")
	cmd.Flags().StringVar(&opts.Manifest, "manifest", "", "Manifest of packages assumed present (defaults to the built-in list)")
	cmd.Flags().StringVar(&opts.IndexFile, "index-file", "", "Load a saved index snapshot instead of refreshing")
	cmd.Flags().BoolVar(&opts.Recommends, "recommends", false, "Follow Recommends when computing dependencies")
	cmd.Flags().BoolVar(&opts.SATSolver, "sat-solver", false, "Compute dependencies with the SAT solver")
	cmd.Flags().IntVar(&opts.Workers, "workers", 4, "Parallel downloads")
	cmd.Flags().IntVar(&opts.HTTPTimeoutSec, "http-timeout", 60, "HTTP timeout in seconds")
	cmd.Flags().IntVar(&opts.HTTPRetries, "http-retries", 3, "HTTP retries for index refresh")
	cmd.Flags().IntVar(&opts.HTTPRetryDelayMs, "http-retry-delay-ms", 200, "Base HTTP retry delay in milliseconds")
	cmd.Flags().StringVar(&opts.OutputDir, "output", "", "Write install.lock and keep.report into this directory")

	_ = viper.BindPFlag("root", cmd.Flags().Lookup("root"))
	_ = viper.BindPFlag("manifest", cmd.Flags().Lookup("manifest"))
	_ = viper.BindPFlag("index_file", cmd.Flags().Lookup("index-file"))
	_ = viper.BindPFlag("recommends", cmd.Flags().Lookup("recommends"))
	_ = viper.BindPFlag("sat_solver", cmd.Flags().Lookup("sat-solver"))
	_ = viper.BindPFlag("workers", cmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("http_timeout_sec", cmd.Flags().Lookup("http-timeout"))
	_ = viper.BindPFlag("http_retries", cmd.Flags().Lookup("http-retries"))
	_ = viper.BindPFlag("http_retry_delay_ms", cmd.Flags().Lookup("http-retry-delay-ms"))
	_ = viper.BindPFlag("output", cmd.Flags().Lookup("output"))
}

func bindFetchFlags(cmd *cobra.Command, opts *pipelineOptions) {
	cmd.Flags().StringVar(&opts.StagingDir, "staging-dir", "", "Archive staging directory (defaults to <root>/download)")
	cmd.Flags().DurationVar(&opts.FetchTimeout, "fetch-timeout", 0, "Per-archive download timeout (0 uses the HTTP timeout)")
	cmd.Flags().BoolVar(&opts.Progress, "progress", true, "Show progress bars")

	_ = viper.BindPFlag("staging_dir", cmd.Flags().Lookup("staging-dir"))
	_ = viper.BindPFlag("fetch_timeout", cmd.Flags().Lookup("fetch-timeout"))
	_ = viper.BindPFlag("progress", cmd.Flags().Lookup("progress"))
}

func bindUnpackFlags(cmd *cobra.Command, opts *pipelineOptions) {
	cmd.Flags().StringVar(&opts.Extractor, "extractor", string(types.ExtractorAuto), "Extraction backend: auto, dpkg-deb or native")
	_ = viper.BindPFlag("extractor", cmd.Flags().Lookup("extractor"))
}

func (o pipelineOptions) serviceConfig(cmd *cobra.Command) app.Config {
	cfg := app.Config{
		Arch:          resolveString(cmd, o.Arch, "arch", "arch"),
		IndexFile:     resolveString(cmd, o.IndexFile, "index_file", "index-file"),
		DisableGeoIP:  resolveBool(cmd, o.NoGeoIP, "no_geoip", "no-geoip"),
		GeoIPEndpoint: resolveString(cmd, o.GeoIPEndpoint, "geoip_endpoint", "geoip-endpoint"),
		GeoIPTimeout:  resolveDuration(cmd, o.GeoIPTimeout, "geoip_timeout", "geoip-timeout"),
		Workers:       resolveInt(cmd, o.Workers, "workers", "workers"),
		HTTP: adapters.HTTPConfig{
			TimeoutSec:   resolveInt(cmd, o.HTTPTimeoutSec, "http_timeout_sec", "http-timeout"),
			Retries:      resolveInt(cmd, o.HTTPRetries, "http_retries", "http-retries"),
			RetryDelayMs: resolveInt(cmd, o.HTTPRetryDelayMs, "http_retry_delay_ms", "http-retry-delay-ms"),
		},
		FetchTimeout: resolveDuration(cmd, o.FetchTimeout, "fetch_timeout", "fetch-timeout"),
		Extractor:    types.ExtractorBackend(strings.TrimSpace(resolveString(cmd, o.Extractor, "extractor", "extractor"))),
	}
	if resolveBool(cmd, o.Progress, "progress", "progress") {
		cfg.ProgressOut = os.Stderr
	}
	return cfg
}

func (o pipelineOptions) getRequest(cmd *cobra.Command, packages []string) (app.GetRequest, error) {
	template, err := loadTemplate(resolveString(cmd, o.SourcesFile, "sources", "sources"))
	if err != nil {
		return app.GetRequest{}, err
	}
	packages = resolveStrings(nil, packages, "packages", "")
	return app.GetRequest{
		Root:         resolveString(cmd, o.Root, "root", "root"),
		Packages:     packages,
		Template:     template,
		Release:      resolveString(cmd, o.Release, "release", "release"),
		ManifestPath: resolveString(cmd, o.Manifest, "manifest", "manifest"),
		Recommends:   resolveBool(cmd, o.Recommends, "recommends", "recommends"),
		UseSAT:       resolveBool(cmd, o.SATSolver, "sat_solver", "sat-solver"),
		StagingDir:   resolveString(cmd, o.StagingDir, "staging_dir", "staging-dir"),
		OutputDir:    resolveString(cmd, o.OutputDir, "output", "output"),
	}, nil
}

func (o pipelineOptions) newService(cmd *cobra.Command) (app.Service, error) {
	return app.NewService(o.serviceConfig(cmd))
}

func loadTemplate(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to read sources template " + path).
			WithCause(err)
	}
	return string(data), nil
}
