package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/entrhq/estate/pkg/archive"
	"github.com/entrhq/estate/pkg/config"
	"github.com/entrhq/estate/pkg/fsutil"
	"github.com/entrhq/estate/pkg/logging"
	"github.com/entrhq/estate/pkg/metrics"
	"github.com/entrhq/estate/pkg/people"
	"github.com/entrhq/estate/pkg/recordings"
	"github.com/entrhq/estate/pkg/transcription"
	"github.com/entrhq/estate/pkg/types"
)

// app holds what every command needs: config, logger and metrics.
type app struct {
	cfg      *config.FileStore
	logger   *logging.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	sink     fsutil.Sink
}

// errNoRoot is returned by commands that need an archive root before one
// has been chosen with "estate init".
var errNoRoot = errors.New("no archive root configured; run 'estate init <path>' first")

func newApp() (*app, error) {
	home, err := os.UserHomeDir()
	if err != nil && (configPath == "" || logDir == "") {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	path := configPath
	if path == "" {
		path = config.DefaultPath(home)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	sink := fsutil.NewWriter(m)

	cfg, err := config.NewFileStore(path, sink)
	if err != nil {
		return nil, err
	}

	dir := logDir
	if dir == "" {
		dir = cfg.Get().LogDir
	}
	if dir == "" {
		dir = config.DefaultLogDir(home)
	}
	// NewLogger falls back to stderr on error, which is good enough here.
	logger, _ := logging.NewLogger("cli", dir)

	return &app{cfg: cfg, logger: logger, registry: reg, metrics: m, sink: sink}, nil
}

func (a *app) close() {
	_ = a.logger.Close()
}

func (a *app) root() (string, error) {
	root := a.cfg.Get().ArchiveRoot
	if root == "" {
		return "", errNoRoot
	}
	return root, nil
}

// prepare bootstraps root and clears stale temp files from it.
func (a *app) prepare(root string) error {
	n, err := archive.NewCleaner(a.logger.Component("archive"), a.metrics).Prepare(root)
	if err != nil {
		return err
	}
	if n > 0 {
		a.logger.Infof("removed %d stale temp files from %s", n, root)
	}
	return nil
}

func (a *app) openStore(root string, extra ...people.Option) (*people.Store, error) {
	opts := []people.Option{
		people.WithLogger(a.logger.Component("people")),
		people.WithMetrics(a.metrics),
		people.WithSink(a.sink),
	}
	return people.NewStore(root, append(opts, extra...)...)
}

// transcriptionConfig returns the configured provider settings, filling
// the API key from apiKey when the config file has none.
func (a *app) transcriptionConfig(apiKey string) transcription.Config {
	tc := a.cfg.Get().Transcription
	if tc.APIKey == "" {
		tc.APIKey = apiKey
	}
	return tc
}

func (a *app) openImporter(store *people.Store, apiKey string) *recordings.Importer {
	opts := []recordings.Option{
		recordings.WithLogger(a.logger.Component("recordings")),
		recordings.WithMetrics(a.metrics),
		recordings.WithSink(a.sink),
	}
	provider, err := transcription.New(a.transcriptionConfig(apiKey))
	if err != nil {
		// Imports still work; Transcribe reports the missing provider.
		a.logger.Warnf("transcription disabled: %v", err)
	} else {
		opts = append(opts, recordings.WithProvider(provider))
	}
	return recordings.NewImporter(store, opts...)
}

// exitCode maps an error onto the process exit status.
func exitCode(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidInput):
		return 2
	case errors.Is(err, types.ErrNotFound):
		return 3
	case errors.Is(err, types.ErrPermission):
		return 4
	case errors.Is(err, types.ErrCorrupt):
		return 5
	default:
		return 1
	}
}
