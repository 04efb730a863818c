package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/me/gokite/internal/bridge"
	"github.com/me/gokite/internal/config"
	"github.com/me/gokite/internal/dataset"
	"github.com/me/gokite/internal/engine"
	"github.com/me/gokite/internal/job"
	"github.com/me/gokite/internal/jobs"
	"github.com/me/gokite/internal/metrics"
	"github.com/me/gokite/internal/schedule"
	"github.com/me/gokite/pkg/model"
)

// session is everything a command needs to run jobs.
type session struct {
	store   *dataset.SQLiteStore
	jobs    *job.Registry
	app     *schedule.Application
	metrics *metrics.Collector
	engine  *engine.Registry
}

// openStore opens and migrates the dataset store named by cfg.
func openStore(ctx context.Context) (*dataset.SQLiteStore, error) {
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	st, err := dataset.NewSQLiteStore(cfg.DBPath, logger)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// openSession wires the dataset store, the job registry and the shared
// engine. When requireApp is set an application definition must be
// configured; otherwise it is loaded only if one is.
func openSession(ctx context.Context, requireApp bool) (*session, error) {
	var app *schedule.Application
	switch {
	case cfg.AppPath != "":
		a, err := schedule.LoadFile(cfg.AppPath)
		if err != nil {
			return nil, err
		}
		app = a
	case requireApp:
		return nil, model.ConfigurationError("load application", "no application given (use --app or %s)", config.EnvApp)
	}

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	reg := job.NewRegistry(logger)
	if err := jobs.Register(reg, st); err != nil {
		st.Close()
		return nil, err
	}
	if app != nil {
		if err := app.Validate(reg); err != nil {
			st.Close()
			return nil, err
		}
	}

	m := metrics.NewCollector()
	eng := engine.NewRegistry(engine.NewLocalDriver(logger),
		engine.WithLogger(logger),
		engine.WithMetrics(m),
		engine.WithShutdownWait(cfg.ShutdownWait))
	// One command runs per process; its registry becomes the process-wide
	// one so jobs and streams that fall back to engine.Shared use it too.
	engine.SetShared(eng)
	return &session{
		store:   st,
		jobs:    reg,
		app:     app,
		metrics: m,
		engine:  eng,
	}, nil
}

func (s *session) runtime() bridge.Runtime {
	return bridge.Runtime{
		Jobs:    s.jobs,
		App:     s.app,
		Engine:  s.engine,
		Metrics: s.metrics,
		Logger:  logger,
	}
}

// Close writes the metrics textfile, if configured, and closes the store.
func (s *session) Close() {
	if cfg.MetricsFile != "" {
		if err := s.metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Warn("write metrics", "path", cfg.MetricsFile, "error", err)
		}
	}
	if err := s.store.Close(); err != nil {
		logger.Warn("close dataset store", "error", err)
	}
}
