// Package bridge connects an external trigger to the job invoker: it reads
// the trigger configuration, runs one job for the nominal time, tears the
// shared engine down and maps failures to exit codes.
package bridge

import (
	"context"
	"log/slog"

	"github.com/me/gokite/internal/engine"
	"github.com/me/gokite/internal/job"
	"github.com/me/gokite/internal/logging"
	"github.com/me/gokite/internal/metrics"
	"github.com/me/gokite/internal/schedule"
	"github.com/me/gokite/pkg/model"
)

// Exit codes by error kind.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitConfiguration = 2
	ExitResolution    = 3
	ExitBinding       = 4
	ExitJobExecution  = 5
	ExitContextMisuse = 6
)

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch model.KindOf(err) {
	case model.ErrConfiguration:
		return ExitConfiguration
	case model.ErrResolution:
		return ExitResolution
	case model.ErrBinding:
		return ExitBinding
	case model.ErrJobExecution:
		return ExitJobExecution
	case model.ErrIncompatibleContext, model.ErrContextUnavailable:
		return ExitContextMisuse
	}
	return ExitFailure
}

// Runtime is what both the single-shot bridge and the local scheduler run
// jobs with.
type Runtime struct {
	Jobs *job.Registry
	// App supplies scheduled bindings and base settings; may be nil when
	// every binding arrives as an override.
	App     *schedule.Application
	Engine  *engine.Registry
	Metrics *metrics.Collector
	Logger  *slog.Logger
}

func (rt Runtime) logger() *slog.Logger {
	if rt.Logger == nil {
		return slog.Default()
	}
	return rt.Logger
}

func (rt Runtime) engine() *engine.Registry {
	if rt.Engine == nil {
		return engine.Shared()
	}
	return rt.Engine
}

// settings overlays extra on the application settings.
func (rt Runtime) settings(extra engine.Settings) engine.Settings {
	s := engine.Settings{}
	if rt.App != nil {
		for k, v := range rt.App.Settings {
			s[k] = v
		}
	}
	for k, v := range extra {
		s[k] = v
	}
	return s
}

func (rt Runtime) invoker(settings engine.Settings) *job.Invoker {
	reg := rt.engine()
	opts := []job.InvokerOption{
		job.WithEngine(reg),
		job.WithSettings(settings),
		job.WithStreamSource(job.EngineStreams{Registry: reg, Settings: settings}),
		job.WithLogger(rt.logger()),
		job.WithMetrics(rt.Metrics),
	}
	if rt.App != nil {
		opts = append(opts, job.WithBindings(rt.App))
	}
	return job.NewInvoker(rt.Jobs, opts...)
}

// Bridge runs a single triggered job.
type Bridge struct {
	rt     Runtime
	logger *slog.Logger
}

// New creates a Bridge.
func New(rt Runtime) *Bridge {
	return &Bridge{rt: rt, logger: rt.logger().With("component", "bridge")}
}

// Run invokes jobName for the trigger's nominal time, then closes the
// shared engine context. A failure is logged with its full cause chain
// before it is returned, so a host that only sees the exit status still
// leaves a diagnostic trail.
func (b *Bridge) Run(ctx context.Context, jobName string, tr *Trigger, opts ...job.RunOption) error {
	b.logger.Info("triggered run",
		"job", jobName,
		"nominal_time", tr.NominalTime,
		"overrides", len(tr.Overrides),
		"source", tr.Source)

	inv := b.rt.invoker(b.rt.settings(tr.Settings))
	err := inv.Run(ctx, jobName, tr.NominalTime, tr.Overrides, opts...)

	if cerr := b.rt.engine().Close(); cerr != nil {
		b.logger.Warn("engine shutdown incomplete", logging.ErrorAttrs(cerr)...)
	}

	if err != nil {
		attrs := append([]any{"job", jobName, "exit_code", ExitCode(err)}, logging.ErrorAttrs(err)...)
		b.logger.Error("unhandled error in job run", attrs...)
		return err
	}
	return nil
}
