package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/me/gokite/internal/engine"
	"github.com/me/gokite/pkg/model"
)

// Local drives an application's schedules in-process, in place of the
// external trigger. All runs share one engine context until Close.
type Local struct {
	rt       Runtime
	settings engine.Settings
	logger   *slog.Logger
}

// Firing is one scheduled run.
type Firing struct {
	Job         string
	NominalTime time.Time
}

// NewLocal creates a local scheduler for rt.App. extra settings are
// overlaid on the application settings.
func NewLocal(rt Runtime, extra engine.Settings) (*Local, error) {
	if rt.App == nil {
		return nil, model.ConfigurationError("local scheduler", "an application is required")
	}
	return &Local{
		rt:       rt,
		settings: rt.settings(extra),
		logger:   rt.logger().With("component", "local-scheduler", "app", rt.App.Name),
	}, nil
}

// RunScheduled runs every scheduled job of the application once for
// nominal, in declaration order, stopping at the first failure. A
// non-empty only runs just that job.
func (l *Local) RunScheduled(ctx context.Context, nominal time.Time, only string) error {
	if only != "" {
		if _, ok := l.rt.App.Schedule(only); !ok {
			return model.ConfigurationError("run scheduled", "job %q is not scheduled by application %q", only, l.rt.App.Name)
		}
	}
	inv := l.rt.invoker(l.settings)
	for _, s := range l.rt.App.Schedules {
		if only != "" && s.Job != only {
			continue
		}
		if err := inv.Run(ctx, s.Job, nominal, nil); err != nil {
			return err
		}
	}
	return nil
}

// Plan lists the firings of the application's schedules in [from, to],
// chronologically; firings at the same time keep declaration order. A
// non-empty only restricts the plan to that job.
func (l *Local) Plan(from, to time.Time, only string) ([]Firing, error) {
	if to.Before(from) {
		return nil, model.ConfigurationError("plan backfill", "end %s is before start %s", to, from)
	}
	var out []Firing
	found := only == ""
	for _, s := range l.rt.App.Schedules {
		if only != "" && s.Job != only {
			continue
		}
		found = true
		for _, t := range s.Firings(from, to) {
			out = append(out, Firing{Job: s.Job, NominalTime: t})
		}
	}
	if !found {
		return nil, model.ConfigurationError("plan backfill", "job %q is not scheduled by application %q", only, l.rt.App.Name)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].NominalTime.Before(out[j].NominalTime)
	})
	return out, nil
}

// Backfill runs every firing in [from, to] in order. It stops at the first
// failure and does not retry; the returned error names the failed firing.
func (l *Local) Backfill(ctx context.Context, from, to time.Time, only string) (int, error) {
	plan, err := l.Plan(from, to, only)
	if err != nil {
		return 0, err
	}
	l.logger.Info("backfill planned", "from", from, "to", to, "firings", len(plan))
	return l.RunFirings(ctx, plan)
}

// RunFirings runs plan in order and returns how many firings succeeded
// before the first failure.
func (l *Local) RunFirings(ctx context.Context, plan []Firing) (int, error) {
	inv := l.rt.invoker(l.settings)
	for i, f := range plan {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := inv.Run(ctx, f.Job, f.NominalTime, nil); err != nil {
			return i, fmt.Errorf("backfill %s at %s: %w", f.Job, f.NominalTime.Format(time.RFC3339), err)
		}
	}
	return len(plan), nil
}

// Close shuts the shared engine context down.
func (l *Local) Close() error {
	return l.rt.engine().Shutdown()
}
