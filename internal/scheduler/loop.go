package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/me/gokite/internal/bridge"
)

// Config holds scheduler configuration.
type Config struct {
	PollInterval time.Duration
	// CatchUp runs firings missed since this time on the first tick. Zero
	// starts from the moment the loop starts.
	CatchUp time.Time
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{PollInterval: 30 * time.Second}
}

// Status is a snapshot of the loop's progress.
type Status struct {
	Running   bool      `json:"running"`
	Watermark time.Time `json:"watermark"`
	Fired     int       `json:"fired"`
	Failed    int       `json:"failed"`
	LastError string    `json:"last_error,omitempty"`
}

// Loop implements the Scheduler interface by polling the clock and running
// every firing that fell due since the previous tick.
type Loop struct {
	local  *bridge.Local
	config Config
	logger *slog.Logger
	now    func() time.Time
	stopCh chan struct{}
	doneCh chan struct{}

	mu     sync.Mutex
	status Status
}

// NewLoop creates a new scheduler loop.
func NewLoop(local *bridge.Local, cfg Config, logger *slog.Logger) *Loop {
	return &Loop{
		local:  local,
		config: cfg,
		logger: logger.With("component", "scheduler"),
		now:    time.Now,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Status returns a snapshot of the loop's progress.
func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// Start begins the scheduling loop. Blocks until ctx is cancelled or Stop is called.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	l.status.Running = true
	if l.status.Watermark.IsZero() {
		l.status.Watermark = l.config.CatchUp
		if l.status.Watermark.IsZero() {
			l.status.Watermark = l.now().UTC()
		}
	}
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.status.Running = false
		l.mu.Unlock()
		close(l.doneCh)
	}()

	l.logger.Info("scheduler started", "poll_interval", l.config.PollInterval, "watermark", l.Status().Watermark)
	if err := l.Tick(ctx); err != nil {
		l.logger.Error("tick error", "error", err)
	}

	ticker := time.NewTicker(l.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("scheduler stopping (context cancelled)")
			return ctx.Err()
		case <-l.stopCh:
			l.logger.Info("scheduler stopping (stop called)")
			return nil
		case <-ticker.C:
			if err := l.Tick(ctx); err != nil {
				l.logger.Error("tick error", "error", err)
			}
		}
	}
}

// Stop gracefully shuts down the scheduler and waits for the current tick to finish.
func (l *Loop) Stop() error {
	close(l.stopCh)
	<-l.doneCh
	return nil
}

// Tick runs every firing in (watermark, now] and advances the watermark to
// now. A failed firing is not retried: the firings after it in the same
// tick are skipped and the watermark still advances.
func (l *Loop) Tick(ctx context.Context) error {
	now := l.now().UTC()

	l.mu.Lock()
	from := l.status.Watermark
	if from.IsZero() {
		l.status.Watermark = now
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()
	// Firings at the watermark itself ran in the previous tick.
	start := from.Add(time.Second)
	if now.Before(start) {
		return nil
	}
	plan, err := l.local.Plan(start, now, "")
	if err != nil {
		return err
	}
	var n int
	if len(plan) > 0 {
		l.logger.Debug("firings due", "from", from, "to", now, "firings", len(plan))
		n, err = l.local.RunFirings(ctx, plan)
	}

	l.mu.Lock()
	l.status.Watermark = now
	l.status.Fired += n
	if err != nil {
		l.status.Failed++
		l.status.LastError = err.Error()
	}
	l.mu.Unlock()
	return err
}
