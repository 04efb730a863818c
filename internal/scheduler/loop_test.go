package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/me/gokite/internal/bridge"
	"github.com/me/gokite/internal/engine"
	"github.com/me/gokite/internal/job"
	"github.com/me/gokite/internal/schedule"
	"github.com/me/gokite/pkg/model"
)

type tickArgs struct {
	Out model.View `view:"ticks,out"`
}

// tickJob records the output address of every run.
type tickJob struct {
	job.Base
	mu   *sync.Mutex
	seen *[]string
	fail func(time.Time) bool
}

func (j *tickJob) Run(ctx context.Context, args tickArgs) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	*j.seen = append(*j.seen, args.Out.URI)
	if j.fail != nil && j.fail(j.NominalTime()) {
		return errors.New("sink unavailable")
	}
	return nil
}

type fixture struct {
	loop  *Loop
	clock time.Time
	mu    sync.Mutex
	seen  []string
}

func (f *fixture) Seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seen...)
}

// testSetup creates a loop over an application that fires "ticks" every
// minute, driven by a fake clock.
func testSetup(t *testing.T, cfg Config, fail func(time.Time) bool) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{}

	jobs := job.NewRegistry(logger)
	jobs.MustRegister("ticker", func() any {
		return &tickJob{mu: &f.mu, seen: &f.seen, fail: fail}
	})
	s, err := schedule.NewBuilder("ticker").Frequency("* * * * *").
		Output("ticks", "view://ticks?hour={HOUR}&minute={MINUTE}").Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	app := &schedule.Application{Name: "ticks", Schedules: []*schedule.Schedule{s}}

	eng := engine.NewRegistry(engine.NewLocalDriver(logger), engine.WithLogger(logger))
	local, err := bridge.NewLocal(bridge.Runtime{Jobs: jobs, App: app, Engine: eng, Logger: logger}, nil)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	t.Cleanup(func() { local.Close() })

	f.loop = NewLoop(local, cfg, logger)
	f.loop.now = func() time.Time {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.clock
	}
	return f
}

func (f *fixture) set(t time.Time) {
	f.mu.Lock()
	f.clock = t
	f.mu.Unlock()
}

func at(h, m, s int) time.Time {
	return time.Date(2015, 5, 15, h, m, s, 0, time.UTC)
}

func TestTick_RunsDueFirings(t *testing.T) {
	f := testSetup(t, DefaultConfig(), nil)
	ctx := context.Background()

	f.set(at(12, 0, 30))
	if err := f.loop.Tick(ctx); err != nil {
		t.Fatalf("first tick: %v", err)
	}
	if len(f.Seen()) != 0 {
		t.Fatalf("first tick only sets the watermark, ran %v", f.Seen())
	}

	f.set(at(12, 3, 0))
	if err := f.loop.Tick(ctx); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	want := []string{
		"view://ticks?hour=12&minute=1",
		"view://ticks?hour=12&minute=2",
		"view://ticks?hour=12&minute=3",
	}
	got := f.Seen()
	if len(got) != len(want) {
		t.Fatalf("ran %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("run %d = %q, want %q", i, got[i], want[i])
		}
	}

	st := f.loop.Status()
	if st.Fired != 3 || !st.Watermark.Equal(at(12, 3, 0)) {
		t.Errorf("status = %+v", st)
	}
}

func TestTick_NoDoubleFiring(t *testing.T) {
	f := testSetup(t, Config{PollInterval: time.Second, CatchUp: at(11, 59, 30)}, nil)
	ctx := context.Background()
	f.loop.status.Watermark = f.loop.config.CatchUp

	for _, now := range []time.Time{at(12, 0, 0), at(12, 0, 0), at(12, 0, 0).Add(500 * time.Millisecond), at(12, 0, 45)} {
		f.set(now)
		if err := f.loop.Tick(ctx); err != nil {
			t.Fatalf("Tick at %v: %v", now, err)
		}
	}
	if got := f.Seen(); len(got) != 1 || got[0] != "view://ticks?hour=12&minute=0" {
		t.Errorf("ran %v, want the 12:00 firing once", got)
	}
}

func TestTick_FailureAdvancesWatermark(t *testing.T) {
	f := testSetup(t, DefaultConfig(), func(nominal time.Time) bool {
		return nominal.Minute() == 1
	})
	ctx := context.Background()
	f.loop.status.Watermark = at(12, 0, 0)

	f.set(at(12, 2, 0))
	err := f.loop.Tick(ctx)
	if !errors.Is(err, model.ErrJobExecution) {
		t.Fatalf("Tick err = %v, want job execution error", err)
	}
	if got := f.Seen(); len(got) != 1 {
		t.Errorf("firings after a failure in the same tick must be skipped, ran %v", got)
	}
	st := f.loop.Status()
	if st.Failed != 1 || st.LastError == "" || !st.Watermark.Equal(at(12, 2, 0)) {
		t.Errorf("status = %+v", st)
	}

	// The failed firing is not retried.
	f.set(at(12, 3, 0))
	if err := f.loop.Tick(ctx); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if got := f.Seen(); len(got) != 2 || got[1] != "view://ticks?hour=12&minute=3" {
		t.Errorf("ran %v", got)
	}
}

func TestStart_CatchUp(t *testing.T) {
	f := testSetup(t, Config{PollInterval: time.Hour, CatchUp: at(11, 58, 0)}, nil)
	f.set(at(12, 0, 10))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.loop.Start(ctx) }()

	deadline := time.After(5 * time.Second)
	for len(f.Seen()) < 2 {
		select {
		case <-deadline:
			t.Fatalf("catch-up did not run, ran %v", f.Seen())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Start returned %v, want context.Canceled", err)
	}
	if f.loop.Status().Running {
		t.Error("loop still reports running after Start returned")
	}
}

// TestStart_StopsOnContextCancel verifies that Start returns when its context
// is cancelled.
func TestStart_StopsOnContextCancel(t *testing.T) {
	f := testSetup(t, Config{PollInterval: 10 * time.Millisecond}, nil)
	f.set(at(12, 0, 0))

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- f.loop.Start(ctx)
	}()

	// Let the scheduler run a few ticks, then cancel.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Start returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return within 5 seconds after context cancellation")
	}
}

func TestStop(t *testing.T) {
	f := testSetup(t, Config{PollInterval: 10 * time.Millisecond}, nil)
	f.set(at(12, 0, 0))

	done := make(chan error, 1)
	go func() { done <- f.loop.Start(context.Background()) }()

	time.Sleep(30 * time.Millisecond)
	if err := f.loop.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := <-done; err != nil {
		t.Errorf("Start returned %v after Stop, want nil", err)
	}
}
