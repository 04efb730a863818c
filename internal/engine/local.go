package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/me/gokite/pkg/model"
)

// Local driver configuration keys.
const (
	ConfLocalParallelism  = "engine.local.parallelism"
	ConfLocalStreamBuffer = "engine.local.stream.buffer"
)

// LocalDriver is an in-process engine. Batch work fans out over goroutines;
// streams are buffered channels fed with Publish.
type LocalDriver struct {
	logger *slog.Logger
}

// NewLocalDriver creates a local driver.
func NewLocalDriver(logger *slog.Logger) *LocalDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalDriver{logger: logger.With("component", "local-engine")}
}

// NewBatch creates a batch handle bounded by engine.local.parallelism.
func (d *LocalDriver) NewBatch(conf map[string]string) (Batch, error) {
	n, err := confInt(conf, ConfLocalParallelism, 0)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		n = runtime.NumCPU()
	}
	d.logger.Debug("local batch created", "parallelism", n)
	return &LocalBatch{sem: newSemaphore(n), logger: d.logger}, nil
}

// NewStreaming creates a streaming handle. A checkpoint location, when set,
// is created as a directory.
func (d *LocalDriver) NewStreaming(batch Batch, conf map[string]string, opts StreamingOptions) (Streaming, error) {
	if _, ok := batch.(*LocalBatch); !ok {
		return nil, fmt.Errorf("local streaming needs a local batch, got %T", batch)
	}
	buf, err := confInt(conf, ConfLocalStreamBuffer, 64)
	if err != nil {
		return nil, err
	}
	if opts.Checkpoint != "" {
		if err := os.MkdirAll(opts.Checkpoint, 0o755); err != nil {
			return nil, fmt.Errorf("create checkpoint dir: %w", err)
		}
	}
	return &LocalStreaming{
		opts:    opts,
		buffer:  buf,
		streams: make(map[string]*localStream),
		abort:   make(chan struct{}),
		logger:  d.logger,
	}, nil
}

func confInt(conf map[string]string, key string, def int) (int, error) {
	v, ok := conf[key]
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, model.ConfigurationError("engine conf", "%s must be a non-negative integer, got %q", key, v)
	}
	return n, nil
}

// LocalBatch runs Parallel partitions on goroutines.
type LocalBatch struct {
	sem     *semaphore
	stopped atomic.Bool
	logger  *slog.Logger
}

// Parallelism returns the concurrency bound.
func (b *LocalBatch) Parallelism() int {
	return b.sem.capacity()
}

// Parallel runs fn for every i in [0, n) with at most Parallelism() running
// at once. The first failure cancels the context passed to the others.
func (b *LocalBatch) Parallel(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	if b.stopped.Load() {
		return model.ContextUnavailableError("parallel", "batch handle is stopped")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for i := 0; i < n; i++ {
		if !b.sem.acquire(runCtx) {
			break
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer b.sem.release()
			if err := fn(runCtx, i); err != nil {
				once.Do(func() {
					firstErr = fmt.Errorf("partition %d: %w", i, err)
					cancel()
				})
			}
		}(i)
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

// Stop marks the handle stopped. Running Parallel calls finish.
func (b *LocalBatch) Stop() error {
	b.stopped.Store(true)
	return nil
}

// LocalStreaming hands out named channel-backed streams.
type LocalStreaming struct {
	opts   StreamingOptions
	buffer int
	logger *slog.Logger

	mu      sync.Mutex
	streams map[string]*localStream
	stopped bool

	// abort is closed by a non-graceful Stop to release blocked publishers.
	abort    chan struct{}
	inflight sync.WaitGroup
}

// Interval returns the configured micro-batch interval.
func (s *LocalStreaming) Interval() time.Duration { return s.opts.Interval }

// Checkpoint returns the checkpoint location.
func (s *LocalStreaming) Checkpoint() string { return s.opts.Checkpoint }

// Stream returns the named stream, creating it on first use.
func (s *LocalStreaming) Stream(name string) (model.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, model.ContextUnavailableError("stream "+name, "streaming handle is stopped")
	}
	return s.streamLocked(name), nil
}

func (s *LocalStreaming) streamLocked(name string) *localStream {
	st, ok := s.streams[name]
	if !ok {
		st = &localStream{name: name, ch: make(chan model.Record, s.buffer)}
		s.streams[name] = st
	}
	return st
}

// Publish sends rec to the named stream, blocking while its buffer is full.
func (s *LocalStreaming) Publish(ctx context.Context, name string, rec model.Record) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return model.ContextUnavailableError("publish "+name, "streaming handle is stopped")
	}
	st := s.streamLocked(name)
	s.inflight.Add(1)
	s.mu.Unlock()
	defer s.inflight.Done()

	select {
	case st.ch <- rec:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.abort:
		return model.ContextUnavailableError("publish "+name, "streaming handle was stopped")
	}
}

// Stop refuses new publishes and closes every stream. A graceful stop waits
// for blocked Publish calls to deliver; otherwise they fail at once. Readers
// drain what is buffered and then see the channel close.
func (s *LocalStreaming) Stop(graceful bool) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	if !graceful {
		close(s.abort)
	}
	s.inflight.Wait()

	s.mu.Lock()
	for _, st := range s.streams {
		close(st.ch)
	}
	n := len(s.streams)
	s.mu.Unlock()
	s.logger.Debug("local streaming stopped", "streams", n, "graceful", graceful)
	return nil
}

type localStream struct {
	name string
	ch   chan model.Record
}

func (s *localStream) Name() string                 { return s.name }
func (s *localStream) Records() <-chan model.Record { return s.ch }
