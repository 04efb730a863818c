package engine

import (
	"context"
	"time"

	"github.com/me/gokite/pkg/model"
)

// Batch is the engine's batch handle.
type Batch interface {
	// Parallel runs fn for i in [0, n), fanned out by the engine. The first
	// error cancels the remaining work and is returned.
	Parallel(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error
	Stop() error
}

// Streaming is the engine's streaming handle, layered on a Batch.
type Streaming interface {
	Stream(name string) (model.Stream, error)
	// Stop halts the streaming handle. A graceful stop drains in-flight
	// records first and may block.
	Stop(graceful bool) error
}

// StreamingOptions configures a new streaming handle.
type StreamingOptions struct {
	Interval   time.Duration
	Checkpoint string
}

// Driver creates engine handles. Implementations need not be safe to call
// concurrently; the Registry serializes creation.
type Driver interface {
	NewBatch(conf map[string]string) (Batch, error)
	NewStreaming(batch Batch, conf map[string]string, opts StreamingOptions) (Streaming, error)
}
