// Package scheduler fires an application's cron schedules as wall-clock time
// passes, running each firing through the local trigger.
package scheduler

import "context"

// Scheduler runs scheduled firings until stopped.
type Scheduler interface {
	// Start begins the scheduling loop. Blocks until ctx is cancelled.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the scheduler.
	Stop() error

	// Tick runs a single scheduling iteration. Used for testing.
	Tick(ctx context.Context) error
}
