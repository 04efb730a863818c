package engine

import "sync"

var (
	sharedMu sync.Mutex
	shared   *Registry
)

// Shared returns the process-wide registry. Unless SetShared installed one,
// it is created on first use, backed by the local driver and the default
// logger.
func Shared() *Registry {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if shared == nil {
		shared = NewRegistry(NewLocalDriver(nil))
	}
	return shared
}

// SetShared installs r as the process-wide registry and returns the one it
// replaces, which may be nil. Callers that own the process (the CLI) install
// their configured registry once at startup so that every fallback to Shared
// reaches the same context.
func SetShared(r *Registry) *Registry {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	prev := shared
	shared = r
	return prev
}
