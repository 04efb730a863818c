package engine

import "context"

// semaphore bounds the number of concurrently running partitions of a
// Parallel call. A nil semaphore is unlimited.
type semaphore struct {
	ch chan struct{}
}

// newSemaphore returns nil (unlimited) when n <= 0.
func newSemaphore(n int) *semaphore {
	if n <= 0 {
		return nil
	}
	return &semaphore{ch: make(chan struct{}, n)}
}

// acquire blocks until a slot is free. It returns false if ctx is done first.
func (s *semaphore) acquire(ctx context.Context) bool {
	if s == nil {
		return ctx.Err() == nil
	}
	select {
	case s.ch <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *semaphore) release() {
	if s == nil {
		return
	}
	<-s.ch
}

// capacity returns the bound, or 0 when unlimited.
func (s *semaphore) capacity() int {
	if s == nil {
		return 0
	}
	return cap(s.ch)
}
