package scheduler

import "context"

// semaphore is a counting semaphore used to bound concurrent work across
// a class of operations (jobs, uploads, generations) per spec.md §5.
// Acquire order matches call order, so callers that acquire in index
// order get FIFO dispatch within their own loop.
type semaphore struct {
	slots chan struct{}
}

func newSemaphore(n int) *semaphore {
	if n <= 0 {
		n = 1
	}
	return &semaphore{slots: make(chan struct{}, n)}
}

// Acquire blocks until a slot is free or ctx is cancelled.
func (s *semaphore) Acquire(ctx context.Context) error {
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot acquired by Acquire.
func (s *semaphore) Release() {
	select {
	case <-s.slots:
	default:
	}
}
