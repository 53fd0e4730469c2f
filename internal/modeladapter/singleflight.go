package modeladapter

import "sync"

// call tracks one in-flight (or completed) request for a fingerprint.
// It is the same "map of in-flight futures keyed by fingerprint, first
// caller executes" primitive described for the model adapter, hand-rolled
// with stdlib sync rather than golang.org/x/sync/singleflight.
type call struct {
	wg  sync.WaitGroup
	val string
	err error
}

// group deduplicates concurrent callers sharing the same fingerprint so
// at most one request for that fingerprint is ever in flight.
type group struct {
	mu    sync.Mutex
	calls map[string]*call
}

func newGroup() *group {
	return &group{calls: map[string]*call{}}
}

// do runs fn for key if no call is already in flight; otherwise it waits
// for the in-flight call and returns its result.
func (g *group) do(key string, fn func() (string, error)) (string, error) {
	g.mu.Lock()
	if existing, ok := g.calls[key]; ok {
		g.mu.Unlock()
		existing.wg.Wait()
		return existing.val, existing.err
	}

	c := &call{}
	c.wg.Add(1)
	g.calls[key] = c
	g.mu.Unlock()

	c.val, c.err = fn()
	c.wg.Done()

	g.mu.Lock()
	delete(g.calls, key)
	g.mu.Unlock()

	return c.val, c.err
}
