package authgate

import (
	"context"
	"sync"
	"time"
)

// evictionCoordinator bridges session invalidation to the realtime registry.
// Calls are synchronous but bounded: a slow or absent evictor never delays
// the HTTP rejection beyond the configured timeout. The availability of the
// HTTP path is prioritized over guaranteed-synchronous eviction
// confirmation — the stale session's next state check fails regardless of
// socket state.
type evictionCoordinator struct {
	timeout time.Duration

	mu      sync.RWMutex
	evictor Evictor
}

func newEvictionCoordinator(cfg EvictionConfig) *evictionCoordinator {
	return &evictionCoordinator{timeout: cfg.Timeout}
}

func (c *evictionCoordinator) setEvictor(ev Evictor) {
	c.mu.Lock()
	c.evictor = ev
	c.mu.Unlock()
}

func (c *evictionCoordinator) current() Evictor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.evictor
}

// notify closes the live socket for (userID, sessionID), if any. It reports
// whether a connection was found; false on timeout or when no evictor is
// registered.
func (c *evictionCoordinator) notify(ctx context.Context, userID, sessionID string, reason RejectReason) bool {
	evictor := c.current()
	if evictor == nil {
		return false
	}

	// Detached from the request context: the store write that caused this
	// eviction already happened, so the close must proceed even if the
	// triggering request is cancelled mid-flight.
	evictCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)

	done := make(chan bool, 1)
	go func() {
		defer cancel()
		done <- evictor.NotifyEvicted(evictCtx, userID, sessionID, reason)
	}()

	select {
	case found := <-done:
		return found
	case <-evictCtx.Done():
		return false
	}
}

// notifyUserExcept closes every socket of userID except keepSessionID,
// with the same bounded-wait semantics as notify.
func (c *evictionCoordinator) notifyUserExcept(ctx context.Context, userID, keepSessionID string, reason RejectReason) int {
	evictor := c.current()
	if evictor == nil {
		return 0
	}

	evictCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)

	done := make(chan int, 1)
	go func() {
		defer cancel()
		done <- evictor.EvictUserExcept(evictCtx, userID, keepSessionID, reason)
	}()

	select {
	case n := <-done:
		return n
	case <-evictCtx.Done():
		return 0
	}
}
