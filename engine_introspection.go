package authgate

import (
	"context"
	"errors"
	"time"

	"github.com/inkpress/authgate/session"
)

// HealthStatus is an on-demand backend health result.
type HealthStatus struct {
	RedisAvailable bool
	RedisLatency   time.Duration
}

// Health pings the session store and reports availability plus observed
// latency. Intended for readiness probes; it never caches.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil || e.store == nil {
		return HealthStatus{}
	}

	latency, err := e.store.Ping(ctx)
	return HealthStatus{
		RedisAvailable: err == nil,
		RedisLatency:   latency,
	}
}

// HasActiveSession reports whether a session pointer currently exists for
// the user. Store failures propagate so callers can distinguish "no
// session" from "unknown".
func (e *Engine) HasActiveSession(ctx context.Context, userID string) (bool, error) {
	if e == nil || e.store == nil {
		return false, ErrEngineNotReady
	}

	_, err := e.store.CurrentJTI(ctx, userID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, session.ErrNoSession):
		return false, nil
	default:
		return false, ErrStoreUnavailable
	}
}
