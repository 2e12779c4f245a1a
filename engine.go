package authgate

import (
	"context"
	"time"

	"github.com/inkpress/authgate/internal/flows"
	"github.com/inkpress/authgate/jwt"
	"github.com/inkpress/authgate/session"
)

// Engine is the session authority. All methods are safe for concurrent use
// after initialization through [Builder.Build].
type Engine struct {
	config      Config
	store       *session.Store
	jwtManager  *jwt.Manager
	coordinator *evictionCoordinator
	audit       *auditDispatcher
	metrics     *Metrics
	directory   UserDirectory
}

// Close shuts down the audit dispatcher, draining buffered events. The
// Redis client passed to [Builder.WithRedis] stays caller-owned; close it
// through [Engine.Store] or directly.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// Store exposes the session store for health checks and lifecycle control.
func (e *Engine) Store() *session.Store {
	if e == nil {
		return nil
	}
	return e.store
}

// Directory exposes the user directory contract for the realtime gateway's
// per-frame ban checks.
func (e *Engine) Directory() UserDirectory {
	if e == nil {
		return nil
	}
	return e.directory
}

// Config returns a copy of the active configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

// SetEvictor registers the live-connection evictor. Typically called once
// after constructing the realtime gateway, whose registry implements
// [Evictor].
func (e *Engine) SetEvictor(ev Evictor) {
	if e == nil || e.coordinator == nil {
		return
	}
	e.coordinator.setEvictor(ev)
}

// AuditDropped reports how many audit events were dropped under
// backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Metrics exposes the live metrics instance so the realtime gateway can
// count socket events on the same registry. Nil when metrics are disabled.
func (e *Engine) Metrics() *Metrics {
	if e == nil {
		return nil
	}
	return e.metrics
}

// MetricsSnapshot returns a point-in-time deep copy of all metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, d time.Duration) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(id, d)
}

// notifyEvicted is handed to the flows as the pre-rejection eviction hook.
func (e *Engine) notifyEvicted(ctx context.Context, userID, sessionID string, kind flows.FailureKind) {
	reason := reasonForFailure(kind)
	e.metricInc(MetricSessionEvicted)
	if e.coordinator.notify(ctx, userID, sessionID, reason) {
		e.metricInc(MetricSocketEvicted)
	}
	e.emitAudit(ctx, auditEventSessionEvicted, userID, sessionID, "", reason, true, nil)
}

func reasonForFailure(kind flows.FailureKind) RejectReason {
	switch kind {
	case flows.FailureNone:
		return ReasonNone
	case flows.FailureNoToken:
		return ReasonNoToken
	case flows.FailureExpired:
		return ReasonTokenExpired
	case flows.FailureSessionMismatch:
		return ReasonKicked
	case flows.FailureRevoked:
		return ReasonTokenRevoked
	case flows.FailureDeleted:
		return ReasonUserDeleted
	case flows.FailureStore:
		return ReasonStoreUnavailable
	default:
		return ReasonTokenMalformed
	}
}
