package authgate

import (
	"context"
	"fmt"
)

// MarkDeleted flags userID as deleted in the session store and closes every
// live socket the user holds. Subsequent authentication attempts fail
// [ErrUserDeleted] on their status check regardless of token validity.
//
// The flag carries no TTL; it outlives any session pointer and is cleared
// only through [Engine.ClearDeleted].
func (e *Engine) MarkDeleted(ctx context.Context, userID string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	if err := e.store.MarkDeleted(ctx, userID); err != nil {
		e.metricInc(MetricStoreUnavailable)
		e.emitAudit(ctx, auditEventUserDeleted, userID, "", "", ReasonStoreUnavailable, false, err)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricSessionEvicted)
	e.coordinator.notifyUserExcept(ctx, userID, "", ReasonUserDeleted)
	e.emitAudit(ctx, auditEventUserDeleted, userID, "", "", ReasonUserDeleted, true, nil)

	return nil
}

// ClearDeleted removes the deleted flag for userID, for account restore
// flows. Existing tokens resume validating normally; no new session is
// issued here.
func (e *Engine) ClearDeleted(ctx context.Context, userID string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	if err := e.store.ClearDeleted(ctx, userID); err != nil {
		e.metricInc(MetricStoreUnavailable)
		e.emitAudit(ctx, auditEventUserRestored, userID, "", "", ReasonStoreUnavailable, false, err)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.emitAudit(ctx, auditEventUserRestored, userID, "", "", ReasonNone, true, nil)

	return nil
}
