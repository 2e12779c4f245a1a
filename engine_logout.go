package authgate

import (
	"context"
	"time"

	"github.com/inkpress/authgate/internal/flows"
)

// Logout blacklists the presented access token's jti for its remaining
// lifetime and closes the session's live socket. The still-unexpired token
// then fails [ErrTokenRevoked] on its next check even though its session
// pointer would still match.
func (e *Engine) Logout(ctx context.Context, accessToken string) error {
	if e == nil || e.jwtManager == nil {
		return ErrEngineNotReady
	}

	result := flows.RunLogout(ctx, accessToken, flows.LogoutDeps{
		ParseToken:    e.jwtManager.Parse,
		Now:           time.Now,
		SessionStore:  e.store,
		NotifyEvicted: e.notifyEvicted,
	})

	if result.Failure != flows.FailureNone {
		reason := reasonForFailure(result.Failure)
		if result.Failure == flows.FailureStore {
			e.metricInc(MetricStoreUnavailable)
		}
		e.emitAudit(ctx, auditEventLogout, result.UserID, result.SessionID, result.JTI, reason, false, result.Err)
		return reason.Err()
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, result.UserID, result.SessionID, result.JTI, ReasonNone, true, nil)

	return nil
}
