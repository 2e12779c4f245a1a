package authgate

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/inkpress/authgate/internal/flows"
	"github.com/inkpress/authgate/jwt"
	"github.com/inkpress/authgate/session"
)

// Authenticate runs the per-request verification state machine over the
// presented tokens. An invalid or expired access token falls through to the
// refresh path; a successful refresh returns Rotated=true with the new pair.
//
// All failures collapse into an unauthenticated [Decision] carrying a
// machine-readable [RejectReason]; internal store errors are never leaked.
// Store unavailability fails closed.
func (e *Engine) Authenticate(ctx context.Context, accessToken, refreshToken string) Decision {
	if e == nil || e.jwtManager == nil {
		return Decision{Reason: ReasonStoreUnavailable}
	}

	start := time.Now()
	result := flows.RunAuthenticate(ctx, accessToken, refreshToken, e.authenticateDeps())
	e.metricObserve(MetricAuthenticateLatency, time.Since(start))

	return e.decide(ctx, result)
}

// VerifyAccess validates a bare access token with the full stateful checks
// but never the refresh path. The realtime gateway uses it at handshake and
// the engine's callers anywhere a rotation side effect is unwanted.
func (e *Engine) VerifyAccess(ctx context.Context, accessToken string) Decision {
	if e == nil || e.jwtManager == nil {
		return Decision{Reason: ReasonStoreUnavailable}
	}
	if accessToken == "" {
		return Decision{Reason: ReasonNoToken}
	}

	result := flows.RunAuthenticate(ctx, accessToken, "", e.authenticateDeps())
	return e.decide(ctx, result)
}

func (e *Engine) authenticateDeps() flows.AuthenticateDeps {
	return flows.AuthenticateDeps{
		ParseToken:   e.jwtManager.Parse,
		NewJTI:       uuid.NewString,
		IssueAccess:  e.jwtManager.CreateAccess,
		IssueRefresh: e.jwtManager.CreateRefresh,
		RefreshTTL:   e.jwtManager.RefreshTTL,

		SessionStore:  e.store,
		NotifyEvicted: e.notifyEvicted,

		ErrExpired:       jwt.ErrExpired,
		ErrMalformed:     jwt.ErrMalformed,
		StoreNoSession:   session.ErrNoSession,
		StoreMismatch:    session.ErrCurrentMismatch,
		StoreUnavailable: session.ErrUnavailable,
	}
}

func (e *Engine) decide(ctx context.Context, result flows.AuthenticateResult) Decision {
	var identity Identity
	var sessionID, jti string
	if result.Claims != nil {
		identity = Identity{
			UserID:   result.Claims.UserID,
			Username: result.Claims.Username,
			Role:     result.Claims.Role,
			Banned:   result.Claims.Banned,
		}
		sessionID = result.Claims.SessionID
		jti = result.Claims.ID
	}

	if result.Failure != flows.FailureNone {
		reason := reasonForFailure(result.Failure)
		e.metricInc(MetricAuthReject)
		if result.Failure == flows.FailureStore {
			e.metricInc(MetricStoreUnavailable)
		}
		if errors.Is(result.Err, session.ErrCurrentMismatch) {
			e.metricInc(MetricRefreshRace)
		}
		e.emitAudit(ctx, auditEventAuthReject, identity.UserID, sessionID, jti, reason, false, result.Err)

		return Decision{
			Authenticated: false,
			Reason:        reason,
			Identity:      identity,
			SessionID:     sessionID,
			JTI:           jti,
		}
	}

	e.metricInc(MetricAuthSuccess)
	if result.Rotated {
		e.metricInc(MetricRefreshRotation)
		e.emitAudit(ctx, auditEventRefreshRotation, identity.UserID, sessionID, result.RotatedJTI, ReasonNone, true, nil)
	}

	return Decision{
		Authenticated: true,
		Identity:      identity,
		SessionID:     sessionID,
		JTI:           jti,
		Rotated:       result.Rotated,
		AccessToken:   result.AccessToken,
		RefreshToken:  result.RefreshToken,
	}
}
