package authgate

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/inkpress/authgate/jwt"
)

// IssueSession mints a signed access/refresh pair for identity and records
// the pair's jti as the user's single valid session pointer, overwriting
// (and thereby invalidating) any prior login.
//
// existingSessionID keeps the sessionId stable when rotating an established
// login; pass "" for a fresh login, which also evicts the user's previous
// live socket.
//
// A failed store write is fatal: an unrecorded session would make future
// refreshes unverifiable, so no tokens are returned.
func (e *Engine) IssueSession(ctx context.Context, identity Identity, existingSessionID string) (TokenPair, error) {
	if e == nil || e.jwtManager == nil {
		return TokenPair{}, ErrEngineNotReady
	}

	jti := uuid.NewString()
	sessionID := existingSessionID
	newLogin := sessionID == ""
	if newLogin {
		sessionID = uuid.NewString()
	}

	sub := jwt.Subject{
		UserID:   identity.UserID,
		Username: identity.Username,
		Role:     identity.Role,
		Banned:   identity.Banned,
	}

	access, err := e.jwtManager.CreateAccess(sub, jti, sessionID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("mint access token: %w", err)
	}
	refresh, err := e.jwtManager.CreateRefresh(sub, jti, sessionID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("mint refresh token: %w", err)
	}

	if err := e.store.PutCurrent(ctx, identity.UserID, jti, e.jwtManager.RefreshTTL()); err != nil {
		e.metricInc(MetricStoreUnavailable)
		e.emitAudit(ctx, auditEventSessionIssued, identity.UserID, sessionID, jti, ReasonStoreUnavailable, false, err)
		return TokenPair{}, fmt.Errorf("%w: %v", ErrSessionRecordFailed, err)
	}

	if newLogin {
		// The displaced device loses its socket in the same logical step it
		// lost the session pointer. Not atomic with the write above; the old
		// session's next state check fails regardless of socket state.
		if n := e.coordinator.notifyUserExcept(ctx, identity.UserID, sessionID, ReasonKicked); n > 0 {
			e.metricInc(MetricSocketEvicted)
		}
	}

	e.metricInc(MetricSessionIssued)
	e.emitAudit(ctx, auditEventSessionIssued, identity.UserID, sessionID, jti, ReasonNone, true, nil)

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		SessionID:    sessionID,
	}, nil
}
