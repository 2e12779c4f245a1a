package flows

import (
	"context"
	"time"

	"github.com/inkpress/authgate/jwt"
)

// LogoutSessionStore is the store slice the logout flow needs.
type LogoutSessionStore interface {
	Revoke(ctx context.Context, userID, jti string, ttl time.Duration) error
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	ParseToken    func(string) (*jwt.Claims, error)
	Now           func() time.Time
	SessionStore  LogoutSessionStore
	NotifyEvicted func(ctx context.Context, userID, sessionID string, kind FailureKind)
}

// LogoutResult reports which session was revoked, or why revocation failed.
type LogoutResult struct {
	Failure   FailureKind
	Err       error
	UserID    string
	SessionID string
	JTI       string
}

// RunLogout blacklists the presented access token's jti for its remaining
// lifetime and evicts the session's live socket. The session pointer itself
// is left in place; the blacklist entry is what rejects the still-unexpired
// token.
func RunLogout(ctx context.Context, accessToken string, deps LogoutDeps) LogoutResult {
	claims, err := deps.ParseToken(accessToken)
	if err != nil {
		return LogoutResult{Failure: FailureMalformed, Err: err}
	}

	remaining := claims.RemainingLifetime(deps.Now())
	if err := deps.SessionStore.Revoke(ctx, claims.UserID, claims.ID, remaining); err != nil {
		return LogoutResult{
			Failure:   FailureStore,
			Err:       err,
			UserID:    claims.UserID,
			SessionID: claims.SessionID,
			JTI:       claims.ID,
		}
	}

	deps.NotifyEvicted(ctx, claims.UserID, claims.SessionID, FailureRevoked)

	return LogoutResult{
		Failure:   FailureNone,
		UserID:    claims.UserID,
		SessionID: claims.SessionID,
		JTI:       claims.ID,
	}
}
