package flows

import (
	"context"
	"errors"
	"time"

	"github.com/inkpress/authgate/jwt"
)

// FailureKind classifies authentication failures for root-level mapping.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureNoToken
	FailureMalformed
	FailureExpired
	FailureSessionMismatch
	FailureRevoked
	FailureDeleted
	FailureStore
)

// AuthenticateResult carries the authenticated claims, the rotated pair when
// the refresh path ran, or classified failure metadata.
type AuthenticateResult struct {
	Failure FailureKind
	Err     error

	Claims *jwt.Claims

	Rotated      bool
	RotatedJTI   string
	AccessToken  string
	RefreshToken string
}

// AuthenticateSessionStore is the store slice the authenticate flow needs.
type AuthenticateSessionStore interface {
	CurrentJTI(ctx context.Context, userID string) (string, error)
	RotateCurrent(ctx context.Context, userID, providedJTI, nextJTI string, ttl time.Duration) error
	IsRevoked(ctx context.Context, userID, jti string) (bool, error)
	IsDeleted(ctx context.Context, userID string) (bool, error)
}

// AuthenticateDeps captures authenticate flow dependencies.
type AuthenticateDeps struct {
	ParseToken   func(string) (*jwt.Claims, error)
	NewJTI       func() string
	IssueAccess  func(jwt.Subject, string, string) (string, error)
	IssueRefresh func(jwt.Subject, string, string) (string, error)
	RefreshTTL   func() time.Duration

	SessionStore AuthenticateSessionStore

	// NotifyEvicted runs before a rejection completes when the claim's
	// sessionId provably has no backing record: the pointer is gone or the
	// user is deleted. A bare jti mismatch never evicts here; sessionId is
	// stable across rotation, so the claim's sessionId may belong to the
	// live session, and a displaced login was already evicted by the store
	// write that displaced it.
	NotifyEvicted func(ctx context.Context, userID, sessionID string, kind FailureKind)

	ErrExpired       error
	ErrMalformed     error
	StoreNoSession   error
	StoreMismatch    error
	StoreUnavailable error
}

// RunAuthenticate executes the per-request verification state machine:
//
//	START → parse access → CHECK_SESSION → CHECK_STATUS → CHECK_REVOKED → AUTHENTICATED
//
// with the alternate path on an invalid or expired access token:
//
//	TRY_REFRESH → parse refresh → CHECK_STATUS → CHECK_REVOKED → ROTATE → AUTHENTICATED
//
// Rotation is an atomic compare-and-swap on the session pointer; of two
// requests racing on the same refresh token exactly one rotates and the
// other fails FailureSessionMismatch.
func RunAuthenticate(ctx context.Context, accessToken, refreshToken string, deps AuthenticateDeps) AuthenticateResult {
	if accessToken == "" && refreshToken == "" {
		return AuthenticateResult{Failure: FailureNoToken}
	}

	if accessToken != "" {
		claims, err := deps.ParseToken(accessToken)
		switch {
		case err == nil:
			return checkAccess(ctx, claims, deps)
		case errors.Is(err, deps.ErrExpired), errors.Is(err, deps.ErrMalformed):
			// fall through to the refresh path
			if refreshToken == "" {
				return AuthenticateResult{Failure: parseFailure(err, deps), Err: err}
			}
		default:
			return AuthenticateResult{Failure: FailureMalformed, Err: err}
		}
	}

	return tryRefresh(ctx, refreshToken, deps)
}

func parseFailure(err error, deps AuthenticateDeps) FailureKind {
	if errors.Is(err, deps.ErrExpired) {
		return FailureExpired
	}
	return FailureMalformed
}

// checkAccess runs the stateful checks behind a signature-valid access
// token. Signature validity alone is never sufficient.
func checkAccess(ctx context.Context, claims *jwt.Claims, deps AuthenticateDeps) AuthenticateResult {
	current, err := deps.SessionStore.CurrentJTI(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, deps.StoreNoSession) {
			deps.NotifyEvicted(ctx, claims.UserID, claims.SessionID, FailureSessionMismatch)
			return AuthenticateResult{Failure: FailureSessionMismatch, Err: err, Claims: claims}
		}
		return AuthenticateResult{Failure: FailureStore, Err: err, Claims: claims}
	}
	if current != claims.ID {
		// A different jti owns the session: a new login elsewhere or this
		// session's own rotation. Either way the claim's sessionId may still
		// back the live socket, so the stale token is only rejected; any
		// displaced socket was closed by the write that displaced it.
		return AuthenticateResult{Failure: FailureSessionMismatch, Claims: claims}
	}

	deleted, err := deps.SessionStore.IsDeleted(ctx, claims.UserID)
	if err != nil {
		return AuthenticateResult{Failure: FailureStore, Err: err, Claims: claims}
	}
	if deleted {
		deps.NotifyEvicted(ctx, claims.UserID, claims.SessionID, FailureDeleted)
		return AuthenticateResult{Failure: FailureDeleted, Claims: claims}
	}

	revoked, err := deps.SessionStore.IsRevoked(ctx, claims.UserID, claims.ID)
	if err != nil {
		return AuthenticateResult{Failure: FailureStore, Err: err, Claims: claims}
	}
	if revoked {
		return AuthenticateResult{Failure: FailureRevoked, Claims: claims}
	}

	return AuthenticateResult{Failure: FailureNone, Claims: claims}
}

// tryRefresh validates the refresh token and rotates the session pointer.
// The refresh path never honors a deleted or revoked credential and only one
// racing rotation wins.
func tryRefresh(ctx context.Context, refreshToken string, deps AuthenticateDeps) AuthenticateResult {
	claims, err := deps.ParseToken(refreshToken)
	if err != nil {
		return AuthenticateResult{Failure: parseFailure(err, deps), Err: err}
	}

	deleted, err := deps.SessionStore.IsDeleted(ctx, claims.UserID)
	if err != nil {
		return AuthenticateResult{Failure: FailureStore, Err: err, Claims: claims}
	}
	if deleted {
		deps.NotifyEvicted(ctx, claims.UserID, claims.SessionID, FailureDeleted)
		return AuthenticateResult{Failure: FailureDeleted, Claims: claims}
	}

	revoked, err := deps.SessionStore.IsRevoked(ctx, claims.UserID, claims.ID)
	if err != nil {
		return AuthenticateResult{Failure: FailureStore, Err: err, Claims: claims}
	}
	if revoked {
		return AuthenticateResult{Failure: FailureRevoked, Claims: claims}
	}

	nextJTI := deps.NewJTI()
	if err := deps.SessionStore.RotateCurrent(ctx, claims.UserID, claims.ID, nextJTI, deps.RefreshTTL()); err != nil {
		switch {
		case errors.Is(err, deps.StoreNoSession):
			deps.NotifyEvicted(ctx, claims.UserID, claims.SessionID, FailureSessionMismatch)
			return AuthenticateResult{Failure: FailureSessionMismatch, Err: err, Claims: claims}
		case errors.Is(err, deps.StoreMismatch):
			// Race loser or replayed refresh: the winner shares this
			// sessionId, so no eviction.
			return AuthenticateResult{Failure: FailureSessionMismatch, Err: err, Claims: claims}
		default:
			return AuthenticateResult{Failure: FailureStore, Err: err, Claims: claims}
		}
	}

	// Rotation is committed from here on, client disconnects included: the
	// store pointer already moved, so the new pair must be minted and
	// returned rather than rolled back.
	sub := claims.Subject()
	access, err := deps.IssueAccess(sub, nextJTI, claims.SessionID)
	if err != nil {
		return AuthenticateResult{Failure: FailureStore, Err: err, Claims: claims}
	}
	refresh, err := deps.IssueRefresh(sub, nextJTI, claims.SessionID)
	if err != nil {
		return AuthenticateResult{Failure: FailureStore, Err: err, Claims: claims}
	}

	rotated := *claims
	rotated.ID = nextJTI

	return AuthenticateResult{
		Failure:      FailureNone,
		Claims:       &rotated,
		Rotated:      true,
		RotatedJTI:   nextJTI,
		AccessToken:  access,
		RefreshToken: refresh,
	}
}
