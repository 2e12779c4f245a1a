package authgate

import "errors"

var (
	// ErrTokenMalformed is returned when a presented token cannot be parsed
	// or its signature does not verify.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenExpired is returned when a token's signature verifies but its
	// expiry has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrSessionMismatch is returned when a token's jti no longer matches
	// the session pointer in the store: the session was replaced by a newer
	// login (the holder was kicked).
	ErrSessionMismatch = errors.New("session mismatch")
	// ErrTokenRevoked is returned when a still-unexpired access token's jti
	// has been blacklisted by an explicit logout.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrUserDeleted is returned when the user behind a formally valid token
	// has been marked deleted.
	ErrUserDeleted = errors.New("user deleted")
	// ErrUserBanned is returned when a banned user attempts a dispatching
	// WebSocket operation.
	ErrUserBanned = errors.New("user banned")
	// ErrStoreUnavailable wraps any session-store failure, including
	// round-trip timeouts. Every check depending on the store fails closed
	// when it is returned.
	ErrStoreUnavailable = errors.New("session store unavailable")

	// ErrSessionRecordFailed is returned by token issuance when the session
	// pointer could not be written. An unrecorded session makes future
	// refreshes unverifiable, so issuance fails outright.
	ErrSessionRecordFailed = errors.New("session record write failed")
	// ErrNoToken is returned when neither an access token nor a refresh
	// token was presented.
	ErrNoToken = errors.New("no token presented")
	// ErrEngineNotReady is returned when an Engine method is invoked before
	// [Builder.Build] completed.
	ErrEngineNotReady = errors.New("engine not initialized")
)
