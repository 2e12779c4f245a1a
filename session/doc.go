// Package session implements the Redis-backed session store: the single
// source of truth for "current session", "revoked token", and "deleted
// user".
//
// # Key families
//
//   - refresh_token:user:{userId} → jti, TTL = refresh lifetime
//   - blacklist:{userId}:{jti}   → "invalid", TTL = remaining access lifetime
//   - user_status:{userId}       → "deleted", no TTL
//
// Each key is checked independently; eviction is the logical OR of the three
// conditions, so no cross-key transaction exists. Rotation of the session
// pointer is an atomic compare-and-swap in a Lua script: exactly one of two
// racing refresh requests wins.
//
// # Failure mode
//
// Every round-trip is bounded by the configured call timeout. Any failure,
// timeouts included, surfaces as [ErrUnavailable] and the caller fails
// closed — this store is the only defense against a compromised-but-
// unexpired token.
package session
