// Package middleware exposes HTTP adapters for the authgate session
// authority.
//
// # Guards
//
//   - [Guard] — full verification with silent refresh; rejects with a 401
//     JSON envelope.
//   - [Bootstrap] — same verification, but lets unauthenticated requests
//     continue without an identity. Session-plumbing routes (issue, logout)
//     sit behind it.
//
// Each guard reads the Authorization bearer token and the refresh cookie,
// calls Engine.Authenticate, and injects the authenticated [authgate.Identity]
// into the request context. When a rotation happened mid-request, the new
// access token is returned in the x-access-token response header and the new
// refresh token replaces the cookie.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself — all decisions are delegated to
// Engine.Authenticate.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis (Engine handles I/O).
//   - Leak store errors to clients (only reason codes cross the wire).
package middleware
