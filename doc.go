// Package authgate is the session authority for the blog platform: it issues,
// rotates, revokes, and propagates the validity of a user's login across
// stateless HTTP (JWT access/refresh pairs) and the stateful WebSocket
// transport, with Redis as the single source of truth.
//
// The package enforces a single-active-session-per-user policy. A new login
// overwrites the user's session pointer in Redis; the previous device loses
// HTTP authority on its next check and its live WebSocket connection is
// closed through the eviction coordinator within a bounded window.
//
// # Architecture boundaries
//
// authgate is the public surface. It exposes [Engine], [Builder], [Config],
// the verdict taxonomy, and the [Evictor] and [UserDirectory] contracts.
// Internal coordination (verification flows, audit dispatch, metric storage)
// lives under internal/ and is never exported. Transport adapters live in
// middleware/ (HTTP) and realtime/ (WebSocket).
//
// # What this package must NOT do
//
//   - Expose Redis clients, store key layouts, or claim encodings in its
//     public API.
//   - Assume a token is valid on store unavailability: every session check
//     fails closed.
//   - Retry store round-trips inline; reconnection is the client's concern.
package authgate
