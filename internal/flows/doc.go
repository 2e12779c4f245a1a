// Package flows contains the transport-free verification and revocation
// flows behind the public Engine API.
//
// # Design
//
// Each flow is a pure function over a dependency struct. Outcomes are tagged
// FailureKind values dispatched exhaustively by the root package — never
// exceptions or string-compared error names. Dependencies are function
// fields and small interfaces so the flows stay testable without Redis or a
// signing key.
//
// # What this package must NOT do
//
//   - Import the root package (no import cycles).
//   - Touch HTTP or WebSocket types.
//   - Swallow a store failure: store errors map to FailureStore and the
//     caller fails closed.
package flows
