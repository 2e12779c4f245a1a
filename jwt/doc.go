// Package jwt mints and parses the signed access/refresh claim pairs used by
// the session authority. Both token kinds share one claim shape; they differ
// only in lifetime. Signature and expiry validity alone never authenticate a
// request — the caller must still match jti and sessionId against the
// session store.
package jwt
