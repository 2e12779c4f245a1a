package test

import (
	"context"
	"net/http"
	"testing"

	"github.com/inkpress/authgate"
	"github.com/inkpress/authgate/middleware"
)

// This test intentionally guards public API compile-compat for consumers.
func TestPublicAPISurfaceCompile(t *testing.T) {
	_ = authgate.New

	var _ *authgate.Engine
	var _ authgate.Config
	var _ authgate.Identity
	var _ authgate.TokenPair
	var _ authgate.Decision
	var _ authgate.RejectReason
	var _ authgate.UserDirectory
	var _ authgate.Evictor
	var _ authgate.AuditSink

	var _ error = authgate.ErrNoToken
	var _ error = authgate.ErrTokenMalformed
	var _ error = authgate.ErrTokenExpired
	var _ error = authgate.ErrSessionMismatch
	var _ error = authgate.ErrTokenRevoked
	var _ error = authgate.ErrUserDeleted
	var _ error = authgate.ErrStoreUnavailable
	var _ error = authgate.ErrSessionRecordFailed

	var _ func(*authgate.Engine) func(http.Handler) http.Handler = middleware.Guard
	var _ func(*authgate.Engine) func(http.Handler) http.Handler = middleware.Bootstrap

	var _ func(*authgate.Engine, context.Context, authgate.Identity, string) (authgate.TokenPair, error) = (*authgate.Engine).IssueSession
	var _ func(*authgate.Engine, context.Context, string, string) authgate.Decision = (*authgate.Engine).Authenticate
	var _ func(*authgate.Engine, context.Context, string) authgate.Decision = (*authgate.Engine).VerifyAccess
	var _ func(*authgate.Engine, context.Context, string) error = (*authgate.Engine).Logout
	var _ func(*authgate.Engine, context.Context, string) error = (*authgate.Engine).MarkDeleted
}
