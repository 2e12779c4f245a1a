package authgate

import (
	"context"
	"testing"
)

func TestSecurityInvariantStaleRefreshLosesAfterRotation(t *testing.T) {
	engine, _, _ := newTestEngine(t, engineTestConfig(t))
	ctx := context.Background()

	pair, err := engine.IssueSession(ctx, testIdentity(), "")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	first := engine.Authenticate(ctx, "", pair.RefreshToken)
	if !first.Authenticated || !first.Rotated {
		t.Fatalf("expected rotation, got %+v", first)
	}

	// Replaying the consumed refresh token must be treated as a displaced
	// session, not as a valid login.
	replay := engine.Authenticate(ctx, "", pair.RefreshToken)
	if replay.Authenticated {
		t.Fatal("replayed refresh token must be rejected")
	}
	if replay.Reason != ReasonKicked {
		t.Fatalf("expected kicked, got %s", replay.Reason)
	}

	// The winner's pair keeps working.
	next := engine.Authenticate(ctx, first.AccessToken, first.RefreshToken)
	if !next.Authenticated {
		t.Fatalf("winner's tokens must stay valid, got %s", next.Reason)
	}
}

func TestSecurityInvariantLogoutOutlivesPointerMatch(t *testing.T) {
	engine, _, _ := newTestEngine(t, engineTestConfig(t))
	ctx := context.Background()

	pair, err := engine.IssueSession(ctx, testIdentity(), "")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}
	if err := engine.Logout(ctx, pair.AccessToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	// The session pointer still holds this jti; only the blacklist entry
	// rejects the token. Both tokens of the pair share the jti and die
	// together.
	jti, err := engine.Store().CurrentJTI(ctx, "u1")
	if err != nil {
		t.Fatalf("CurrentJTI failed: %v", err)
	}
	if jti == "" {
		t.Fatal("logout must not clear the session pointer")
	}

	decision := engine.VerifyAccess(ctx, pair.AccessToken)
	if decision.Authenticated || decision.Reason != ReasonTokenRevoked {
		t.Fatalf("expected token_revoked, got %+v", decision)
	}
}

func TestSecurityInvariantDeletedUserBeatsValidSignature(t *testing.T) {
	engine, _, _ := newTestEngine(t, engineTestConfig(t))
	ctx := context.Background()

	pair, err := engine.IssueSession(ctx, testIdentity(), "")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}
	if err := engine.MarkDeleted(ctx, "u1"); err != nil {
		t.Fatalf("MarkDeleted failed: %v", err)
	}

	decision := engine.Authenticate(ctx, pair.AccessToken, pair.RefreshToken)
	if decision.Authenticated {
		t.Fatal("deleted user must be rejected regardless of signature validity")
	}
	if decision.Reason != ReasonUserDeleted {
		t.Fatalf("expected user_deleted, got %s", decision.Reason)
	}

	if err := engine.ClearDeleted(ctx, "u1"); err != nil {
		t.Fatalf("ClearDeleted failed: %v", err)
	}
	restored := engine.Authenticate(ctx, pair.AccessToken, pair.RefreshToken)
	if !restored.Authenticated {
		t.Fatalf("restore must re-admit the user, got %s", restored.Reason)
	}
}

func TestSecurityInvariantNewLoginDisplacesOldPair(t *testing.T) {
	engine, _, _ := newTestEngine(t, engineTestConfig(t))
	ctx := context.Background()

	old, err := engine.IssueSession(ctx, testIdentity(), "")
	if err != nil {
		t.Fatalf("first IssueSession failed: %v", err)
	}
	fresh, err := engine.IssueSession(ctx, testIdentity(), "")
	if err != nil {
		t.Fatalf("second IssueSession failed: %v", err)
	}

	displaced := engine.Authenticate(ctx, old.AccessToken, old.RefreshToken)
	if displaced.Authenticated || displaced.Reason != ReasonKicked {
		t.Fatalf("expected old pair kicked, got %+v", displaced)
	}

	current := engine.Authenticate(ctx, fresh.AccessToken, fresh.RefreshToken)
	if !current.Authenticated {
		t.Fatalf("fresh pair must be valid, got %s", current.Reason)
	}
}
