package authgate

import (
	"context"
	"errors"
	"testing"
)

func TestMarkDeletedInvalidatesAndEvicts(t *testing.T) {
	engine, _, evictor := newTestEngine(t, engineTestConfig(t))
	ctx := context.Background()

	pair, err := engine.IssueSession(ctx, testIdentity(), "")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	if err := engine.MarkDeleted(ctx, "u1"); err != nil {
		t.Fatalf("MarkDeleted failed: %v", err)
	}

	decision := engine.Authenticate(ctx, pair.AccessToken, "")
	if decision.Authenticated {
		t.Fatal("deleted user must be rejected")
	}
	if decision.Reason != ReasonUserDeleted {
		t.Fatalf("expected ReasonUserDeleted, got %q", decision.Reason)
	}

	calls := evictor.userWideCalls()
	if len(calls) == 0 {
		t.Fatal("expected user-wide eviction on deletion")
	}
	last := calls[len(calls)-1]
	if last.UserID != "u1" || last.SessionID != "" || last.Reason != ReasonUserDeleted {
		t.Fatalf("unexpected eviction call: %+v", last)
	}
}

func TestClearDeletedRestoresAccess(t *testing.T) {
	engine, _, _ := newTestEngine(t, engineTestConfig(t))
	ctx := context.Background()

	pair, err := engine.IssueSession(ctx, testIdentity(), "")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	if err := engine.MarkDeleted(ctx, "u1"); err != nil {
		t.Fatalf("MarkDeleted failed: %v", err)
	}
	if err := engine.ClearDeleted(ctx, "u1"); err != nil {
		t.Fatalf("ClearDeleted failed: %v", err)
	}

	decision := engine.Authenticate(ctx, pair.AccessToken, "")
	if !decision.Authenticated {
		t.Fatalf("expected restored access, got reason %q", decision.Reason)
	}
}

func TestMarkDeletedFailsClosedWithoutStore(t *testing.T) {
	engine, mr, _ := newTestEngine(t, engineTestConfig(t))

	mr.Close()

	if err := engine.MarkDeleted(context.Background(), "u1"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
