package authgate

import (
	"context"
	"sync"
	"testing"
)

func TestAuthenticateValidAccess(t *testing.T) {
	engine, _, _ := newTestEngine(t, engineTestConfig(t))
	ctx := context.Background()

	pair, err := engine.IssueSession(ctx, testIdentity(), "")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	decision := engine.Authenticate(ctx, pair.AccessToken, pair.RefreshToken)
	if !decision.Authenticated {
		t.Fatalf("expected authenticated, got reason %q", decision.Reason)
	}
	if decision.Rotated {
		t.Fatal("valid access must not trigger rotation")
	}
	if decision.Identity.UserID != "u1" || decision.Identity.Username != "alice" {
		t.Fatalf("unexpected identity: %+v", decision.Identity)
	}
	if decision.SessionID != pair.SessionID {
		t.Fatalf("decision sessionId %q does not match pair %q", decision.SessionID, pair.SessionID)
	}
}

func TestAuthenticateNoTokens(t *testing.T) {
	engine, _, _ := newTestEngine(t, engineTestConfig(t))

	decision := engine.Authenticate(context.Background(), "", "")
	if decision.Authenticated {
		t.Fatal("expected rejection without tokens")
	}
	if decision.Reason != ReasonNoToken {
		t.Fatalf("expected ReasonNoToken, got %q", decision.Reason)
	}
}

func TestAuthenticateMalformedAccessWithoutRefresh(t *testing.T) {
	engine, _, _ := newTestEngine(t, engineTestConfig(t))

	decision := engine.Authenticate(context.Background(), "not-a-token", "")
	if decision.Authenticated {
		t.Fatal("expected rejection for malformed token")
	}
	if decision.Reason != ReasonTokenMalformed {
		t.Fatalf("expected ReasonTokenMalformed, got %q", decision.Reason)
	}
}

func TestAuthenticateKickedByNewerLogin(t *testing.T) {
	engine, _, evictor := newTestEngine(t, engineTestConfig(t))
	ctx := context.Background()

	oldPair, err := engine.IssueSession(ctx, testIdentity(), "")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}
	fresh, err := engine.IssueSession(ctx, testIdentity(), "")
	if err != nil {
		t.Fatalf("second IssueSession failed: %v", err)
	}

	// The displaced socket is closed by the login that displaced it, keyed
	// to spare the fresh session.
	userCalls := evictor.userWideCalls()
	if len(userCalls) == 0 {
		t.Fatal("expected user-wide eviction on the second login")
	}
	last := userCalls[len(userCalls)-1]
	if last.UserID != "u1" || last.SessionID != fresh.SessionID || last.Reason != ReasonKicked {
		t.Fatalf("unexpected eviction call: %+v", last)
	}

	decision := engine.Authenticate(ctx, oldPair.AccessToken, "")
	if decision.Authenticated {
		t.Fatal("displaced session must be rejected")
	}
	if decision.Reason != ReasonKicked {
		t.Fatalf("expected ReasonKicked, got %q", decision.Reason)
	}
	if calls := evictor.notifiedCalls(); len(calls) != 0 {
		t.Fatalf("stale token rejection must not evict, got %+v", calls)
	}
}

func TestAuthenticateStaleAccessAfterRotationSparesLiveSocket(t *testing.T) {
	engine, _, evictor := newTestEngine(t, engineTestConfig(t))
	ctx := context.Background()

	pair, err := engine.IssueSession(ctx, testIdentity(), "")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	rotated := engine.Authenticate(ctx, "", pair.RefreshToken)
	if !rotated.Authenticated || !rotated.Rotated {
		t.Fatalf("expected silent refresh to rotate, got %+v", rotated)
	}

	// The pre-rotation access token carries the live session's sessionId.
	// Rejecting it must not close that session's socket.
	stale := engine.Authenticate(ctx, pair.AccessToken, "")
	if stale.Authenticated {
		t.Fatal("pre-rotation access token must be rejected")
	}
	if stale.Reason != ReasonKicked {
		t.Fatalf("expected ReasonKicked, got %q", stale.Reason)
	}
	if calls := evictor.notifiedCalls(); len(calls) != 0 {
		t.Fatalf("live session's socket must survive a stale-token rejection, got %+v", calls)
	}

	live := engine.Authenticate(ctx, rotated.AccessToken, "")
	if !live.Authenticated {
		t.Fatalf("rotated access token must stay valid, got %q", live.Reason)
	}
}

func TestAuthenticateRefreshReplaySparesWinner(t *testing.T) {
	engine, _, evictor := newTestEngine(t, engineTestConfig(t))
	ctx := context.Background()

	pair, err := engine.IssueSession(ctx, testIdentity(), "")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}
	if won := engine.Authenticate(ctx, "", pair.RefreshToken); !won.Rotated {
		t.Fatalf("expected rotation, got %+v", won)
	}

	replay := engine.Authenticate(ctx, "", pair.RefreshToken)
	if replay.Authenticated || replay.Reason != ReasonKicked {
		t.Fatalf("expected replayed refresh rejected as kicked, got %+v", replay)
	}
	if calls := evictor.notifiedCalls(); len(calls) != 0 {
		t.Fatalf("replay rejection must not evict the winner's socket, got %+v", calls)
	}
}

func TestAuthenticateRevokedAfterLogout(t *testing.T) {
	engine, _, _ := newTestEngine(t, engineTestConfig(t))
	ctx := context.Background()

	pair, err := engine.IssueSession(ctx, testIdentity(), "")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}
	if err := engine.Logout(ctx, pair.AccessToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	// The session pointer still matches; the blacklist entry alone must
	// reject the token.
	decision := engine.Authenticate(ctx, pair.AccessToken, "")
	if decision.Authenticated {
		t.Fatal("logged-out token must be rejected")
	}
	if decision.Reason != ReasonTokenRevoked {
		t.Fatalf("expected ReasonTokenRevoked, got %q", decision.Reason)
	}
}

func TestAuthenticateDeletedUser(t *testing.T) {
	engine, _, evictor := newTestEngine(t, engineTestConfig(t))
	ctx := context.Background()

	pair, err := engine.IssueSession(ctx, testIdentity(), "")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}
	if err := engine.Store().MarkDeleted(ctx, "u1"); err != nil {
		t.Fatalf("MarkDeleted failed: %v", err)
	}

	decision := engine.Authenticate(ctx, pair.AccessToken, "")
	if decision.Authenticated {
		t.Fatal("deleted user must be rejected")
	}
	if decision.Reason != ReasonUserDeleted {
		t.Fatalf("expected ReasonUserDeleted, got %q", decision.Reason)
	}

	calls := evictor.notifiedCalls()
	if len(calls) == 0 || calls[len(calls)-1].Reason != ReasonUserDeleted {
		t.Fatalf("expected user_deleted eviction, got %+v", calls)
	}
}

func TestAuthenticateFailsClosedWhenStoreDown(t *testing.T) {
	engine, mr, _ := newTestEngine(t, engineTestConfig(t))
	ctx := context.Background()

	pair, err := engine.IssueSession(ctx, testIdentity(), "")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	mr.Close()

	decision := engine.Authenticate(ctx, pair.AccessToken, pair.RefreshToken)
	if decision.Authenticated {
		t.Fatal("store unavailability must fail closed")
	}
	if decision.Reason != ReasonStoreUnavailable {
		t.Fatalf("expected ReasonStoreUnavailable, got %q", decision.Reason)
	}
}

func TestAuthenticateRefreshRotation(t *testing.T) {
	cfg := engineTestConfig(t)
	engine, _, _ := newTestEngine(t, cfg)
	ctx := context.Background()

	pair, err := engine.IssueSession(ctx, testIdentity(), "")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}
	expired := expiredAccessToken(t, engine, cfg, pair)

	decision := engine.Authenticate(ctx, expired, pair.RefreshToken)
	if !decision.Authenticated {
		t.Fatalf("expected silent refresh, got reason %q", decision.Reason)
	}
	if !decision.Rotated {
		t.Fatal("expected Rotated decision")
	}
	if decision.AccessToken == "" || decision.RefreshToken == "" {
		t.Fatal("rotated decision must carry the new pair")
	}
	if decision.SessionID != pair.SessionID {
		t.Fatalf("sessionId must survive rotation: %q vs %q", decision.SessionID, pair.SessionID)
	}

	// The new pair shares a fresh jti recorded as the session pointer.
	newClaims, err := engine.jwtManager.Parse(decision.AccessToken)
	if err != nil {
		t.Fatalf("Parse rotated access failed: %v", err)
	}
	current, err := engine.Store().CurrentJTI(ctx, "u1")
	if err != nil {
		t.Fatalf("CurrentJTI failed: %v", err)
	}
	if newClaims.ID != current {
		t.Fatalf("rotated jti %q not recorded (pointer holds %q)", newClaims.ID, current)
	}
	if newClaims.ID == decision.JTI && decision.JTI == "" {
		t.Fatal("rotated decision must expose the new jti")
	}

	// The old refresh token lost the pointer and cannot rotate again.
	second := engine.Authenticate(ctx, expired, pair.RefreshToken)
	if second.Authenticated {
		t.Fatal("stale refresh token must be rejected after rotation")
	}
	if second.Reason != ReasonKicked {
		t.Fatalf("expected ReasonKicked for stale refresh, got %q", second.Reason)
	}
}

func TestAuthenticateExpiredRefreshRejected(t *testing.T) {
	cfg := engineTestConfig(t)
	engine, _, _ := newTestEngine(t, cfg)
	ctx := context.Background()

	pair, err := engine.IssueSession(ctx, testIdentity(), "")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}
	// Both tokens expired: the state machine examines the refresh last.
	expired := expiredAccessToken(t, engine, cfg, pair)

	decision := engine.Authenticate(ctx, expired, expired)
	if decision.Authenticated {
		t.Fatal("expired refresh must be rejected")
	}
	if decision.Reason != ReasonTokenExpired {
		t.Fatalf("expected ReasonTokenExpired, got %q", decision.Reason)
	}
}

func TestAuthenticateRefreshRaceSingleWinner(t *testing.T) {
	cfg := engineTestConfig(t)
	engine, _, _ := newTestEngine(t, cfg)
	ctx := context.Background()

	pair, err := engine.IssueSession(ctx, testIdentity(), "")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}
	expired := expiredAccessToken(t, engine, cfg, pair)

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)

	decisions := make(chan Decision, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			decisions <- engine.Authenticate(ctx, expired, pair.RefreshToken)
		}()
	}
	wg.Wait()
	close(decisions)

	rotated := 0
	kicked := 0
	for d := range decisions {
		switch {
		case d.Authenticated && d.Rotated:
			rotated++
		case !d.Authenticated && d.Reason == ReasonKicked:
			kicked++
		default:
			t.Fatalf("unexpected decision: %+v", d)
		}
	}

	if rotated != 1 {
		t.Fatalf("expected exactly one rotation winner, got %d", rotated)
	}
	if kicked != n-1 {
		t.Fatalf("expected %d losers, got %d", n-1, kicked)
	}
}

func TestVerifyAccessNeverRotates(t *testing.T) {
	cfg := engineTestConfig(t)
	engine, _, _ := newTestEngine(t, cfg)
	ctx := context.Background()

	pair, err := engine.IssueSession(ctx, testIdentity(), "")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	decision := engine.VerifyAccess(ctx, pair.AccessToken)
	if !decision.Authenticated {
		t.Fatalf("expected authenticated, got %q", decision.Reason)
	}

	expired := expiredAccessToken(t, engine, cfg, pair)
	decision = engine.VerifyAccess(ctx, expired)
	if decision.Authenticated {
		t.Fatal("VerifyAccess must not fall through to the refresh path")
	}
	if decision.Reason != ReasonTokenExpired {
		t.Fatalf("expected ReasonTokenExpired, got %q", decision.Reason)
	}

	if decision = engine.VerifyAccess(ctx, ""); decision.Reason != ReasonNoToken {
		t.Fatalf("expected ReasonNoToken, got %q", decision.Reason)
	}
}

func TestAuthenticateMetrics(t *testing.T) {
	engine, _, _ := newTestEngine(t, engineTestConfig(t))
	ctx := context.Background()

	pair, err := engine.IssueSession(ctx, testIdentity(), "")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}
	engine.Authenticate(ctx, pair.AccessToken, "")
	engine.Authenticate(ctx, "garbage", "")

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricSessionIssued] != 1 {
		t.Fatalf("expected 1 session issued, got %d", snap.Counters[MetricSessionIssued])
	}
	if snap.Counters[MetricAuthSuccess] != 1 {
		t.Fatalf("expected 1 auth success, got %d", snap.Counters[MetricAuthSuccess])
	}
	if snap.Counters[MetricAuthReject] != 1 {
		t.Fatalf("expected 1 auth reject, got %d", snap.Counters[MetricAuthReject])
	}
}
