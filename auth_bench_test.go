package authgate

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newBenchmarkEngine(b *testing.B) (*Engine, func()) {
	b.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		b.Fatalf("miniredis.Run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		b.Fatalf("ed25519.GenerateKey failed: %v", err)
	}

	cfg := defaultConfig()
	cfg.JWT.AccessTTL = 15 * time.Minute
	cfg.JWT.RefreshTTL = 24 * time.Hour
	cfg.JWT.PrivateKey = priv
	cfg.JWT.PublicKey = pub

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserDirectory(newMockDirectory()).
		Build()
	if err != nil {
		b.Fatalf("Build failed: %v", err)
	}

	return engine, func() {
		engine.Close()
		mr.Close()
	}
}

func BenchmarkVerifyAccess(b *testing.B) {
	engine, cleanup := newBenchmarkEngine(b)
	defer cleanup()

	pair, err := engine.IssueSession(context.Background(), testIdentity(), "")
	if err != nil {
		b.Fatalf("IssueSession failed: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if decision := engine.VerifyAccess(context.Background(), pair.AccessToken); !decision.Authenticated {
			b.Fatalf("verify rejected: %s", decision.Reason)
		}
	}
}

func BenchmarkAuthenticateValidAccess(b *testing.B) {
	engine, cleanup := newBenchmarkEngine(b)
	defer cleanup()

	pair, err := engine.IssueSession(context.Background(), testIdentity(), "")
	if err != nil {
		b.Fatalf("IssueSession failed: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if decision := engine.Authenticate(context.Background(), pair.AccessToken, pair.RefreshToken); !decision.Authenticated {
			b.Fatalf("authenticate rejected: %s", decision.Reason)
		}
	}
}

func BenchmarkIssueSession(b *testing.B) {
	engine, cleanup := newBenchmarkEngine(b)
	defer cleanup()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.IssueSession(context.Background(), testIdentity(), ""); err != nil {
			b.Fatalf("IssueSession failed: %v", err)
		}
	}
}

func BenchmarkRefreshRotation(b *testing.B) {
	engine, cleanup := newBenchmarkEngine(b)
	defer cleanup()

	pair, err := engine.IssueSession(context.Background(), testIdentity(), "")
	if err != nil {
		b.Fatalf("IssueSession failed: %v", err)
	}
	refresh := pair.RefreshToken

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		decision := engine.Authenticate(context.Background(), "", refresh)
		if !decision.Authenticated || !decision.Rotated {
			b.Fatalf("rotation failed: %s", decision.Reason)
		}
		refresh = decision.RefreshToken
	}
}
