package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable wraps any Redis failure, round-trip timeouts included.
var ErrUnavailable = errors.New("session store unavailable")

// ErrNoSession is returned when no session pointer exists for the user.
var ErrNoSession = errors.New("no session recorded")

// ErrCurrentMismatch is returned by [Store.RotateCurrent] when the session
// pointer no longer holds the provided jti: a newer login or a racing
// rotation already replaced it.
var ErrCurrentMismatch = errors.New("current session jti mismatch")

const statusDeleted = "deleted"

const (
	rotateStatusNotFound int64 = 0
	rotateStatusMismatch int64 = 1
	rotateStatusRotated  int64 = 2
)

// Rotation must observe and replace the pointer in one step so that two
// requests racing on the same refresh token produce exactly one winner.
const rotateCurrentScript = `
local current = redis.call("GET", KEYS[1])
if not current then
  return 0
end
if current ~= ARGV[1] then
  return 1
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 2
`

var rotateCurrentLua = redis.NewScript(rotateCurrentScript)

// Store is the Redis-backed session store behind the auth engine and the
// realtime gateway. All methods bound their round-trip with the configured
// call timeout and are safe for concurrent use.
type Store struct {
	redis       redis.UniversalClient
	prefix      string
	callTimeout time.Duration
}

// NewStore creates a [Store] on the given Redis client. prefix optionally
// namespaces every key; callTimeout bounds each round-trip.
func NewStore(client redis.UniversalClient, prefix string, callTimeout time.Duration) *Store {
	return &Store{
		redis:       client,
		prefix:      prefix,
		callTimeout: callTimeout,
	}
}

func (s *Store) key(suffix string) string {
	if s.prefix == "" {
		return suffix
	}
	return s.prefix + ":" + suffix
}

func (s *Store) sessionKey(userID string) string {
	return s.key("refresh_token:user:" + userID)
}

func (s *Store) blacklistKey(userID, jti string) string {
	return s.key("blacklist:" + userID + ":" + jti)
}

func (s *Store) statusKey(userID string) string {
	return s.key("user_status:" + userID)
}

func (s *Store) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.callTimeout)
}

// PutCurrent records jti as the user's one valid refresh token, overwriting
// (and thereby invalidating) any prior pointer. TTL must equal the refresh
// token lifetime.
//
//	Performance: 1 Redis SET.
func (s *Store) PutCurrent(ctx context.Context, userID, jti string, ttl time.Duration) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.redis.Set(ctx, s.sessionKey(userID), jti, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// CurrentJTI returns the jti currently recorded for the user, or
// [ErrNoSession] when no pointer exists.
//
//	Performance: 1 Redis GET.
func (s *Store) CurrentJTI(ctx context.Context, userID string) (string, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	jti, err := s.redis.Get(ctx, s.sessionKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNoSession
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return jti, nil
}

// RotateCurrent atomically replaces the session pointer with nextJTI,
// provided it still holds providedJTI. Exactly one of N racing rotations
// succeeds; the rest observe [ErrCurrentMismatch].
//
//	Performance: 1 Lua EVALSHA (atomic compare-and-swap).
func (s *Store) RotateCurrent(ctx context.Context, userID, providedJTI, nextJTI string, ttl time.Duration) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	result, err := rotateCurrentLua.Run(
		ctx,
		s.redis,
		[]string{s.sessionKey(userID)},
		providedJTI,
		nextJTI,
		ttl.Milliseconds(),
	).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	code, ok := result.(int64)
	if !ok {
		return fmt.Errorf("%w: invalid rotate script response", ErrUnavailable)
	}

	switch code {
	case rotateStatusNotFound:
		return errors.Join(ErrNoSession, ErrCurrentMismatch)
	case rotateStatusMismatch:
		return ErrCurrentMismatch
	case rotateStatusRotated:
		return nil
	default:
		return fmt.Errorf("%w: unknown rotate script status", ErrUnavailable)
	}
}

// DeleteCurrent drops the user's session pointer. Idempotent.
func (s *Store) DeleteCurrent(ctx context.Context, userID string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.redis.Del(ctx, s.sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Revoke blacklists one specific access-token jti ahead of its natural
// expiry. TTL should be the token's remaining lifetime; values <= 0 are
// clamped to a second so the entry still lands.
func (s *Store) Revoke(ctx context.Context, userID, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Second
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.redis.Set(ctx, s.blacklistKey(userID, jti), "invalid", ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether the given access-token jti is blacklisted.
//
//	Performance: 1 Redis EXISTS.
func (s *Store) IsRevoked(ctx context.Context, userID, jti string) (bool, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	n, err := s.redis.Exists(ctx, s.blacklistKey(userID, jti)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

// MarkDeleted flags the user as deleted, invalidating all sessions without
// needing any specific jti. The flag carries no TTL.
func (s *Store) MarkDeleted(ctx context.Context, userID string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.redis.Set(ctx, s.statusKey(userID), statusDeleted, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// ClearDeleted removes the deletion flag (account restore).
func (s *Store) ClearDeleted(ctx context.Context, userID string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.redis.Del(ctx, s.statusKey(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// IsDeleted reports whether the user is flagged deleted.
//
//	Performance: 1 Redis GET.
func (s *Store) IsDeleted(ctx context.Context, userID string) (bool, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	val, err := s.redis.Get(ctx, s.statusKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return val == statusDeleted, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}

// Close releases the underlying Redis client.
func (s *Store) Close() error {
	type closer interface{ Close() error }
	if c, ok := s.redis.(closer); ok {
		return c.Close()
	}
	return nil
}
