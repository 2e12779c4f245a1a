package authgate

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/inkpress/authgate/internal/audit"
	internalmetrics "github.com/inkpress/authgate/internal/metrics"
)

// Identity is the claim payload carried by access and refresh tokens. The
// Banned flag is a point-in-time snapshot from login; live ban checks go
// through [UserDirectory].
type Identity struct {
	UserID   string
	Username string
	Role     string
	Banned   bool
}

// TokenPair is returned by [Engine.IssueSession]: a signed access/refresh
// pair plus the sessionId that correlates the HTTP session with its
// WebSocket connection. SessionID stays constant across rotations.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	SessionID    string
}

// RejectReason is the machine-readable code attached to an unauthenticated
// rejection. HTTP clients receive it in the error envelope; the WebSocket
// gateway maps it to a close reason.
type RejectReason string

const (
	// ReasonNone marks an authenticated decision.
	ReasonNone RejectReason = ""
	// ReasonNoToken means neither an access nor a refresh token was presented.
	ReasonNoToken RejectReason = "no_token"
	// ReasonTokenMalformed covers parse and signature failures.
	ReasonTokenMalformed RejectReason = "token_malformed"
	// ReasonTokenExpired covers expiry of whichever token was last examined.
	ReasonTokenExpired RejectReason = "token_expired"
	// ReasonKicked means the token's jti lost the session pointer to a newer
	// login (SessionMismatch).
	ReasonKicked RejectReason = "kicked"
	// ReasonTokenRevoked means the access token's jti is blacklisted.
	ReasonTokenRevoked RejectReason = "token_revoked"
	// ReasonUserDeleted means the user behind the token is marked deleted.
	ReasonUserDeleted RejectReason = "user_deleted"
	// ReasonStoreUnavailable means a session-store round-trip failed and the
	// check failed closed.
	ReasonStoreUnavailable RejectReason = "store_unavailable"
)

// Err maps a reason to its sentinel error, or nil for [ReasonNone].
func (r RejectReason) Err() error {
	switch r {
	case ReasonNone:
		return nil
	case ReasonNoToken:
		return ErrNoToken
	case ReasonTokenExpired:
		return ErrTokenExpired
	case ReasonKicked:
		return ErrSessionMismatch
	case ReasonTokenRevoked:
		return ErrTokenRevoked
	case ReasonUserDeleted:
		return ErrUserDeleted
	case ReasonStoreUnavailable:
		return ErrStoreUnavailable
	default:
		return ErrTokenMalformed
	}
}

// Decision is the outcome of one [Engine.Authenticate] run. When Rotated is
// set, the caller must forward the new pair to the client (x-access-token
// header plus refresh cookie on HTTP).
type Decision struct {
	Authenticated bool
	Reason        RejectReason

	Identity  Identity
	SessionID string
	JTI       string

	Rotated      bool
	AccessToken  string
	RefreshToken string
}

// UserInfo is the directory record consulted for live ban/deletion state.
type UserInfo struct {
	UserID    string
	Banned    bool
	DeletedAt *time.Time
}

// UserDirectory is the out-of-scope user service contract. The realtime
// gateway consults it per inbound frame because a held access token can
// remain formally valid for minutes after a ban.
type UserDirectory interface {
	GetUserInfo(ctx context.Context, userID string) (UserInfo, error)
}

// Evictor force-closes live WebSocket connections. Implemented by
// realtime.Registry; the Engine invokes it through the eviction coordinator
// whenever a session loses its backing store record.
type Evictor interface {
	// NotifyEvicted closes the connection registered for (userID, sessionID),
	// if any, and reports whether one was found.
	NotifyEvicted(ctx context.Context, userID, sessionID string, reason RejectReason) bool

	// EvictUserExcept closes every connection of userID except the one
	// holding keepSessionID, returning the number closed. A new login passes
	// its fresh sessionId here so the displaced device loses its socket.
	EvictUserExcept(ctx context.Context, userID, keepSessionID string, reason RejectReason) int
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// MetricID identifies a specific counter or histogram bucket in the
// in-process metrics system.
type MetricID = internalmetrics.MetricID

const (
	// MetricSessionIssued counts successful token issuances (login + rotation).
	MetricSessionIssued = MetricID(internalmetrics.MetricSessionIssued)
	// MetricAuthSuccess counts authenticated HTTP decisions.
	MetricAuthSuccess = MetricID(internalmetrics.MetricAuthSuccess)
	// MetricAuthReject counts rejected HTTP decisions.
	MetricAuthReject = MetricID(internalmetrics.MetricAuthReject)
	// MetricRefreshRotation counts successful refresh rotations.
	MetricRefreshRotation = MetricID(internalmetrics.MetricRefreshRotation)
	// MetricRefreshRace counts refresh attempts that lost the rotation CAS.
	MetricRefreshRace = MetricID(internalmetrics.MetricRefreshRace)
	// MetricSessionEvicted counts sessions displaced by a newer login or a
	// status change.
	MetricSessionEvicted = MetricID(internalmetrics.MetricSessionEvicted)
	// MetricLogout counts explicit logouts.
	MetricLogout = MetricID(internalmetrics.MetricLogout)
	// MetricSocketAccepted counts accepted WebSocket handshakes.
	MetricSocketAccepted = MetricID(internalmetrics.MetricSocketAccepted)
	// MetricSocketRejected counts WebSocket handshakes closed with 1008.
	MetricSocketRejected = MetricID(internalmetrics.MetricSocketRejected)
	// MetricSocketEvicted counts live sockets force-closed by eviction.
	MetricSocketEvicted = MetricID(internalmetrics.MetricSocketEvicted)
	// MetricMessageDispatched counts WebSocket frames handed to the handler.
	MetricMessageDispatched = MetricID(internalmetrics.MetricMessageDispatched)
	// MetricMessageRejected counts WebSocket frames answered with an error
	// frame instead of a dispatch.
	MetricMessageRejected = MetricID(internalmetrics.MetricMessageRejected)
	// MetricStoreUnavailable counts fail-closed store round-trips.
	MetricStoreUnavailable = MetricID(internalmetrics.MetricStoreUnavailable)
	// MetricAuthenticateLatency is the Authenticate hot-path histogram.
	MetricAuthenticateLatency = MetricID(internalmetrics.MetricAuthenticateLatency)

	metricIDCount = internalmetrics.MetricIDCount
)

// Metrics holds atomic counters and optional latency histograms.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a new [Metrics] instance configured by the given
// [MetricsConfig]. When Enabled is false, all operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
