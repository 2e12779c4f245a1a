package authgate

import (
	"errors"
	"time"
)

// Config is the immutable configuration tree consumed by [Builder.Build].
// Construct it once, pass it to the builder, and treat it as read-only
// afterwards.
type Config struct {
	JWT      JWTConfig
	Session  SessionConfig
	Cookie   CookieConfig
	Eviction EvictionConfig
	Realtime RealtimeConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
	Security SecurityConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls token lifetimes and signing.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
SESSION STORE CONFIG
====================================
*/

// SessionConfig controls the Redis session store. CallTimeout bounds every
// store round-trip; on timeout the dependent check fails closed. RedisPrefix
// is an optional namespace prepended to every key.
type SessionConfig struct {
	RedisPrefix string
	CallTimeout time.Duration
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig controls the refresh-token cookie written on rotation. The
// cookie is always httpOnly; Secure and SameSite=None apply in production,
// SameSite=Lax in development.
type CookieConfig struct {
	Name   string
	Path   string
	Domain string
}

/*
====================================
EVICTION CONFIG
====================================
*/

// EvictionConfig bounds the synchronous wait on socket eviction. On timeout
// the HTTP rejection completes without eviction confirmation.
type EvictionConfig struct {
	Timeout time.Duration
}

/*
====================================
REALTIME CONFIG
====================================
*/

// RealtimeConfig carries the WebSocket gateway knobs consumed by
// realtime.NewGateway.
type RealtimeConfig struct {
	WriteTimeout      time.Duration
	ReadIdleTimeout   time.Duration
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	MaxFrameBytes     int64
	SendQueueSize     int
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process metrics system.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds deployment-wide switches.
type SecurityConfig struct {
	// ProductionMode selects Secure + SameSite=None cookie attributes and is
	// reported by exporters.
	ProductionMode bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     10 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "ed25519",
			Issuer:        "authgate",
			Leeway:        30 * time.Second,
		},
		Session: SessionConfig{
			CallTimeout: 250 * time.Millisecond,
		},
		Cookie: CookieConfig{
			Name: "refresh_token",
			Path: "/",
		},
		Eviction: EvictionConfig{
			Timeout: 2 * time.Second,
		},
		Realtime: RealtimeConfig{
			WriteTimeout:      5 * time.Second,
			ReadIdleTimeout:   2 * time.Minute,
			HeartbeatInterval: 30 * time.Second,
			HeartbeatTimeout:  5 * time.Second,
			MaxFrameBytes:     1 << 16,
			SendQueueSize:     64,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Security: SecurityConfig{
			ProductionMode: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate rejects configurations that would weaken the session authority
// or leave a check unbounded.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must exceed AccessTTL")
	}

	if c.JWT.SigningMethod != "ed25519" && c.JWT.SigningMethod != "hs256" {
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("ed25519 requires PrivateKey")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PublicKey) == 0 {
		return errors.New("ed25519 requires PublicKey")
	}
	if c.JWT.SigningMethod == "hs256" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("hs256 requires PrivateKey")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Session store
	if c.Session.CallTimeout <= 0 {
		return errors.New("Session CallTimeout must be > 0")
	}
	if c.Session.CallTimeout > 5*time.Second {
		return errors.New("Session CallTimeout must be <= 5s")
	}

	// Cookie
	if c.Cookie.Name == "" {
		return errors.New("Cookie Name must not be empty")
	}
	if c.Cookie.Path == "" {
		return errors.New("Cookie Path must not be empty")
	}

	// Eviction
	if c.Eviction.Timeout <= 0 {
		return errors.New("Eviction Timeout must be > 0")
	}

	// Realtime
	if c.Realtime.WriteTimeout <= 0 {
		return errors.New("Realtime WriteTimeout must be > 0")
	}
	if c.Realtime.ReadIdleTimeout <= 0 {
		return errors.New("Realtime ReadIdleTimeout must be > 0")
	}
	if c.Realtime.HeartbeatInterval <= 0 {
		return errors.New("Realtime HeartbeatInterval must be > 0")
	}
	if c.Realtime.HeartbeatTimeout <= 0 {
		return errors.New("Realtime HeartbeatTimeout must be > 0")
	}
	if c.Realtime.MaxFrameBytes <= 0 {
		return errors.New("Realtime MaxFrameBytes must be > 0")
	}
	if c.Realtime.SendQueueSize <= 0 {
		return errors.New("Realtime SendQueueSize must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}
