package authgate

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type envConfig struct {
	AccessTTL     time.Duration `env:"AUTHGATE_ACCESS_TTL"`
	RefreshTTL    time.Duration `env:"AUTHGATE_REFRESH_TTL"`
	SigningMethod string        `env:"AUTHGATE_SIGNING_METHOD"`
	PrivateKeyB64 string        `env:"AUTHGATE_PRIVATE_KEY"`
	PublicKeyB64  string        `env:"AUTHGATE_PUBLIC_KEY"`
	Issuer        string        `env:"AUTHGATE_ISSUER"`

	RedisPrefix      string        `env:"AUTHGATE_REDIS_PREFIX"`
	StoreCallTimeout time.Duration `env:"AUTHGATE_STORE_TIMEOUT"`

	CookieName   string `env:"AUTHGATE_COOKIE_NAME"`
	CookiePath   string `env:"AUTHGATE_COOKIE_PATH"`
	CookieDomain string `env:"AUTHGATE_COOKIE_DOMAIN"`

	EvictionTimeout time.Duration `env:"AUTHGATE_EVICTION_TIMEOUT"`

	AuditEnabled   bool `env:"AUTHGATE_AUDIT_ENABLED"`
	MetricsEnabled bool `env:"AUTHGATE_METRICS_ENABLED"`
	ProductionMode bool `env:"AUTHGATE_PRODUCTION"`
}

// ConfigFromEnv returns [defaultConfig] overlaid with AUTHGATE_* environment
// variables. Keys are expected base64 (raw ed25519 seed bytes or PEM). The
// result still goes through [Config.Validate] inside [Builder.Build].
func ConfigFromEnv() (Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg := defaultConfig()

	if raw.AccessTTL > 0 {
		cfg.JWT.AccessTTL = raw.AccessTTL
	}
	if raw.RefreshTTL > 0 {
		cfg.JWT.RefreshTTL = raw.RefreshTTL
	}
	if raw.SigningMethod != "" {
		cfg.JWT.SigningMethod = raw.SigningMethod
	}
	if raw.Issuer != "" {
		cfg.JWT.Issuer = raw.Issuer
	}
	if raw.PrivateKeyB64 != "" {
		key, err := base64.StdEncoding.DecodeString(raw.PrivateKeyB64)
		if err != nil {
			return Config{}, fmt.Errorf("decode AUTHGATE_PRIVATE_KEY: %w", err)
		}
		cfg.JWT.PrivateKey = key
	}
	if raw.PublicKeyB64 != "" {
		key, err := base64.StdEncoding.DecodeString(raw.PublicKeyB64)
		if err != nil {
			return Config{}, fmt.Errorf("decode AUTHGATE_PUBLIC_KEY: %w", err)
		}
		cfg.JWT.PublicKey = key
	}

	if raw.RedisPrefix != "" {
		cfg.Session.RedisPrefix = raw.RedisPrefix
	}
	if raw.StoreCallTimeout > 0 {
		cfg.Session.CallTimeout = raw.StoreCallTimeout
	}

	if raw.CookieName != "" {
		cfg.Cookie.Name = raw.CookieName
	}
	if raw.CookiePath != "" {
		cfg.Cookie.Path = raw.CookiePath
	}
	if raw.CookieDomain != "" {
		cfg.Cookie.Domain = raw.CookieDomain
	}

	if raw.EvictionTimeout > 0 {
		cfg.Eviction.Timeout = raw.EvictionTimeout
	}

	cfg.Audit.Enabled = raw.AuditEnabled
	cfg.Metrics.Enabled = raw.MetricsEnabled
	cfg.Security.ProductionMode = raw.ProductionMode

	return cfg, nil
}
