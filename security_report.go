package authgate

import "time"

// SecurityReport is a point-in-time summary of the security-relevant
// configuration, safe to log or expose on an admin surface. It carries no
// key material.
type SecurityReport struct {
	ProductionMode   bool
	SigningAlgorithm string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	Leeway           time.Duration

	SingleSessionPerUser bool
	StoreFailClosed      bool
	StoreCallTimeout     time.Duration
	EvictionTimeout      time.Duration

	AuditEnabled   bool
	MetricsEnabled bool
}

// SecurityReport summarizes the active security posture.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	return SecurityReport{
		ProductionMode:   e.config.Security.ProductionMode,
		SigningAlgorithm: e.config.JWT.SigningMethod,
		AccessTTL:        e.config.JWT.AccessTTL,
		RefreshTTL:       e.config.JWT.RefreshTTL,
		Leeway:           e.config.JWT.Leeway,

		// One session per user and fail-closed store checks are structural,
		// not configurable; reported for operator visibility.
		SingleSessionPerUser: true,
		StoreFailClosed:      true,
		StoreCallTimeout:     e.config.Session.CallTimeout,
		EvictionTimeout:      e.config.Eviction.Timeout,

		AuditEnabled:   e.config.Audit.Enabled,
		MetricsEnabled: e.config.Metrics.Enabled,
	}
}
