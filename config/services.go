package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP API server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeReaper runs the scan reaper for stale detection and eviction.
	ServiceModeReaper ServiceMode = "reaper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{ServiceModeHTTP, ServiceModeReaper}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeReaper:
			services[mode] = true
		default:
			return nil, fmt.Errorf("invalid service name: %q (valid options: http, reaper)", serviceName)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// OrchestratorConfig contains scan orchestrator configuration.
type OrchestratorConfig struct {
	// MaxRunningScans is the concurrency ceiling: the number of scans allowed
	// in queued or running status at once. Enforced at admission time only.
	MaxRunningScans int `env:"ORCHESTRATOR_MAX_RUNNING_SCANS" envDefault:"10"`
}

// Sanitize applies guardrails to orchestrator configuration values.
func (o *OrchestratorConfig) Sanitize() {
	if o.MaxRunningScans < 1 {
		o.MaxRunningScans = 1
	}
	if o.MaxRunningScans > 100 {
		o.MaxRunningScans = 100
	}
}

// EngineConfig contains probe engine configuration.
type EngineConfig struct {
	// DefaultMaxPrompts is the per-probe prompt cap applied when a scan
	// request does not set its own.
	DefaultMaxPrompts int `env:"ENGINE_DEFAULT_MAX_PROMPTS" envDefault:"25"`

	// RequestTimeout bounds a single round trip to the scanned target.
	RequestTimeout time.Duration `env:"ENGINE_REQUEST_TIMEOUT" envDefault:"120s"`

	// RetestAttempts is the default number of attempts for a retest request.
	RetestAttempts int `env:"ENGINE_RETEST_ATTEMPTS" envDefault:"3"`
}

// Sanitize applies guardrails to engine configuration values.
func (e *EngineConfig) Sanitize() {
	if e.DefaultMaxPrompts < 1 {
		e.DefaultMaxPrompts = 1
	}
	if e.DefaultMaxPrompts > 200 {
		e.DefaultMaxPrompts = 200
	}
	if e.RequestTimeout <= 0 {
		e.RequestTimeout = 120 * time.Second
	}
	if e.RetestAttempts < 1 {
		e.RetestAttempts = 1
	}
	if e.RetestAttempts > 10 {
		e.RetestAttempts = 10
	}
}

// ReaperConfig contains scan reaper service configuration.
type ReaperConfig struct {
	// Interval is the reaper tick interval.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"5m"`

	// StaleMaxAge is the maximum age for queued/running scans before they are
	// forced to failed. This bounds memory growth from scans whose engine call
	// hung without a terminal transition.
	StaleMaxAge time.Duration `env:"REAPER_STALE_MAX_AGE" envDefault:"30m"`

	// RetentionMaxAge is how long terminal scans are kept before eviction.
	RetentionMaxAge time.Duration `env:"REAPER_RETENTION_MAX_AGE" envDefault:"1h"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	if r.Interval < 10*time.Second {
		r.Interval = 10 * time.Second
	}
	if r.StaleMaxAge < time.Minute {
		r.StaleMaxAge = time.Minute
	}
	if r.RetentionMaxAge < time.Minute {
		r.RetentionMaxAge = time.Minute
	}
}
