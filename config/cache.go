package config

import "time"

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	// Enabled controls whether Redis is used at all. When false the service
	// runs with in-memory fallbacks (no report cache, local rate limiting).
	Enabled            bool     `env:"ENABLED"              envDefault:"false"`
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
}

// CacheConfig contains report cache configuration (Redis-based).
type CacheConfig struct {
	// ReportTTL is the TTL for cached terminal-scan result reports.
	ReportTTL time.Duration `env:"CACHE_REPORT_TTL" envDefault:"10m"`
}

// Sanitize applies guardrails to cache configuration values.
func (c *CacheConfig) Sanitize() {
	if c.ReportTTL <= 0 {
		c.ReportTTL = 10 * time.Minute
	}
}
