package config

import "time"

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// ReadTimeout bounds how long reading a request may take.
	ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`

	// WriteTimeout bounds how long writing a response may take.
	// Retest calls run the target model synchronously, so this must cover
	// several round trips to the scanned provider.
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"120s"`

	// IdleTimeout bounds how long idle keep-alive connections are held.
	IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`

	// RateLimitMax is the number of requests allowed per client per window.
	// Zero disables rate limiting.
	RateLimitMax int `env:"HTTP_RATE_LIMIT_MAX" envDefault:"120"`

	// RateLimitWindow is the fixed rate-limit window.
	RateLimitWindow time.Duration `env:"HTTP_RATE_LIMIT_WINDOW" envDefault:"1m"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.ReadTimeout <= 0 {
		h.ReadTimeout = 30 * time.Second
	}
	if h.WriteTimeout <= 0 {
		h.WriteTimeout = 120 * time.Second
	}
	if h.IdleTimeout <= 0 {
		h.IdleTimeout = 120 * time.Second
	}
	if h.RateLimitMax < 0 {
		h.RateLimitMax = 0
	}
	if h.RateLimitWindow <= 0 {
		h.RateLimitWindow = time.Minute
	}
}
