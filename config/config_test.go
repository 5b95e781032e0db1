package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    map[ServiceMode]bool
		wantErr bool
	}{
		{
			name:  "single service",
			input: "http",
			want:  map[ServiceMode]bool{ServiceModeHTTP: true},
		},
		{
			name:  "multiple services",
			input: "http,reaper",
			want:  map[ServiceMode]bool{ServiceModeHTTP: true, ServiceModeReaper: true},
		},
		{
			name:  "whitespace tolerated",
			input: " http , reaper ",
			want:  map[ServiceMode]bool{ServiceModeHTTP: true, ServiceModeReaper: true},
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
		{
			name:    "unknown service",
			input:   "http,scheduler",
			wantErr: true,
		},
		{
			name:    "only separators",
			input:   ",,",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseServices(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOrchestratorConfig_Sanitize(t *testing.T) {
	cfg := OrchestratorConfig{MaxRunningScans: 0}
	cfg.Sanitize()
	assert.Equal(t, 1, cfg.MaxRunningScans)

	cfg = OrchestratorConfig{MaxRunningScans: 5000}
	cfg.Sanitize()
	assert.Equal(t, 100, cfg.MaxRunningScans)

	cfg = OrchestratorConfig{MaxRunningScans: 10}
	cfg.Sanitize()
	assert.Equal(t, 10, cfg.MaxRunningScans)
}

func TestReaperConfig_Sanitize(t *testing.T) {
	cfg := ReaperConfig{}
	cfg.Sanitize()

	assert.Equal(t, 10*time.Second, cfg.Interval)
	assert.Equal(t, time.Minute, cfg.StaleMaxAge)
	assert.Equal(t, time.Minute, cfg.RetentionMaxAge)

	cfg = ReaperConfig{
		Interval:        5 * time.Minute,
		StaleMaxAge:     30 * time.Minute,
		RetentionMaxAge: time.Hour,
	}
	cfg.Sanitize()
	assert.Equal(t, 5*time.Minute, cfg.Interval)
	assert.Equal(t, 30*time.Minute, cfg.StaleMaxAge)
	assert.Equal(t, time.Hour, cfg.RetentionMaxAge)
}

func TestEngineConfig_Sanitize(t *testing.T) {
	cfg := EngineConfig{}
	cfg.Sanitize()
	assert.Equal(t, 1, cfg.DefaultMaxPrompts)
	assert.Equal(t, 120*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 1, cfg.RetestAttempts)

	cfg = EngineConfig{DefaultMaxPrompts: 1000, RetestAttempts: 50}
	cfg.Sanitize()
	assert.Equal(t, 200, cfg.DefaultMaxPrompts)
	assert.Equal(t, 10, cfg.RetestAttempts)
}

func TestHTTPConfig_Sanitize(t *testing.T) {
	cfg := HTTPConfig{RateLimitMax: -5}
	cfg.Sanitize()
	assert.Equal(t, 0, cfg.RateLimitMax)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityMetricsConfig{Enabled: true, StatsdAddress: "  "}
	cfg.Sanitize()
	assert.False(t, cfg.IsEnabled())

	cfg = ObservabilityMetricsConfig{Enabled: true, StatsdAddress: "127.0.0.1:8125"}
	cfg.Sanitize()
	assert.True(t, cfg.IsEnabled())
}

func TestAppConfig_ServiceHelpers(t *testing.T) {
	cfg := AppConfig{Services: "http,reaper"}
	assert.True(t, cfg.IsHTTPServerEnabled())
	assert.True(t, cfg.IsReaperEnabled())

	cfg.Services = "http"
	assert.True(t, cfg.IsHTTPServerEnabled())
	assert.False(t, cfg.IsReaperEnabled())

	cfg.Services = "bogus"
	assert.False(t, cfg.IsHTTPServerEnabled())
	assert.False(t, cfg.IsReaperEnabled())
}
