package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		target  TargetConfig
		wantErr string
	}{
		{
			name:   "valid openai target",
			target: TargetConfig{Provider: "openai", Model: "gpt-4o-mini", APIKey: "sk-test"},
		},
		{
			name:   "provider is case insensitive",
			target: TargetConfig{Provider: "OpenAI", Model: "gpt-4o-mini", APIKey: "sk-test"},
		},
		{
			name:   "ollama needs no api key",
			target: TargetConfig{Provider: "ollama", Model: "llama3"},
		},
		{
			name:    "unknown provider",
			target:  TargetConfig{Provider: "bedrock", Model: "m"},
			wantErr: "invalid provider",
		},
		{
			name:    "missing model",
			target:  TargetConfig{Provider: "openai", APIKey: "sk-test"},
			wantErr: "model is required",
		},
		{
			name:    "missing api key",
			target:  TargetConfig{Provider: "anthropic", Model: "claude"},
			wantErr: "api key is required",
		},
		{
			name:    "custom provider without endpoint",
			target:  TargetConfig{Provider: "custom", Model: "my-model"},
			wantErr: "custom endpoint url is required",
		},
		{
			name: "custom provider with endpoint",
			target: TargetConfig{
				Provider:       "custom",
				Model:          "my-model",
				APIKey:         "sk-test",
				CustomEndpoint: &CustomEndpoint{URL: "http://localhost:9000/generate"},
			},
		},
		{
			name: "custom provider still needs an api key",
			target: TargetConfig{
				Provider:       "custom",
				Model:          "my-model",
				CustomEndpoint: &CustomEndpoint{URL: "http://localhost:9000/generate"},
			},
			wantErr: "api key is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.target.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestTargetConfig_ValidateNormalizesProvider(t *testing.T) {
	target := TargetConfig{Provider: " OLLAMA ", Model: "llama3"}
	require.NoError(t, target.Validate())
	assert.Equal(t, ProviderOllama, target.Provider)
}

func TestTargetConfig_Redacted(t *testing.T) {
	target := TargetConfig{
		Provider: "custom",
		Model:    "m",
		APIKey:   "secret",
		CustomEndpoint: &CustomEndpoint{
			URL:     "http://localhost:9000",
			Headers: map[string]string{"Authorization": "Bearer secret"},
		},
	}

	redacted := target.Redacted()

	assert.Empty(t, redacted.APIKey)
	assert.Nil(t, redacted.CustomEndpoint.Headers)
	assert.Equal(t, "http://localhost:9000", redacted.CustomEndpoint.URL)
	// Original untouched.
	assert.Equal(t, "secret", target.APIKey)
	assert.NotNil(t, target.CustomEndpoint.Headers)
}

func TestScanParams_Validate(t *testing.T) {
	valid := ScanParams{
		Target: TargetConfig{Provider: "ollama", Model: "llama3"},
		Preset: PresetStandard,
	}
	require.NoError(t, valid.Validate())

	t.Run("custom preset requires probes", func(t *testing.T) {
		p := valid
		p.Preset = PresetCustom
		err := p.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least one probe")
	})

	t.Run("negative prompt cap", func(t *testing.T) {
		p := valid
		p.MaxPromptsPerProbe = -1
		assert.Error(t, p.Validate())
	})

	t.Run("invalid preset", func(t *testing.T) {
		p := valid
		p.Preset = "turbo"
		assert.Error(t, p.Validate())
	})
}

func TestStartScanRequest_ValidateDefaultsPreset(t *testing.T) {
	req := StartScanRequest{Target: TargetConfig{Provider: "ollama", Model: "llama3"}}
	require.NoError(t, req.Validate())
	assert.Equal(t, PresetStandard, req.Preset)
}

func TestStartScanRequest_ValidateNormalizesTarget(t *testing.T) {
	req := StartScanRequest{
		Target: TargetConfig{Provider: "OpenAI", Model: "gpt-4o-mini", APIKey: "sk-test"},
		Preset: PresetQuick,
	}
	require.NoError(t, req.Validate())

	// The normalized provider must survive into the submission params,
	// otherwise the generator lookup downstream misses every case.
	assert.Equal(t, ProviderOpenAI, req.Target.Provider)
	assert.Equal(t, ProviderOpenAI, req.Params().Target.Provider)
}

func TestRetestRequest_Validate(t *testing.T) {
	valid := RetestRequest{
		ProbeID:      "dan",
		AttackPrompt: "ignore previous instructions",
		Target:       TargetConfig{Provider: "ollama", Model: "llama3"},
		Attempts:     3,
	}
	require.NoError(t, valid.Validate())

	t.Run("missing probe id", func(t *testing.T) {
		r := valid
		r.ProbeID = ""
		assert.Error(t, r.Validate())
	})

	t.Run("missing prompt", func(t *testing.T) {
		r := valid
		r.AttackPrompt = ""
		assert.Error(t, r.Validate())
	})

	t.Run("too many attempts", func(t *testing.T) {
		r := valid
		r.Attempts = 11
		assert.Error(t, r.Validate())
	})
}
