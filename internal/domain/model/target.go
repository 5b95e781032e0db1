package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ScanPreset selects the probe set and duration budget for a scan.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type ScanPreset string

const (
	// PresetQuick runs only the default-enabled injection probes.
	PresetQuick ScanPreset = "quick"
	// PresetStandard runs all default-enabled probes.
	PresetStandard ScanPreset = "standard"
	// PresetComprehensive runs every probe in the catalog.
	PresetComprehensive ScanPreset = "comprehensive"
	// PresetCustom runs exactly the probes named in the request.
	PresetCustom ScanPreset = "custom"
)

// Valid returns true if the ScanPreset is valid.
func (p ScanPreset) Valid() bool {
	return p == PresetQuick || p == PresetStandard || p == PresetComprehensive || p == PresetCustom
}

// UnmarshalText implements encoding.TextUnmarshaler for ScanPreset to allow env parsing.
func (p *ScanPreset) UnmarshalText(text []byte) error {
	v := ScanPreset(strings.ToLower(strings.TrimSpace(string(text))))
	if v.Valid() {
		*p = v
		return nil
	}
	return fmt.Errorf("invalid ScanPreset: %q", v)
}

// EstimatedDuration is the duration reported to the caller at submission time.
func (p ScanPreset) EstimatedDuration() time.Duration {
	switch p {
	case PresetQuick:
		return 60 * time.Second
	case PresetComprehensive:
		return 900 * time.Second
	default:
		return 300 * time.Second
	}
}

// MaxDuration is the hard per-preset budget the engine enforces on a run.
func (p ScanPreset) MaxDuration() time.Duration {
	switch p {
	case PresetQuick:
		return 5 * time.Minute
	case PresetStandard:
		return 15 * time.Minute
	case PresetComprehensive:
		return 45 * time.Minute
	default:
		return 30 * time.Minute
	}
}

const (
	// ProviderOpenAI targets the OpenAI chat completions API.
	ProviderOpenAI = "openai"
	// ProviderAnthropic targets the Anthropic messages API.
	ProviderAnthropic = "anthropic"
	// ProviderHuggingFace targets the Hugging Face inference API.
	ProviderHuggingFace = "huggingface"
	// ProviderOllama targets a local Ollama instance (no API key required).
	ProviderOllama = "ollama"
	// ProviderCustom targets a user-supplied REST endpoint.
	ProviderCustom = "custom"
)

// ValidProviders lists the supported target providers.
func ValidProviders() []string {
	return []string{ProviderOpenAI, ProviderAnthropic, ProviderHuggingFace, ProviderOllama, ProviderCustom}
}

// CustomEndpoint describes a user-supplied REST endpoint used when
// provider is "custom", so callers can scan their own LLM API wrapper.
type CustomEndpoint struct {
	URL string `json:"url"`
	// Method defaults to POST.
	Method string `json:"method,omitempty"`
	// RequestTemplate is a JSON body template; "{{prompt}}" is substituted.
	RequestTemplate string `json:"request_template,omitempty"`
	// ResponsePath is a dot path into the response JSON, e.g. "choices.0.text".
	ResponsePath string            `json:"response_path,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
}

// TargetConfig identifies the model under test.
type TargetConfig struct {
	Provider       string          `json:"provider"`
	Model          string          `json:"model"`
	APIKey         string          `json:"api_key,omitempty"`
	BaseURL        string          `json:"base_url,omitempty"`
	CustomEndpoint *CustomEndpoint `json:"custom_endpoint,omitempty"`
}

// Validate validates the TargetConfig fields.
func (t *TargetConfig) Validate() error {
	provider := strings.ToLower(strings.TrimSpace(t.Provider))
	valid := false
	for _, p := range ValidProviders() {
		if provider == p {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid provider %q (valid providers: %s)",
			t.Provider, strings.Join(ValidProviders(), ", "))
	}
	t.Provider = provider

	if t.Model == "" {
		return errors.New("model is required")
	}
	if provider == ProviderCustom {
		if t.CustomEndpoint == nil || t.CustomEndpoint.URL == "" {
			return errors.New("custom endpoint url is required for the custom provider")
		}
	}
	// Only ollama runs without credentials.
	if provider != ProviderOllama && t.APIKey == "" {
		return errors.New("api key is required for this provider")
	}
	return nil
}

// Redacted returns a copy safe for logs and status responses: credentials are
// stripped, everything needed to identify the target is kept.
func (t TargetConfig) Redacted() TargetConfig {
	out := t
	out.APIKey = ""
	if t.CustomEndpoint != nil {
		ep := *t.CustomEndpoint
		ep.Headers = nil
		out.CustomEndpoint = &ep
	}
	return out
}

// Validate validates the ScanParams fields.
func (p *ScanParams) Validate() error {
	if err := p.Target.Validate(); err != nil {
		return err
	}
	if !p.Preset.Valid() {
		return fmt.Errorf("invalid preset %q", p.Preset)
	}
	if p.Preset == PresetCustom && len(p.Probes) == 0 {
		return errors.New("custom preset requires at least one probe")
	}
	if p.MaxPromptsPerProbe < 0 {
		return errors.New("max prompts per probe must be >= 0")
	}
	return nil
}
