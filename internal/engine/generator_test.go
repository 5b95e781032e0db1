package engine

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orafinite/scan-api/internal/domain/model"
	apperrors "github.com/orafinite/scan-api/internal/errors"
)

func TestNewGenerator_ProviderSelection(t *testing.T) {
	tests := []struct {
		name     string
		target   model.TargetConfig
		wantName string
		wantErr  bool
	}{
		{
			name:     "openai",
			target:   model.TargetConfig{Provider: model.ProviderOpenAI, Model: "gpt-4o", APIKey: "sk-x"},
			wantName: "chat-completions:gpt-4o",
		},
		{
			name:     "ollama without key",
			target:   model.TargetConfig{Provider: model.ProviderOllama, Model: "llama3"},
			wantName: "chat-completions:llama3",
		},
		{
			name:     "anthropic",
			target:   model.TargetConfig{Provider: model.ProviderAnthropic, Model: "claude-sonnet", APIKey: "sk-a"},
			wantName: "anthropic:claude-sonnet",
		},
		{
			name:     "huggingface",
			target:   model.TargetConfig{Provider: model.ProviderHuggingFace, Model: "gpt2", APIKey: "hf-x"},
			wantName: "huggingface:gpt2",
		},
		{
			name: "custom with endpoint",
			target: model.TargetConfig{
				Provider:       model.ProviderCustom,
				Model:          "wrapper",
				CustomEndpoint: &model.CustomEndpoint{URL: "http://localhost:9000/chat"},
			},
			wantName: "custom-rest:http://localhost:9000/chat",
		},
		{
			name:    "custom without endpoint",
			target:  model.TargetConfig{Provider: model.ProviderCustom, Model: "wrapper"},
			wantErr: true,
		},
		{
			name:    "unknown provider",
			target:  model.TargetConfig{Provider: "bogus", Model: "m"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen, err := NewGenerator(tt.target, nil)
			if tt.wantErr {
				assert.True(t, apperrors.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, gen.Name())
		})
	}
}

func TestChatCompletionsGenerator_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o", body.Model)
		require.Len(t, body.Messages, 1)
		assert.Equal(t, "hello", body.Messages[0].Content)

		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"hi there"}}]}`)
	}))
	defer srv.Close()

	gen, err := NewGenerator(model.TargetConfig{
		Provider: model.ProviderOpenAI,
		Model:    "gpt-4o",
		APIKey:   "sk-test",
		BaseURL:  srv.URL,
	}, srv.Client())
	require.NoError(t, err)

	out, err := gen.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi there", out)
}

func TestChatCompletionsGenerator_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	gen, err := NewGenerator(model.TargetConfig{
		Provider: model.ProviderOpenAI,
		Model:    "gpt-4o",
		APIKey:   "sk-test",
		BaseURL:  srv.URL,
	}, srv.Client())
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), "hello")
	assert.True(t, apperrors.IsEngine(err))
}

func TestAnthropicGenerator_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		_, _ = io.WriteString(w, `{"content":[{"text":"reply"}]}`)
	}))
	defer srv.Close()

	gen, err := NewGenerator(model.TargetConfig{
		Provider: model.ProviderAnthropic,
		Model:    "claude-sonnet",
		APIKey:   "sk-ant",
		BaseURL:  srv.URL,
	}, srv.Client())
	require.NoError(t, err)

	out, err := gen.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "reply", out)
}

func TestCustomRESTGenerator_TemplateAndPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token abc", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, `say "hi"`, body["q"])

		_, _ = io.WriteString(w, `{"choices":[{"text":"custom reply"}]}`)
	}))
	defer srv.Close()

	gen, err := NewGenerator(model.TargetConfig{
		Provider: model.ProviderCustom,
		Model:    "wrapper",
		CustomEndpoint: &model.CustomEndpoint{
			URL:             srv.URL,
			RequestTemplate: `{"q": "{{prompt}}"}`,
			ResponsePath:    "choices.0.text",
			Headers:         map[string]string{"Authorization": "token abc"},
		},
	}, srv.Client())
	require.NoError(t, err)

	out, err := gen.Generate(context.Background(), `say "hi"`)
	require.NoError(t, err)
	assert.Equal(t, "custom reply", out)
}

func TestNavigateResponsePath(t *testing.T) {
	var data any
	require.NoError(t, json.Unmarshal(
		[]byte(`{"choices":[{"text":"inner"}],"plain":"value","n":5}`), &data))

	tests := []struct {
		path string
		want string
	}{
		{"plain", "value"},
		{"choices.0.text", "inner"},
		{"n", "5"},
		// Missing segments fall back to stringifying the whole document.
		{"choices.5.text", `{"choices":[{"text":"inner"}],"n":5,"plain":"value"}`},
		{"missing", `{"choices":[{"text":"inner"}],"n":5,"plain":"value"}`},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, navigateResponsePath(data, tt.path))
		})
	}
}
