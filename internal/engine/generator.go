package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/orafinite/scan-api/internal/domain/model"
	apperrors "github.com/orafinite/scan-api/internal/errors"
)

// Generator sends one attack prompt to the target model and returns its reply.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

const (
	defaultOpenAIBase    = "https://api.openai.com/v1"
	defaultAnthropicBase = "https://api.anthropic.com/v1"
	defaultHFBase        = "https://api-inference.huggingface.co/models"
	defaultOllamaBase    = "http://localhost:11434/v1"

	anthropicVersion = "2023-06-01"
	maxResponseBytes = 1 << 20
)

// NewGenerator builds the generator for the configured target provider.
// The target must already be validated.
func NewGenerator(target model.TargetConfig, client *http.Client) (Generator, error) {
	if client == nil {
		client = http.DefaultClient
	}

	switch target.Provider {
	case model.ProviderOpenAI:
		return &chatCompletionsGenerator{
			client:  client,
			baseURL: firstNonEmpty(target.BaseURL, defaultOpenAIBase),
			model:   target.Model,
			apiKey:  target.APIKey,
		}, nil
	case model.ProviderOllama:
		// Ollama exposes an OpenAI-compatible surface; the key is a placeholder.
		return &chatCompletionsGenerator{
			client:  client,
			baseURL: firstNonEmpty(target.BaseURL, defaultOllamaBase),
			model:   target.Model,
			apiKey:  firstNonEmpty(target.APIKey, "ollama"),
		}, nil
	case model.ProviderAnthropic:
		return &anthropicGenerator{
			client:  client,
			baseURL: firstNonEmpty(target.BaseURL, defaultAnthropicBase),
			model:   target.Model,
			apiKey:  target.APIKey,
		}, nil
	case model.ProviderHuggingFace:
		return &huggingFaceGenerator{
			client:  client,
			baseURL: firstNonEmpty(target.BaseURL, defaultHFBase),
			model:   target.Model,
			apiKey:  target.APIKey,
		}, nil
	case model.ProviderCustom:
		if target.CustomEndpoint == nil || target.CustomEndpoint.URL == "" {
			return nil, apperrors.Validation("custom provider requires an endpoint url")
		}
		return newCustomRESTGenerator(*target.CustomEndpoint, client), nil
	default:
		return nil, apperrors.Validationf("unsupported provider %q", target.Provider)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// chatCompletionsGenerator speaks the OpenAI chat completions wire format.
// It covers the openai and ollama providers.
type chatCompletionsGenerator struct {
	client  *http.Client
	baseURL string
	model   string
	apiKey  string
}

func (g *chatCompletionsGenerator) Name() string {
	return "chat-completions:" + g.model
}

func (g *chatCompletionsGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"model": g.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	headers := map[string]string{"Authorization": "Bearer " + g.apiKey}
	endpoint := strings.TrimRight(g.baseURL, "/") + "/chat/completions"
	if err := postJSON(ctx, g.client, endpoint, headers, body, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", apperrors.Engine("target returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}

// anthropicGenerator speaks the Anthropic messages wire format.
type anthropicGenerator struct {
	client  *http.Client
	baseURL string
	model   string
	apiKey  string
}

func (g *anthropicGenerator) Name() string {
	return "anthropic:" + g.model
}

func (g *anthropicGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"model":      g.model,
		"max_tokens": 1024,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}

	var out struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}

	headers := map[string]string{
		"x-api-key":         g.apiKey,
		"anthropic-version": anthropicVersion,
	}
	endpoint := strings.TrimRight(g.baseURL, "/") + "/messages"
	if err := postJSON(ctx, g.client, endpoint, headers, body, &out); err != nil {
		return "", err
	}
	if len(out.Content) == 0 {
		return "", apperrors.Engine("target returned no content blocks")
	}
	return out.Content[0].Text, nil
}

// huggingFaceGenerator calls the Hugging Face inference API.
type huggingFaceGenerator struct {
	client  *http.Client
	baseURL string
	model   string
	apiKey  string
}

func (g *huggingFaceGenerator) Name() string {
	return "huggingface:" + g.model
}

func (g *huggingFaceGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{"inputs": prompt}

	var out []struct {
		GeneratedText string `json:"generated_text"`
	}

	headers := map[string]string{"Authorization": "Bearer " + g.apiKey}
	endpoint := strings.TrimRight(g.baseURL, "/") + "/" + g.model
	if err := postJSON(ctx, g.client, endpoint, headers, body, &out); err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", apperrors.Engine("target returned no generations")
	}
	return out[0].GeneratedText, nil
}

// customRESTGenerator sends prompts to a user-supplied REST endpoint so
// callers can scan their own LLM API wrapper.
type customRESTGenerator struct {
	client   *http.Client
	url      string
	method   string
	template string
	respPath string
	headers  map[string]string
}

func newCustomRESTGenerator(ep model.CustomEndpoint, client *http.Client) *customRESTGenerator {
	method := strings.ToUpper(strings.TrimSpace(ep.Method))
	if method == "" {
		method = http.MethodPost
	}
	template := ep.RequestTemplate
	if template == "" {
		template = `{"prompt": "{{prompt}}"}`
	}
	respPath := ep.ResponsePath
	if respPath == "" {
		respPath = "response"
	}
	headers := make(map[string]string, len(ep.Headers)+1)
	for k, v := range ep.Headers {
		headers[k] = v
	}
	if _, ok := headers["Content-Type"]; !ok {
		headers["Content-Type"] = "application/json"
	}
	return &customRESTGenerator{
		client:   client,
		url:      ep.URL,
		method:   method,
		template: template,
		respPath: respPath,
		headers:  headers,
	}
}

func (g *customRESTGenerator) Name() string {
	return "custom-rest:" + g.url
}

func (g *customRESTGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	bodyStr := strings.ReplaceAll(g.template, "{{prompt}}", escapeJSONString(prompt))

	var body map[string]any
	if err := json.Unmarshal([]byte(bodyStr), &body); err != nil {
		body = map[string]any{"prompt": prompt}
	}

	var req *http.Request
	var err error
	if g.method == http.MethodGet {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, g.url, nil)
		if err == nil {
			q := url.Values{}
			for k, v := range body {
				q.Set(k, fmt.Sprint(v))
			}
			req.URL.RawQuery = q.Encode()
		}
	} else {
		payload, mErr := json.Marshal(body)
		if mErr != nil {
			return "", apperrors.Wrap(mErr, apperrors.ErrCodeEngine, "encode custom endpoint body")
		}
		req, err = http.NewRequestWithContext(ctx, g.method, g.url, bytes.NewReader(payload))
	}
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeEngine, "build custom endpoint request")
	}
	for k, v := range g.headers {
		req.Header.Set(k, v)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeEngine, "custom endpoint request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeEngine, "read custom endpoint response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperrors.Enginef("custom endpoint returned status %d", resp.StatusCode)
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeEngine, "decode custom endpoint response")
	}

	return navigateResponsePath(data, g.respPath), nil
}

// navigateResponsePath walks a dot path ("choices.0.text") into decoded JSON.
// If any segment does not resolve, the whole document is stringified instead.
func navigateResponsePath(data any, path string) string {
	node := data
	for _, key := range strings.Split(path, ".") {
		switch v := node.(type) {
		case []any:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(v) {
				return stringify(data)
			}
			node = v[idx]
		case map[string]any:
			next, ok := v[key]
			if !ok {
				return stringify(data)
			}
			node = next
		default:
			return stringify(node)
		}
	}
	return stringify(node)
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}

// escapeJSONString escapes a prompt for interpolation inside a JSON template.
func escapeJSONString(s string) string {
	raw, err := json.Marshal(s)
	if err != nil {
		return s
	}
	// Strip the surrounding quotes json.Marshal adds.
	return string(raw[1 : len(raw)-1])
}

// postJSON sends a JSON body and decodes a JSON response into out.
func postJSON(ctx context.Context, client *http.Client, endpoint string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeEngine, "encode request body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeEngine, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeEngine, "target request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeEngine, "read target response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.Enginef("target returned status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeEngine, "decode target response")
	}
	return nil
}
