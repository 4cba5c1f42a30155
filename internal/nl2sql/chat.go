package nl2sql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	ProviderMistral   = "mistral"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

var providerDefaults = map[string]struct {
	baseURL string
	model   string
}{
	ProviderMistral:   {baseURL: "https://api.mistral.ai", model: "mistral-small-latest"},
	ProviderOpenAI:    {baseURL: "https://api.openai.com", model: "gpt-4o-mini"},
	ProviderAnthropic: {baseURL: "https://api.anthropic.com", model: "claude-3-5-haiku-latest"},
}

type CompleterConfig struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// NewCompleter picks the client for cfg.Provider and fills in its default
// endpoint and model.
func NewCompleter(cfg CompleterConfig) (Completer, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderMistral
	}
	defaults, ok := providerDefaults[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaults.baseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaults.model
	}
	cfg.Provider = provider
	if provider == ProviderAnthropic {
		return NewAnthropicClient(cfg)
	}
	return NewChatCompletionsClient(cfg)
}

// ChatCompletionsClient speaks the /v1/chat/completions dialect shared by
// Mistral and OpenAI.
type ChatCompletionsClient struct {
	provider string
	baseURL  string
	apiKey   string
	model    string
	client   *http.Client
}

func NewChatCompletionsClient(cfg CompleterConfig) (*ChatCompletionsClient, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	provider := strings.TrimSpace(cfg.Provider)
	if provider == "" {
		provider = ProviderMistral
	}
	return &ChatCompletionsClient{
		provider: provider,
		baseURL:  strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:   strings.TrimSpace(cfg.APIKey),
		model:    strings.TrimSpace(cfg.Model),
		client:   &http.Client{Timeout: timeout},
	}, nil
}

func (c *ChatCompletionsClient) Provider() string { return c.provider }
func (c *ChatCompletionsClient) Model() string    { return c.model }

func (c *ChatCompletionsClient) Complete(ctx context.Context, req ChatRequest) (string, error) {
	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": req.System},
			{"role": "user", "content": req.User},
		},
		"temperature": req.Temperature,
	}
	if req.MaxTokens > 0 {
		payload["max_tokens"] = req.MaxTokens
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request chat completion: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	rawRespBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("chat completion failed status=%d body=%s", resp.StatusCode, string(rawRespBody))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(rawRespBody, &parsed); err != nil {
		return "", fmt.Errorf("decode chat completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty chat completion choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
