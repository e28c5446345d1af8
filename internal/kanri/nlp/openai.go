package nlp

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
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "gpt-4o-mini"
	providerOpenAI       = "OpenAI"
)

// OpenAIConfig configures any OpenAI-compatible chat completions endpoint.
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

type openAIProvider struct {
	cfg    OpenAIConfig
	client *http.Client
}

// NewOpenAI returns a Provider for an OpenAI-compatible API. The reply is
// requested in JSON mode; the parser still treats it as untrusted text.
func NewOpenAI(cfg OpenAIConfig) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxNewTokens
	}
	return &openAIProvider{cfg: cfg, client: &http.Client{}}
}

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiRequest struct {
	Model          string       `json:"model"`
	Messages       []oaiMessage `json:"messages"`
	MaxTokens      int          `json:"max_tokens,omitempty"`
	Temperature    float64      `json:"temperature"`
	ResponseFormat *oaiFormat   `json:"response_format,omitempty"`
}

type oaiFormat struct {
	Type string `json:"type"`
}

type oaiResponse struct {
	Choices []struct {
		Message oaiMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (p *openAIProvider) Complete(ctx context.Context, prompt Prompt) (*Completion, error) {
	data, err := json.Marshal(oaiRequest{
		Model: p.cfg.Model,
		Messages: []oaiMessage{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.Instruction},
		},
		MaxTokens:      p.cfg.MaxTokens,
		Temperature:    DefaultTemperature,
		ResponseFormat: &oaiFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("nlp: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(p.cfg.BaseURL, "/")+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("nlp: create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &InferenceError{Provider: providerOpenAI, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyLength))
	if err != nil {
		return nil, &InferenceError{Provider: providerOpenAI, Err: fmt.Errorf("read response body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ierr := &InferenceError{
			Provider:   providerOpenAI,
			StatusCode: resp.StatusCode,
			Body:       truncate(strings.TrimSpace(string(body)), maxBodyEcho),
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			ierr.Err = ErrRateLimit
		}
		return nil, ierr
	}

	var out oaiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &InferenceError{Provider: providerOpenAI, Err: fmt.Errorf("decode API response: %w", err)}
	}
	if out.Error != nil {
		return nil, &InferenceError{Provider: providerOpenAI, Err: fmt.Errorf("API error (%s): %s", out.Error.Type, out.Error.Message)}
	}
	if len(out.Choices) == 0 {
		return nil, &InferenceError{Provider: providerOpenAI, Err: fmt.Errorf("no choices returned")}
	}

	return &Completion{
		Text:    strings.TrimSpace(out.Choices[0].Message.Content),
		Model:   p.cfg.Model,
		Latency: time.Since(start),
	}, nil
}
