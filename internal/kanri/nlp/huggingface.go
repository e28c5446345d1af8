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
	DefaultHFBaseURL      = "https://api-inference.huggingface.co/models"
	DefaultHFModel        = "mistralai/Mistral-7B-Instruct-v0.1"
	DefaultMaxNewTokens   = 800
	DefaultTemperature    = 0.1
	providerHuggingFace   = "HF"
	maxResponseBodyLength = 1 << 20
)

// HFConfig configures the HuggingFace Inference API provider.
type HFConfig struct {
	Token        string
	BaseURL      string
	Model        string
	MaxNewTokens int
	Temperature  float64
}

type hfProvider struct {
	cfg    HFConfig
	client *http.Client
}

// NewHuggingFace returns a Provider backed by the text-generation task of
// the HuggingFace Inference API. Deadlines come from the caller's context.
func NewHuggingFace(cfg HFConfig) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultHFBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultHFModel
	}
	if cfg.MaxNewTokens <= 0 {
		cfg.MaxNewTokens = DefaultMaxNewTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	return &hfProvider{cfg: cfg, client: &http.Client{}}
}

type hfParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	DoSample       bool    `json:"do_sample"`
	ReturnFullText bool    `json:"return_full_text"`
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

func (p *hfProvider) Complete(ctx context.Context, prompt Prompt) (*Completion, error) {
	body, err := json.Marshal(hfRequest{
		Inputs: prompt.Inline(),
		Parameters: hfParameters{
			MaxNewTokens:   p.cfg.MaxNewTokens,
			Temperature:    p.cfg.Temperature,
			DoSample:       true,
			ReturnFullText: false,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("nlp: marshal request: %w", err)
	}

	url := strings.TrimRight(p.cfg.BaseURL, "/") + "/" + p.cfg.Model
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("nlp: create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.Token)

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &InferenceError{Provider: providerHuggingFace, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyLength))
	if err != nil {
		return nil, &InferenceError{Provider: providerHuggingFace, Err: fmt.Errorf("read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ierr := &InferenceError{
			Provider:   providerHuggingFace,
			StatusCode: resp.StatusCode,
			Body:       truncate(strings.TrimSpace(string(raw)), maxBodyEcho),
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			ierr.Err = ErrRateLimit
		}
		return nil, ierr
	}

	return &Completion{
		Text:    strings.TrimSpace(generatedText(raw)),
		Model:   p.cfg.Model,
		Latency: time.Since(start),
	}, nil
}

// generatedText extracts the first generation. Unexpected shapes are
// returned verbatim so the parser can still try them.
func generatedText(raw []byte) string {
	var list []hfGeneration
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0].GeneratedText
	}
	var single hfGeneration
	if err := json.Unmarshal(raw, &single); err == nil && single.GeneratedText != "" {
		return single.GeneratedText
	}
	return string(raw)
}
