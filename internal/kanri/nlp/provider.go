// Package nlp turns a free-text instruction into an action list: it builds
// the model prompt, calls a hosted text-generation provider, and parses the
// reply tolerantly.
package nlp

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// ErrRateLimit is returned when the upstream provider answers 429.
var ErrRateLimit = errors.New("nlp: upstream rate limit exceeded")

// Prompt is the input to a provider: fixed system instructions plus the
// requester's text.
type Prompt struct {
	System      string
	Instruction string
}

// Completion is the provider's raw, untrusted output.
type Completion struct {
	Text    string
	Model   string
	Latency time.Duration
}

// Provider is a hosted language model.
type Provider interface {
	Complete(ctx context.Context, p Prompt) (*Completion, error)
}

// InferenceError is any failure to obtain model text: transport errors,
// timeouts, and non-2xx responses.
type InferenceError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *InferenceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("(%s API error %d) %s", e.Provider, e.StatusCode, e.Body)
	}
	if e.Timeout() {
		return fmt.Sprintf("(%s error) model did not answer in time", e.Provider)
	}
	return fmt.Sprintf("(%s error) %v", e.Provider, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// Timeout reports whether the call was cut off by its deadline.
func (e *InferenceError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// maxBodyEcho bounds how much of an error body is kept for display.
const maxBodyEcho = 500

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}

// User-facing replies for requests that never reach the model.
const (
	RateLimitMessage = "⏳ You are sending instructions too quickly. Please wait a minute and try again, or use the direct commands."
	GuardrailMessage = "⛔ That instruction looks like it contains a credential. It was not sent to the language model. Remove the secret and try again."
)
