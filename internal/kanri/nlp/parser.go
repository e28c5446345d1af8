package nlp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/bdobrica/Kanri/internal/kanri/actions"
)

// ErrNoActions means the model answered with a well-formed but empty
// action list.
var ErrNoActions = errors.New("nlp: model returned no actions")

var errNoJSON = errors.New("no JSON object found")

const envelopeSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["actions"],
  "properties": {
    "actions": {"type": "array"}
  }
}`

var envelopeSchema = jsonschema.MustCompileString("envelope.json", envelopeSchemaJSON)

// ParseError reports model output that could not be turned into an action
// list. Raw is the text exactly as the model produced it.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("nlp: cannot parse model output: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parser recovers an action envelope from model text.
type Parser struct {
	// Repair runs a JSON repair pass over the extracted object when neither
	// the raw text nor the extracted substring parses.
	Repair bool
}

// Parse returns the actions in raw, which is tried first as it stands and
// then as the span from its first '{' to its last '}'. Errors are always a
// *ParseError; an empty list wraps ErrNoActions.
func (p Parser) Parse(raw string) (actions.List, error) {
	candidates := []string{strings.TrimSpace(raw)}
	if sub, ok := extractObject(raw); ok && sub != candidates[0] {
		candidates = append(candidates, sub)
	}

	var lastErr error = errNoJSON
	for _, c := range candidates {
		items, err := decodeEnvelope(c)
		if err == nil {
			return finish(raw, items)
		}
		if !errors.Is(err, errNoJSON) {
			lastErr = err
		}
	}

	if p.Repair {
		if sub, ok := extractObject(raw); ok {
			if fixed, err := jsonrepair.JSONRepair(sub); err == nil {
				if items, err := decodeEnvelope(fixed); err == nil {
					return finish(raw, items)
				}
			}
		}
	}

	return nil, &ParseError{Raw: raw, Err: lastErr}
}

func finish(raw string, items []any) (actions.List, error) {
	if len(items) == 0 {
		return nil, &ParseError{Raw: raw, Err: ErrNoActions}
	}
	return actions.DecodeList(items), nil
}

// extractObject returns the substring from the first '{' to the last '}'.
func extractObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// decodeEnvelope parses s as a single JSON value and validates its shape.
// Text that is not JSON yields errNoJSON.
func decodeEnvelope(s string) ([]any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errNoJSON
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errNoJSON
	}
	if err := envelopeSchema.Validate(v); err != nil {
		return nil, fmt.Errorf("expected an object with an \"actions\" list: %w", err)
	}
	return v.(map[string]any)["actions"].([]any), nil
}
