// Package redact strips credentials from text before it is logged, stored in
// the audit log, or echoed back into a chat channel.
//
// Redaction works on string contents only. Callers still have to keep
// secrets out of log call sites.
package redact

import (
	"strings"
)

// Placeholder replaces every redacted value.
const Placeholder = "[REDACTED]"

// minLen avoids replacing short, common substrings.
const minLen = 4

// String replaces each sensitive value found in s with Placeholder. Values
// shorter than four bytes are ignored.
func String(s string, sensitive ...string) string {
	for _, v := range sensitive {
		if len(v) < minLen {
			continue
		}
		s = strings.ReplaceAll(s, v, Placeholder)
	}
	return s
}

// Redactor holds a fixed set of secrets, typically the process credentials.
type Redactor struct {
	values []string
}

// New returns a Redactor for the given values. Empty and short values are
// dropped.
func New(values ...string) *Redactor {
	r := &Redactor{}
	for _, v := range values {
		if len(v) >= minLen {
			r.values = append(r.values, v)
		}
	}
	return r
}

// String redacts s. A nil Redactor returns s unchanged.
func (r *Redactor) String(s string) string {
	if r == nil {
		return s
	}
	return String(s, r.values...)
}

// Map returns a copy of m in which string values under credential-looking
// keys are replaced with Placeholder. Other values are copied as is.
func Map(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok && s != "" && sensitiveKey(k) {
			out[k] = Placeholder
			continue
		}
		out[k] = v
	}
	return out
}

func sensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, w := range []string{"token", "secret", "password", "apikey", "api_key", "credential", "auth"} {
		if strings.Contains(k, w) {
			return true
		}
	}
	return false
}
