package nlp

import "regexp"

// secretPatterns match credential formats that should never be forwarded to
// a third-party model.
var secretPatterns = []*regexp.Regexp{
	// Discord bot token: base64 user id, timestamp, HMAC.
	regexp.MustCompile(`\b[MNO][A-Za-z0-9_\-]{23,27}\.[A-Za-z0-9_\-]{6}\.[A-Za-z0-9_\-]{27,}\b`),
	// HuggingFace access token
	regexp.MustCompile(`\bhf_[A-Za-z0-9]{30,}\b`),
	// OpenAI / Anthropic
	regexp.MustCompile(`\bsk-(?:proj-|ant-)?[A-Za-z0-9_\-]{20,}\b`),
	// AWS access key ID
	regexp.MustCompile(`\bAKIA[A-Z0-9]{16}\b`),
	// GitHub tokens
	regexp.MustCompile(`\b(?:ghp|gho)_[A-Za-z0-9]{36,}\b`),
	regexp.MustCompile(`\bgithub_pat_[A-Za-z0-9_]{20,}\b`),
	// Slack tokens
	regexp.MustCompile(`\bxox[baprs]-[A-Za-z0-9\-]{10,}\b`),
	// Long base64 runs; 48+ keeps snowflakes and SHA-1 hashes out.
	regexp.MustCompile(`[A-Za-z0-9+/]{48,}={0,2}`),
}

// ContainsSecret reports whether text looks like it carries a credential.
func ContainsSecret(text string) bool {
	for _, re := range secretPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
