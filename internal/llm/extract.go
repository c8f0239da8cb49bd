package llm

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoJSON means no bracketed span was found in a reply.
var ErrNoJSON = errors.New("llm: no JSON span in reply")

// ExtractJSONObject returns the substring from the first '{' to the last
// '}' of s. It does not check that the span is valid JSON.
func ExtractJSONObject(s string) (string, error) {
	return extractSpan(s, "{", "}")
}

// ExtractJSONArray is ExtractJSONObject for '[' ... ']'.
func ExtractJSONArray(s string) (string, error) {
	return extractSpan(s, "[", "]")
}

func extractSpan(s, open, close string) (string, error) {
	t := stripFences(strings.TrimSpace(s))
	if t == "" {
		return "", ErrEmptyContent
	}

	start := strings.Index(t, open)
	end := strings.LastIndex(t, close)
	if start >= 0 && end > start {
		return t[start : end+1], nil
	}
	return "", fmt.Errorf("%w: %q", ErrNoJSON, Truncate(t, 200))
}

func stripFences(t string) string {
	if !strings.HasPrefix(t, "```") {
		return t
	}
	if i := strings.Index(t, "\n"); i >= 0 {
		t = t[i+1:]
	}
	if j := strings.LastIndex(t, "```"); j >= 0 {
		t = t[:j]
	}
	return strings.TrimSpace(t)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	bearerTokenRE = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._/-]+`)
	authHeaderRE  = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)([^\n\r,;]+)`)
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
)

func redactSecrets(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
	}
	out = bearerTokenRE.ReplaceAllString(out, "Bearer [REDACTED]")
	out = authHeaderRE.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}
