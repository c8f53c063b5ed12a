package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// Redactor scrubs credentials from log output.
type Redactor struct {
	patterns []redactPattern
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Pattern names.
const (
	PatternBearerToken = "bearer_token"
	PatternAccessToken = "access_token"
	PatternSessionJWT  = "session_jwt"
	PatternJWT         = "jwt"
	PatternPassword    = "password"
)

// Patterns are applied in order; the session JWT fields must be scrubbed
// before the bare JWT pattern rewrites their values.
var defaultPatterns = []struct {
	name        string
	regex       string
	replacement string
}{
	{
		name:        PatternBearerToken,
		regex:       `Bearer\s+[A-Za-z0-9\-._~+/]+=*`,
		replacement: "Bearer ***",
	},
	{
		name:        PatternAccessToken,
		regex:       `(access_token=)[^&\s"']+`,
		replacement: "${1}***",
	},
	{
		name:        PatternSessionJWT,
		regex:       `("(?:accessJwt|refreshJwt)"\s*:\s*)"[^"]*"`,
		replacement: `${1}"***"`,
	},
	{
		name:        PatternJWT,
		regex:       `eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*`,
		replacement: "***",
	},
	{
		name:        PatternPassword,
		regex:       `("?(?:app_password|password|passwd)"?\s*[:=]\s*)"?[^\s",}&]+"?`,
		replacement: "${1}***",
	},
}

// sensitiveKeys mark attributes whose values are dropped entirely.
var sensitiveKeys = []string{
	"password", "passwd",
	"secret", "token", "jwt",
	"authorization",
}

// NewRedactor creates a Redactor with the built-in patterns.
func NewRedactor() *Redactor {
	r := &Redactor{}
	for _, p := range defaultPatterns {
		r.patterns = append(r.patterns, redactPattern{
			name:        p.name,
			regex:       regexp.MustCompile(p.regex),
			replacement: p.replacement,
		})
	}
	return r
}

// RedactString scrubs credentials from a string value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// RedactAttr scrubs one attribute. Values under sensitive keys are
// replaced outright; strings and errors are pattern-scrubbed.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	if a.Key != slog.MessageKey && isSensitiveKey(a.Key) {
		if a.Value.Kind() == slog.KindString && a.Value.String() == "" {
			return a
		}
		return slog.String(a.Key, "***")
	}

	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, r.RedactString(a.Value.String()))
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok && err != nil {
			return slog.String(a.Key, r.RedactString(err.Error()))
		}
	}
	return a
}

// isSensitiveKey checks if a key name indicates a credential.
func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}
	return false
}
