// Package redact scrubs secrets from task text before it reaches run history
// rows, cache telemetry, and log lines. Patterns are compiled once at package
// init; redaction is pure string work and safe for concurrent use.
package redact

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// RedactedTask replaces the whole task text when sensitive data is disabled.
const RedactedTask = "[REDACTED]"

// DefaultPreviewLength bounds task previews in history rows and telemetry.
const DefaultPreviewLength = 120

// pattern pairs a compiled regex with its replacement.
type pattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

var builtinPatterns = []pattern{
	{
		name:        "api_key",
		regex:       regexp.MustCompile(`(?i)(api[_-]?key|apikey)["'\s:=]+[A-Za-z0-9_\-]{16,}`),
		replacement: "$1=[MASKED_API_KEY]",
	},
	{
		name:        "bearer_token",
		regex:       regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9_\-.~+/]{16,}=*`),
		replacement: "Bearer [MASKED_TOKEN]",
	},
	{
		name:        "password",
		regex:       regexp.MustCompile(`(?i)(password|passwd|pwd)["'\s:=]+\S+`),
		replacement: "$1=[MASKED_PASSWORD]",
	},
	{
		name:        "private_key",
		regex:       regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----[\s\S]*?-----END [A-Z ]*PRIVATE KEY-----`),
		replacement: "[MASKED_PRIVATE_KEY]",
	},
}

// Scrub applies every builtin pattern to text.
func Scrub(text string) string {
	for _, p := range builtinPatterns {
		text = p.regex.ReplaceAllString(text, p.replacement)
	}
	return text
}

// Preview renders task text for audit rows and telemetry. With sensitive data
// disabled the text is replaced outright; otherwise it is scrubbed and
// truncated to maxLen runes.
func Preview(task string, sensitiveEnabled bool, maxLen int) string {
	if !sensitiveEnabled {
		return RedactedTask
	}
	if maxLen <= 0 {
		maxLen = DefaultPreviewLength
	}
	task = strings.TrimSpace(Scrub(task))
	if utf8.RuneCountInString(task) <= maxLen {
		return task
	}
	runes := []rune(task)
	return string(runes[:maxLen]) + "..."
}
