// Package templates normalizes free-text log messages into shape keys.
// "User 123 logged in from 10.0.0.5" and "User 456 logged in from 10.2.0.9"
// collapse to the same template, which the baseline and detectors use as
// their grouping key.
package templates

import "regexp"

// Substitutions run in declaration order. The specific patterns (uuid,
// timestamp, ip, hex) must run before the generic number pass: their digit
// groups have to be matched on the original sequences before {num} consumes
// them.
var substitutions = []struct {
	pattern     *regexp.Regexp
	placeholder string
}{
	{regexp.MustCompile(`\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\b`), "{uuid}"},
	{regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`), "{timestamp}"},
	{regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`), "{ip}"},
	{regexp.MustCompile(`0x[0-9a-fA-F]+`), "{hex}"},
	{regexp.MustCompile(`\b\d+\b`), "{num}"},
}

// Extract returns the canonical template for a message. Deterministic,
// stateless, and idempotent: extracting an already-extracted template
// returns it unchanged.
func Extract(message string) string {
	template := message
	for _, sub := range substitutions {
		template = sub.pattern.ReplaceAllString(template, sub.placeholder)
	}
	return template
}
