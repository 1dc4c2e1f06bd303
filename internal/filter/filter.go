// Package filter rejects answer text that steers customers off-platform.
//
// The marketplace forbids sellers from pointing buyers at external sites or
// messaging channels inside Q&A answers. Every outbound answer, whether
// generated, templated, or typed by an operator, must pass this check before
// it is dispatched.
package filter

import (
	"fmt"
	"regexp"
)

// forbiddenPatterns covers URL schemes, bare domain suffixes, generic
// redirection vocabulary, and named external channels. All matching is
// case-insensitive.
var forbiddenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)http[s]?://`),
	regexp.MustCompile(`(?i)\bwww\.`),
	regexp.MustCompile(`(?i)\.com\b`),
	regexp.MustCompile(`(?i)\.net\b`),
	regexp.MustCompile(`(?i)\.org\b`),
	regexp.MustCompile(`(?i)\blink\b`),
	regexp.MustCompile(`(?i)\bsite\b`),
	regexp.MustCompile(`(?i)\bweb\w*\b`),
	regexp.MustCompile(`(?i)\binstagram\b`),
	regexp.MustCompile(`(?i)\bwhats?app\b`),
	regexp.MustCompile(`(?i)\bdm\b`),
	regexp.MustCompile(`(?i)\btelegram\b`),
}

// Check returns whether text is safe to send. When it is not, reason names
// the pattern that matched; reason is empty on pass.
func Check(text string) (ok bool, reason string) {
	for _, pat := range forbiddenPatterns {
		if pat.MatchString(text) {
			return false, fmt.Sprintf("answer contains off-platform redirection (%s)", pat.String())
		}
	}
	return true, ""
}
