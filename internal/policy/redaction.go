package policy

import "regexp"

type redactionRule struct {
	kind        string
	pattern     *regexp.Regexp
	replacement string
}

// Rule order matters: keys and card numbers are masked before the looser phone pattern sees them.
var redactionRules = []redactionRule{
	{kind: "api_key", pattern: regexp.MustCompile(`\bAIza[0-9A-Za-z_\-]{35}\b`), replacement: "[REDACTED_API_KEY]"},
	{kind: "email", pattern: regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`), replacement: "[REDACTED_EMAIL]"},
	{kind: "card", pattern: regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`), replacement: "[REDACTED_CARD]"},
	{kind: "phone", pattern: regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`), replacement: "[REDACTED_PHONE]"},
}

// Redaction is the outcome of masking one text.
type Redaction struct {
	Text  string
	Kinds []string
}

// Changed reports whether anything was masked.
func (r Redaction) Changed() bool { return len(r.Kinds) > 0 }

// RedactPII masks API keys, email addresses, card numbers and phone numbers.
func RedactPII(input string) Redaction {
	out := Redaction{Text: input}
	for _, rule := range redactionRules {
		next := rule.pattern.ReplaceAllString(out.Text, rule.replacement)
		if next != out.Text {
			out.Kinds = append(out.Kinds, rule.kind)
			out.Text = next
		}
	}
	return out
}
