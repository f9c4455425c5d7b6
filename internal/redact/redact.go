// Package redact applies a fixed, ordered set of regular-expression rules
// to text, replacing each match with a stable "__NAME_REDACTED__" sentinel.
// It is the component described in spec.md §4.1; the default rule set
// covers the named pattern families spec.md calls out (API keys, private
// keys, AWS credentials, emails, and similar secrets), described there
// as non-exhaustive.
package redact

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule is one named pattern in the ruleset. Name must be a lowercase
// snake_case identifier; the sentinel is derived from it.
type Rule struct {
	Name    string
	Pattern string
}

// DefaultRules is the built-in ordered rule set. Order matters: later
// rules see the output of earlier ones (spec.md §4.1, "each rule globally
// over the current result").
var DefaultRules = []Rule{
	{"aws_access_key", `AKIA[0-9A-Z]{16}`},
	{"aws_secret_key", `(?i)aws.{0,20}secret.{0,20}['"][0-9a-zA-Z/+=]{40}['"]`},
	{"bearer_token", `(?i)bearer [a-z0-9._-]{20,}`},
	{"api_key", `(?i)api[_-]?key['"]?\s*[:=]\s*['"]?[a-z0-9]{20,}`},
	{"github_token", `gh[pousr]_[a-zA-Z0-9]{36}`},
	{"slack_token", `xox[baprs]-[0-9a-zA-Z-]{10,}`},
	{"password", `(?i)password['"]?\s*[:=]\s*['"]?[^\s'"]{6,}`},
	{"generic_secret", `(?i)(?:secret|token)[_-]?(?:key)?['"]?\s*[:=]\s*['"]?[a-zA-Z0-9]{12,}`},
	{"database_url", `(?i)(?:postgres(?:ql)?|mysql|mongodb)://[^\s]+`},
	{"private_key", `-----BEGIN (?:RSA |EC |OPENSSH )?PRIVATE KEY-----`},
	{"jwt", `eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`},
	{"ipv4", `\b(?:[0-9]{1,3}\.){3}[0-9]{1,3}\b`},
	{"email", `[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`},
}

type compiledRule struct {
	name        string
	re          *regexp.Regexp
	replacement string
}

// Redactor holds a compiled, ordered ruleset.
type Redactor struct {
	rules []compiledRule
}

// New builds a Redactor from DefaultRules, applying overrides: a rule named
// in overrides with a non-empty value has its pattern replaced; a rule
// named in overrides with an empty value is dropped entirely (spec.md
// §4.1, "empty override string removes the rule"). A rule whose override
// pattern fails to compile is dropped rather than failing the whole
// ruleset (spec.md §4.7.7).
func New(overrides map[string]string) *Redactor {
	var rules []compiledRule
	for _, rule := range DefaultRules {
		pattern := rule.Pattern
		if override, ok := overrides[rule.Name]; ok {
			if strings.TrimSpace(override) == "" {
				continue
			}
			pattern = override
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		rules = append(rules, compiledRule{
			name:        rule.Name,
			re:          re,
			replacement: sentinel(rule.Name),
		})
	}
	return &Redactor{rules: rules}
}

func sentinel(name string) string {
	return fmt.Sprintf("__%s_REDACTED__", strings.ToUpper(name))
}

// Redact applies every compiled rule to input in order, returning the
// fully redacted string. It is idempotent: Redact(Redact(s)) == Redact(s),
// because no sentinel text can itself match a triggering pattern.
func (r *Redactor) Redact(input string) string {
	out := input
	for _, rule := range r.rules {
		out = rule.re.ReplaceAllString(out, rule.replacement)
	}
	return out
}

// RuleNames returns the names of the rules actually compiled into r, in
// application order.
func (r *Redactor) RuleNames() []string {
	names := make([]string, len(r.rules))
	for i, rule := range r.rules {
		names[i] = rule.name
	}
	return names
}
