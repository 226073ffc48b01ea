package intercept

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Rule is one literal substring replacement applied to message text.
type Rule struct {
	Old string
	New string
}

// Rewriter applies its rules in configuration order. Order matters: an
// earlier rule's output is visible to later rules.
type Rewriter struct {
	rules []Rule
}

func NewRewriter(rules []Rule) *Rewriter {
	return &Rewriter{rules: rules}
}

// Apply rewrites text and reports whether anything changed.
func (r *Rewriter) Apply(text string) (string, bool) {
	out := text
	for _, rule := range r.rules {
		out = strings.ReplaceAll(out, rule.Old, rule.New)
	}
	return out, out != text
}

// ParseRules reads a "old=new,old=new" specification, preserving the
// configured order. Empty specifications yield no rules.
func ParseRules(spec string) ([]Rule, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, nil
	}

	var rules []Rule
	for _, pair := range strings.Split(spec, ",") {
		old, replacement, found := strings.Cut(pair, "=")
		if !found || old == "" {
			return nil, fmt.Errorf("invalid rewrite rule %q, want old=new", pair)
		}
		rules = append(rules, Rule{Old: old, New: replacement})
	}
	return rules, nil
}

// ParseWords reads a comma separated block-list, preserving order and
// dropping empty entries.
func ParseWords(spec string) []string {
	words := lo.Map(strings.Split(spec, ","), func(word string, _ int) string {
		return strings.TrimSpace(word)
	})
	return lo.Compact(words)
}
