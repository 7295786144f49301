// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package filter strips stock empathetic openers from model replies.
//
// Small instruction-tuned models tend to open every answer with the same
// sympathetic phrase. The filter removes a fixed, ordered list of those
// phrases wherever they occur and trims the result.
//
//	cleaned := filter.Clean("I'm really sorry to hear that. Let's talk.")
//	// cleaned == "Let's talk."
package filter

import (
	"regexp"
	"strings"
)

// =============================================================================
// RULES
// =============================================================================

// Rule is a single boilerplate phrase to remove.
type Rule struct {
	// Phrase is the literal phrase, matched case-insensitively.
	Phrase string

	re *regexp.Regexp
}

// DefaultPhrases are the stock openers removed from every reply, in the
// order they are applied.
var DefaultPhrases = []string{
	"I'm really sorry to hear that",
	"I understand how you feel",
	"That must be tough",
	"It sounds like you're going through a lot",
	"You're not alone",
}

// NewRule compiles a rule for phrase. The compiled pattern also swallows an
// optional trailing comma and an optional trailing period, and treats the
// ASCII and typographic apostrophes as equivalent.
func NewRule(phrase string) Rule {
	var sb strings.Builder
	sb.WriteString("(?i)")
	for _, r := range phrase {
		switch r {
		case '\'', '’':
			sb.WriteString("['’]")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString(`(,)?\.?`)
	return Rule{Phrase: phrase, re: regexp.MustCompile(sb.String())}
}

// Apply removes every match of the rule from text.
func (r Rule) Apply(text string) string {
	if r.re == nil {
		return text
	}
	return r.re.ReplaceAllLiteralString(text, "")
}

// Matches reports whether text contains the rule's phrase.
func (r Rule) Matches(text string) bool {
	return r.re != nil && r.re.MatchString(text)
}

// =============================================================================
// FILTER
// =============================================================================

// Filter applies an ordered list of rules. The zero value removes nothing
// and only trims. A Filter is immutable and safe for concurrent use.
type Filter struct {
	rules []Rule
}

// New builds a filter from phrases, applied in the given order.
func New(phrases ...string) *Filter {
	rules := make([]Rule, 0, len(phrases))
	for _, p := range phrases {
		if strings.TrimSpace(p) == "" {
			continue
		}
		rules = append(rules, NewRule(p))
	}
	return &Filter{rules: rules}
}

var defaultFilter = New(DefaultPhrases...)

// Default returns the filter built from DefaultPhrases.
func Default() *Filter {
	return defaultFilter
}

// Clean applies each rule in order to the progressively cleaned text, so a
// later rule may match text that only appears after an earlier removal.
// The result is trimmed of leading and trailing whitespace.
func (f *Filter) Clean(text string) string {
	cleaned := text
	if f != nil {
		for _, rule := range f.rules {
			cleaned = rule.Apply(cleaned)
		}
	}
	return strings.TrimSpace(cleaned)
}

// Rules returns a copy of the filter's rules.
func (f *Filter) Rules() []Rule {
	if f == nil {
		return nil
	}
	out := make([]Rule, len(f.rules))
	copy(out, f.rules)
	return out
}

// Clean runs text through the default filter.
func Clean(text string) string {
	return defaultFilter.Clean(text)
}
