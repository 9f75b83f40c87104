// Package automation implements the rule-matching and quote-generation engine:
// inbound emails are scored against manager-configured keyword rules, matched
// rules produce draft quotations, and drafts move through a manager approval
// state machine.
package automation

import (
	"strings"

	"handyman_server/core/domain"
)

// MatchResult is the outcome of scoring one email against one rule.
type MatchResult struct {
	// MatchedKeywords are the rule keywords found in the email text,
	// in rule keyword order. Always a subset of rule.Keywords.
	MatchedKeywords []string

	// PassesConditions is false when the rule is inactive, malformed, or any
	// of its conditions (category, sender domain, require-all) fails.
	PassesConditions bool
}

// Score matches a single email against a single rule. Pure function.
//
// Keyword matching is case-insensitive substring containment over
// subject+body, not word-boundary matching: free-text emails routinely embed
// keywords inside larger words and phrases ("outlets", "repainting").
func Score(email *domain.Email, rule *domain.AutomationRule) MatchResult {
	result := MatchResult{}

	text := strings.ToLower(email.Subject + " " + email.Body)
	for _, kw := range rule.Keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(kw)) {
			result.MatchedKeywords = append(result.MatchedKeywords, kw)
		}
	}

	result.PassesConditions = passesConditions(email, rule, len(result.MatchedKeywords))
	return result
}

// passesConditions evaluates the rule's gates against the email.
func passesConditions(email *domain.Email, rule *domain.AutomationRule, matched int) bool {
	if !rule.IsActive {
		return false
	}

	// A malformed rule never fires; it is rejected at CRUD time, but a bad
	// row must not crash or match here either.
	if !rule.IsWellFormed() {
		return false
	}

	if len(rule.Conditions.EmailCategories) > 0 {
		found := false
		for _, cat := range rule.Conditions.EmailCategories {
			if email.Category == cat {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if d := rule.Conditions.SenderDomain; d != "" {
		if !strings.HasSuffix(strings.ToLower(email.FromEmail), strings.ToLower(d)) {
			return false
		}
	}

	if rule.Conditions.RequireAllKeywords && matched < len(rule.Keywords) {
		return false
	}

	return true
}
