package automation

import (
	"math"

	"handyman_server/core/domain"
)

// Selection is the winning rule for an email plus the evidence behind it.
type Selection struct {
	Rule            *domain.AutomationRule
	MatchedKeywords []string
	Confidence      int // 0 - 100
}

// SelectRule picks the best-matching active rule for an email, or nil when
// no rule survives filtering. Nil is a normal "no automation applies" outcome.
//
// Confidence policy: the keyword-ratio score round(100*matched/total) is
// blended with the upstream categorizer's email confidence by taking the
// higher of the two. Either signal alone can undercount true relevance; the
// max keeps the gate permissive without inventing certainty. The blended
// value still has to clear the rule's own MinConfidence floor.
func SelectRule(email *domain.Email, rules []*domain.AutomationRule) *Selection {
	var best *Selection

	for _, rule := range rules {
		match := Score(email, rule)
		if !match.PassesConditions || len(match.MatchedKeywords) == 0 {
			continue
		}

		confidence := blendConfidence(email, rule, len(match.MatchedKeywords))
		if confidence < rule.Conditions.MinConfidence {
			continue
		}

		cand := &Selection{
			Rule:            rule,
			MatchedKeywords: match.MatchedKeywords,
			Confidence:      confidence,
		}
		if best == nil || better(cand, best) {
			best = cand
		}
	}

	return best
}

// blendConfidence computes the reported 0-100 confidence for a candidate.
func blendConfidence(email *domain.Email, rule *domain.AutomationRule, matched int) int {
	ruleScore := int(math.Round(100 * float64(matched) / float64(len(rule.Keywords))))
	emailScore := int(math.Round(email.Confidence * 100))
	if emailScore > ruleScore {
		return clampScore(emailScore)
	}
	return clampScore(ruleScore)
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// better reports whether candidate a beats current best b. Ties resolve by
// confidence, then matched keyword count, then earliest CreatedAt, which
// keeps the ordering deterministic.
func better(a, b *Selection) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if len(a.MatchedKeywords) != len(b.MatchedKeywords) {
		return len(a.MatchedKeywords) > len(b.MatchedKeywords)
	}
	return a.Rule.CreatedAt.Before(b.Rule.CreatedAt)
}
