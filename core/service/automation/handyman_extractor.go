package automation

import (
	"regexp"
	"strconv"
	"strings"

	"handyman_server/core/domain"
)

// =============================================================================
// Information Extractor
// =============================================================================

// Urgency signal terms. High terms win over low terms; medium is the
// fallback for any email that matched an automation rule at all.
var (
	highUrgencyTerms = []string{
		"urgent", "asap", "emergency", "immediately", "right away",
		"as soon as possible", "not working", "broken", "leaking", "flooding",
	}
	lowUrgencyTerms = []string{
		"no rush", "no hurry", "not urgent", "whenever", "at your convenience",
		"just wondering", "just curious", "sometime", "planning ahead",
	}
)

var (
	// $1,200.50 / €80 / £45
	currencyAmountRe = regexp.MustCompile(`[$€£]\s?(\d[\d,]*(?:\.\d+)?)`)
	// "budget of 500", "500 budget", "around 500 dollars"
	budgetContextRe = regexp.MustCompile(`(?i)budget\D{0,12}(\d[\d,]*(?:\.\d+)?)|(\d[\d,]*(?:\.\d+)?)\s*(?:dollars|usd|eur|euros?)\b|(\d[\d,]*(?:\.\d+)?)\D{0,12}budget`)
	// explicit dates: 12/31, 2026-03-15, March 15, 15th of March
	explicitDateRe = regexp.MustCompile(`(?i)\b(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}(?:/\d{2,4})?|(?:january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2}(?:st|nd|rd|th)?|\d{1,2}(?:st|nd|rd|th)?\s+of\s+(?:january|february|march|april|may|june|july|august|september|october|november|december))\b`)
	// relative/day expressions
	relativeDateRe = regexp.MustCompile(`(?i)\b(asap|today|tomorrow|tonight|this week|next week|this weekend|next month|monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)

	whitespaceRe = regexp.MustCompile(`\s+`)
)

// descriptionLimit caps the synthesized description length.
const descriptionLimit = 150

// Extract pulls structured fields out of an email's free text. It never
// fails on malformed input; every field is optional and absent-on-failure.
func Extract(email *domain.Email) domain.ExtractedInfo {
	info := domain.ExtractedInfo{
		ClientName:  extractClientName(email),
		Urgency:     extractUrgency(email),
		Description: summarize(email.Body),
	}

	text := email.Subject + " " + email.Body
	if budget, ok := extractBudget(text); ok {
		info.EstimatedBudget = &budget
	}
	info.PreferredDate = extractPreferredDate(text)

	return info
}

// extractClientName derives a human name from the sender display name when
// present, else from the local part of the address:
// "john.doe@example.com" -> "John Doe".
func extractClientName(email *domain.Email) string {
	if email.FromName != nil {
		if name := strings.TrimSpace(*email.FromName); name != "" {
			return name
		}
	}

	local := email.FromEmail
	if idx := strings.Index(local, "@"); idx >= 0 {
		local = local[:idx]
	}
	if local == "" {
		return ""
	}

	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	for i, p := range parts {
		parts[i] = titleWord(p)
	}
	return strings.Join(parts, " ")
}

// titleWord uppercases the first letter and lowercases the rest.
func titleWord(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// extractUrgency is a three-bucket keyword classifier with medium as the
// fallback. Low requires explicit calm phrasing; high wins any overlap.
func extractUrgency(email *domain.Email) domain.Urgency {
	text := strings.ToLower(email.Subject + " " + email.Body)

	for _, term := range highUrgencyTerms {
		if strings.Contains(text, term) {
			return domain.UrgencyHigh
		}
	}
	for _, term := range lowUrgencyTerms {
		if strings.Contains(text, term) {
			return domain.UrgencyLow
		}
	}
	return domain.UrgencyMedium
}

// extractBudget finds the first monetary-looking number: a currency-symbol
// amount, or a bare number with budget/price context.
func extractBudget(text string) (float64, bool) {
	if m := currencyAmountRe.FindStringSubmatch(text); m != nil {
		return parseAmount(m[1])
	}
	if m := budgetContextRe.FindStringSubmatch(text); m != nil {
		for _, g := range m[1:] {
			if g != "" {
				return parseAmount(g)
			}
		}
	}
	return 0, false
}

func parseAmount(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// extractPreferredDate returns the literal date-like substring if present.
// Explicit dates win over relative expressions ("ASAP", "next week").
func extractPreferredDate(text string) string {
	if m := explicitDateRe.FindString(text); m != "" {
		return m
	}
	if m := relativeDateRe.FindString(text); m != "" {
		return m
	}
	return ""
}

// summarize produces a short cleaned description from the body: collapsed
// whitespace, truncated at a word boundary near the limit.
func summarize(body string) string {
	cleaned := strings.TrimSpace(whitespaceRe.ReplaceAllString(body, " "))
	if len(cleaned) <= descriptionLimit {
		return cleaned
	}

	cut := cleaned[:descriptionLimit]
	if idx := strings.LastIndex(cut, " "); idx > descriptionLimit/2 {
		cut = cut[:idx]
	}
	return cut + "..."
}
