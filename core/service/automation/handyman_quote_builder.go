package automation

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"handyman_server/core/domain"
)

// =============================================================================
// Quote Builder
// =============================================================================

const (
	// QuoteValidityDays is the fixed validity window for generated quotes.
	QuoteValidityDays = 30

	// Volume discount: 10% off once the subtotal reaches the threshold.
	// Deterministic; documented here and in the quote item notes.
	volumeDiscountThreshold = 1000.0
	volumeDiscountRate      = 0.10

	// relevanceBase is the floor relevance for a service the rule explicitly
	// links; keyword overlap with the service text fills the remaining range.
	relevanceBase = 0.6
)

// ErrNoActionableService means every service the rule references is missing
// or inactive in the catalog. The orchestrator treats it as a non-fatal
// "fall back to manual handling" outcome, not a failure.
var ErrNoActionableService = errors.New("no actionable service for rule")

// BuildQuote produces a draft quotation for a matched (email, rule) pair.
//
// Relevance policy: every service the rule explicitly lists starts at
// relevanceBase; the proportion of rule keywords appearing in the service's
// name/category/description fills the rest, so a rule's most on-topic
// service ranks first. Ties resolve by ascending service ID.
func BuildQuote(email *domain.Email, rule *domain.AutomationRule, info domain.ExtractedInfo, catalog domain.ServiceCatalog, now time.Time) (*domain.Quotation, []domain.MatchedService, error) {
	var matched []domain.MatchedService
	resolved := make(map[int64]*domain.Service)

	for _, id := range rule.ServiceIDs {
		svc, err := catalog.GetByID(id)
		if err != nil || svc == nil {
			// Missing catalog entries are skipped, not fatal.
			continue
		}
		resolved[svc.ID] = svc
		matched = append(matched, domain.MatchedService{
			ServiceID:      svc.ID,
			ServiceName:    svc.Name,
			RelevanceScore: relevance(rule.Keywords, svc),
		})
	}

	if len(matched) == 0 {
		return nil, nil, ErrNoActionableService
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].RelevanceScore != matched[j].RelevanceScore {
			return matched[i].RelevanceScore > matched[j].RelevanceScore
		}
		return matched[i].ServiceID < matched[j].ServiceID
	})

	text := email.Subject + " " + email.Body
	items := make([]domain.QuoteItem, 0, len(matched))
	subtotal := 0.0

	for _, ms := range matched {
		svc := resolved[ms.ServiceID]
		qty := extractQuantity(text, svc)
		item := domain.QuoteItem{
			ServiceID:   svc.ID,
			ServiceName: svc.Name,
			Quantity:    qty,
			UnitPrice:   svc.DefaultPrice,
			Subtotal:    float64(qty) * svc.DefaultPrice,
			Notes:       fmt.Sprintf("Auto-generated from rule %q", rule.Name),
		}
		items = append(items, item)
		subtotal += item.Subtotal
	}

	discount := 0.0
	if subtotal >= volumeDiscountThreshold {
		discount = subtotal * volumeDiscountRate
	}
	total := subtotal - discount
	if total < 0 {
		total = 0
	}

	quote := &domain.Quotation{
		ClientName:  info.ClientName,
		ClientEmail: email.FromEmail,
		Items:       items,
		Subtotal:    subtotal,
		Discount:    discount,
		Total:       total,
		Status:      "draft",
		ValidUntil:  now.AddDate(0, 0, QuoteValidityDays),
		CreatedAt:   now,
	}

	return quote, matched, nil
}

// relevance scores one catalog service against the rule's keyword list.
func relevance(keywords []string, svc *domain.Service) float64 {
	if len(keywords) == 0 {
		return relevanceBase
	}

	svcText := strings.ToLower(svc.Name + " " + svc.Category + " " + svc.Description)
	overlap := 0
	for _, kw := range keywords {
		if kw != "" && strings.Contains(svcText, strings.ToLower(kw)) {
			overlap++
		}
	}
	return relevanceBase + (1-relevanceBase)*float64(overlap)/float64(len(keywords))
}

// extractQuantity looks for a count adjacent to a service-name token in the
// email text ("install 3 new electrical outlets" -> 3 for the outlet
// service). Defaults to 1 when nothing extractable.
func extractQuantity(text string, svc *domain.Service) int {
	lower := strings.ToLower(text)

	for _, token := range serviceTokens(svc.Name) {
		// A number followed by up to a few words then the token.
		pattern, err := regexp.Compile(`\b(\d{1,3})\b(?:\s+\w+){0,3}\s+` + regexp.QuoteMeta(token))
		if err != nil {
			continue
		}
		if m := pattern.FindStringSubmatch(lower); m != nil {
			if qty, err := strconv.Atoi(m[1]); err == nil && qty > 0 {
				return qty
			}
		}
	}
	return 1
}

// serviceTokens returns the meaningful lowercase tokens of a service name,
// trimmed of a trailing plural "s" so "outlets" matches "Outlet".
func serviceTokens(name string) []string {
	var tokens []string
	for _, tok := range strings.Fields(strings.ToLower(name)) {
		tok = strings.TrimSuffix(tok, "s")
		if len(tok) >= 4 {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}
