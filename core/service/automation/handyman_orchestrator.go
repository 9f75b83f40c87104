package automation

import (
	"context"
	"time"

	"handyman_server/core/domain"
)

// =============================================================================
// Automation Orchestrator
// =============================================================================

// Clock returns the current time. Injected so runs are reproducible in tests.
type Clock func() time.Time

// IDGenerator produces unique pending quote IDs.
type IDGenerator func() int64

// Orchestrator is the automation entry point: it takes one email plus the
// active rule set and service catalog, runs selection, extraction and quote
// building, and emits a PendingQuote in the pending state.
//
// Stateless per call; safe to invoke concurrently for different emails.
// Callers own idempotency (skip emails already marked processed).
type Orchestrator struct {
	clock  Clock
	nextID IDGenerator
}

// NewOrchestrator creates an orchestrator with injected time and ID
// capabilities. Nil arguments fall back to wall clock and a zero generator;
// production wiring supplies the snowflake generator.
func NewOrchestrator(clock Clock, nextID IDGenerator) *Orchestrator {
	if clock == nil {
		clock = time.Now
	}
	if nextID == nil {
		nextID = func() int64 { return 0 }
	}
	return &Orchestrator{clock: clock, nextID: nextID}
}

// Process runs the full automation pipeline for one email.
//
// Returns (nil, nil) when automation legitimately does not apply: no rule
// matched, confidence below the rule's floor, the winning rule does not
// generate quotes, or none of its services resolve in the catalog. From the
// manager's perspective this is indistinguishable from "no automation
// configured", which is intentional.
func (o *Orchestrator) Process(ctx context.Context, email *domain.Email, rules []*domain.AutomationRule, catalog domain.ServiceCatalog) (*domain.PendingQuote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	selection := SelectRule(email, rules)
	if selection == nil {
		return nil, nil
	}

	info := Extract(email)

	// NotifyManager and AutoSend are signals for external collaborators; the
	// orchestrator only ever produces a quote when the rule asks for one.
	if !selection.Rule.Actions.GenerateQuote {
		return nil, nil
	}

	now := o.clock()
	quote, matchedServices, err := BuildQuote(email, selection.Rule, info, catalog, now)
	if err != nil {
		// Zero resolvable services: the rule is non-actionable for this
		// email; fall back to manual handling rather than emit an empty quote.
		return nil, nil
	}

	analysis := &domain.AIAnalysis{
		DetectedKeywords: selection.MatchedKeywords,
		Confidence:       selection.Confidence,
		ExtractedInfo:    info,
		MatchedServices:  matchedServices,
	}

	pending := &domain.PendingQuote{
		ID:          o.nextID(),
		UserID:      email.UserID,
		EmailID:     email.ID,
		RuleID:      selection.Rule.ID,
		Quote:       quote,
		Analysis:    analysis,
		Status:      domain.QuotePending,
		ProcessedAt: now,
	}

	return pending, nil
}
