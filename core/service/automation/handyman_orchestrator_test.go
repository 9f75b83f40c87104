package automation

import (
	"context"
	"testing"
	"time"

	"handyman_server/core/domain"
)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func sequentialIDs() IDGenerator {
	var next int64
	return func() int64 {
		next++
		return next
	}
}

func TestProcess_EndToEnd(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	orch := NewOrchestrator(fixedClock(now), sequentialIDs())

	email := testEmail(
		"Need electrical work",
		"Hi, I need to install 3 new electrical outlets in my kitchen. Can you provide a quote? Thanks, John",
		domain.CategoryQuote, 0.85,
	)
	rules := []*domain.AutomationRule{
		testRule("rule_electrical", []string{"electrical", "outlet"}, func(r *domain.AutomationRule) {
			r.Conditions.MinConfidence = 75
		}),
	}
	catalog := testCatalog(testService(1, "Electrical Outlet Installation", "electrical", 85))

	pending, err := orch.Process(context.Background(), email, rules, catalog)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if pending == nil {
		t.Fatal("Process() = nil, want a pending quote")
	}

	if pending.ID != 1 {
		t.Errorf("ID = %d, want 1 from injected generator", pending.ID)
	}
	if pending.EmailID != email.ID || pending.RuleID != rules[0].ID {
		t.Errorf("back-references = (%d, %d), want (%d, %d)",
			pending.EmailID, pending.RuleID, email.ID, rules[0].ID)
	}
	if pending.Status != domain.QuotePending {
		t.Errorf("Status = %q, want pending", pending.Status)
	}
	if !pending.ProcessedAt.Equal(now) {
		t.Errorf("ProcessedAt = %v, want injected clock %v", pending.ProcessedAt, now)
	}

	analysis := pending.Analysis
	if analysis == nil {
		t.Fatal("Analysis is nil")
	}
	if analysis.Confidence < 75 {
		t.Errorf("Confidence = %d, want >= rule floor 75", analysis.Confidence)
	}
	if len(analysis.DetectedKeywords) != 2 {
		t.Errorf("DetectedKeywords = %v, want both rule keywords", analysis.DetectedKeywords)
	}
	if analysis.ExtractedInfo.ClientName == "" {
		t.Error("ClientName should be derived from the sender")
	}

	quote := pending.Quote
	if quote == nil {
		t.Fatal("Quote is nil")
	}
	if len(quote.Items) != 1 {
		t.Fatalf("len(Items) = %d, want 1", len(quote.Items))
	}
	if quote.Items[0].Quantity != 3 {
		t.Errorf("Quantity = %d, want 3 extracted from the email text", quote.Items[0].Quantity)
	}
	if quote.Total != 3*85.0 {
		t.Errorf("Total = %v, want %v", quote.Total, 3*85.0)
	}
}

func TestProcess_NoQuoteOutcomes(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	orch := NewOrchestrator(fixedClock(now), sequentialIDs())
	catalog := testCatalog(testService(1, "Electrical Outlet Installation", "electrical", 85))

	tests := []struct {
		name    string
		email   *domain.Email
		rules   []*domain.AutomationRule
		catalog domain.ServiceCatalog
	}{
		{
			name:    "no rules configured",
			email:   testEmail("Outlets", "electrical outlet question", domain.CategoryQuote, 0.9),
			rules:   nil,
			catalog: catalog,
		},
		{
			name:  "no keyword overlap",
			email: testEmail("Roof", "My roof is leaking", domain.CategoryQuote, 0.9),
			rules: []*domain.AutomationRule{
				testRule("rule_electrical", []string{"electrical", "outlet"}),
			},
			catalog: catalog,
		},
		{
			name:  "winning rule does not generate quotes",
			email: testEmail("Outlets", "electrical outlet question", domain.CategoryQuote, 0.9),
			rules: []*domain.AutomationRule{
				testRule("rule_notify_only", []string{"electrical"}, func(r *domain.AutomationRule) {
					r.Actions = domain.RuleActions{NotifyManager: true}
				}),
			},
			catalog: catalog,
		},
		{
			name:  "no actionable service in catalog",
			email: testEmail("Outlets", "electrical outlet question", domain.CategoryQuote, 0.9),
			rules: []*domain.AutomationRule{
				testRule("rule_electrical", []string{"electrical"}, func(r *domain.AutomationRule) {
					r.ServiceIDs = []int64{404}
				}),
			},
			catalog: catalog,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pending, err := orch.Process(context.Background(), tt.email, tt.rules, tt.catalog)
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if pending != nil {
				t.Errorf("Process() = %+v, want nil", pending)
			}
		})
	}
}

func TestProcess_CancelledContext(t *testing.T) {
	orch := NewOrchestrator(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	email := testEmail("Outlets", "electrical outlet question", domain.CategoryQuote, 0.9)
	rules := []*domain.AutomationRule{testRule("rule_electrical", []string{"electrical"})}

	_, err := orch.Process(ctx, email, rules, testCatalog())
	if err == nil {
		t.Error("Process() with cancelled context should fail")
	}
}
