package automation

import (
	"errors"
	"testing"
	"time"

	"handyman_server/core/domain"
)

func testCatalog(services ...*domain.Service) domain.CatalogIndex {
	return domain.NewCatalogIndex(services)
}

func testService(id int64, name, category string, price float64) *domain.Service {
	return &domain.Service{
		ID:           id,
		Name:         name,
		Category:     category,
		DefaultPrice: price,
		Unit:         domain.UnitPiece,
		IsActive:     true,
	}
}

func TestBuildQuote_LineItems(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	catalog := testCatalog(
		testService(1, "Electrical Outlet Installation", "electrical", 85),
		testService(2, "Light Fixture Replacement", "electrical", 120),
	)
	rule := testRule("rule_electrical", []string{"electrical", "outlet"}, func(r *domain.AutomationRule) {
		r.ServiceIDs = []int64{1, 2}
	})
	email := testEmail(
		"Need electrical work",
		"Hi, I need to install 3 new electrical outlets in my kitchen.",
		domain.CategoryQuote, 0.9,
	)

	quote, matched, err := BuildQuote(email, rule, domain.ExtractedInfo{ClientName: "Maria"}, catalog, now)
	if err != nil {
		t.Fatalf("BuildQuote() error = %v", err)
	}

	if len(quote.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(quote.Items))
	}

	// The outlet service overlaps both keywords so it ranks first.
	if matched[0].ServiceID != 1 {
		t.Errorf("top matched service = %d, want 1", matched[0].ServiceID)
	}
	if matched[0].RelevanceScore <= matched[1].RelevanceScore {
		t.Errorf("relevance not descending: %v then %v",
			matched[0].RelevanceScore, matched[1].RelevanceScore)
	}

	outlet := quote.Items[0]
	if outlet.Quantity != 3 {
		t.Errorf("outlet Quantity = %d, want 3 (from \"3 new electrical outlets\")", outlet.Quantity)
	}
	if outlet.Subtotal != 3*85.0 {
		t.Errorf("outlet Subtotal = %v, want %v", outlet.Subtotal, 3*85.0)
	}

	fixture := quote.Items[1]
	if fixture.Quantity != 1 {
		t.Errorf("fixture Quantity = %d, want default 1", fixture.Quantity)
	}

	if quote.Subtotal != 3*85.0+120 {
		t.Errorf("Subtotal = %v, want %v", quote.Subtotal, 3*85.0+120)
	}
	if quote.Status != "draft" {
		t.Errorf("Status = %q, want draft", quote.Status)
	}
	if quote.ClientEmail != email.FromEmail {
		t.Errorf("ClientEmail = %q, want %q", quote.ClientEmail, email.FromEmail)
	}
	if !quote.ValidUntil.Equal(now.AddDate(0, 0, QuoteValidityDays)) {
		t.Errorf("ValidUntil = %v, want now + %d days", quote.ValidUntil, QuoteValidityDays)
	}
}

func TestBuildQuote_VolumeDiscount(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	email := testEmail("Fence", "Please paint my fence", domain.CategoryQuote, 0.8)
	info := domain.ExtractedInfo{}

	tests := []struct {
		name         string
		price        float64
		wantDiscount float64
		wantTotal    float64
	}{
		{"below threshold no discount", 999, 0, 999},
		{"at threshold gets 10 percent", 1000, 100, 900},
		{"above threshold gets 10 percent", 2500, 250, 2250},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := testCatalog(testService(1, "Fence Painting", "painting", tt.price))
			rule := testRule("rule_paint", []string{"paint"})

			quote, _, err := BuildQuote(email, rule, info, catalog, now)
			if err != nil {
				t.Fatalf("BuildQuote() error = %v", err)
			}
			if quote.Discount != tt.wantDiscount {
				t.Errorf("Discount = %v, want %v", quote.Discount, tt.wantDiscount)
			}
			if quote.Total != tt.wantTotal {
				t.Errorf("Total = %v, want %v", quote.Total, tt.wantTotal)
			}
		})
	}
}

func TestBuildQuote_SkipsUnresolvableServices(t *testing.T) {
	now := time.Now()
	email := testEmail("Repair", "Door repair needed", domain.CategoryQuote, 0.8)

	inactive := testService(2, "Retired Service", "misc", 50)
	inactive.IsActive = false
	catalog := testCatalog(testService(1, "Door Repair", "carpentry", 95), inactive)

	// Rule references one live, one inactive and one missing service.
	rule := testRule("rule_door", []string{"door"}, func(r *domain.AutomationRule) {
		r.ServiceIDs = []int64{1, 2, 999}
	})

	quote, matched, err := BuildQuote(email, rule, domain.ExtractedInfo{}, catalog, now)
	if err != nil {
		t.Fatalf("BuildQuote() error = %v", err)
	}
	if len(matched) != 1 || matched[0].ServiceID != 1 {
		t.Fatalf("matched = %v, want only service 1", matched)
	}
	if len(quote.Items) != 1 {
		t.Errorf("len(Items) = %d, want 1", len(quote.Items))
	}
}

func TestBuildQuote_NoActionableService(t *testing.T) {
	now := time.Now()
	email := testEmail("Repair", "Door repair needed", domain.CategoryQuote, 0.8)
	rule := testRule("rule_door", []string{"door"}, func(r *domain.AutomationRule) {
		r.ServiceIDs = []int64{7, 8}
	})

	_, _, err := BuildQuote(email, rule, domain.ExtractedInfo{}, testCatalog(), now)
	if !errors.Is(err, ErrNoActionableService) {
		t.Errorf("error = %v, want ErrNoActionableService", err)
	}
}

func TestRelevance(t *testing.T) {
	outlet := testService(1, "Electrical Outlet Installation", "electrical", 85)
	plumbing := testService(2, "Pipe Repair", "plumbing", 110)

	tests := []struct {
		name     string
		keywords []string
		svc      *domain.Service
		want     float64
	}{
		{"full overlap", []string{"electrical", "outlet"}, outlet, 1.0},
		{"half overlap", []string{"electrical", "kitchen"}, outlet, 0.8},
		{"no overlap floors at base", []string{"roof", "gutter"}, plumbing, relevanceBase},
		{"empty keywords floor at base", nil, outlet, relevanceBase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := relevance(tt.keywords, tt.svc)
			if got != tt.want {
				t.Errorf("relevance(%v, %s) = %v, want %v", tt.keywords, tt.svc.Name, got, tt.want)
			}
		})
	}
}

func TestExtractQuantity(t *testing.T) {
	outlet := testService(1, "Electrical Outlet Installation", "electrical", 85)

	tests := []struct {
		name string
		text string
		want int
	}{
		{"number near token", "I need to install 3 new electrical outlets in my kitchen", 3},
		{"number directly before token", "replace 2 outlets please", 2},
		{"no number defaults to 1", "my outlet stopped working", 1},
		{"number too far from token", "I have 4 rooms and the hallway also needs an outlet", 1},
		{"unrelated number ignored", "apartment 12B, I need a new light switch", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractQuantity(tt.text, outlet)
			if got != tt.want {
				t.Errorf("extractQuantity(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}
