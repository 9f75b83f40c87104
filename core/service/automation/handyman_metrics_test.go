package automation

import (
	"testing"
	"time"

	"handyman_server/core/domain"
)

func metricsQuote(status domain.QuoteStatus, confidence int, processedAt time.Time) *domain.PendingQuote {
	return &domain.PendingQuote{
		Status:      status,
		Analysis:    &domain.AIAnalysis{Confidence: confidence},
		ProcessedAt: processedAt,
	}
}

func TestAggregate_Empty(t *testing.T) {
	m := Aggregate(nil, MonthlyPeriod)

	if m.QuotesGenerated != 0 {
		t.Errorf("QuotesGenerated = %d, want 0", m.QuotesGenerated)
	}
	if m.ConversionRate != 0 {
		t.Errorf("ConversionRate = %v, want 0 for empty population", m.ConversionRate)
	}
	if m.AverageConfidence != 0 {
		t.Errorf("AverageConfidence = %v, want 0", m.AverageConfidence)
	}
	if m.PeriodStats != nil {
		t.Errorf("PeriodStats = %v, want nil", m.PeriodStats)
	}
}

func TestAggregate_Counts(t *testing.T) {
	mar := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	quotes := []*domain.PendingQuote{
		metricsQuote(domain.QuotePending, 80, mar),
		metricsQuote(domain.QuoteApproved, 90, mar),
		metricsQuote(domain.QuoteRejected, 60, mar),
		metricsQuote(domain.QuoteSent, 70, mar),
	}

	m := Aggregate(quotes, nil)

	if m.QuotesGenerated != 4 {
		t.Errorf("QuotesGenerated = %d, want 4", m.QuotesGenerated)
	}
	// A sent quote was necessarily approved first, so it counts in both.
	if m.QuotesApproved != 2 {
		t.Errorf("QuotesApproved = %d, want 2", m.QuotesApproved)
	}
	if m.QuotesRejected != 1 {
		t.Errorf("QuotesRejected = %d, want 1", m.QuotesRejected)
	}
	if m.QuotesSent != 1 {
		t.Errorf("QuotesSent = %d, want 1", m.QuotesSent)
	}
	if m.AverageConfidence != 75.0 {
		t.Errorf("AverageConfidence = %v, want 75.0", m.AverageConfidence)
	}
	if m.ConversionRate != 50.0 {
		t.Errorf("ConversionRate = %v, want 50.0", m.ConversionRate)
	}
}

func TestAggregate_ConversionRateRounding(t *testing.T) {
	// 38 approved-or-sent out of 45 generated rounds to one decimal: 84.4.
	mar := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	var quotes []*domain.PendingQuote
	for i := 0; i < 20; i++ {
		quotes = append(quotes, metricsQuote(domain.QuoteApproved, 80, mar))
	}
	for i := 0; i < 18; i++ {
		quotes = append(quotes, metricsQuote(domain.QuoteSent, 80, mar))
	}
	for i := 0; i < 7; i++ {
		quotes = append(quotes, metricsQuote(domain.QuoteRejected, 80, mar))
	}

	m := Aggregate(quotes, nil)

	if m.QuotesGenerated != 45 || m.QuotesApproved != 38 {
		t.Fatalf("population = %d generated / %d approved, want 45/38",
			m.QuotesGenerated, m.QuotesApproved)
	}
	if m.ConversionRate != 84.4 {
		t.Errorf("ConversionRate = %v, want 84.4", m.ConversionRate)
	}
}

func TestAggregate_PeriodBuckets(t *testing.T) {
	jan := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	// Out of chronological order on purpose.
	quotes := []*domain.PendingQuote{
		metricsQuote(domain.QuoteSent, 80, mar),
		metricsQuote(domain.QuoteApproved, 80, jan),
		metricsQuote(domain.QuoteRejected, 80, feb),
		metricsQuote(domain.QuotePending, 80, jan),
	}

	m := Aggregate(quotes, MonthlyPeriod)

	want := []domain.PeriodStat{
		{Period: "2026-01", Generated: 2, Approved: 1},
		{Period: "2026-02", Generated: 1},
		{Period: "2026-03", Generated: 1, Approved: 1, Sent: 1},
	}
	if len(m.PeriodStats) != len(want) {
		t.Fatalf("len(PeriodStats) = %d, want %d", len(m.PeriodStats), len(want))
	}
	for i, w := range want {
		if m.PeriodStats[i] != w {
			t.Errorf("PeriodStats[%d] = %+v, want %+v", i, m.PeriodStats[i], w)
		}
	}
}

func TestAggregate_MissingAnalysis(t *testing.T) {
	mar := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	quotes := []*domain.PendingQuote{
		{Status: domain.QuotePending, ProcessedAt: mar},
		metricsQuote(domain.QuoteApproved, 90, mar),
	}

	m := Aggregate(quotes, nil)

	// Quotes without an analysis contribute zero confidence, not a crash.
	if m.AverageConfidence != 45.0 {
		t.Errorf("AverageConfidence = %v, want 45.0", m.AverageConfidence)
	}
}

func TestPeriodKeys(t *testing.T) {
	ts := time.Date(2026, 9, 1, 13, 45, 0, 0, time.UTC)
	if got := MonthlyPeriod(ts); got != "2026-09" {
		t.Errorf("MonthlyPeriod = %q", got)
	}
	if got := DailyPeriod(ts); got != "2026-09-01" {
		t.Errorf("DailyPeriod = %q", got)
	}
}
