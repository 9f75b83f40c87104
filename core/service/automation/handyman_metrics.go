package automation

import (
	"math"
	"sort"
	"time"

	"handyman_server/core/domain"
)

// =============================================================================
// Metrics Aggregator
// =============================================================================

// PeriodKeyFunc buckets a timestamp into a period label.
type PeriodKeyFunc func(t time.Time) string

// MonthlyPeriod buckets by calendar month ("2026-09").
func MonthlyPeriod(t time.Time) string {
	return t.Format("2006-01")
}

// DailyPeriod buckets by calendar day ("2026-09-01").
func DailyPeriod(t time.Time) string {
	return t.Format("2006-01-02")
}

// Aggregate folds the pending quote population into automation metrics.
// Pure function; the caller supplies whatever slice of the population it
// wants measured. An approved-then-sent quote still counts as approved, so
// conversion rate is approved-or-sent over generated.
func Aggregate(quotes []*domain.PendingQuote, periodKey PeriodKeyFunc) domain.AutomationMetrics {
	m := domain.AutomationMetrics{
		QuotesGenerated: len(quotes),
	}
	if len(quotes) == 0 {
		return m
	}

	confidenceSum := 0
	buckets := make(map[string]*domain.PeriodStat)

	for _, q := range quotes {
		switch q.Status {
		case domain.QuoteApproved:
			m.QuotesApproved++
		case domain.QuoteRejected:
			m.QuotesRejected++
		case domain.QuoteSent:
			m.QuotesApproved++
			m.QuotesSent++
		}

		if q.Analysis != nil {
			confidenceSum += q.Analysis.Confidence
		}

		if periodKey == nil {
			continue
		}
		key := periodKey(q.ProcessedAt)
		stat, ok := buckets[key]
		if !ok {
			stat = &domain.PeriodStat{Period: key}
			buckets[key] = stat
		}
		stat.Generated++
		switch q.Status {
		case domain.QuoteApproved:
			stat.Approved++
		case domain.QuoteSent:
			stat.Approved++
			stat.Sent++
		}
	}

	m.AverageConfidence = round1(float64(confidenceSum) / float64(len(quotes)))
	m.ConversionRate = round1(100 * float64(m.QuotesApproved) / float64(m.QuotesGenerated))

	if len(buckets) > 0 {
		m.PeriodStats = make([]domain.PeriodStat, 0, len(buckets))
		for _, stat := range buckets {
			m.PeriodStats = append(m.PeriodStats, *stat)
		}
		// Period labels sort chronologically by construction.
		sort.Slice(m.PeriodStats, func(i, j int) bool {
			return m.PeriodStats[i].Period < m.PeriodStats[j].Period
		})
	}

	return m
}

// round1 rounds to one decimal place for stable display values.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
