package domain

// PeriodStat holds automation counts for one period bucket (e.g. a month).
type PeriodStat struct {
	Period    string `json:"period"`
	Generated int    `json:"generated"`
	Approved  int    `json:"approved"`
	Sent      int    `json:"sent"`
}

// AutomationMetrics is a read-only aggregate computed on demand from the
// pending quote population. It is never persisted as its own source of truth.
type AutomationMetrics struct {
	QuotesGenerated   int          `json:"quotes_generated"`
	QuotesApproved    int          `json:"quotes_approved"`
	QuotesRejected    int          `json:"quotes_rejected"`
	QuotesSent        int          `json:"quotes_sent"`
	AverageConfidence float64      `json:"average_confidence"`
	ConversionRate    float64      `json:"conversion_rate"`
	PeriodStats       []PeriodStat `json:"period_stats,omitempty"`
}
