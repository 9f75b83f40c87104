package out

import (
	"context"
	"time"
)

// Time alias for JSON serialization
type Time = time.Time

// EventProducer defines the outbound port for the message stream producer.
// Events record automation outcomes for downstream consumers; jobs enqueue
// work for the background worker.
type EventProducer interface {
	// Quote lifecycle events
	PublishQuotePending(ctx context.Context, event *QuoteEvent) error
	PublishQuoteApproved(ctx context.Context, event *QuoteEvent) error
	PublishQuoteRejected(ctx context.Context, event *QuoteEvent) error
	PublishQuoteSent(ctx context.Context, event *QuoteEvent) error

	// Manager notifications
	PublishManagerAlert(ctx context.Context, alert *ManagerAlert) error

	// Worker jobs
	PublishAutomationProcess(ctx context.Context, job *AutomationProcessJob) error
}

// QuoteEvent is published on every pending quote state change.
type QuoteEvent struct {
	UserID   string  `json:"user_id"`
	QuoteID  int64   `json:"quote_id"`
	EmailID  int64   `json:"email_id"`
	RuleID   int64   `json:"rule_id"`
	RuleName string  `json:"rule_name,omitempty"`
	Status   string  `json:"status"`
	Total    float64 `json:"total,omitempty"`
	At       Time    `json:"at"`
}

// ManagerAlert asks a human to look at an email or quote.
type ManagerAlert struct {
	UserID   string `json:"user_id"`
	EmailID  int64  `json:"email_id"`
	QuoteID  int64  `json:"quote_id,omitempty"`
	RuleName string `json:"rule_name,omitempty"`
	Subject  string `json:"subject,omitempty"`
	Reason   string `json:"reason"` // rule_notify, high_urgency, auto_send_blocked
	At       Time   `json:"at"`
}

// AutomationProcessJob enqueues one email for background automation.
type AutomationProcessJob struct {
	UserID  string `json:"user_id"`
	EmailID int64  `json:"email_id"`
	// Requeue attempt counter; the dispatcher drops the job past the limit.
	Attempt int `json:"attempt,omitempty"`
}
