package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Generated Quote (draft quotation)
// =============================================================================

// QuoteItem is one line of a generated quotation.
type QuoteItem struct {
	ServiceID   int64   `json:"service_id"`
	ServiceName string  `json:"service_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Subtotal    float64 `json:"subtotal"`
	Notes       string  `json:"notes,omitempty"`
}

// Quotation is the draft quote produced by the automation core.
// Status stays "draft" until the surrounding quotation module takes over.
type Quotation struct {
	ClientName  string      `json:"client_name"`
	ClientEmail string      `json:"client_email"`
	Items       []QuoteItem `json:"items"`
	Subtotal    float64     `json:"subtotal"`
	Discount    float64     `json:"discount"`
	Total       float64     `json:"total"`
	Status      string      `json:"status"`
	ValidUntil  time.Time   `json:"valid_until"`
	CreatedAt   time.Time   `json:"created_at"`
}

// =============================================================================
// AI Analysis (one orchestrator run's derived view of an email)
// =============================================================================

// Urgency buckets for extracted info.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// ExtractedInfo holds structured fields pulled out of email free text.
// Every field is optional; absent means not inferable.
type ExtractedInfo struct {
	ClientName      string   `json:"client_name,omitempty"`
	Urgency         Urgency  `json:"urgency,omitempty"`
	EstimatedBudget *float64 `json:"estimated_budget,omitempty"`
	PreferredDate   string   `json:"preferred_date,omitempty"`
	Description     string   `json:"description,omitempty"`
}

// MatchedService ranks one catalog service for a generated quote.
type MatchedService struct {
	ServiceID      int64   `json:"service_id"`
	ServiceName    string  `json:"service_name"`
	RelevanceScore float64 `json:"relevance_score"` // 0.0 - 1.0
}

// AIAnalysis records why and how strongly automation fired for an email.
type AIAnalysis struct {
	DetectedKeywords []string         `json:"detected_keywords"`
	Confidence       int              `json:"confidence"` // 0 - 100
	ExtractedInfo    ExtractedInfo    `json:"extracted_info"`
	MatchedServices  []MatchedService `json:"matched_services"`
}

// =============================================================================
// Pending Quote (manager review unit)
// =============================================================================

// QuoteStatus is the approval state of a pending quote.
type QuoteStatus string

const (
	QuotePending  QuoteStatus = "pending"
	QuoteApproved QuoteStatus = "approved"
	QuoteRejected QuoteStatus = "rejected"
	QuoteSent     QuoteStatus = "sent"
)

// InvalidTransitionError reports an approval action that is not legal from
// the quote's current status. It signals a caller bug, never a data problem.
type InvalidTransitionError struct {
	From QuoteStatus
	To   QuoteStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid quote transition: %s -> %s", e.From, e.To)
}

// PendingQuote is the unit of manager review: one successful orchestrator run
// over one (email, rule) match. Created once, transitioned but never deleted.
type PendingQuote struct {
	ID     int64     `json:"id"`
	UserID uuid.UUID `json:"user_id"`

	// Back-references, not owned.
	EmailID int64 `json:"email_id"`
	RuleID  int64 `json:"rule_id"`

	// Owned by this run.
	Quote    *Quotation  `json:"generated_quote"`
	Analysis *AIAnalysis `json:"ai_analysis"`

	Status       QuoteStatus `json:"status"`
	ManagerNotes string      `json:"manager_notes,omitempty"`

	ProcessedAt time.Time  `json:"processed_at"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	RejectedAt  *time.Time `json:"rejected_at,omitempty"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
}

// Approve transitions pending -> approved.
func (q *PendingQuote) Approve(now time.Time) error {
	if q.Status != QuotePending {
		return &InvalidTransitionError{From: q.Status, To: QuoteApproved}
	}
	q.Status = QuoteApproved
	q.ApprovedAt = &now
	return nil
}

// Reject transitions pending -> rejected.
func (q *PendingQuote) Reject(now time.Time) error {
	if q.Status != QuotePending {
		return &InvalidTransitionError{From: q.Status, To: QuoteRejected}
	}
	q.Status = QuoteRejected
	q.RejectedAt = &now
	return nil
}

// MarkSent transitions approved -> sent. Any other origin state fails.
func (q *PendingQuote) MarkSent(now time.Time) error {
	if q.Status != QuoteApproved {
		return &InvalidTransitionError{From: q.Status, To: QuoteSent}
	}
	q.Status = QuoteSent
	q.SentAt = &now
	return nil
}

// PendingQuoteFilter narrows pending quote queries.
type PendingQuoteFilter struct {
	UserID   uuid.UUID
	Status   *QuoteStatus
	RuleID   *int64
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
	Offset   int
}

// PendingQuoteRepository persists pending quotes. Updates are single-writer
// per record; callers serialize concurrent approval actions on one quote.
type PendingQuoteRepository interface {
	GetByID(id int64) (*PendingQuote, error)
	GetByEmailID(emailID int64) (*PendingQuote, error)
	List(filter *PendingQuoteFilter) ([]*PendingQuote, int, error)
	Create(quote *PendingQuote) error
	Update(quote *PendingQuote) error
	CountByStatus(userID uuid.UUID) (map[QuoteStatus]int, error)
}
