package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EmailCategory is the fixed taxonomy assigned by the upstream categorizer.
type EmailCategory string

const (
	CategoryComplaint   EmailCategory = "complaint"
	CategoryQuote       EmailCategory = "quote"
	CategoryProductInfo EmailCategory = "product_info"
	CategorySupport     EmailCategory = "support"
	CategorySales       EmailCategory = "sales"
)

// ParseEmailCategory converts a string to EmailCategory.
// Unknown values map to CategorySupport.
func ParseEmailCategory(s string) EmailCategory {
	switch EmailCategory(s) {
	case CategoryComplaint, CategoryQuote, CategoryProductInfo, CategorySupport, CategorySales:
		return EmailCategory(s)
	default:
		return CategorySupport
	}
}

// Email is an inbound email as delivered by the mail ingestion collaborator.
// The automation core treats it as read-only input.
type Email struct {
	ID     int64     `json:"id"`
	UserID uuid.UUID `json:"user_id"`

	// Headers
	Subject   string  `json:"subject"`
	FromEmail string  `json:"from_email"`
	FromName  *string `json:"from_name,omitempty"`

	// Content
	Body    string `json:"body"`
	Snippet string `json:"snippet"`

	// Upstream categorizer output
	Category   EmailCategory `json:"category"`
	Confidence float64       `json:"confidence"` // 0.0 - 1.0

	// Workflow flags
	Processed bool `json:"processed"`
	Responded bool `json:"responded"`

	// Timestamps
	ReceivedAt time.Time `json:"received_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SenderDomain returns the domain part of the sender address, lowercased.
func (e *Email) SenderDomain() string {
	if idx := strings.LastIndex(e.FromEmail, "@"); idx >= 0 {
		return strings.ToLower(e.FromEmail[idx+1:])
	}
	return ""
}

// EmailFilter narrows email list queries.
type EmailFilter struct {
	UserID    uuid.UUID
	Category  *EmailCategory
	Processed *bool
	Responded *bool
	Search    *string
	DateFrom  *time.Time
	DateTo    *time.Time
	Limit     int
	Offset    int
}

// EmailRepository provides access to the inbound email store.
type EmailRepository interface {
	GetByID(id int64) (*Email, error)
	List(filter *EmailFilter) ([]*Email, int, error)
	Create(email *Email) error
	MarkProcessed(id int64) error
	MarkResponded(id int64) error
}
