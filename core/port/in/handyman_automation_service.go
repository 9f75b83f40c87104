package in

import (
	"context"
	"time"

	"handyman_server/core/domain"

	"github.com/google/uuid"
)

// AutomationService defines the inbound port for the automation pipeline
// and the manager review flow built on top of it.
type AutomationService interface {
	// Pipeline
	ProcessEmail(ctx context.Context, userID uuid.UUID, emailID int64) (*domain.PendingQuote, error)

	// Pending quote review
	GetPendingQuote(ctx context.Context, userID uuid.UUID, quoteID int64) (*domain.PendingQuote, error)
	ListPendingQuotes(ctx context.Context, filter *domain.PendingQuoteFilter) ([]*domain.PendingQuote, int, error)
	ApproveQuote(ctx context.Context, userID uuid.UUID, quoteID int64, notes string) (*domain.PendingQuote, error)
	RejectQuote(ctx context.Context, userID uuid.UUID, quoteID int64, notes string) (*domain.PendingQuote, error)
	SendQuote(ctx context.Context, userID uuid.UUID, quoteID int64, notes string) (*domain.PendingQuote, error)

	// Metrics
	GetMetrics(ctx context.Context, userID uuid.UUID, req *MetricsRequest) (*domain.AutomationMetrics, error)
}

// MetricsRequest narrows the metrics window.
type MetricsRequest struct {
	DateFrom string `json:"date_from,omitempty"` // YYYY-MM-DD
	DateTo   string `json:"date_to,omitempty"`
	Period   string `json:"period,omitempty"` // monthly (default), daily
}

// RuleService defines the inbound port for automation rule management.
type RuleService interface {
	GetRule(ctx context.Context, userID uuid.UUID, ruleID int64) (*domain.AutomationRule, error)
	ListRules(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]*domain.AutomationRule, error)
	CreateRule(ctx context.Context, userID uuid.UUID, req *CreateRuleRequest) (*domain.AutomationRule, error)
	UpdateRule(ctx context.Context, userID uuid.UUID, ruleID int64, req *UpdateRuleRequest) (*domain.AutomationRule, error)
	DeleteRule(ctx context.Context, userID uuid.UUID, ruleID int64) error
	SetRuleActive(ctx context.Context, userID uuid.UUID, ruleID int64, active bool) (*domain.AutomationRule, error)
}

// CreateRuleRequest creates an automation rule.
type CreateRuleRequest struct {
	Name       string                `json:"name"`
	Keywords   []string              `json:"keywords"`
	ServiceIDs []int64               `json:"service_ids"`
	IsActive   *bool                 `json:"is_active,omitempty"`
	Conditions domain.RuleConditions `json:"conditions"`
	Actions    domain.RuleActions    `json:"actions"`
}

// UpdateRuleRequest patches an automation rule. Nil means unchanged.
type UpdateRuleRequest struct {
	Name       *string                `json:"name,omitempty"`
	Keywords   []string               `json:"keywords,omitempty"`
	ServiceIDs []int64                `json:"service_ids,omitempty"`
	IsActive   *bool                  `json:"is_active,omitempty"`
	Conditions *domain.RuleConditions `json:"conditions,omitempty"`
	Actions    *domain.RuleActions    `json:"actions,omitempty"`
}

// CatalogService defines the inbound port for service catalog management.
type CatalogService interface {
	GetService(ctx context.Context, userID uuid.UUID, serviceID int64) (*domain.Service, error)
	ListServices(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]*domain.Service, error)
	CreateService(ctx context.Context, userID uuid.UUID, req *CreateServiceRequest) (*domain.Service, error)
	UpdateService(ctx context.Context, userID uuid.UUID, serviceID int64, req *UpdateServiceRequest) (*domain.Service, error)
	DeleteService(ctx context.Context, userID uuid.UUID, serviceID int64) error
}

// CreateServiceRequest creates a catalog service.
type CreateServiceRequest struct {
	Name              string  `json:"name"`
	Category          string  `json:"category"`
	Description       string  `json:"description,omitempty"`
	DefaultPrice      float64 `json:"default_price"`
	Unit              string  `json:"unit,omitempty"`
	EstimatedDuration int     `json:"estimated_duration,omitempty"`
}

// UpdateServiceRequest patches a catalog service. Nil means unchanged.
type UpdateServiceRequest struct {
	Name              *string  `json:"name,omitempty"`
	Category          *string  `json:"category,omitempty"`
	Description       *string  `json:"description,omitempty"`
	DefaultPrice      *float64 `json:"default_price,omitempty"`
	Unit              *string  `json:"unit,omitempty"`
	EstimatedDuration *int     `json:"estimated_duration,omitempty"`
	IsActive          *bool    `json:"is_active,omitempty"`
}

// InboxService defines the inbound port for email read access and ingestion.
type InboxService interface {
	GetEmail(ctx context.Context, userID uuid.UUID, emailID int64) (*domain.Email, error)
	ListEmails(ctx context.Context, filter *domain.EmailFilter) ([]*domain.Email, int, error)
	IngestEmail(ctx context.Context, userID uuid.UUID, req *IngestEmailRequest) (*domain.Email, error)
}

// IngestEmailRequest registers one received email, normally posted by the
// external mail collector together with its categorizer output.
type IngestEmailRequest struct {
	Subject    string     `json:"subject"`
	FromEmail  string     `json:"from_email"`
	FromName   *string    `json:"from_name,omitempty"`
	Body       string     `json:"body"`
	Category   string     `json:"category"`
	Confidence float64    `json:"confidence"` // 0.0 - 1.0
	ReceivedAt *time.Time `json:"received_at,omitempty"`
	// Enqueue automation immediately after insert.
	AutoProcess bool `json:"auto_process,omitempty"`
}
