package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Automation Rule
// =============================================================================

// RuleConditions gate whether a rule may fire against an email.
type RuleConditions struct {
	// MinConfidence is the 0-100 floor the computed match confidence must
	// reach before the rule produces any output.
	MinConfidence int `json:"min_confidence"`

	// EmailCategories restricts matching to these categories.
	// Empty means any category.
	EmailCategories []EmailCategory `json:"email_categories,omitempty"`

	// SenderDomain restricts matching to senders whose address ends with
	// this domain. Empty means any domain.
	SenderDomain string `json:"sender_domain,omitempty"`

	// RequireAllKeywords demands every rule keyword occur in the email text.
	RequireAllKeywords bool `json:"require_all_keywords"`
}

// RuleActions control downstream behavior after a rule fires.
type RuleActions struct {
	GenerateQuote bool `json:"generate_quote"`
	AutoSend      bool `json:"auto_send"`
	NotifyManager bool `json:"notify_manager"`
}

// AutomationRule is a manager-configured keyword/condition set that matches
// inbound emails and triggers draft-quote generation.
type AutomationRule struct {
	ID          int64     `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`

	// Keywords are stored lowercase; insertion order is preserved for
	// display but irrelevant for matching.
	Keywords   []string `json:"keywords"`
	ServiceIDs []int64  `json:"service_ids"`
	IsActive   bool     `json:"is_active"`

	Conditions RuleConditions `json:"conditions"`
	Actions    RuleActions    `json:"actions"`

	// Stats
	HitCount  int        `json:"hit_count"`
	LastHitAt *time.Time `json:"last_hit_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Rule validation errors, reported at rule-creation/update time.
var (
	ErrRuleNameRequired      = errors.New("rule name is required")
	ErrRuleKeywordsRequired  = errors.New("active rule requires at least one keyword")
	ErrRuleConfidenceRange   = errors.New("min_confidence must be between 0 and 100")
	ErrRuleUnknownCategory   = errors.New("unknown email category in conditions")
	ErrRuleServicesRequired  = errors.New("quote-generating rule requires at least one service")
)

// Validate checks structural invariants. The CRUD surface rejects rules that
// fail here; the matcher additionally treats malformed rules as never firing
// so a bad row that slips through can never produce output.
func (r *AutomationRule) Validate() error {
	if r.Name == "" {
		return ErrRuleNameRequired
	}
	if r.Conditions.MinConfidence < 0 || r.Conditions.MinConfidence > 100 {
		return ErrRuleConfidenceRange
	}
	if r.IsActive && len(r.Keywords) == 0 {
		return ErrRuleKeywordsRequired
	}
	if r.Actions.GenerateQuote && len(r.ServiceIDs) == 0 {
		return ErrRuleServicesRequired
	}
	for _, cat := range r.Conditions.EmailCategories {
		switch cat {
		case CategoryComplaint, CategoryQuote, CategoryProductInfo, CategorySupport, CategorySales:
		default:
			return ErrRuleUnknownCategory
		}
	}
	return nil
}

// IsWellFormed reports whether the rule can participate in matching at all.
// Mirrors Validate but without erroring: a malformed rule simply never fires.
func (r *AutomationRule) IsWellFormed() bool {
	if r.Conditions.MinConfidence < 0 || r.Conditions.MinConfidence > 100 {
		return false
	}
	if len(r.Keywords) == 0 {
		return false
	}
	return true
}

// RuleRepository provides access to the automation rule store.
type RuleRepository interface {
	GetByID(id int64) (*AutomationRule, error)
	ListByUser(userID uuid.UUID) ([]*AutomationRule, error)
	ListActiveByUser(userID uuid.UUID) ([]*AutomationRule, error)
	Create(rule *AutomationRule) error
	Update(rule *AutomationRule) error
	Delete(id int64) error

	// Stats
	IncrementHitCount(id int64) error
}
