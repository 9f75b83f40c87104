// Package rules implements the CRUD surface for automation rules.
package rules

import (
	"context"
	"strings"
	"time"

	"handyman_server/core/domain"
	"handyman_server/core/port/in"
	"handyman_server/pkg/apperr"
	"handyman_server/pkg/logger"

	"github.com/google/uuid"
)

// Service handles automation rule management. It is the only writer of the
// rule store; the automation pipeline reads rules but never mutates them
// beyond hit counters.
type Service struct {
	ruleRepo    domain.RuleRepository
	serviceRepo domain.ServiceRepository
	nextID      func() int64
	now         func() time.Time
}

// NewService creates a rule service. nextID supplies new rule IDs.
func NewService(ruleRepo domain.RuleRepository, serviceRepo domain.ServiceRepository, nextID func() int64, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		ruleRepo:    ruleRepo,
		serviceRepo: serviceRepo,
		nextID:      nextID,
		now:         now,
	}
}

// GetRule returns one rule, scoped to the owner.
func (s *Service) GetRule(ctx context.Context, userID uuid.UUID, ruleID int64) (*domain.AutomationRule, error) {
	rule, err := s.ruleRepo.GetByID(ruleID)
	if err != nil {
		return nil, apperr.NotFound("rule").WithError(err)
	}
	if rule.UserID != userID {
		return nil, apperr.Forbidden("rule belongs to another user")
	}
	return rule, nil
}

// ListRules returns the user's rules, optionally active only.
func (s *Service) ListRules(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]*domain.AutomationRule, error) {
	var (
		rules []*domain.AutomationRule
		err   error
	)
	if activeOnly {
		rules, err = s.ruleRepo.ListActiveByUser(userID)
	} else {
		rules, err = s.ruleRepo.ListByUser(userID)
	}
	if err != nil {
		return nil, apperr.DatabaseError("list rules", err)
	}
	return rules, nil
}

// CreateRule validates and stores a new automation rule.
func (s *Service) CreateRule(ctx context.Context, userID uuid.UUID, req *in.CreateRuleRequest) (*domain.AutomationRule, error) {
	now := s.now()
	rule := &domain.AutomationRule{
		ID:         s.nextID(),
		UserID:     userID,
		Name:       strings.TrimSpace(req.Name),
		Keywords:   normalizeKeywords(req.Keywords),
		ServiceIDs: req.ServiceIDs,
		IsActive:   true,
		Conditions: req.Conditions,
		Actions:    req.Actions,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}

	if err := rule.Validate(); err != nil {
		return nil, apperr.MalformedRule(err)
	}
	if err := s.checkServices(userID, rule); err != nil {
		return nil, err
	}

	if err := s.ruleRepo.Create(rule); err != nil {
		return nil, apperr.DatabaseError("create rule", err)
	}

	logger.WithFields(map[string]any{
		"rule_id":  rule.ID,
		"keywords": len(rule.Keywords),
	}).Info("automation rule created")

	return rule, nil
}

// UpdateRule patches an existing rule. Unset request fields stay unchanged.
func (s *Service) UpdateRule(ctx context.Context, userID uuid.UUID, ruleID int64, req *in.UpdateRuleRequest) (*domain.AutomationRule, error) {
	rule, err := s.GetRule(ctx, userID, ruleID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		rule.Name = strings.TrimSpace(*req.Name)
	}
	if req.Keywords != nil {
		rule.Keywords = normalizeKeywords(req.Keywords)
	}
	if req.ServiceIDs != nil {
		rule.ServiceIDs = req.ServiceIDs
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}
	if req.Conditions != nil {
		rule.Conditions = *req.Conditions
	}
	if req.Actions != nil {
		rule.Actions = *req.Actions
	}
	rule.UpdatedAt = s.now()

	if err := rule.Validate(); err != nil {
		return nil, apperr.MalformedRule(err)
	}
	if err := s.checkServices(userID, rule); err != nil {
		return nil, err
	}

	if err := s.ruleRepo.Update(rule); err != nil {
		return nil, apperr.DatabaseError("update rule", err)
	}
	return rule, nil
}

// DeleteRule removes a rule. Pending quotes that reference it survive; they
// keep the rule ID as a historical pointer.
func (s *Service) DeleteRule(ctx context.Context, userID uuid.UUID, ruleID int64) error {
	if _, err := s.GetRule(ctx, userID, ruleID); err != nil {
		return err
	}
	if err := s.ruleRepo.Delete(ruleID); err != nil {
		return apperr.DatabaseError("delete rule", err)
	}
	return nil
}

// SetRuleActive toggles a rule without touching its configuration.
func (s *Service) SetRuleActive(ctx context.Context, userID uuid.UUID, ruleID int64, active bool) (*domain.AutomationRule, error) {
	rule, err := s.GetRule(ctx, userID, ruleID)
	if err != nil {
		return nil, err
	}
	if rule.IsActive == active {
		return rule, nil
	}

	rule.IsActive = active
	rule.UpdatedAt = s.now()

	if err := rule.Validate(); err != nil {
		// Activating a rule that was stored malformed while inactive.
		return nil, apperr.MalformedRule(err)
	}
	if err := s.ruleRepo.Update(rule); err != nil {
		return nil, apperr.DatabaseError("update rule", err)
	}
	return rule, nil
}

// checkServices verifies every referenced service exists for this user.
// A rule pointing at foreign or deleted services would silently never fire.
func (s *Service) checkServices(userID uuid.UUID, rule *domain.AutomationRule) error {
	if len(rule.ServiceIDs) == 0 {
		return nil
	}

	services, err := s.serviceRepo.ListByUser(userID)
	if err != nil {
		return apperr.DatabaseError("list services", err)
	}
	known := make(map[int64]bool, len(services))
	for _, svc := range services {
		known[svc.ID] = true
	}

	for _, id := range rule.ServiceIDs {
		if !known[id] {
			return apperr.BadRequest("unknown service id in rule").WithDetail("service_id", id)
		}
	}
	return nil
}

// normalizeKeywords lowercases, trims and dedups the keyword list while
// preserving first-seen order.
func normalizeKeywords(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		out = append(out, kw)
	}
	return out
}
