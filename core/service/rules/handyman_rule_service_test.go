package rules

import (
	"context"
	"errors"
	"testing"
	"time"

	"handyman_server/core/domain"
	"handyman_server/core/port/in"
	"handyman_server/pkg/apperr"

	"github.com/google/uuid"
)

type fakeRuleRepo struct {
	rules  map[int64]*domain.AutomationRule
	failOn string
}

func newFakeRuleRepo(rules ...*domain.AutomationRule) *fakeRuleRepo {
	repo := &fakeRuleRepo{rules: make(map[int64]*domain.AutomationRule)}
	for _, r := range rules {
		repo.rules[r.ID] = r
	}
	return repo
}

func (r *fakeRuleRepo) GetByID(id int64) (*domain.AutomationRule, error) {
	rule, ok := r.rules[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	return rule, nil
}

func (r *fakeRuleRepo) ListByUser(userID uuid.UUID) ([]*domain.AutomationRule, error) {
	var out []*domain.AutomationRule
	for _, rule := range r.rules {
		if rule.UserID == userID {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *fakeRuleRepo) ListActiveByUser(userID uuid.UUID) ([]*domain.AutomationRule, error) {
	var out []*domain.AutomationRule
	for _, rule := range r.rules {
		if rule.UserID == userID && rule.IsActive {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *fakeRuleRepo) Create(rule *domain.AutomationRule) error {
	if r.failOn == "create" {
		return errors.New("boom")
	}
	r.rules[rule.ID] = rule
	return nil
}

func (r *fakeRuleRepo) Update(rule *domain.AutomationRule) error {
	r.rules[rule.ID] = rule
	return nil
}

func (r *fakeRuleRepo) Delete(id int64) error {
	delete(r.rules, id)
	return nil
}

func (r *fakeRuleRepo) IncrementHitCount(id int64) error { return nil }

type fakeServiceRepo struct {
	services []*domain.Service
}

func (r *fakeServiceRepo) GetByID(id int64) (*domain.Service, error) {
	for _, s := range r.services {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, errors.New("no rows")
}

func (r *fakeServiceRepo) ListByUser(userID uuid.UUID) ([]*domain.Service, error) {
	var out []*domain.Service
	for _, s := range r.services {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeServiceRepo) ListActiveByUser(userID uuid.UUID) ([]*domain.Service, error) {
	var out []*domain.Service
	for _, s := range r.services {
		if s.UserID == userID && s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeServiceRepo) Create(service *domain.Service) error { return nil }
func (r *fakeServiceRepo) Update(service *domain.Service) error { return nil }
func (r *fakeServiceRepo) Delete(id int64) error                { return nil }

func newTestService(ruleRepo *fakeRuleRepo, serviceRepo *fakeServiceRepo) *Service {
	var seq int64 = 1000
	nextID := func() int64 { seq++; return seq }
	now := func() time.Time { return time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC) }
	return NewService(ruleRepo, serviceRepo, nextID, now)
}

func TestCreateRule(t *testing.T) {
	userID := uuid.New()
	serviceRepo := &fakeServiceRepo{services: []*domain.Service{
		{ID: 1, UserID: userID, Name: "Faucet repair", IsActive: true},
	}}
	ruleRepo := newFakeRuleRepo()
	svc := newTestService(ruleRepo, serviceRepo)

	rule, err := svc.CreateRule(context.Background(), userID, &in.CreateRuleRequest{
		Name:       "  Leak requests ",
		Keywords:   []string{"Leak", " leak ", "FAUCET", ""},
		ServiceIDs: []int64{1},
		Conditions: domain.RuleConditions{MinConfidence: 60},
		Actions:    domain.RuleActions{GenerateQuote: true, NotifyManager: true},
	})
	if err != nil {
		t.Fatalf("CreateRule() error = %v", err)
	}
	if rule.Name != "Leak requests" {
		t.Errorf("Name = %q, want trimmed", rule.Name)
	}
	if len(rule.Keywords) != 2 || rule.Keywords[0] != "leak" || rule.Keywords[1] != "faucet" {
		t.Errorf("Keywords = %v, want normalized [leak faucet]", rule.Keywords)
	}
	if !rule.IsActive {
		t.Error("new rule should default to active")
	}
	if _, ok := ruleRepo.rules[rule.ID]; !ok {
		t.Error("rule not persisted")
	}
}

func TestCreateRule_Validation(t *testing.T) {
	userID := uuid.New()
	serviceRepo := &fakeServiceRepo{services: []*domain.Service{
		{ID: 1, UserID: userID, IsActive: true},
	}}

	tests := []struct {
		name     string
		req      *in.CreateRuleRequest
		wantCode string
	}{
		{
			name: "missing name",
			req: &in.CreateRuleRequest{
				Keywords: []string{"leak"},
			},
			wantCode: apperr.CodeMalformedRule,
		},
		{
			name: "active rule without keywords",
			req: &in.CreateRuleRequest{
				Name:     "No keywords",
				Keywords: []string{"  ", ""},
			},
			wantCode: apperr.CodeMalformedRule,
		},
		{
			name: "quote action without services",
			req: &in.CreateRuleRequest{
				Name:     "Quote rule",
				Keywords: []string{"leak"},
				Actions:  domain.RuleActions{GenerateQuote: true},
			},
			wantCode: apperr.CodeMalformedRule,
		},
		{
			name: "confidence out of range",
			req: &in.CreateRuleRequest{
				Name:       "Bad confidence",
				Keywords:   []string{"leak"},
				Conditions: domain.RuleConditions{MinConfidence: 150},
			},
			wantCode: apperr.CodeMalformedRule,
		},
		{
			name: "unknown service id",
			req: &in.CreateRuleRequest{
				Name:       "Foreign service",
				Keywords:   []string{"leak"},
				ServiceIDs: []int64{999},
			},
			wantCode: apperr.CodeBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(newFakeRuleRepo(), serviceRepo)
			_, err := svc.CreateRule(context.Background(), userID, tt.req)
			appErr := apperr.AsAppError(err)
			if appErr == nil || appErr.Code != tt.wantCode {
				t.Errorf("error = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestUpdateRule_PartialPatch(t *testing.T) {
	userID := uuid.New()
	rule := &domain.AutomationRule{
		ID:       1,
		UserID:   userID,
		Name:     "Original",
		Keywords: []string{"leak"},
		IsActive: true,
	}
	svc := newTestService(newFakeRuleRepo(rule), &fakeServiceRepo{})

	name := "Renamed"
	updated, err := svc.UpdateRule(context.Background(), userID, 1, &in.UpdateRuleRequest{
		Name: &name,
	})
	if err != nil {
		t.Fatalf("UpdateRule() error = %v", err)
	}
	if updated.Name != "Renamed" {
		t.Errorf("Name = %q", updated.Name)
	}
	if len(updated.Keywords) != 1 || updated.Keywords[0] != "leak" {
		t.Errorf("Keywords = %v, unset fields must stay unchanged", updated.Keywords)
	}
}

func TestRuleOwnership(t *testing.T) {
	owner := uuid.New()
	stranger := uuid.New()
	rule := &domain.AutomationRule{
		ID:       1,
		UserID:   owner,
		Name:     "Owned",
		Keywords: []string{"leak"},
		IsActive: true,
	}
	svc := newTestService(newFakeRuleRepo(rule), &fakeServiceRepo{})

	if _, err := svc.GetRule(context.Background(), stranger, 1); err == nil {
		t.Fatal("GetRule() should fail for another user")
	} else if appErr := apperr.AsAppError(err); appErr == nil || appErr.Code != apperr.CodeForbidden {
		t.Errorf("error = %v, want code %s", err, apperr.CodeForbidden)
	}

	if err := svc.DeleteRule(context.Background(), stranger, 1); err == nil {
		t.Fatal("DeleteRule() should fail for another user")
	}

	if _, err := svc.GetRule(context.Background(), owner, 999); err == nil {
		t.Fatal("GetRule() should fail for missing rule")
	} else if appErr := apperr.AsAppError(err); appErr == nil || appErr.Code != apperr.CodeNotFound {
		t.Errorf("error = %v, want code %s", err, apperr.CodeNotFound)
	}
}

func TestSetRuleActive(t *testing.T) {
	userID := uuid.New()
	rule := &domain.AutomationRule{
		ID:       1,
		UserID:   userID,
		Name:     "Toggle me",
		Keywords: []string{"leak"},
		IsActive: true,
	}
	repo := newFakeRuleRepo(rule)
	svc := newTestService(repo, &fakeServiceRepo{})

	deactivated, err := svc.SetRuleActive(context.Background(), userID, 1, false)
	if err != nil {
		t.Fatalf("SetRuleActive(false) error = %v", err)
	}
	if deactivated.IsActive {
		t.Error("rule still active after deactivation")
	}

	// Toggling to the current state is a no-op.
	before := repo.rules[1].UpdatedAt
	again, err := svc.SetRuleActive(context.Background(), userID, 1, false)
	if err != nil {
		t.Fatalf("SetRuleActive(false) twice error = %v", err)
	}
	if !again.UpdatedAt.Equal(before) {
		t.Error("no-op toggle should not touch UpdatedAt")
	}

	reactivated, err := svc.SetRuleActive(context.Background(), userID, 1, true)
	if err != nil {
		t.Fatalf("SetRuleActive(true) error = %v", err)
	}
	if !reactivated.IsActive {
		t.Error("rule inactive after reactivation")
	}
}

func TestListRules_ActiveOnly(t *testing.T) {
	userID := uuid.New()
	active := &domain.AutomationRule{ID: 1, UserID: userID, Name: "a", Keywords: []string{"x"}, IsActive: true}
	inactive := &domain.AutomationRule{ID: 2, UserID: userID, Name: "b", Keywords: []string{"y"}, IsActive: false}
	foreign := &domain.AutomationRule{ID: 3, UserID: uuid.New(), Name: "c", Keywords: []string{"z"}, IsActive: true}
	svc := newTestService(newFakeRuleRepo(active, inactive, foreign), &fakeServiceRepo{})

	all, err := svc.ListRules(context.Background(), userID, false)
	if err != nil {
		t.Fatalf("ListRules() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("len(all) = %d, want 2", len(all))
	}

	activeOnly, err := svc.ListRules(context.Background(), userID, true)
	if err != nil {
		t.Fatalf("ListRules(activeOnly) error = %v", err)
	}
	if len(activeOnly) != 1 || activeOnly[0].ID != 1 {
		t.Errorf("activeOnly = %v, want just rule 1", activeOnly)
	}
}
