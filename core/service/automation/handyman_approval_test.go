package automation

import (
	"errors"
	"testing"
	"time"

	"handyman_server/core/domain"
	"handyman_server/pkg/apperr"

	"github.com/google/uuid"
)

// fakeQuoteRepo is an in-memory PendingQuoteRepository for approval tests.
type fakeQuoteRepo struct {
	quotes  map[int64]*domain.PendingQuote
	failOn  string
	updates int
}

func newFakeQuoteRepo(quotes ...*domain.PendingQuote) *fakeQuoteRepo {
	repo := &fakeQuoteRepo{quotes: make(map[int64]*domain.PendingQuote)}
	for _, q := range quotes {
		repo.quotes[q.ID] = q
	}
	return repo
}

func (r *fakeQuoteRepo) GetByID(id int64) (*domain.PendingQuote, error) {
	if r.failOn == "get" {
		return nil, errors.New("boom")
	}
	q, ok := r.quotes[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	return q, nil
}

func (r *fakeQuoteRepo) GetByEmailID(emailID int64) (*domain.PendingQuote, error) {
	for _, q := range r.quotes {
		if q.EmailID == emailID {
			return q, nil
		}
	}
	return nil, errors.New("no rows")
}

func (r *fakeQuoteRepo) List(_ *domain.PendingQuoteFilter) ([]*domain.PendingQuote, int, error) {
	out := make([]*domain.PendingQuote, 0, len(r.quotes))
	for _, q := range r.quotes {
		out = append(out, q)
	}
	return out, len(out), nil
}

func (r *fakeQuoteRepo) Create(quote *domain.PendingQuote) error {
	r.quotes[quote.ID] = quote
	return nil
}

func (r *fakeQuoteRepo) Update(quote *domain.PendingQuote) error {
	if r.failOn == "update" {
		return errors.New("boom")
	}
	r.updates++
	r.quotes[quote.ID] = quote
	return nil
}

func (r *fakeQuoteRepo) CountByStatus(_ uuid.UUID) (map[domain.QuoteStatus]int, error) {
	counts := make(map[domain.QuoteStatus]int)
	for _, q := range r.quotes {
		counts[q.Status]++
	}
	return counts, nil
}

func pendingQuote(id int64, status domain.QuoteStatus) *domain.PendingQuote {
	return &domain.PendingQuote{
		ID:          id,
		UserID:      uuid.New(),
		EmailID:     id * 10,
		RuleID:      100,
		Status:      status,
		ProcessedAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestApprovalService_Approve(t *testing.T) {
	now := time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)
	repo := newFakeQuoteRepo(pendingQuote(1, domain.QuotePending))
	svc := NewApprovalService(repo, fixedClock(now))

	quote, err := svc.Approve(1, "looks right")
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if quote.Status != domain.QuoteApproved {
		t.Errorf("Status = %q, want approved", quote.Status)
	}
	if quote.ApprovedAt == nil || !quote.ApprovedAt.Equal(now) {
		t.Errorf("ApprovedAt = %v, want injected clock %v", quote.ApprovedAt, now)
	}
	if quote.ManagerNotes != "looks right" {
		t.Errorf("ManagerNotes = %q", quote.ManagerNotes)
	}
	if repo.updates != 1 {
		t.Errorf("repo updates = %d, want 1", repo.updates)
	}
}

func TestApprovalService_Reject(t *testing.T) {
	now := time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)
	repo := newFakeQuoteRepo(pendingQuote(1, domain.QuotePending))
	svc := NewApprovalService(repo, fixedClock(now))

	quote, err := svc.Reject(1, "price too low")
	if err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	if quote.Status != domain.QuoteRejected {
		t.Errorf("Status = %q, want rejected", quote.Status)
	}
	if quote.RejectedAt == nil || !quote.RejectedAt.Equal(now) {
		t.Errorf("RejectedAt = %v, want %v", quote.RejectedAt, now)
	}
}

func TestApprovalService_ApproveThenSend(t *testing.T) {
	now := time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)
	repo := newFakeQuoteRepo(pendingQuote(1, domain.QuotePending))
	svc := NewApprovalService(repo, fixedClock(now))

	if _, err := svc.Approve(1, ""); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	quote, err := svc.MarkSent(1, "sent via email client")
	if err != nil {
		t.Fatalf("MarkSent() error = %v", err)
	}
	if quote.Status != domain.QuoteSent {
		t.Errorf("Status = %q, want sent", quote.Status)
	}
	if quote.SentAt == nil {
		t.Error("SentAt not set")
	}

	// Sending again is an illegal transition; state stays sent.
	if _, err := svc.MarkSent(1, ""); err == nil {
		t.Fatal("second MarkSent() should fail")
	} else if appErr := apperr.AsAppError(err); appErr == nil || appErr.Code != apperr.CodeInvalidTransition {
		t.Errorf("error = %v, want code %s", err, apperr.CodeInvalidTransition)
	}
	if repo.quotes[1].Status != domain.QuoteSent {
		t.Errorf("Status after failed transition = %q, want sent", repo.quotes[1].Status)
	}
}

func TestApprovalService_IllegalTransitions(t *testing.T) {
	now := time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		from   domain.QuoteStatus
		action func(*ApprovalService) error
	}{
		{"approve a rejected quote", domain.QuoteRejected, func(s *ApprovalService) error {
			_, err := s.Approve(1, "")
			return err
		}},
		{"reject an approved quote", domain.QuoteApproved, func(s *ApprovalService) error {
			_, err := s.Reject(1, "")
			return err
		}},
		{"send straight from pending", domain.QuotePending, func(s *ApprovalService) error {
			_, err := s.MarkSent(1, "")
			return err
		}},
		{"approve a sent quote", domain.QuoteSent, func(s *ApprovalService) error {
			_, err := s.Approve(1, "")
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeQuoteRepo(pendingQuote(1, tt.from))
			svc := NewApprovalService(repo, fixedClock(now))

			err := tt.action(svc)
			if err == nil {
				t.Fatal("transition should fail")
			}
			appErr := apperr.AsAppError(err)
			if appErr == nil || appErr.Code != apperr.CodeInvalidTransition {
				t.Errorf("error = %v, want code %s", err, apperr.CodeInvalidTransition)
			}
			if repo.quotes[1].Status != tt.from {
				t.Errorf("Status mutated to %q on failed transition", repo.quotes[1].Status)
			}
			if repo.updates != 0 {
				t.Errorf("repo updates = %d, want 0 on failed transition", repo.updates)
			}
		})
	}
}

func TestApprovalService_NotesAppend(t *testing.T) {
	now := time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)
	q := pendingQuote(1, domain.QuotePending)
	repo := newFakeQuoteRepo(q)
	svc := NewApprovalService(repo, fixedClock(now))

	if _, err := svc.Approve(1, "first note"); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	quote, err := svc.MarkSent(1, "second note")
	if err != nil {
		t.Fatalf("MarkSent() error = %v", err)
	}
	if quote.ManagerNotes != "first note\nsecond note" {
		t.Errorf("ManagerNotes = %q, want appended notes", quote.ManagerNotes)
	}
}

func TestApprovalService_RepositoryErrors(t *testing.T) {
	now := time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)

	t.Run("missing quote maps to not found", func(t *testing.T) {
		svc := NewApprovalService(newFakeQuoteRepo(), fixedClock(now))
		_, err := svc.Approve(42, "")
		appErr := apperr.AsAppError(err)
		if appErr == nil || appErr.Code != apperr.CodeNotFound {
			t.Errorf("error = %v, want code %s", err, apperr.CodeNotFound)
		}
	})

	t.Run("update failure maps to database error", func(t *testing.T) {
		repo := newFakeQuoteRepo(pendingQuote(1, domain.QuotePending))
		repo.failOn = "update"
		svc := NewApprovalService(repo, fixedClock(now))
		_, err := svc.Approve(1, "")
		appErr := apperr.AsAppError(err)
		if appErr == nil || appErr.Code != apperr.CodeDatabaseError {
			t.Errorf("error = %v, want code %s", err, apperr.CodeDatabaseError)
		}
	})
}
