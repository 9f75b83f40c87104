package automation

import (
	"strings"
	"time"

	"handyman_server/core/domain"
	"handyman_server/pkg/apperr"
)

// =============================================================================
// Approval State Machine
// =============================================================================

// ApprovalService applies manager decisions to pending quotes. Transitions
// are synchronous single-step mutations; the legal graph is strictly
// pending -> {approved, rejected} and approved -> sent. Persistence is the
// injected repository's concern; callers serialize concurrent actions on the
// same quote.
type ApprovalService struct {
	quoteRepo domain.PendingQuoteRepository
	clock     Clock
}

// NewApprovalService creates a new approval service.
func NewApprovalService(quoteRepo domain.PendingQuoteRepository, clock Clock) *ApprovalService {
	if clock == nil {
		clock = time.Now
	}
	return &ApprovalService{quoteRepo: quoteRepo, clock: clock}
}

// Approve transitions a pending quote to approved and merges manager notes.
func (s *ApprovalService) Approve(id int64, notes string) (*domain.PendingQuote, error) {
	return s.transition(id, notes, func(q *domain.PendingQuote, now time.Time) error {
		return q.Approve(now)
	})
}

// Reject transitions a pending quote to rejected and merges manager notes.
func (s *ApprovalService) Reject(id int64, notes string) (*domain.PendingQuote, error) {
	return s.transition(id, notes, func(q *domain.PendingQuote, now time.Time) error {
		return q.Reject(now)
	})
}

// MarkSent transitions an approved quote to sent. Any other origin state is
// a caller bug and fails with an invalid-transition error; the UI must not
// offer "send" outside the approved state, but the core enforces the guard.
func (s *ApprovalService) MarkSent(id int64, notes string) (*domain.PendingQuote, error) {
	return s.transition(id, notes, func(q *domain.PendingQuote, now time.Time) error {
		return q.MarkSent(now)
	})
}

// transition loads, mutates and saves one quote.
func (s *ApprovalService) transition(id int64, notes string, apply func(*domain.PendingQuote, time.Time) error) (*domain.PendingQuote, error) {
	quote, err := s.quoteRepo.GetByID(id)
	if err != nil {
		return nil, apperr.NotFound("pending quote").WithError(err)
	}

	if err := apply(quote, s.clock()); err != nil {
		return nil, apperr.InvalidTransition(err)
	}

	if notes = strings.TrimSpace(notes); notes != "" {
		if quote.ManagerNotes != "" {
			quote.ManagerNotes += "\n" + notes
		} else {
			quote.ManagerNotes = notes
		}
	}

	if err := s.quoteRepo.Update(quote); err != nil {
		return nil, apperr.DatabaseError("update pending quote", err)
	}

	return quote, nil
}
