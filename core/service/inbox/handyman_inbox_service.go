// Package inbox implements email read access and ingestion. The actual mail
// fetching lives in an external collector; this service only stores what the
// collector posts and hands it to automation.
package inbox

import (
	"context"
	"strings"
	"time"

	"handyman_server/core/domain"
	"handyman_server/core/port/in"
	"handyman_server/core/port/out"
	"handyman_server/pkg/apperr"
	"handyman_server/pkg/logger"

	"github.com/google/uuid"
)

// Service handles stored emails.
type Service struct {
	emailRepo domain.EmailRepository
	producer  out.EventProducer
	nextID    func() int64
	now       func() time.Time
}

// NewService creates an inbox service. producer may be nil; ingestion then
// never enqueues automation.
func NewService(emailRepo domain.EmailRepository, producer out.EventProducer, nextID func() int64, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		emailRepo: emailRepo,
		producer:  producer,
		nextID:    nextID,
		now:       now,
	}
}

// GetEmail returns one email, scoped to the owner.
func (s *Service) GetEmail(ctx context.Context, userID uuid.UUID, emailID int64) (*domain.Email, error) {
	email, err := s.emailRepo.GetByID(emailID)
	if err != nil {
		return nil, apperr.NotFound("email").WithError(err)
	}
	if email.UserID != userID {
		return nil, apperr.Forbidden("email belongs to another user")
	}
	return email, nil
}

// ListEmails returns emails matching the filter.
func (s *Service) ListEmails(ctx context.Context, filter *domain.EmailFilter) ([]*domain.Email, int, error) {
	emails, total, err := s.emailRepo.List(filter)
	if err != nil {
		return nil, 0, apperr.DatabaseError("list emails", err)
	}
	return emails, total, nil
}

// IngestEmail stores one collected email and optionally enqueues it for
// background automation.
func (s *Service) IngestEmail(ctx context.Context, userID uuid.UUID, req *in.IngestEmailRequest) (*domain.Email, error) {
	fromEmail := strings.TrimSpace(strings.ToLower(req.FromEmail))
	if fromEmail == "" {
		return nil, apperr.BadRequest("from_email is required")
	}
	if req.Confidence < 0 || req.Confidence > 1 {
		return nil, apperr.BadRequest("confidence must be between 0.0 and 1.0")
	}
	category := domain.ParseEmailCategory(req.Category)

	now := s.now()
	receivedAt := now
	if req.ReceivedAt != nil {
		receivedAt = *req.ReceivedAt
	}

	email := &domain.Email{
		ID:         s.nextID(),
		UserID:     userID,
		Subject:    strings.TrimSpace(req.Subject),
		FromEmail:  fromEmail,
		FromName:   req.FromName,
		Body:       req.Body,
		Snippet:    snippet(req.Body),
		Category:   category,
		Confidence: req.Confidence,
		ReceivedAt: receivedAt,
		CreatedAt:  now,
	}

	if err := s.emailRepo.Create(email); err != nil {
		return nil, apperr.DatabaseError("create email", err)
	}

	if req.AutoProcess && s.producer != nil {
		job := &out.AutomationProcessJob{
			UserID:  userID.String(),
			EmailID: email.ID,
		}
		if err := s.producer.PublishAutomationProcess(ctx, job); err != nil {
			// The email is stored; a manual process call can still run it.
			logger.WithError(err).WithField("email_id", email.ID).Warn("automation enqueue failed")
		}
	}

	return email, nil
}

// snippet keeps the first line-ish of the body for list views.
func snippet(body string) string {
	const max = 120
	cleaned := strings.Join(strings.Fields(body), " ")
	if len(cleaned) <= max {
		return cleaned
	}
	return cleaned[:max]
}
