package automation

import (
	"context"
	"strconv"
	"time"

	"handyman_server/core/domain"
	"handyman_server/core/port/in"
	"handyman_server/core/port/out"
	"handyman_server/pkg/apperr"
	"handyman_server/pkg/logger"

	"github.com/google/uuid"
)

// dedupTTL bounds the processing lock per email. Long enough to cover a slow
// pipeline run, short enough that a crashed worker releases the email.
const dedupTTL = 2 * time.Minute

// Service wires the automation core to its collaborators: repositories,
// the event stream, the manager notifier and the dedup cache. It implements
// in.AutomationService for both the HTTP handlers and the background worker.
type Service struct {
	emailRepo   domain.EmailRepository
	ruleRepo    domain.RuleRepository
	serviceRepo domain.ServiceRepository
	quoteRepo   domain.PendingQuoteRepository

	orchestrator *Orchestrator
	approval     *ApprovalService

	producer out.EventProducer
	notifier out.NotificationDispatcher
	cache    out.Cache
}

// NewService creates the automation application service. Producer, notifier
// and cache may be nil; the pipeline then runs without events, notifications
// or cross-instance dedup.
func NewService(
	emailRepo domain.EmailRepository,
	ruleRepo domain.RuleRepository,
	serviceRepo domain.ServiceRepository,
	quoteRepo domain.PendingQuoteRepository,
	orchestrator *Orchestrator,
	approval *ApprovalService,
	producer out.EventProducer,
	notifier out.NotificationDispatcher,
	cache out.Cache,
) *Service {
	return &Service{
		emailRepo:    emailRepo,
		ruleRepo:     ruleRepo,
		serviceRepo:  serviceRepo,
		quoteRepo:    quoteRepo,
		orchestrator: orchestrator,
		approval:     approval,
		producer:     producer,
		notifier:     notifier,
		cache:        cache,
	}
}

// ProcessEmail runs the automation pipeline for one stored email.
//
// Idempotent: an email already marked processed returns its existing pending
// quote (or nil) without re-running the pipeline, and a Redis lock keeps
// concurrent workers from double-processing the same email.
func (s *Service) ProcessEmail(ctx context.Context, userID uuid.UUID, emailID int64) (*domain.PendingQuote, error) {
	email, err := s.emailRepo.GetByID(emailID)
	if err != nil {
		return nil, apperr.NotFound("email").WithError(err)
	}
	if email.UserID != userID {
		return nil, apperr.Forbidden("email belongs to another user")
	}

	if email.Processed {
		quote, _ := s.quoteRepo.GetByEmailID(emailID)
		return quote, nil
	}

	release, ok := s.acquireLock(ctx, emailID)
	if !ok {
		// Another worker holds this email; treat as already handled.
		logger.WithField("email_id", emailID).Debug("automation skipped: email locked")
		return nil, nil
	}
	defer release()

	rules, err := s.ruleRepo.ListActiveByUser(userID)
	if err != nil {
		return nil, apperr.DatabaseError("list automation rules", err)
	}
	services, err := s.serviceRepo.ListActiveByUser(userID)
	if err != nil {
		return nil, apperr.DatabaseError("list services", err)
	}
	catalog := domain.NewCatalogIndex(services)

	pending, err := s.orchestrator.Process(ctx, email, rules, catalog)
	if err != nil {
		return nil, err
	}

	// Processed means "automation ran", independent of whether it produced
	// a quote. Failures below this point do not re-run the pipeline.
	if err := s.emailRepo.MarkProcessed(emailID); err != nil {
		logger.WithError(err).WithField("email_id", emailID).Warn("mark processed failed")
	}

	if pending == nil {
		s.alertNotifyOnlyRule(ctx, email, rules)
		return nil, nil
	}

	if err := s.quoteRepo.Create(pending); err != nil {
		return nil, apperr.DatabaseError("create pending quote", err)
	}

	rule := ruleByID(rules, pending.RuleID)
	if rule != nil {
		if err := s.ruleRepo.IncrementHitCount(rule.ID); err != nil {
			logger.WithError(err).WithField("rule_id", rule.ID).Warn("increment hit count failed")
		}
	}

	s.publishQuoteEvent(ctx, pending, rule)
	s.notifyManager(ctx, email, pending, rule)

	logger.WithFields(map[string]any{
		"email_id":   emailID,
		"quote_id":   pending.ID,
		"rule_id":    pending.RuleID,
		"confidence": pending.Analysis.Confidence,
	}).Info("automation generated pending quote")

	return pending, nil
}

// GetPendingQuote returns one pending quote, scoped to the owner.
func (s *Service) GetPendingQuote(ctx context.Context, userID uuid.UUID, quoteID int64) (*domain.PendingQuote, error) {
	quote, err := s.quoteRepo.GetByID(quoteID)
	if err != nil {
		return nil, apperr.NotFound("pending quote").WithError(err)
	}
	if quote.UserID != userID {
		return nil, apperr.Forbidden("quote belongs to another user")
	}
	return quote, nil
}

// ListPendingQuotes returns pending quotes matching the filter.
func (s *Service) ListPendingQuotes(ctx context.Context, filter *domain.PendingQuoteFilter) ([]*domain.PendingQuote, int, error) {
	quotes, total, err := s.quoteRepo.List(filter)
	if err != nil {
		return nil, 0, apperr.DatabaseError("list pending quotes", err)
	}
	return quotes, total, nil
}

// ApproveQuote approves a pending quote and publishes the decision.
func (s *Service) ApproveQuote(ctx context.Context, userID uuid.UUID, quoteID int64, notes string) (*domain.PendingQuote, error) {
	return s.decide(ctx, userID, quoteID, notes, s.approval.Approve)
}

// RejectQuote rejects a pending quote and publishes the decision.
func (s *Service) RejectQuote(ctx context.Context, userID uuid.UUID, quoteID int64, notes string) (*domain.PendingQuote, error) {
	return s.decide(ctx, userID, quoteID, notes, s.approval.Reject)
}

// SendQuote marks an approved quote sent and flags the source email as
// responded. The actual outbound delivery belongs to the mail collaborator.
func (s *Service) SendQuote(ctx context.Context, userID uuid.UUID, quoteID int64, notes string) (*domain.PendingQuote, error) {
	quote, err := s.decide(ctx, userID, quoteID, notes, s.approval.MarkSent)
	if err != nil {
		return nil, err
	}
	if err := s.emailRepo.MarkResponded(quote.EmailID); err != nil {
		logger.WithError(err).WithField("email_id", quote.EmailID).Warn("mark responded failed")
	}
	return quote, nil
}

// GetMetrics aggregates automation metrics for the user within the window.
func (s *Service) GetMetrics(ctx context.Context, userID uuid.UUID, req *in.MetricsRequest) (*domain.AutomationMetrics, error) {
	filter := &domain.PendingQuoteFilter{UserID: userID}
	if req != nil {
		if from, err := time.Parse("2006-01-02", req.DateFrom); err == nil {
			filter.DateFrom = &from
		}
		if to, err := time.Parse("2006-01-02", req.DateTo); err == nil {
			end := to.AddDate(0, 0, 1)
			filter.DateTo = &end
		}
	}

	quotes, _, err := s.quoteRepo.List(filter)
	if err != nil {
		return nil, apperr.DatabaseError("list pending quotes", err)
	}

	periodKey := MonthlyPeriod
	if req != nil && req.Period == "daily" {
		periodKey = DailyPeriod
	}
	metrics := Aggregate(quotes, periodKey)
	return &metrics, nil
}

// decide runs one approval transition with ownership check and event publish.
func (s *Service) decide(ctx context.Context, userID uuid.UUID, quoteID int64, notes string, action func(int64, string) (*domain.PendingQuote, error)) (*domain.PendingQuote, error) {
	current, err := s.quoteRepo.GetByID(quoteID)
	if err != nil {
		return nil, apperr.NotFound("pending quote").WithError(err)
	}
	if current.UserID != userID {
		return nil, apperr.Forbidden("quote belongs to another user")
	}

	quote, err := action(quoteID, notes)
	if err != nil {
		return nil, err
	}

	s.publishQuoteEvent(ctx, quote, nil)

	if s.notifier != nil {
		event := quoteEvent(quote, nil)
		if err := s.notifier.DispatchQuoteDecision(ctx, event); err != nil {
			logger.WithError(err).WithField("quote_id", quote.ID).Warn("decision notification failed")
		}
	}

	return quote, nil
}

// acquireLock takes the per-email dedup lock. Without a cache it is a no-op
// that always succeeds.
func (s *Service) acquireLock(ctx context.Context, emailID int64) (func(), bool) {
	if s.cache == nil {
		return func() {}, true
	}
	key := "automation:lock:" + strconv.FormatInt(emailID, 10)
	ok, err := s.cache.Lock(ctx, key, dedupTTL)
	if err != nil {
		// Cache down: proceed unlocked, the Processed flag still guards.
		logger.WithError(err).Warn("dedup lock unavailable")
		return func() {}, true
	}
	if !ok {
		return nil, false
	}
	return func() {
		if err := s.cache.Unlock(context.WithoutCancel(ctx), key); err != nil {
			logger.WithError(err).Debug("dedup unlock failed")
		}
	}, true
}

// alertNotifyOnlyRule covers rules that matched but do not generate quotes.
// The manager still gets pinged when the rule asks for it.
func (s *Service) alertNotifyOnlyRule(ctx context.Context, email *domain.Email, rules []*domain.AutomationRule) {
	selection := SelectRule(email, rules)
	if selection == nil || !selection.Rule.Actions.NotifyManager || selection.Rule.Actions.GenerateQuote {
		return
	}

	if err := s.ruleRepo.IncrementHitCount(selection.Rule.ID); err != nil {
		logger.WithError(err).WithField("rule_id", selection.Rule.ID).Warn("increment hit count failed")
	}

	alert := &out.ManagerAlert{
		UserID:   email.UserID.String(),
		EmailID:  email.ID,
		RuleName: selection.Rule.Name,
		Subject:  email.Subject,
		Reason:   "rule_notify",
		At:       time.Now(),
	}
	if s.producer != nil {
		if err := s.producer.PublishManagerAlert(ctx, alert); err != nil {
			logger.WithError(err).WithField("email_id", email.ID).Warn("manager alert publish failed")
		}
	}
	if s.notifier != nil {
		if err := s.notifier.DispatchQuoteReady(ctx, alert); err != nil {
			logger.WithError(err).WithField("email_id", email.ID).Warn("manager notification failed")
		}
	}
}

// notifyManager publishes the "quote ready for review" alert after a
// successful pipeline run.
func (s *Service) notifyManager(ctx context.Context, email *domain.Email, pending *domain.PendingQuote, rule *domain.AutomationRule) {
	reason := "quote_ready"
	ruleName := ""
	if rule != nil {
		ruleName = rule.Name
		// Auto-send stays behind manager approval; flag it so the manager
		// knows the rule wanted immediate dispatch.
		if rule.Actions.AutoSend {
			reason = "auto_send_blocked"
		}
	}

	alert := &out.ManagerAlert{
		UserID:   email.UserID.String(),
		EmailID:  email.ID,
		QuoteID:  pending.ID,
		RuleName: ruleName,
		Subject:  email.Subject,
		Reason:   reason,
		At:       pending.ProcessedAt,
	}

	if s.producer != nil && (rule == nil || rule.Actions.NotifyManager || rule.Actions.AutoSend) {
		if err := s.producer.PublishManagerAlert(ctx, alert); err != nil {
			logger.WithError(err).WithField("quote_id", pending.ID).Warn("manager alert publish failed")
		}
	}
	if s.notifier != nil {
		if err := s.notifier.DispatchQuoteReady(ctx, alert); err != nil {
			logger.WithError(err).WithField("quote_id", pending.ID).Warn("manager notification failed")
		}
	}
}

// publishQuoteEvent emits the lifecycle event matching the quote's status.
func (s *Service) publishQuoteEvent(ctx context.Context, quote *domain.PendingQuote, rule *domain.AutomationRule) {
	if s.producer == nil {
		return
	}

	event := quoteEvent(quote, rule)
	var err error
	switch quote.Status {
	case domain.QuotePending:
		err = s.producer.PublishQuotePending(ctx, event)
	case domain.QuoteApproved:
		err = s.producer.PublishQuoteApproved(ctx, event)
	case domain.QuoteRejected:
		err = s.producer.PublishQuoteRejected(ctx, event)
	case domain.QuoteSent:
		err = s.producer.PublishQuoteSent(ctx, event)
	}
	if err != nil {
		logger.WithError(err).WithFields(map[string]any{
			"quote_id": quote.ID,
			"status":   quote.Status,
		}).Warn("quote event publish failed")
	}
}

func quoteEvent(quote *domain.PendingQuote, rule *domain.AutomationRule) *out.QuoteEvent {
	event := &out.QuoteEvent{
		UserID:  quote.UserID.String(),
		QuoteID: quote.ID,
		EmailID: quote.EmailID,
		RuleID:  quote.RuleID,
		Status:  string(quote.Status),
		At:      time.Now(),
	}
	if rule != nil {
		event.RuleName = rule.Name
	}
	if quote.Quote != nil {
		event.Total = quote.Quote.Total
	}
	return event
}

func ruleByID(rules []*domain.AutomationRule, id int64) *domain.AutomationRule {
	for _, r := range rules {
		if r.ID == id {
			return r
		}
	}
	return nil
}
