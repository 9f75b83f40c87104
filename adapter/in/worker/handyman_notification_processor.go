package worker

import (
	"context"
	"fmt"

	"handyman_server/core/port/out"
	"handyman_server/pkg/logger"
)

// NotificationProcessor delivers manager alerts and quote decision events to
// the configured webhook.
type NotificationProcessor struct {
	dispatcher out.NotificationDispatcher
}

// NewNotificationProcessor creates a new notification processor.
func NewNotificationProcessor(dispatcher out.NotificationDispatcher) *NotificationProcessor {
	return &NotificationProcessor{
		dispatcher: dispatcher,
	}
}

// ProcessManagerAlert handles notify.manager jobs.
func (p *NotificationProcessor) ProcessManagerAlert(ctx context.Context, msg *Message) error {
	if p.dispatcher == nil {
		logger.Debug("No webhook configured, dropping manager alert")
		return nil
	}

	alert, err := ParsePayload[out.ManagerAlert](msg)
	if err != nil {
		return fmt.Errorf("failed to parse payload: %w", err)
	}

	if err := p.dispatcher.DispatchQuoteReady(ctx, alert); err != nil {
		return fmt.Errorf("failed to dispatch manager alert for email %d: %w", alert.EmailID, err)
	}

	logger.Info("Dispatched manager alert for email %d (%s)", alert.EmailID, alert.Reason)
	return nil
}

// ProcessQuoteDecision handles quote.decision jobs.
func (p *NotificationProcessor) ProcessQuoteDecision(ctx context.Context, msg *Message) error {
	if p.dispatcher == nil {
		logger.Debug("No webhook configured, dropping quote decision event")
		return nil
	}

	event, err := ParsePayload[out.QuoteEvent](msg)
	if err != nil {
		return fmt.Errorf("failed to parse payload: %w", err)
	}

	if err := p.dispatcher.DispatchQuoteDecision(ctx, event); err != nil {
		return fmt.Errorf("failed to dispatch decision for quote %d: %w", event.QuoteID, err)
	}

	logger.Info("Dispatched %s event for quote %d", event.Status, event.QuoteID)
	return nil
}
