package worker

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"handyman_server/core/port/in"
	"handyman_server/core/port/out"
	"handyman_server/pkg/apperr"
	"handyman_server/pkg/logger"
)

// AutomationProcessor runs the rule matching and quote generation pipeline
// for emails enqueued on the automation stream.
type AutomationProcessor struct {
	automationService in.AutomationService
}

// NewAutomationProcessor creates a new automation processor.
func NewAutomationProcessor(automationService in.AutomationService) *AutomationProcessor {
	return &AutomationProcessor{
		automationService: automationService,
	}
}

// ProcessEmail handles automation.process jobs.
func (p *AutomationProcessor) ProcessEmail(ctx context.Context, msg *Message) error {
	payload, err := ParsePayload[out.AutomationProcessJob](msg)
	if err != nil {
		return fmt.Errorf("failed to parse payload: %w", err)
	}

	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		// Unparseable user IDs never become valid; drop instead of retrying.
		logger.Error("Invalid user ID in automation job: %s", payload.UserID)
		return nil
	}

	quote, err := p.automationService.ProcessEmail(ctx, userID, payload.EmailID)
	if err != nil {
		if appErr := apperr.AsAppError(err); appErr != nil && appErr.Code == apperr.CodeNotFound {
			// The email was deleted between enqueue and processing.
			logger.Warn("Automation job for missing email %d, dropping", payload.EmailID)
			return nil
		}
		return fmt.Errorf("failed to process email %d: %w", payload.EmailID, err)
	}

	if quote == nil {
		logger.Info("Email %d processed, no quote generated", payload.EmailID)
		return nil
	}

	logger.Info("Email %d processed, pending quote %d created", payload.EmailID, quote.ID)
	return nil
}
