package worker

import (
	"context"

	"github.com/goccy/go-json"

	"handyman_server/pkg/logger"
)

type Handler struct {
	automationProcessor   *AutomationProcessor
	notificationProcessor *NotificationProcessor
}

func NewHandler(
	automationProcessor *AutomationProcessor,
	notificationProcessor *NotificationProcessor,
) *Handler {
	return &Handler{
		automationProcessor:   automationProcessor,
		notificationProcessor: notificationProcessor,
	}
}

func (h *Handler) Process(ctx context.Context, msg *Message) error {
	logger.Debug("Processing message: %s", msg.Type)

	switch msg.Type {
	case JobAutomationProcess:
		return h.automationProcessor.ProcessEmail(ctx, msg)

	case JobManagerNotify:
		return h.notificationProcessor.ProcessManagerAlert(ctx, msg)
	case JobQuoteDecision:
		return h.notificationProcessor.ProcessQuoteDecision(ctx, msg)

	default:
		logger.Warn("Unknown job type: %s", msg.Type)
		return nil
	}
}

func ParsePayload[T any](msg *Message) (*T, error) {
	var payload T
	data, err := json.Marshal(msg.Payload)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
