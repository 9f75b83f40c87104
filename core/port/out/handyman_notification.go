package out

import "context"

// NotificationDispatcher delivers manager-facing notifications to an
// external channel (webhook today). Delivery is best effort; automation
// outcomes never depend on it.
type NotificationDispatcher interface {
	DispatchQuoteReady(ctx context.Context, alert *ManagerAlert) error
	DispatchQuoteDecision(ctx context.Context, event *QuoteEvent) error
}
