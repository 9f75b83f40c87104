// Package notification delivers manager-facing notifications over HTTP.
package notification

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"

	"handyman_server/core/port/out"
	"handyman_server/pkg/logger"
)

// WebhookConfig holds webhook dispatcher configuration.
type WebhookConfig struct {
	URL        string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// WebhookNotifier posts manager alerts and quote decision events as JSON to a
// configured endpoint. A circuit breaker keeps a dead endpoint from stalling
// the worker pool.
type WebhookNotifier struct {
	cfg    *WebhookConfig
	client *http.Client
	cb     *gobreaker.CircuitBreaker
}

// NewWebhookNotifier creates a webhook notifier. Returns nil when no URL is
// configured so callers can wire the absence of a webhook explicitly.
func NewWebhookNotifier(cfg *WebhookConfig) *WebhookNotifier {
	if cfg == nil || cfg.URL == "" {
		return nil
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}

	cbSettings := gobreaker.Settings{
		Name:        "manager-webhook",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("[CircuitBreaker] %s: state changed from %s to %s", name, from.String(), to.String())
		},
	}

	return &WebhookNotifier{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		cb:     gobreaker.NewCircuitBreaker(cbSettings),
	}
}

// webhookEnvelope is the wire format posted to the endpoint.
type webhookEnvelope struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// DispatchQuoteReady notifies the manager that an email needs attention.
func (n *WebhookNotifier) DispatchQuoteReady(ctx context.Context, alert *out.ManagerAlert) error {
	return n.post(ctx, "manager.alert", alert)
}

// DispatchQuoteDecision notifies downstream systems of a quote state change.
func (n *WebhookNotifier) DispatchQuoteDecision(ctx context.Context, event *out.QuoteEvent) error {
	return n.post(ctx, "quote."+event.Status, event)
}

func (n *WebhookNotifier) post(ctx context.Context, event string, data interface{}) error {
	body, err := json.Marshal(&webhookEnvelope{
		Event:     event,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= n.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(n.cfg.RetryDelay):
			}
		}

		_, lastErr = n.cb.Execute(func() (interface{}, error) {
			return nil, n.send(ctx, body)
		})
		if lastErr == nil {
			return nil
		}
		if lastErr == gobreaker.ErrOpenState || lastErr == gobreaker.ErrTooManyRequests {
			// Retrying against an open circuit only burns time.
			break
		}

		logger.Warn("Webhook delivery attempt %d failed: %v", attempt+1, lastErr)
	}

	return fmt.Errorf("webhook delivery failed after retries: %w", lastErr)
}

func (n *WebhookNotifier) send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
