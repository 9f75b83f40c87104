// Package messaging provides message queue adapters.
package messaging

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"handyman_server/core/port/out"

	"github.com/redis/go-redis/v9"
)

// Stream names
const (
	StreamQuotePending  = "quote:pending"
	StreamQuoteApproved = "quote:approved"
	StreamQuoteRejected = "quote:rejected"
	StreamQuoteSent     = "quote:sent"
	StreamManagerAlert  = "notify:manager"

	// Worker job stream
	StreamAutomationProcess = "automation:process"
)

// RedisProducer implements out.EventProducer using Redis Streams.
type RedisProducer struct {
	client *redis.Client
}

// NewRedisProducer creates a new RedisProducer.
func NewRedisProducer(client *redis.Client) *RedisProducer {
	return &RedisProducer{client: client}
}

// PublishQuotePending publishes a pending-quote-created event.
func (p *RedisProducer) PublishQuotePending(ctx context.Context, event *out.QuoteEvent) error {
	return p.publish(ctx, StreamQuotePending, event)
}

// PublishQuoteApproved publishes a quote-approved event.
func (p *RedisProducer) PublishQuoteApproved(ctx context.Context, event *out.QuoteEvent) error {
	return p.publish(ctx, StreamQuoteApproved, event)
}

// PublishQuoteRejected publishes a quote-rejected event.
func (p *RedisProducer) PublishQuoteRejected(ctx context.Context, event *out.QuoteEvent) error {
	return p.publish(ctx, StreamQuoteRejected, event)
}

// PublishQuoteSent publishes a quote-sent event.
func (p *RedisProducer) PublishQuoteSent(ctx context.Context, event *out.QuoteEvent) error {
	return p.publish(ctx, StreamQuoteSent, event)
}

// PublishManagerAlert publishes a manager notification.
func (p *RedisProducer) PublishManagerAlert(ctx context.Context, alert *out.ManagerAlert) error {
	return p.publish(ctx, StreamManagerAlert, alert)
}

// PublishAutomationProcess enqueues an email for the background worker.
func (p *RedisProducer) PublishAutomationProcess(ctx context.Context, job *out.AutomationProcessJob) error {
	return p.publish(ctx, StreamAutomationProcess, job)
}

// publish publishes a payload to a stream using go-redis.
func (p *RedisProducer) publish(ctx context.Context, stream string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		ID:     "*",
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", stream, err)
	}

	return nil
}

// Ensure RedisProducer implements out.EventProducer
var _ out.EventProducer = (*RedisProducer)(nil)
