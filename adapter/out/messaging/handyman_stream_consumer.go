package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// JobHandler processes a single message read from a stream.
type JobHandler interface {
	Handle(ctx context.Context, stream string, data []byte) error
}

// ConsumerConfig configures a Redis Streams consumer group member.
type ConsumerConfig struct {
	Group    string
	Consumer string
	Streams  []string
	Handler  JobHandler
	Logger   zerolog.Logger

	// BatchSize is the max number of messages read per XREADGROUP call.
	BatchSize int
	// Block is how long a read blocks when no messages are available.
	Block time.Duration
	// PendingCheckInterval is how often stuck messages are reclaimed.
	PendingCheckInterval time.Duration
	// PendingIdleTime is how long a message must sit unacked before reclaim.
	PendingIdleTime time.Duration
	// MaxRetries is the delivery count after which a message goes to the DLQ.
	MaxRetries int
}

// Consumer reads messages from Redis Streams as part of a consumer group,
// acks them on success, and reclaims messages left pending by dead consumers.
type Consumer struct {
	client *redis.Client
	cfg    *ConsumerConfig
	log    zerolog.Logger
}

// NewConsumer creates a Consumer with defaults filled in for zero-valued settings.
func NewConsumer(client *redis.Client, cfg *ConsumerConfig) *Consumer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.PendingCheckInterval <= 0 {
		cfg.PendingCheckInterval = 30 * time.Second
	}
	if cfg.PendingIdleTime <= 0 {
		cfg.PendingIdleTime = time.Minute
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &Consumer{
		client: client,
		cfg:    cfg,
		log:    cfg.Logger.With().Str("group", cfg.Group).Str("consumer", cfg.Consumer).Logger(),
	}
}

// Run blocks consuming messages until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.createConsumerGroups(ctx); err != nil {
		return err
	}

	go c.reclaimLoop(ctx)

	c.log.Info().Strs("streams", c.cfg.Streams).Msg("stream consumer started")

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("stream consumer stopping")
			return ctx.Err()
		default:
		}

		if err := c.readMessages(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			c.log.Error().Err(err).Msg("read failed, backing off")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
		}
	}
}

// createConsumerGroups ensures the consumer group exists on every stream.
func (c *Consumer) createConsumerGroups(ctx context.Context) error {
	for _, stream := range c.cfg.Streams {
		err := c.client.XGroupCreateMkStream(ctx, stream, c.cfg.Group, "0").Err()
		if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
			return fmt.Errorf("failed to create group on %s: %w", stream, err)
		}
	}
	return nil
}

func (c *Consumer) readMessages(ctx context.Context) error {
	// XREADGROUP wants stream names followed by ">" cursors.
	args := make([]string, 0, len(c.cfg.Streams)*2)
	args = append(args, c.cfg.Streams...)
	for range c.cfg.Streams {
		args = append(args, ">")
	}

	results, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		Streams:  args,
		Count:    int64(c.cfg.BatchSize),
		Block:    c.cfg.Block,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return err
	}

	for _, result := range results {
		for _, msg := range result.Messages {
			c.processMessage(ctx, result.Stream, msg)
		}
	}
	return nil
}

// processMessage hands the payload to the handler and acks on success.
// Failed messages are left pending so the reclaim loop can retry them.
func (c *Consumer) processMessage(ctx context.Context, stream string, msg redis.XMessage) {
	data, ok := msg.Values["data"].(string)
	if !ok {
		c.log.Error().Str("stream", stream).Str("id", msg.ID).Msg("message missing data field, acking")
		c.ack(ctx, stream, msg.ID)
		return
	}

	if err := c.cfg.Handler.Handle(ctx, stream, []byte(data)); err != nil {
		c.log.Error().Err(err).Str("stream", stream).Str("id", msg.ID).Msg("handler failed, message stays pending")
		return
	}

	c.ack(ctx, stream, msg.ID)
}

func (c *Consumer) ack(ctx context.Context, stream, id string) {
	if err := c.client.XAck(ctx, stream, c.cfg.Group, id).Err(); err != nil {
		c.log.Error().Err(err).Str("stream", stream).Str("id", id).Msg("ack failed")
	}
}

// reclaimLoop periodically claims messages that have been pending too long,
// either from this consumer's earlier failures or from a dead consumer.
func (c *Consumer) reclaimLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.PendingCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, stream := range c.cfg.Streams {
				c.reclaimPending(ctx, stream)
			}
		}
	}
}

func (c *Consumer) reclaimPending(ctx context.Context, stream string) {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: stream,
		Group:  c.cfg.Group,
		Start:  "-",
		End:    "+",
		Count:  int64(c.cfg.BatchSize),
		Idle:   c.cfg.PendingIdleTime,
	}).Result()
	if err != nil {
		if err != redis.Nil {
			c.log.Error().Err(err).Str("stream", stream).Msg("pending check failed")
		}
		return
	}

	for _, p := range pending {
		if int(p.RetryCount) >= c.cfg.MaxRetries {
			c.moveToDeadLetter(ctx, stream, p.ID)
			continue
		}

		claimed, err := c.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   stream,
			Group:    c.cfg.Group,
			Consumer: c.cfg.Consumer,
			MinIdle:  c.cfg.PendingIdleTime,
			Messages: []string{p.ID},
		}).Result()
		if err != nil {
			c.log.Error().Err(err).Str("stream", stream).Str("id", p.ID).Msg("claim failed")
			continue
		}

		for _, msg := range claimed {
			c.log.Info().Str("stream", stream).Str("id", msg.ID).Int64("retries", p.RetryCount).
				Msg("reclaimed pending message")
			c.processMessage(ctx, stream, msg)
		}
	}
}

// moveToDeadLetter copies an exhausted message to dlq:<stream> and acks it.
func (c *Consumer) moveToDeadLetter(ctx context.Context, stream, id string) {
	msgs, err := c.client.XRange(ctx, stream, id, id).Result()
	if err != nil || len(msgs) == 0 {
		c.log.Error().Err(err).Str("stream", stream).Str("id", id).Msg("failed to read message for DLQ")
		c.ack(ctx, stream, id)
		return
	}

	values := map[string]interface{}{
		"original_id":     id,
		"original_stream": stream,
		"failed_at":       time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range msgs[0].Values {
		values[k] = v
	}

	err = c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: "dlq:" + stream,
		ID:     "*",
		Values: values,
	}).Err()
	if err != nil {
		c.log.Error().Err(err).Str("stream", stream).Str("id", id).Msg("DLQ write failed")
		return
	}

	c.ack(ctx, stream, id)
	c.log.Warn().Str("stream", stream).Str("id", id).Msg("message moved to DLQ")
}
