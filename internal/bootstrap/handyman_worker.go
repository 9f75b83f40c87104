package bootstrap

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"handyman_server/adapter/in/worker"
	"handyman_server/adapter/out/messaging"
	"handyman_server/config"
	"handyman_server/pkg/logger"

	"github.com/rs/zerolog"
)

type Worker struct {
	pool     *worker.Pool
	consumer *messaging.Consumer
	deps     *Dependencies
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	zlog     zerolog.Logger
}

func NewWorker(cfg *config.Config) (*Worker, func(), error) {
	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		return nil, nil, err
	}

	// Logger
	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		With().Timestamp().Str("component", "worker").Logger()

	// Processors
	automationProcessor := worker.NewAutomationProcessor(deps.AutomationService)
	notificationProcessor := worker.NewNotificationProcessor(deps.Notifier)

	handler := worker.NewHandler(automationProcessor, notificationProcessor)

	// Pool config (inherit per-job timeouts from the defaults)
	defaultConfig := worker.DefaultPoolConfig()
	poolConfig := &worker.PoolConfig{
		MaxWorkers:       cfg.WorkerMax,
		QueueSize:        cfg.WorkerQueueSize,
		JobTimeout:       defaultConfig.JobTimeout,
		JobTimeoutByType: defaultConfig.JobTimeoutByType,
		BatchSize:        defaultConfig.BatchSize,
		WorkerChanSize:   defaultConfig.WorkerChanSize,
		MaxRetries:       cfg.ConsumerMaxRetries,
		RatePerSecond:    defaultConfig.RatePerSecond,
	}
	if poolConfig.MaxWorkers == 0 {
		poolConfig.MaxWorkers = defaultConfig.MaxWorkers
	}
	if poolConfig.QueueSize == 0 {
		poolConfig.QueueSize = defaultConfig.QueueSize
	}
	if poolConfig.MaxRetries == 0 {
		poolConfig.MaxRetries = defaultConfig.MaxRetries
	}

	pool := worker.NewPool(handler, poolConfig, zlog)

	ctx, cancel := context.WithCancel(context.Background())

	w := &Worker{
		pool:   pool,
		deps:   deps,
		ctx:    ctx,
		cancel: cancel,
		zlog:   zlog,
	}

	// Redis Stream consumer (only when Redis is available)
	if deps.Redis != nil {
		streams := []string{
			messaging.StreamAutomationProcess,
			messaging.StreamManagerAlert,
			messaging.StreamQuoteApproved,
			messaging.StreamQuoteRejected,
			messaging.StreamQuoteSent,
		}

		w.consumer = messaging.NewConsumer(deps.Redis, &messaging.ConsumerConfig{
			Group:                "handyman-workers",
			Consumer:             cfg.WorkerID,
			Streams:              streams,
			Handler:              &streamHandler{worker: w},
			Logger:               zlog,
			BatchSize:            cfg.ConsumerBatchSize,
			Block:                time.Duration(cfg.ConsumerBlockMS) * time.Millisecond,
			PendingCheckInterval: time.Duration(cfg.ConsumerPendingCheckSec) * time.Second,
			MaxRetries:           cfg.ConsumerMaxRetries,
		})
		logger.Info("Redis Stream Consumer configured for %d streams", len(streams))
	} else {
		logger.Warn("Redis not available, worker will only process direct submissions")
	}

	return w, cleanup, nil
}

// streamHandler adapts Redis Stream messages to the worker pool
type streamHandler struct {
	worker *Worker
}

func (h *streamHandler) Handle(ctx context.Context, stream string, data []byte) error {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		logger.Error("[StreamHandler] Failed to parse payload from %s: %v", stream, err)
		return err
	}

	jobType := streamToJobType(stream)
	msg := worker.NewMessage(jobType, payload)

	if !h.worker.pool.Submit(msg) {
		logger.Error("[StreamHandler] Failed to submit job to pool: %s", jobType)
	}

	return nil
}

// streamToJobType maps Redis stream names to job types
func streamToJobType(stream string) string {
	switch stream {
	case messaging.StreamAutomationProcess:
		return worker.JobAutomationProcess
	case messaging.StreamManagerAlert:
		return worker.JobManagerNotify
	case messaging.StreamQuoteApproved, messaging.StreamQuoteRejected, messaging.StreamQuoteSent:
		return worker.JobQuoteDecision
	default:
		return stream
	}
}

func (w *Worker) Start() {
	w.pool.Start()

	if w.consumer != nil {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.zlog.Info().Msg("Starting Redis Stream Consumer...")
			if err := w.consumer.Run(w.ctx); err != nil && err != context.Canceled {
				w.zlog.Error().Err(err).Msg("Redis Stream Consumer error")
			}
		}()
	}

	// Block until context is cancelled
	<-w.ctx.Done()
}

func (w *Worker) Stop() {
	w.cancel()
	w.pool.Stop()
	w.wg.Wait()
}

func (w *Worker) Submit(msg *worker.Message) bool {
	return w.pool.Submit(msg)
}

func (w *Worker) GetMetrics() worker.PoolMetrics {
	return w.pool.GetMetrics()
}

func (w *Worker) Dependencies() *Dependencies {
	return w.deps
}
