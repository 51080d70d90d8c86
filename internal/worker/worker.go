package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prodcat/importer-be/internal/importer"
	"github.com/prodcat/importer-be/internal/importer/domain"
	"github.com/prodcat/importer-be/internal/importer/storage"
	"github.com/prodcat/importer-be/internal/webhook"
	"github.com/prodcat/importer-be/shared/postgresql"
	"github.com/prodcat/importer-be/shared/rabbitmq"
)

// Config holds worker configuration
type Config struct {
	Logger         *slog.Logger
	DBClient       *postgresql.Client
	RabbitClient   *rabbitmq.Client
	Concurrency    int
	PrefetchCount  int
	ChunkSize      int
	CheckpointRows int
	WebhookTimeout time.Duration
}

// Worker consumes import and webhook tasks from RabbitMQ and processes them
// on a bounded goroutine pool.
type Worker struct {
	logger       *slog.Logger
	rabbitClient *rabbitmq.Client
	coordinator  *importer.Coordinator
	deliverer    *webhook.Deliverer

	concurrency   int
	prefetchCount int
	workerID      string

	tasksChan chan *taskDelivery
	wg        sync.WaitGroup
	stopChan  chan struct{}
}

// taskDelivery pairs a decoded task with its broker delivery tag for ack/nack.
type taskDelivery struct {
	task        domain.Task
	deliveryTag uint64
}

// New wires the import coordinator, webhook deliverer, and queue-backed
// dispatcher on top of the shared clients.
func New(cfg *Config) *Worker {
	store := storage.NewStorage(cfg.DBClient.GetDB(), cfg.Logger)
	deliverer := webhook.NewDeliverer(store, cfg.Logger, cfg.WebhookTimeout)
	dispatcher := webhook.NewQueueDispatcher(cfg.RabbitClient, deliverer, cfg.Logger)
	coordinator := importer.NewCoordinator(store, store, dispatcher, cfg.Logger, cfg.ChunkSize, cfg.CheckpointRows)

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	prefetch := cfg.PrefetchCount
	if prefetch <= 0 {
		prefetch = concurrency
	}

	return &Worker{
		logger:        cfg.Logger,
		rabbitClient:  cfg.RabbitClient,
		coordinator:   coordinator,
		deliverer:     deliverer,
		concurrency:   concurrency,
		prefetchCount: prefetch,
		workerID:      fmt.Sprintf("import-worker-%s", uuid.New().String()[:8]),
		tasksChan:     make(chan *taskDelivery),
		stopChan:      make(chan struct{}),
	}
}

// Start begins consuming tasks. It blocks until the context is canceled or
// the delivery channel closes.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Int("prefetch_count", w.prefetchCount),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return err
	}

	w.spawnWorkerPool(ctx)
	w.dispatchDeliveries(ctx, deliveries)

	return nil
}

// Stop gracefully stops the worker pool.
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker",
		slog.String("worker_id", w.workerID),
	)
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
