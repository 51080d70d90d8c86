package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prodcat/importer-be/internal/importer/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// setupConsumer configures QoS and returns the broker delivery channel.
func (w *Worker) setupConsumer() (<-chan amqp.Delivery, error) {
	channel := w.rabbitClient.GetChannel()
	if channel == nil {
		return nil, fmt.Errorf("rabbitmq channel is nil")
	}

	// Prefetch bounds unacknowledged deliveries per consumer so one worker
	// does not drain the queue ahead of its pool capacity.
	if err := channel.Qos(w.prefetchCount, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := w.rabbitClient.Consume(w.workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("RabbitMQ consumer started",
		slog.String("consumer_tag", w.workerID),
		slog.String("queue", w.rabbitClient.QueueName()),
	)

	return deliveries, nil
}

// dispatchDeliveries decodes task envelopes and hands them to the pool.
// Undecodable or malformed messages are rejected without requeue so they can
// dead-letter instead of looping.
func (w *Worker) dispatchDeliveries(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Task dispatcher stopped - context canceled")
			return

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed")
				return
			}

			var task domain.Task
			if err := json.Unmarshal(delivery.Body, &task); err != nil {
				w.logger.Error("Failed to parse task JSON",
					slog.Any("error", err),
					slog.String("body", string(delivery.Body)),
				)
				w.nack(delivery, false)
				continue
			}

			if err := validateTask(task); err != nil {
				w.logger.Error("Rejecting malformed task",
					slog.String("kind", string(task.Kind)),
					slog.Any("error", err),
				)
				w.nack(delivery, false)
				continue
			}

			select {
			case w.tasksChan <- &taskDelivery{task: task, deliveryTag: delivery.DeliveryTag}:
			case <-ctx.Done():
				// Requeue so another worker can pick it up after shutdown.
				w.nack(delivery, true)
				return
			}
		}
	}
}

func validateTask(task domain.Task) error {
	switch task.Kind {
	case domain.TaskKindImport:
		if _, err := uuid.Parse(task.JobID); err != nil {
			return fmt.Errorf("%w: job_id %q is not a UUID", domain.ErrInvalidTask, task.JobID)
		}
		if task.FilePath == "" {
			return fmt.Errorf("%w: import task missing file_path", domain.ErrInvalidTask)
		}
	case domain.TaskKindWebhook:
		if task.Event == "" {
			return fmt.Errorf("%w: webhook task missing event", domain.ErrInvalidTask)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidTask, task.Kind)
	}
	return nil
}

func (w *Worker) nack(delivery amqp.Delivery, requeue bool) {
	if err := delivery.Nack(false, requeue); err != nil {
		w.logger.Error("Failed to NACK message",
			slog.Uint64("delivery_tag", delivery.DeliveryTag),
			slog.Any("error", err),
		)
	}
}
