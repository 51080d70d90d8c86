package worker

import (
	"context"
	"fmt"
	"log/slog"
)

// spawnWorkerPool starts the processing goroutines.
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}

	w.logger.Info("Worker pool spawned",
		slog.Int("worker_count", w.concurrency),
	)
}

// workerLoop is the main processing loop for each pool goroutine. Processing
// outcome decides the broker acknowledgment: terminal outcomes ack, transient
// infrastructure failures nack with requeue.
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("Worker goroutine stopping",
				slog.String("worker_name", workerName),
			)
			return

		case <-ctx.Done():
			w.logger.Info("Worker goroutine stopping - context canceled",
				slog.String("worker_name", workerName),
			)
			return

		case td, ok := <-w.tasksChan:
			if !ok {
				return
			}

			w.logger.Info("Worker received task",
				slog.String("worker_name", workerName),
				slog.String("kind", string(td.task.Kind)),
				slog.String("job_id", td.task.JobID),
			)

			err := w.processTask(ctx, td.task)

			channel := w.rabbitClient.GetChannel()
			if channel == nil {
				w.logger.Error("No RabbitMQ channel for ACK/NACK",
					slog.String("worker_name", workerName),
				)
				continue
			}

			if err != nil {
				w.logger.Error("Task processing failed",
					slog.String("worker_name", workerName),
					slog.String("kind", string(td.task.Kind)),
					slog.String("job_id", td.task.JobID),
					slog.Any("error", err),
				)

				requeue := w.shouldRequeue(err)
				if nackErr := channel.Nack(td.deliveryTag, false, requeue); nackErr != nil {
					w.logger.Error("Failed to NACK message",
						slog.String("worker_name", workerName),
						slog.Any("error", nackErr),
					)
				}
				continue
			}

			if ackErr := channel.Ack(td.deliveryTag, false); ackErr != nil {
				w.logger.Error("Failed to ACK message",
					slog.String("worker_name", workerName),
					slog.Any("error", ackErr),
				)
			}
		}
	}
}
