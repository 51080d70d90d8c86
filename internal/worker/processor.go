package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/prodcat/importer-be/internal/importer/domain"
)

// processTask routes a task to its handler. Import tasks run the coordinator
// to a terminal job state; webhook tasks deliver the event inline, completing
// the queue-backed dispatch path.
func (w *Worker) processTask(ctx context.Context, task domain.Task) error {
	switch task.Kind {
	case domain.TaskKindImport:
		return w.coordinator.Run(ctx, task.JobID, task.FilePath)
	case domain.TaskKindWebhook:
		return w.deliverer.Dispatch(ctx, task.Event, task.Payload)
	default:
		return fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidTask, task.Kind)
	}
}

// shouldRequeue decides the NACK requeue flag. Invalid tasks never requeue;
// everything else surfacing here is an infrastructure failure that left the
// job row non-terminal, so redelivery lets another worker finish the job.
func (w *Worker) shouldRequeue(err error) bool {
	return !errors.Is(err, domain.ErrInvalidTask)
}
