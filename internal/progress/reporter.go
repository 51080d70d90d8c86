package progress

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prodcat/importer-be/internal/importer/domain"
)

const (
	// StatusInvalidID is emitted when the requested job id has the wrong shape.
	StatusInvalidID = "invalid_id"
	// StatusNotFound is emitted when the job id does not resolve to a job.
	StatusNotFound = "not_found"

	DefaultPollInterval = 500 * time.Millisecond
	DefaultMaxPolls     = 600

	jobIDLength = 36
)

// Snapshot is one progress update as exposed to subscribers.
type Snapshot struct {
	Status    string `json:"status"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
	Percent   int    `json:"percent"`
	Error     string `json:"error,omitempty"`
}

// JobReader provides cache-bypassing reads of the job record. Every call must
// observe the latest committed state, because the reader runs concurrently
// with the import worker.
type JobReader interface {
	GetJobFresh(ctx context.Context, jobID string) (*domain.ImportJob, error)
}

// Reporter polls the job store at a fixed interval and emits snapshots until
// a terminal status is observed or the poll budget runs out.
type Reporter struct {
	jobs     JobReader
	logger   *slog.Logger
	interval time.Duration
	maxPolls int
}

func NewReporter(jobs JobReader, logger *slog.Logger, interval time.Duration, maxPolls int) *Reporter {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if maxPolls <= 0 {
		maxPolls = DefaultMaxPolls
	}
	return &Reporter{
		jobs:     jobs,
		logger:   logger,
		interval: interval,
		maxPolls: maxPolls,
	}
}

// Watch starts a subscription for one job. The returned channel carries a
// snapshot per poll and is closed once a terminal status is seen, the context
// ends, or maxPolls is exhausted. A malformed id yields one invalid snapshot
// without touching storage; an unknown id yields one not-found snapshot.
func (r *Reporter) Watch(ctx context.Context, jobID string) <-chan Snapshot {
	out := make(chan Snapshot)

	go func() {
		defer close(out)

		if len(jobID) != jobIDLength || uuid.Validate(jobID) != nil {
			emit(ctx, out, Snapshot{Status: StatusInvalidID})
			return
		}

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for i := 0; i < r.maxPolls; i++ {
			job, err := r.jobs.GetJobFresh(ctx, jobID)
			if err != nil {
				if errors.Is(err, domain.ErrJobNotFound) {
					emit(ctx, out, Snapshot{Status: StatusNotFound})
					return
				}
				r.logger.Error("Failed to read job progress",
					slog.String("job_id", jobID),
					slog.Any("error", err),
				)
				return
			}

			if !emit(ctx, out, Make(job)) {
				return
			}
			if domain.IsTerminal(job.Status) {
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return out
}

// Make builds a snapshot from a job record. The percent divisor is floored to
// 1 so a job that has not parsed yet reports 0 instead of dividing by zero.
func Make(job *domain.ImportJob) Snapshot {
	divisor := job.TotalRows
	if divisor < 1 {
		divisor = 1
	}
	return Snapshot{
		Status:    job.Status,
		Processed: job.ProcessedRows,
		Total:     job.TotalRows,
		Percent:   job.ProcessedRows * 100 / divisor,
		Error:     job.ErrorMessage,
	}
}

func emit(ctx context.Context, out chan<- Snapshot, snap Snapshot) bool {
	select {
	case <-ctx.Done():
		return false
	case out <- snap:
		return true
	}
}
