package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"

	"github.com/prodcat/importer-be/internal/importer/domain"
)

const (
	// DefaultChunkSize is the number of rows processed between chunk-boundary
	// progress checkpoints.
	DefaultChunkSize = 100
	// DefaultCheckpointRows is the number of successfully applied rows between
	// mid-chunk progress checkpoints.
	DefaultCheckpointRows = 50

	// EventProductImported is the event fanned out to webhooks after an
	// import reaches a successful terminal state.
	EventProductImported = "product.imported"
)

// JobStore is the durable record of import jobs, as the coordinator needs it.
type JobStore interface {
	// ClaimPending moves a job from pending to parsing, or reclaims a job a
	// requeued delivery left in parsing or importing. It returns false when
	// the job does not exist or already reached a terminal status.
	ClaimPending(ctx context.Context, jobID string) (bool, error)
	// MarkImporting records the row count and moves the job to importing.
	MarkImporting(ctx context.Context, jobID string, totalRows int) error
	// CheckpointProgress persists processed_rows. Implementations must never
	// let the value regress.
	CheckpointProgress(ctx context.Context, jobID string, processedRows int) error
	// FinishJob moves the job to a terminal status and stamps completed_at.
	FinishJob(ctx context.Context, jobID, status, errorMessage string) error
}

// CatalogStore applies validated rows to the product catalog.
type CatalogStore interface {
	// UpsertProduct creates or updates the product whose SKU matches
	// case-insensitively, as one atomic write. It reports whether the row
	// created a new product.
	UpsertProduct(ctx context.Context, row domain.ProductUpsert) (created bool, err error)
}

// Dispatcher fans a completion event out to registered listeners.
type Dispatcher interface {
	Dispatch(ctx context.Context, event string, payload map[string]any) error
}

// Coordinator owns the import job lifecycle: it claims the job, streams the
// CSV in chunks, upserts rows, checkpoints progress, aggregates row errors
// and decides the terminal status.
type Coordinator struct {
	jobs           JobStore
	catalog        CatalogStore
	dispatcher     Dispatcher
	logger         *slog.Logger
	chunkSize      int
	checkpointRows int
}

func NewCoordinator(jobs JobStore, catalog CatalogStore, dispatcher Dispatcher, logger *slog.Logger, chunkSize, checkpointRows int) *Coordinator {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if checkpointRows <= 0 {
		checkpointRows = DefaultCheckpointRows
	}
	return &Coordinator{
		jobs:           jobs,
		catalog:        catalog,
		dispatcher:     dispatcher,
		logger:         logger,
		chunkSize:      chunkSize,
		checkpointRows: checkpointRows,
	}
}

// Run drives one import job to a terminal state. It returns an error only for
// infrastructure failures that left the job row non-terminal; callers should
// retry those. Row-level failures never surface here.
func (c *Coordinator) Run(ctx context.Context, jobID, filePath string) (err error) {
	log := c.logger.With(slog.String("job_id", jobID))

	defer func() {
		// A background failure must never leave a job stuck in a
		// non-terminal status.
		if r := recover(); r != nil {
			log.Error("Import panicked",
				slog.Any("panic", r),
			)
			msg := fmt.Sprintf("Fatal error: %v\n\n%s", r, debug.Stack())
			if finishErr := c.jobs.FinishJob(context.WithoutCancel(ctx), jobID, domain.JobStatusFailed, msg); finishErr != nil {
				log.Error("Failed to mark panicked job as failed",
					slog.Any("error", finishErr),
				)
				err = fmt.Errorf("import panicked and job could not be failed: %v", r)
			}
		}
		// An error return means the delivery will requeue; the retry still
		// needs the staged file.
		if err == nil {
			c.removeStagedFile(log, filePath)
		}
	}()

	claimed, claimErr := c.jobs.ClaimPending(ctx, jobID)
	if claimErr != nil {
		return fmt.Errorf("failed to claim job: %w", claimErr)
	}
	if !claimed {
		log.Warn("Job not claimable, skipping")
		return nil
	}

	src, loadErr := LoadSource(filePath)
	if loadErr != nil {
		log.Warn("Import source rejected",
			slog.String("file_path", filePath),
			slog.Any("error", loadErr),
		)
		return c.failJob(ctx, jobID, sourceFailureMessage(filePath, loadErr))
	}

	total := src.TotalRows()
	if markErr := c.jobs.MarkImporting(ctx, jobID, total); markErr != nil {
		// Force a terminal status so the job cannot sit in parsing forever.
		// Only when even that write fails is the error surfaced, so the
		// delivery requeues and a later attempt can reclaim the job.
		if failErr := c.failJob(ctx, jobID, fmt.Sprintf("Fatal error: %v", markErr)); failErr != nil {
			return fmt.Errorf("failed to mark job importing: %w", markErr)
		}
		return nil
	}

	log.Info("Importing rows",
		slog.Int("total_rows", total),
		slog.Int("chunk_size", c.chunkSize),
	)

	var (
		processed  int // rows successfully applied to the catalog
		created    int
		updated    int
		errorCount int
		samples    []string
	)
	record := func(line string) {
		errorCount++
		if len(samples) < maxErrorSamples {
			samples = append(samples, line)
		}
	}

	for start := 0; start < total; start += c.chunkSize {
		end := min(start+c.chunkSize, total)

		for i := start; i < end; i++ {
			row, rowErr := src.Row(i)
			if rowErr != nil {
				record(rowErr.Error())
				continue
			}

			wasCreated, upsertErr := c.catalog.UpsertProduct(ctx, domain.ProductUpsert{
				SKU:         row.SKU,
				Name:        row.Name,
				Description: row.Description,
			})
			if upsertErr != nil {
				record((&domain.RowError{Row: row.Number, SKU: row.SKU, Reason: upsertErr.Error()}).Error())
				continue
			}

			if wasCreated {
				created++
			} else {
				updated++
			}
			processed++

			if processed%c.checkpointRows == 0 {
				if cpErr := c.jobs.CheckpointProgress(ctx, jobID, min(i+1, total)); cpErr != nil {
					// Committed catalog rows make the state reconstructible,
					// so a checkpoint failure is an error, not an abort.
					record(fmt.Sprintf("Database error at row %d: %v", i+headerRowOffset, cpErr))
				}
			}
		}

		// "Processed" at a chunk boundary means accounted for, not successful.
		if cpErr := c.jobs.CheckpointProgress(ctx, jobID, end); cpErr != nil {
			record(fmt.Sprintf("Failed to checkpoint chunk ending at row %d: %v", end, cpErr))
		}
	}

	status, message := summarize(total, processed, created, updated, errorCount, samples)
	if finishErr := c.jobs.FinishJob(ctx, jobID, status, message); finishErr != nil {
		return fmt.Errorf("failed to finish job: %w", finishErr)
	}

	log.Info("Import finished",
		slog.String("status", status),
		slog.Int("processed", processed),
		slog.Int("created", created),
		slog.Int("updated", updated),
		slog.Int("errors", errorCount),
	)

	if status == domain.JobStatusCompleted || status == domain.JobStatusCompletedWithErrors {
		payload := map[string]any{
			"job_id":  jobID,
			"count":   processed,
			"created": created,
			"updated": updated,
			"errors":  errorCount,
		}
		if dispatchErr := c.dispatcher.Dispatch(ctx, EventProductImported, payload); dispatchErr != nil {
			// Dispatch failures never alter the job's terminal status.
			log.Error("Webhook dispatch failed",
				slog.String("event", EventProductImported),
				slog.Any("error", dispatchErr),
			)
		}
	}

	return nil
}

// failJob records a job-level failure. An error is returned only when the
// failure itself could not be persisted.
func (c *Coordinator) failJob(ctx context.Context, jobID, message string) error {
	if err := c.jobs.FinishJob(ctx, jobID, domain.JobStatusFailed, message); err != nil {
		return fmt.Errorf("failed to record job failure: %w", err)
	}
	return nil
}

func (c *Coordinator) removeStagedFile(log *slog.Logger, filePath string) {
	if filePath == "" {
		return
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		log.Warn("Failed to remove staged upload",
			slog.String("file_path", filePath),
			slog.Any("error", err),
		)
	}
}

// sourceFailureMessage maps a LoadSource error to the user-facing diagnostic
// stored on the job.
func sourceFailureMessage(filePath string, err error) string {
	var (
		decodeErr *domain.DecodeError
		schemaErr *domain.SchemaError
	)
	switch {
	case errors.Is(err, domain.ErrSourceUnavailable):
		return fmt.Sprintf("File not found at path: %s", filePath)
	case errors.As(err, &decodeErr):
		return "CSV encoding error. Please save your CSV as UTF-8 and try again."
	case errors.As(err, &schemaErr):
		return fmt.Sprintf(
			"Missing required columns: %s\n\nRequired columns: sku, name\nFound columns: %s\n\nPlease add the missing columns to your CSV and try again.",
			strings.Join(schemaErr.Missing, ", "),
			strings.Join(schemaErr.Found, ", "),
		)
	default:
		return fmt.Sprintf("Failed to parse CSV file: %v", err)
	}
}
