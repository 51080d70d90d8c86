package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/prodcat/importer-be/internal/importer/domain"
)

// Storage handles all database operations for the import worker. It backs the
// coordinator's JobStore and CatalogStore and the webhook deliverer's listener
// lookup.
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// ClaimPending moves a pending job to parsing with a conditional update. A job
// a requeued delivery left in parsing or importing is reclaimed at its current
// status, so status transitions stay forward-only. Each job has exactly one
// queue message, which keeps it with at most one worker at a time.
func (s *Storage) ClaimPending(ctx context.Context, jobID string) (bool, error) {
	query := `
		UPDATE import_jobs
		SET status = CASE WHEN status = $2 THEN $3 ELSE status END
		WHERE id = $1
		  AND status IN ($2, $3, $4)
	`

	result, err := s.db.ExecContext(ctx, query, jobID, domain.JobStatusPending, domain.JobStatusParsing, domain.JobStatusImporting)
	if err != nil {
		return false, fmt.Errorf("failed to claim job: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		s.logger.Warn("Job not claimable - missing or already finished",
			slog.String("job_id", jobID),
		)
		return false, nil
	}

	return true, nil
}

// MarkImporting records the parsed row count and moves the job to importing.
func (s *Storage) MarkImporting(ctx context.Context, jobID string, totalRows int) error {
	query := `
		UPDATE import_jobs
		SET status = $1,
		    total_rows = $2
		WHERE id = $3
	`

	if _, err := s.db.ExecContext(ctx, query, domain.JobStatusImporting, totalRows, jobID); err != nil {
		return fmt.Errorf("failed to mark job importing: %w", err)
	}

	return nil
}

// CheckpointProgress persists processed_rows. GREATEST keeps the value
// non-decreasing even if checkpoints land out of order.
func (s *Storage) CheckpointProgress(ctx context.Context, jobID string, processedRows int) error {
	query := `
		UPDATE import_jobs
		SET processed_rows = GREATEST(processed_rows, $1)
		WHERE id = $2
	`

	if _, err := s.db.ExecContext(ctx, query, processedRows, jobID); err != nil {
		return fmt.Errorf("failed to checkpoint progress: %w", err)
	}

	return nil
}

// FinishJob moves the job to a terminal status. completed_at is stamped only
// on the first terminal write.
func (s *Storage) FinishJob(ctx context.Context, jobID, status, errorMessage string) error {
	query := `
		UPDATE import_jobs
		SET status = $1,
		    error_message = NULLIF($2, ''),
		    completed_at = NOW()
		WHERE id = $3
		  AND completed_at IS NULL
	`

	if _, err := s.db.ExecContext(ctx, query, status, errorMessage, jobID); err != nil {
		return fmt.Errorf("failed to finish job: %w", err)
	}

	s.logger.Info("Job moved to terminal status",
		slog.String("job_id", jobID),
		slog.String("status", status),
	)

	return nil
}

// UpsertProduct creates or updates the product matching the SKU
// case-insensitively, as a single atomic statement. The unique index on
// lower(sku) resolves concurrent create races at the storage layer; RETURNING
// xmax = 0 reports whether the row was inserted rather than updated.
func (s *Storage) UpsertProduct(ctx context.Context, row domain.ProductUpsert) (bool, error) {
	query := `
		INSERT INTO products (sku, name, description, active)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT ((lower(sku))) DO UPDATE
		SET name = EXCLUDED.name,
		    description = EXCLUDED.description,
		    updated_at = NOW()
		RETURNING (xmax = 0) AS created
	`

	var created bool
	if err := s.db.QueryRowContext(ctx, query, row.SKU, row.Name, row.Description).Scan(&created); err != nil {
		return false, fmt.Errorf("failed to upsert product: %w", err)
	}

	return created, nil
}

// ListEnabledWebhooks returns the enabled listeners registered for an event.
func (s *Storage) ListEnabledWebhooks(ctx context.Context, eventType string) ([]domain.Webhook, error) {
	query := `
		SELECT id, url, event_type, enabled, created_at
		FROM webhooks
		WHERE event_type = $1
		  AND enabled = TRUE
	`

	rows, err := s.db.QueryContext(ctx, query, eventType)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	defer rows.Close()

	var hooks []domain.Webhook
	for rows.Next() {
		var hook domain.Webhook
		if err := rows.Scan(&hook.ID, &hook.URL, &hook.EventType, &hook.Enabled, &hook.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan webhook: %w", err)
		}
		hooks = append(hooks, hook)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read webhooks: %w", err)
	}

	return hooks, nil
}
