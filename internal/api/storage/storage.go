package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/prodcat/importer-be/internal/api/model"
	"github.com/prodcat/importer-be/internal/importer/domain"
)

// Storage is the API service's database access layer.
type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{
		db: db,
	}
}

// CreateImportJob inserts a new job in pending status.
func (s *Storage) CreateImportJob(ctx context.Context, jobID string) error {
	query := `
		INSERT INTO import_jobs (id, status)
		VALUES ($1, $2)
	`

	if _, err := s.db.ExecContext(ctx, query, jobID, domain.JobStatusPending); err != nil {
		return fmt.Errorf("failed to create import job: %w", err)
	}

	return nil
}

// FailJob marks a job failed before a worker ever picked it up, e.g. when the
// task could not be enqueued.
func (s *Storage) FailJob(ctx context.Context, jobID, errorMessage string) error {
	query := `
		UPDATE import_jobs
		SET status = $1,
		    error_message = $2,
		    completed_at = NOW()
		WHERE id = $3
		  AND completed_at IS NULL
	`

	if _, err := s.db.ExecContext(ctx, query, domain.JobStatusFailed, errorMessage, jobID); err != nil {
		return fmt.Errorf("failed to fail import job: %w", err)
	}

	return nil
}

// GetJobFresh reads the current job row. Each call hits the database so the
// progress reporter always observes the latest committed state.
func (s *Storage) GetJobFresh(ctx context.Context, jobID string) (*domain.ImportJob, error) {
	query := `
		SELECT id, status, total_rows, processed_rows, error_message, created_at, completed_at
		FROM import_jobs
		WHERE id = $1
	`

	var row model.ImportJob
	if err := s.db.GetContext(ctx, &row, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get import job: %w", err)
	}

	job := &domain.ImportJob{
		ID:            row.ID,
		Status:        row.Status,
		TotalRows:     row.TotalRows,
		ProcessedRows: row.ProcessedRows,
		ErrorMessage:  row.ErrorMessage.String,
		CreatedAt:     row.CreatedAt,
	}
	if row.CompletedAt.Valid {
		completedAt := row.CompletedAt.Time
		job.CompletedAt = &completedAt
	}

	return job, nil
}

// ListProducts returns one page of products ordered newest first, plus the
// total count for pagination.
func (s *Storage) ListProducts(ctx context.Context, page, perPage int) ([]model.Product, int, error) {
	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM products`); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query := `
		SELECT id, sku, name, description, active, created_at, updated_at
		FROM products
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`

	var products []model.Product
	if err := s.db.SelectContext(ctx, &products, query, perPage, (page-1)*perPage); err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}

	return products, total, nil
}

// FindProductBySKU looks a product up by case-insensitive SKU. Returns
// (nil, nil) when no product matches.
func (s *Storage) FindProductBySKU(ctx context.Context, sku string) (*model.Product, error) {
	query := `
		SELECT id, sku, name, description, active, created_at, updated_at
		FROM products
		WHERE lower(sku) = lower($1)
	`

	var product model.Product
	if err := s.db.GetContext(ctx, &product, query, sku); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find product by sku: %w", err)
	}

	return &product, nil
}

// GetProduct fetches a product by id. Returns (nil, nil) when absent.
func (s *Storage) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	query := `
		SELECT id, sku, name, description, active, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	var product model.Product
	if err := s.db.GetContext(ctx, &product, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &product, nil
}

// CreateProduct inserts a product and returns its id.
func (s *Storage) CreateProduct(ctx context.Context, sku, name, description string, active bool) (int64, error) {
	query := `
		INSERT INTO products (sku, name, description, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id int64
	if err := s.db.QueryRowContext(ctx, query, sku, name, description, active).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to create product: %w", err)
	}

	return id, nil
}

// UpdateProduct overwrites the mutable fields of a product.
func (s *Storage) UpdateProduct(ctx context.Context, p *model.Product) error {
	query := `
		UPDATE products
		SET sku = $1,
		    name = $2,
		    description = $3,
		    active = $4,
		    updated_at = NOW()
		WHERE id = $5
	`

	if _, err := s.db.ExecContext(ctx, query, p.SKU, p.Name, p.Description, p.Active, p.ID); err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	return nil
}

// DeleteProduct removes one product. Reports whether a row was deleted.
func (s *Storage) DeleteProduct(ctx context.Context, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete product: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected > 0, nil
}

// DeleteAllProducts removes every product and returns the count removed.
func (s *Storage) DeleteAllProducts(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM products`)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk delete products: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected, nil
}

// ListWebhooks returns all registered webhooks.
func (s *Storage) ListWebhooks(ctx context.Context) ([]model.Webhook, error) {
	query := `
		SELECT id, url, event_type, enabled, created_at
		FROM webhooks
		ORDER BY id
	`

	var hooks []model.Webhook
	if err := s.db.SelectContext(ctx, &hooks, query); err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}

	return hooks, nil
}

// ListEnabledWebhooks returns enabled listeners for an event type; it backs
// the inline webhook deliverer on the API side.
func (s *Storage) ListEnabledWebhooks(ctx context.Context, eventType string) ([]domain.Webhook, error) {
	query := `
		SELECT id, url, event_type, enabled, created_at
		FROM webhooks
		WHERE event_type = $1
		  AND enabled = TRUE
	`

	var rows []model.Webhook
	if err := s.db.SelectContext(ctx, &rows, query, eventType); err != nil {
		return nil, fmt.Errorf("failed to list enabled webhooks: %w", err)
	}

	hooks := make([]domain.Webhook, len(rows))
	for i, row := range rows {
		hooks[i] = domain.Webhook{
			ID:        row.ID,
			URL:       row.URL,
			EventType: row.EventType,
			Enabled:   row.Enabled,
			CreatedAt: row.CreatedAt,
		}
	}

	return hooks, nil
}

// GetWebhook fetches a webhook by id. Returns (nil, nil) when absent.
func (s *Storage) GetWebhook(ctx context.Context, id int64) (*model.Webhook, error) {
	query := `
		SELECT id, url, event_type, enabled, created_at
		FROM webhooks
		WHERE id = $1
	`

	var hook model.Webhook
	if err := s.db.GetContext(ctx, &hook, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get webhook: %w", err)
	}

	return &hook, nil
}

// CreateWebhook inserts a listener and returns its id.
func (s *Storage) CreateWebhook(ctx context.Context, url, eventType string, enabled bool) (int64, error) {
	query := `
		INSERT INTO webhooks (url, event_type, enabled)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	var id int64
	if err := s.db.QueryRowContext(ctx, query, url, eventType, enabled).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to create webhook: %w", err)
	}

	return id, nil
}

// UpdateWebhook overwrites a listener's fields.
func (s *Storage) UpdateWebhook(ctx context.Context, hook *model.Webhook) error {
	query := `
		UPDATE webhooks
		SET url = $1,
		    event_type = $2,
		    enabled = $3
		WHERE id = $4
	`

	if _, err := s.db.ExecContext(ctx, query, hook.URL, hook.EventType, hook.Enabled, hook.ID); err != nil {
		return fmt.Errorf("failed to update webhook: %w", err)
	}

	return nil
}

// DeleteWebhook removes one listener. Reports whether a row was deleted.
func (s *Storage) DeleteWebhook(ctx context.Context, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM webhooks WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete webhook: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected > 0, nil
}
