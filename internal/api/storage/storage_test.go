package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prodcat/importer-be/internal/importer/domain"
)

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewStorage(sqlx.NewDb(db, "postgres")), mock
}

func TestStorage_CreateImportJob(t *testing.T) {
	store, mock := newMockStorage(t)

	mock.ExpectExec("INSERT INTO import_jobs").
		WithArgs("job-1", domain.JobStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.CreateImportJob(context.Background(), "job-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_FailJob(t *testing.T) {
	store, mock := newMockStorage(t)

	mock.ExpectExec("UPDATE import_jobs").
		WithArgs(domain.JobStatusFailed, "Failed to enqueue import task: broker down", "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.FailJob(context.Background(), "job-1", "Failed to enqueue import task: broker down"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_GetJobFresh(t *testing.T) {
	jobColumns := []string{"id", "status", "total_rows", "processed_rows", "error_message", "created_at", "completed_at"}

	t.Run("running job", func(t *testing.T) {
		store, mock := newMockStorage(t)

		created := time.Now()
		mock.ExpectQuery("FROM import_jobs").
			WithArgs("job-1").
			WillReturnRows(sqlmock.NewRows(jobColumns).
				AddRow("job-1", domain.JobStatusImporting, 200, 100, nil, created, nil))

		job, err := store.GetJobFresh(context.Background(), "job-1")
		require.NoError(t, err)
		assert.Equal(t, "job-1", job.ID)
		assert.Equal(t, domain.JobStatusImporting, job.Status)
		assert.Equal(t, 200, job.TotalRows)
		assert.Equal(t, 100, job.ProcessedRows)
		assert.Equal(t, "", job.ErrorMessage)
		assert.Nil(t, job.CompletedAt)
	})

	t.Run("failed job carries message and completion time", func(t *testing.T) {
		store, mock := newMockStorage(t)

		created := time.Now().Add(-time.Minute)
		completed := time.Now()
		mock.ExpectQuery("FROM import_jobs").
			WithArgs("job-1").
			WillReturnRows(sqlmock.NewRows(jobColumns).
				AddRow("job-1", domain.JobStatusFailed, 0, 0, "File not found at path: /tmp/x.csv", created, completed))

		job, err := store.GetJobFresh(context.Background(), "job-1")
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusFailed, job.Status)
		assert.Equal(t, "File not found at path: /tmp/x.csv", job.ErrorMessage)
		require.NotNil(t, job.CompletedAt)
		assert.WithinDuration(t, completed, *job.CompletedAt, time.Second)
	})

	t.Run("unknown job", func(t *testing.T) {
		store, mock := newMockStorage(t)

		mock.ExpectQuery("FROM import_jobs").
			WithArgs("job-x").
			WillReturnError(sql.ErrNoRows)

		_, err := store.GetJobFresh(context.Background(), "job-x")
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrJobNotFound))
	})
}

func TestStorage_ListProducts(t *testing.T) {
	store, mock := newMockStorage(t)

	now := time.Now()
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))
	mock.ExpectQuery("FROM products").
		WithArgs(20, 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "sku", "name", "description", "active", "created_at", "updated_at"}).
			AddRow(1, "A-1", "Widget", "small", true, now, nil))

	products, total, err := store.ListProducts(context.Background(), 2, 20)
	require.NoError(t, err)
	assert.Equal(t, 42, total)
	require.Len(t, products, 1)
	assert.Equal(t, "A-1", products[0].SKU)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_FindProductBySKU(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		store, mock := newMockStorage(t)

		now := time.Now()
		mock.ExpectQuery(`lower\(sku\) = lower`).
			WithArgs("a-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "sku", "name", "description", "active", "created_at", "updated_at"}).
				AddRow(1, "A-1", "Widget", "", true, now, nil))

		product, err := store.FindProductBySKU(context.Background(), "a-1")
		require.NoError(t, err)
		require.NotNil(t, product)
		assert.Equal(t, "A-1", product.SKU)
	})

	t.Run("absent returns nil without error", func(t *testing.T) {
		store, mock := newMockStorage(t)

		mock.ExpectQuery(`lower\(sku\) = lower`).
			WithArgs("nope").
			WillReturnError(sql.ErrNoRows)

		product, err := store.FindProductBySKU(context.Background(), "nope")
		require.NoError(t, err)
		assert.Nil(t, product)
	})
}

func TestStorage_DeleteProduct(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		store, mock := newMockStorage(t)

		mock.ExpectExec("DELETE FROM products").
			WithArgs(int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		deleted, err := store.DeleteProduct(context.Background(), 7)
		require.NoError(t, err)
		assert.True(t, deleted)
	})

	t.Run("absent", func(t *testing.T) {
		store, mock := newMockStorage(t)

		mock.ExpectExec("DELETE FROM products").
			WithArgs(int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		deleted, err := store.DeleteProduct(context.Background(), 7)
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}

func TestStorage_DeleteAllProducts(t *testing.T) {
	store, mock := newMockStorage(t)

	mock.ExpectExec("DELETE FROM products").
		WillReturnResult(sqlmock.NewResult(0, 1234))

	count, err := store.DeleteAllProducts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1234), count)
}

func TestStorage_ListEnabledWebhooks(t *testing.T) {
	store, mock := newMockStorage(t)

	now := time.Now()
	mock.ExpectQuery("FROM webhooks").
		WithArgs("product.imported").
		WillReturnRows(sqlmock.NewRows([]string{"id", "url", "event_type", "enabled", "created_at"}).
			AddRow(3, "http://listener/hook", "product.imported", true, now))

	hooks, err := store.ListEnabledWebhooks(context.Background(), "product.imported")
	require.NoError(t, err)
	require.Len(t, hooks, 1)
	assert.Equal(t, int64(3), hooks[0].ID)
	assert.Equal(t, "http://listener/hook", hooks[0].URL)
}
