package model

import (
	"database/sql"
	"time"
)

type Product struct {
	ID          int64        `db:"id"`
	SKU         string       `db:"sku"`
	Name        string       `db:"name"`
	Description string       `db:"description"`
	Active      bool         `db:"active"`
	CreatedAt   time.Time    `db:"created_at"`
	UpdatedAt   sql.NullTime `db:"updated_at"`
}

type Webhook struct {
	ID        int64     `db:"id"`
	URL       string    `db:"url"`
	EventType string    `db:"event_type"`
	Enabled   bool      `db:"enabled"`
	CreatedAt time.Time `db:"created_at"`
}

type ImportJob struct {
	ID            string         `db:"id"`
	Status        string         `db:"status"`
	TotalRows     int            `db:"total_rows"`
	ProcessedRows int            `db:"processed_rows"`
	ErrorMessage  sql.NullString `db:"error_message"`
	CreatedAt     time.Time      `db:"created_at"`
	CompletedAt   sql.NullTime   `db:"completed_at"`
}
