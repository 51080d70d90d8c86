package domain

import "time"

// ImportJob is the durable record of one bulk-import execution.
type ImportJob struct {
	ID            string
	Status        string
	TotalRows     int
	ProcessedRows int
	ErrorMessage  string
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

// ProductUpsert carries one validated CSV row into the catalog store.
type ProductUpsert struct {
	SKU         string
	Name        string
	Description string
}

// Webhook is a registered listener for catalog events.
type Webhook struct {
	ID        int64
	URL       string
	EventType string
	Enabled   bool
	CreatedAt time.Time
}
