package handler

import (
	"log/slog"

	"github.com/prodcat/importer-be/internal/api/storage"
	"github.com/prodcat/importer-be/internal/progress"
	"github.com/prodcat/importer-be/internal/webhook"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger    *slog.Logger
	Storage   *storage.Storage
	Publisher webhook.TaskPublisher
	Reporter  *progress.Reporter
	Deliverer *webhook.Deliverer
	UploadDir string
}

// ImportHandler handles CSV upload and progress streaming requests
type ImportHandler struct {
	logger    *slog.Logger
	storage   *storage.Storage
	publisher webhook.TaskPublisher
	reporter  *progress.Reporter
	uploadDir string
}

// NewImportHandler creates a new ImportHandler instance
func NewImportHandler(deps *Dependencies) *ImportHandler {
	return &ImportHandler{
		logger:    deps.Logger,
		storage:   deps.Storage,
		publisher: deps.Publisher,
		reporter:  deps.Reporter,
		uploadDir: deps.UploadDir,
	}
}

// ProductHandler handles product catalog HTTP requests
type ProductHandler struct {
	logger  *slog.Logger
	storage *storage.Storage
}

// NewProductHandler creates a new ProductHandler instance
func NewProductHandler(deps *Dependencies) *ProductHandler {
	return &ProductHandler{
		logger:  deps.Logger,
		storage: deps.Storage,
	}
}

// WebhookHandler handles webhook registration HTTP requests
type WebhookHandler struct {
	logger    *slog.Logger
	storage   *storage.Storage
	deliverer *webhook.Deliverer
}

// NewWebhookHandler creates a new WebhookHandler instance
func NewWebhookHandler(deps *Dependencies) *WebhookHandler {
	return &WebhookHandler{
		logger:    deps.Logger,
		storage:   deps.Storage,
		deliverer: deps.Deliverer,
	}
}
