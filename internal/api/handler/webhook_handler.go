package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prodcat/importer-be/internal/api/dto"
	"github.com/prodcat/importer-be/internal/api/model"
	"github.com/prodcat/importer-be/internal/importer"
	"github.com/prodcat/importer-be/internal/webhook"
)

// ListWebhooks handles GET /api/webhooks
func (h *WebhookHandler) ListWebhooks(c *gin.Context) {
	hooks, err := h.storage.ListWebhooks(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list webhooks", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list webhooks",
		})
		return
	}

	response := make([]dto.WebhookDTO, len(hooks))
	for i, hook := range hooks {
		response[i] = toWebhookDTO(&hook)
	}

	c.JSON(http.StatusOK, dto.WebhookListResponse{
		Webhooks: response,
	})
}

// CreateWebhook handles POST /api/webhooks
// The event type defaults to product.imported and new listeners start enabled.
func (h *WebhookHandler) CreateWebhook(c *gin.Context) {
	var req dto.WebhookCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	eventType := req.EventType
	if eventType == "" {
		eventType = importer.EventProductImported
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	id, err := h.storage.CreateWebhook(c.Request.Context(), req.URL, eventType, enabled)
	if err != nil {
		h.logger.Error("Failed to create webhook", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create webhook",
		})
		return
	}

	hook, err := h.storage.GetWebhook(c.Request.Context(), id)
	if err != nil || hook == nil {
		h.logger.Error("Failed to read back created webhook", slog.Int64("webhook_id", id))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create webhook",
		})
		return
	}

	c.JSON(http.StatusCreated, toWebhookDTO(hook))
}

// GetWebhook handles GET /api/webhooks/:webhook_id
func (h *WebhookHandler) GetWebhook(c *gin.Context) {
	id, ok := h.parseWebhookID(c)
	if !ok {
		return
	}

	hook, err := h.storage.GetWebhook(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get webhook", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get webhook",
		})
		return
	}
	if hook == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Webhook not found",
		})
		return
	}

	c.JSON(http.StatusOK, toWebhookDTO(hook))
}

// UpdateWebhook handles PUT /api/webhooks/:webhook_id
func (h *WebhookHandler) UpdateWebhook(c *gin.Context) {
	id, ok := h.parseWebhookID(c)
	if !ok {
		return
	}

	var req dto.WebhookUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	hook, err := h.storage.GetWebhook(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get webhook", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to update webhook",
		})
		return
	}
	if hook == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Webhook not found",
		})
		return
	}

	if req.URL != nil {
		hook.URL = *req.URL
	}
	if req.EventType != nil {
		hook.EventType = *req.EventType
	}
	if req.Enabled != nil {
		hook.Enabled = *req.Enabled
	}

	if err := h.storage.UpdateWebhook(c.Request.Context(), hook); err != nil {
		h.logger.Error("Failed to update webhook", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to update webhook",
		})
		return
	}

	c.JSON(http.StatusOK, toWebhookDTO(hook))
}

// DeleteWebhook handles DELETE /api/webhooks/:webhook_id
func (h *WebhookHandler) DeleteWebhook(c *gin.Context) {
	id, ok := h.parseWebhookID(c)
	if !ok {
		return
	}

	deleted, err := h.storage.DeleteWebhook(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to delete webhook", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to delete webhook",
		})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Webhook not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Webhook deleted",
	})
}

// TestWebhook handles POST /api/webhooks/:webhook_id/test
// Sends a synthetic test event to the listener and reports the outcome.
func (h *WebhookHandler) TestWebhook(c *gin.Context) {
	id, ok := h.parseWebhookID(c)
	if !ok {
		return
	}

	hook, err := h.storage.GetWebhook(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get webhook", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to test webhook",
		})
		return
	}
	if hook == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Webhook not found",
		})
		return
	}

	body, err := json.Marshal(webhook.NewEnvelope(webhook.EventTest, map[string]any{
		"webhook_id": hook.ID,
	}))
	if err != nil {
		h.logger.Error("Failed to marshal test event", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to test webhook",
		})
		return
	}

	status, err := h.deliverer.Post(c.Request.Context(), hook.URL, body)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"status": "failed",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "success",
		"status_code": status,
	})
}

func (h *WebhookHandler) parseWebhookID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("webhook_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "webhook_id must be an integer",
		})
		return 0, false
	}
	return id, true
}

func toWebhookDTO(hook *model.Webhook) dto.WebhookDTO {
	return dto.WebhookDTO{
		ID:        hook.ID,
		URL:       hook.URL,
		EventType: hook.EventType,
		Enabled:   hook.Enabled,
		CreatedAt: hook.CreatedAt.Format(time.RFC3339),
	}
}
