package dto

type ProductCreateRequest struct {
	SKU         string `json:"sku" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Active      *bool  `json:"active"`
}

type ProductUpdateRequest struct {
	SKU         *string `json:"sku"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Active      *bool   `json:"active"`
}

type WebhookCreateRequest struct {
	URL       string `json:"url" binding:"required"`
	EventType string `json:"event_type"`
	Enabled   *bool  `json:"enabled"`
}

type WebhookUpdateRequest struct {
	URL       *string `json:"url"`
	EventType *string `json:"event_type"`
	Enabled   *bool   `json:"enabled"`
}

type ImportResponse struct {
	JobID      string  `json:"job_id"`
	Status     string  `json:"status"`
	FileSizeMB float64 `json:"file_size_mb"`
}

type ProductDTO struct {
	ID          int64  `json:"id"`
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
	CreatedAt   string `json:"created_at"`
}

type ProductListResponse struct {
	Products   []ProductDTO `json:"products"`
	Total      int          `json:"total"`
	Page       int          `json:"page"`
	PerPage    int          `json:"per_page"`
	TotalPages int          `json:"total_pages"`
}

type WebhookDTO struct {
	ID        int64  `json:"id"`
	URL       string `json:"url"`
	EventType string `json:"event_type"`
	Enabled   bool   `json:"enabled"`
	CreatedAt string `json:"created_at"`
}

type WebhookListResponse struct {
	Webhooks []WebhookDTO `json:"webhooks"`
}
