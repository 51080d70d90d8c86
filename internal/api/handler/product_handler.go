package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prodcat/importer-be/internal/api/dto"
	"github.com/prodcat/importer-be/internal/api/model"
)

const (
	defaultPage    = 1
	defaultPerPage = 20
	maxPerPage     = 100
)

// ListProducts handles GET /api/products
// Returns one page of the catalog, newest first.
func (h *ProductHandler) ListProducts(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(defaultPage)))
	if err != nil || page < 1 {
		page = defaultPage
	}

	perPage, err := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(defaultPerPage)))
	if err != nil || perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	products, total, err := h.storage.ListProducts(c.Request.Context(), page, perPage)
	if err != nil {
		h.logger.Error("Failed to list products", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list products",
		})
		return
	}

	response := make([]dto.ProductDTO, len(products))
	for i, p := range products {
		response[i] = toProductDTO(&p)
	}

	totalPages := (total + perPage - 1) / perPage

	c.JSON(http.StatusOK, dto.ProductListResponse{
		Products:   response,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	})
}

// CreateProduct handles POST /api/products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req dto.ProductCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	existing, err := h.storage.FindProductBySKU(c.Request.Context(), req.SKU)
	if err != nil {
		h.logger.Error("Failed to check for existing SKU", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create product",
		})
		return
	}
	if existing != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Product with SKU '%s' already exists", req.SKU),
		})
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	id, err := h.storage.CreateProduct(c.Request.Context(), req.SKU, req.Name, req.Description, active)
	if err != nil {
		h.logger.Error("Failed to create product", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create product",
		})
		return
	}

	product, err := h.storage.GetProduct(c.Request.Context(), id)
	if err != nil || product == nil {
		h.logger.Error("Failed to read back created product", slog.Int64("product_id", id))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create product",
		})
		return
	}

	c.JSON(http.StatusCreated, toProductDTO(product))
}

// GetProduct handles GET /api/products/:product_id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := h.parseProductID(c)
	if !ok {
		return
	}

	product, err := h.storage.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get product", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get product",
		})
		return
	}
	if product == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Product not found",
		})
		return
	}

	c.JSON(http.StatusOK, toProductDTO(product))
}

// UpdateProduct handles PUT /api/products/:product_id
// Applies a partial update; absent fields keep their current values.
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := h.parseProductID(c)
	if !ok {
		return
	}

	var req dto.ProductUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	product, err := h.storage.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get product", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to update product",
		})
		return
	}
	if product == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Product not found",
		})
		return
	}

	if req.SKU != nil && *req.SKU != product.SKU {
		existing, err := h.storage.FindProductBySKU(c.Request.Context(), *req.SKU)
		if err != nil {
			h.logger.Error("Failed to check for existing SKU", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to update product",
			})
			return
		}
		if existing != nil && existing.ID != product.ID {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("Product with SKU '%s' already exists", *req.SKU),
			})
			return
		}
		product.SKU = *req.SKU
	}
	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Active != nil {
		product.Active = *req.Active
	}

	if err := h.storage.UpdateProduct(c.Request.Context(), product); err != nil {
		h.logger.Error("Failed to update product", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to update product",
		})
		return
	}

	c.JSON(http.StatusOK, toProductDTO(product))
}

// DeleteProduct handles DELETE /api/products/:product_id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := h.parseProductID(c)
	if !ok {
		return
	}

	deleted, err := h.storage.DeleteProduct(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to delete product", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to delete product",
		})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Product not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product deleted",
	})
}

// BulkDeleteProducts handles POST /api/products/bulk-delete
// Clears the entire catalog and reports how many rows were removed.
func (h *ProductHandler) BulkDeleteProducts(c *gin.Context) {
	count, err := h.storage.DeleteAllProducts(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to bulk delete products", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to delete products",
		})
		return
	}

	h.logger.Info("Bulk deleted products", slog.Int64("count", count))

	c.JSON(http.StatusOK, gin.H{
		"deleted": count,
	})
}

func (h *ProductHandler) parseProductID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("product_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "product_id must be an integer",
		})
		return 0, false
	}
	return id, true
}

func toProductDTO(p *model.Product) dto.ProductDTO {
	return dto.ProductDTO{
		ID:          p.ID,
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
}
