package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prodcat/importer-be/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "product-import-api",
		})
	})

	importHandler := handler.NewImportHandler(deps)
	productHandler := handler.NewProductHandler(deps)
	webhookHandler := handler.NewWebhookHandler(deps)

	api := r.Group("/api")
	{
		products := api.Group("/products")
		{
			// POST /api/products/import - Upload a CSV and start an import job
			products.POST("/import", importHandler.UploadCSV)

			// GET /api/products/import/:job_id/progress - Stream job progress (SSE)
			products.GET("/import/:job_id/progress", importHandler.StreamProgress)

			// GET /api/products - List products with pagination
			products.GET("", productHandler.ListProducts)

			// POST /api/products - Create a product
			products.POST("", productHandler.CreateProduct)

			// POST /api/products/bulk-delete - Remove the entire catalog
			products.POST("/bulk-delete", productHandler.BulkDeleteProducts)

			// GET /api/products/:product_id - Get product details
			products.GET("/:product_id", productHandler.GetProduct)

			// PUT /api/products/:product_id - Update a product
			products.PUT("/:product_id", productHandler.UpdateProduct)

			// DELETE /api/products/:product_id - Delete a product
			products.DELETE("/:product_id", productHandler.DeleteProduct)
		}

		webhooks := api.Group("/webhooks")
		{
			// GET /api/webhooks - List registered webhooks
			webhooks.GET("", webhookHandler.ListWebhooks)

			// POST /api/webhooks - Register a webhook
			webhooks.POST("", webhookHandler.CreateWebhook)

			// GET /api/webhooks/:webhook_id - Get webhook details
			webhooks.GET("/:webhook_id", webhookHandler.GetWebhook)

			// PUT /api/webhooks/:webhook_id - Update a webhook
			webhooks.PUT("/:webhook_id", webhookHandler.UpdateWebhook)

			// DELETE /api/webhooks/:webhook_id - Delete a webhook
			webhooks.DELETE("/:webhook_id", webhookHandler.DeleteWebhook)

			// POST /api/webhooks/:webhook_id/test - Send a test event
			webhooks.POST("/:webhook_id/test", webhookHandler.TestWebhook)
		}
	}

	return r
}
