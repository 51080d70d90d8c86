package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prodcat/importer-be/internal/api/dto"
	"github.com/prodcat/importer-be/internal/importer/domain"
)

// UploadCSV handles POST /api/products/import
// Accepts a multipart CSV file, creates a pending job, stages the file and
// enqueues an import task. The import itself runs on a worker.
func (h *ImportHandler) UploadCSV(c *gin.Context) {
	h.logger.Info("UploadCSV called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
	)

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "File is required",
		})
		return
	}

	if !strings.HasSuffix(strings.ToLower(file.Filename), ".csv") {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Only CSV files are supported",
		})
		return
	}

	jobID := uuid.New().String()
	if err := h.storage.CreateImportJob(c.Request.Context(), jobID); err != nil {
		h.logger.Error("Failed to create import job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create import job",
		})
		return
	}

	stagedPath := filepath.Join(h.uploadDir, jobID+".csv")
	if err := c.SaveUploadedFile(file, stagedPath); err != nil {
		h.logger.Error("Failed to stage uploaded file",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		h.failBeforeEnqueue(c, jobID, stagedPath, fmt.Sprintf("Failed to store uploaded file: %v", err))
		return
	}

	task := domain.Task{
		Kind:     domain.TaskKindImport,
		JobID:    jobID,
		FilePath: stagedPath,
	}
	if err := h.publisher.PublishJSON(c.Request.Context(), task); err != nil {
		h.logger.Error("Failed to enqueue import task",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		h.failBeforeEnqueue(c, jobID, stagedPath, fmt.Sprintf("Failed to enqueue import task: %v", err))
		return
	}

	h.logger.Info("Import job enqueued",
		slog.String("job_id", jobID),
		slog.String("filename", file.Filename),
		slog.Int64("size_bytes", file.Size),
	)

	c.JSON(http.StatusOK, dto.ImportResponse{
		JobID:      jobID,
		Status:     "processing",
		FileSizeMB: math.Round(float64(file.Size)/(1<<20)*100) / 100,
	})
}

// failBeforeEnqueue records a pre-worker failure on the job row and reports
// the error to the caller. No worker will ever see the job, so the staged
// file is removed here.
func (h *ImportHandler) failBeforeEnqueue(c *gin.Context, jobID, stagedPath, message string) {
	if err := os.Remove(stagedPath); err != nil && !os.IsNotExist(err) {
		h.logger.Warn("Failed to remove staged upload",
			slog.String("job_id", jobID),
			slog.String("file_path", stagedPath),
			slog.String("error", err.Error()),
		)
	}

	if err := h.storage.FailJob(c.Request.Context(), jobID, message); err != nil {
		h.logger.Error("Failed to mark job failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error":  "Failed to start import",
		"job_id": jobID,
	})
}

// StreamProgress handles GET /api/products/import/:job_id/progress
// Streams job progress as server-sent events until the job reaches a
// terminal state or the client disconnects.
func (h *ImportHandler) StreamProgress(c *gin.Context) {
	jobID := c.Param("job_id")

	h.logger.Info("StreamProgress called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("job_id", jobID),
	)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	snapshots := h.reporter.Watch(c.Request.Context(), jobID)
	c.Stream(func(w io.Writer) bool {
		snap, ok := <-snapshots
		if !ok {
			return false
		}

		body, err := json.Marshal(snap)
		if err != nil {
			h.logger.Error("Failed to marshal progress snapshot", slog.String("error", err.Error()))
			return false
		}

		fmt.Fprintf(w, "data: %s\n\n", body)
		return true
	})
}
