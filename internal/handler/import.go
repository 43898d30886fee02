package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/periospot/content-cloud/internal/importer"
	"github.com/periospot/content-cloud/internal/logger"
)

// ImportHandler drives the subscriber import pipeline from the admin UI.
type ImportHandler struct {
	pipeline *importer.Pipeline
	runs     importer.RunStore
	log      logger.Logger
}

// NewImportHandler creates an ImportHandler. runs may be nil when run
// history is not persisted.
func NewImportHandler(pipeline *importer.Pipeline, runs importer.RunStore, log logger.Logger) *ImportHandler {
	return &ImportHandler{pipeline: pipeline, runs: runs, log: log}
}

// importRequest mirrors the admin UI wire format.
type importRequest struct {
	Cursor           string `json:"cursor"`
	BatchSize        int    `json:"batchSize"`
	ImportToResend   bool   `json:"importToResend"`
	ImportToSupabase bool   `json:"importToSupabase"`
	SkipUnsubscribed bool   `json:"skipUnsubscribed"`
}

func (r importRequest) options() importer.Options {
	return importer.Options{
		BatchSize:        r.BatchSize,
		SkipUnsubscribed: r.SkipUnsubscribed,
		ToDatabase:       r.ImportToSupabase,
		ToAudience:       r.ImportToResend,
	}
}

// Preview returns one source page without writing anywhere.
func (h *ImportHandler) Preview(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	cursor := c.Query("cursor")

	page, err := h.pipeline.Preview(c.Request.Context(), cursor, limit)
	if err != nil {
		h.log.Error("import preview failed", logger.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"subscribers": page.Records,
		"hasMore":     page.HasMore,
		"nextCursor":  page.NextCursor,
	})
}

// Batch processes exactly one page and returns its accounting plus the next
// cursor, letting the UI drive the run page by page.
func (h *ImportHandler) Batch(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, nextCursor, hasMore, err := h.pipeline.RunBatch(c.Request.Context(), req.Cursor, req.options())
	if err != nil {
		// The failed fetch keeps the caller's cursor valid for a retry.
		c.JSON(http.StatusBadGateway, gin.H{
			"error":      err.Error(),
			"nextCursor": nextCursor,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results":    result,
		"nextCursor": nextCursor,
		"hasMore":    hasMore,
	})
}

// Run starts (or resumes) the continuous batch loop in the background.
func (h *ImportHandler) Run(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	opts := req.options()
	go func() {
		// The run outlives the HTTP request.
		if err := h.pipeline.Start(context.Background(), opts); err != nil {
			h.log.Error("import run ended with error", logger.Error(err))
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": h.pipeline.Status()})
}

// Pause stops the loop after the in-flight batch.
func (h *ImportHandler) Pause(c *gin.Context) {
	if !h.pipeline.Pause() {
		c.JSON(http.StatusConflict, gin.H{"error": "no import is running"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": h.pipeline.Status()})
}

// Status reports the pipeline snapshot.
func (h *ImportHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": h.pipeline.Status()})
}

// GetRun returns one persisted run by id.
func (h *ImportHandler) GetRun(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "run history is not persisted"})
		return
	}

	run, err := h.runs.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, importer.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run})
}

// ListRuns returns recent runs, newest first.
func (h *ImportHandler) ListRuns(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "run history is not persisted"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := h.runs.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}
