package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/periospot/content-cloud/internal/affiliate"
	"github.com/periospot/content-cloud/internal/logger"
)

// LinksHandler manages affiliate links and serves the public redirect.
type LinksHandler struct {
	service *affiliate.Service
	store   affiliate.Store
	log     logger.Logger
}

// NewLinksHandler creates a LinksHandler.
func NewLinksHandler(service *affiliate.Service, store affiliate.Store, log logger.Logger) *LinksHandler {
	return &LinksHandler{service: service, store: store, log: log}
}

// Create makes one affiliate link from a source URL.
func (h *LinksHandler) Create(c *gin.Context) {
	var req struct {
		Name      string `json:"name"`
		SourceURL string `json:"source_url"`
		Category  string `json:"category"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.service.CreateLink(c.Request.Context(), req.Name, req.SourceURL, req.Category)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, result)
}

// CreateFromASIN makes a link straight from an Amazon ASIN.
func (h *LinksHandler) CreateFromASIN(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		ASIN     string `json:"asin"`
		Category string `json:"category"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.service.FromASIN(c.Request.Context(), req.Name, req.ASIN, req.Category)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, result)
}

// Batch creates several links sequentially; per-item outcomes are returned
// and a failed item never aborts the rest.
func (h *LinksHandler) Batch(c *gin.Context) {
	var req struct {
		Items []affiliate.BatchItem `json:"items"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "items are required"})
		return
	}

	outcomes := h.service.Batch(c.Request.Context(), req.Items)
	c.JSON(http.StatusOK, gin.H{"results": outcomes})
}

// List returns stored links, optionally filtered by category.
func (h *LinksHandler) List(c *gin.Context) {
	links, err := h.store.List(c.Request.Context(), c.Query("category"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"links": links, "count": len(links)})
}

// Delete removes a link by code.
func (h *LinksHandler) Delete(c *gin.Context) {
	err := h.store.DeleteByCode(c.Request.Context(), c.Param("code"))
	if errors.Is(err, affiliate.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "link not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "link deleted"})
}

// Redirect resolves a short code, counts the click, and forwards to the
// tagged product URL.
func (h *LinksHandler) Redirect(c *gin.Context) {
	code := c.Param("code")

	link, err := h.store.GetByCode(c.Request.Context(), code)
	if errors.Is(err, affiliate.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "link not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Click counting never blocks the redirect.
	if err := h.store.IncrementClicks(c.Request.Context(), code); err != nil {
		h.log.Warn("failed to count click",
			logger.String("code", code),
			logger.Error(err))
	}

	c.Redirect(http.StatusFound, link.TaggedURL)
}
