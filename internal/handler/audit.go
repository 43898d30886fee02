package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/periospot/content-cloud/internal/audit"
)

// AuditHandler exposes the MCP audit trail to administrators.
type AuditHandler struct {
	auditLog *audit.Logger
}

// NewAuditHandler creates an AuditHandler.
func NewAuditHandler(auditLog *audit.Logger) *AuditHandler {
	return &AuditHandler{auditLog: auditLog}
}

// Recent returns the newest audit entries. Unlike the write path, read
// failures surface as errors.
func (h *AuditHandler) Recent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	entries, err := h.auditLog.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}
