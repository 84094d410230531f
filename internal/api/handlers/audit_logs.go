package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stratum-grc/stratum/internal/api/middleware"
	"github.com/stratum-grc/stratum/internal/models"
)

// AuditLogStore defines the persistence operations for reading audit logs.
type AuditLogStore interface {
	ListAuditLogs(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.AuditLog, int, error)
}

// AuditLogsHandler handles the audit trail read endpoint.
type AuditLogsHandler struct {
	store  AuditLogStore
	logger zerolog.Logger
}

// NewAuditLogsHandler creates a new AuditLogsHandler.
func NewAuditLogsHandler(store AuditLogStore, logger zerolog.Logger) *AuditLogsHandler {
	return &AuditLogsHandler{
		store:  store,
		logger: logger.With().Str("component", "audit_logs_handler").Logger(),
	}
}

// RegisterRoutes registers audit log routes on the given router group.
func (h *AuditLogsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/audit-logs", middleware.RequireRole(models.UserRoleAdmin), h.List)
}

// List returns one page of the caller's organization audit trail.
// GET /api/v1/audit-logs?page=1&limit=50
func (h *AuditLogsHandler) List(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 50)

	logs, total, err := h.store.ListAuditLogs(c.Request.Context(), user.OrgID, limit, (page-1)*limit)
	if err != nil {
		respondStoreError(c, h.logger, err, "list audit logs")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  logs,
		"total": total,
		"page":  page,
		"limit": limit,
		"msg":   "audit logs retrieved",
	})
}
