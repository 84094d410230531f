package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stratum-grc/stratum/internal/models"
)

// AuditStore defines the interface for audit log persistence.
type AuditStore interface {
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
}

// AuditMiddleware returns a Gin middleware that records mutating and reading
// API actions for compliance. Only authenticated requests are audited.
func AuditMiddleware(store AuditStore, logger zerolog.Logger) gin.HandlerFunc {
	log := logger.With().Str("component", "audit_middleware").Logger()

	return func(c *gin.Context) {
		// Skip audit log endpoints to avoid recursion
		if strings.HasPrefix(c.Request.URL.Path, "/api/v1/audit-logs") {
			c.Next()
			return
		}

		c.Next()

		user := GetUser(c)
		if user == nil {
			return
		}

		action := mapMethodToAction(c.Request.Method)
		if action == "" {
			return
		}

		resourceType, resourceID := parseResourceFromPath(c.Request.URL.Path)
		if resourceType == "" {
			return
		}

		result := models.AuditResultSuccess
		switch {
		case c.Writer.Status() == http.StatusForbidden || c.Writer.Status() == http.StatusUnauthorized:
			result = models.AuditResultDenied
		case c.Writer.Status() >= 400:
			result = models.AuditResultFailure
		}

		entry := models.NewAuditLog(user.OrgID, action, resourceType, result).
			WithUser(user.ID).
			WithResource(resourceID)
		entry.IPAddress = c.ClientIP()
		entry.UserAgent = c.Request.UserAgent()

		// Write asynchronously so the response is not blocked on the insert.
		go func(entry *models.AuditLog) {
			if err := store.CreateAuditLog(context.Background(), entry); err != nil {
				log.Error().Err(err).
					Str("action", string(entry.Action)).
					Str("resource_type", entry.ResourceType).
					Msg("failed to create audit log")
			}
		}(entry)
	}
}

// mapMethodToAction maps HTTP methods to audit actions.
func mapMethodToAction(method string) models.AuditAction {
	switch method {
	case http.MethodGet:
		return models.AuditActionRead
	case http.MethodPost:
		return models.AuditActionCreate
	case http.MethodPut, http.MethodPatch:
		return models.AuditActionUpdate
	case http.MethodDelete:
		return models.AuditActionDelete
	default:
		return ""
	}
}

// parseResourceFromPath extracts the resource type and ID from the API path.
// IDs stay strings because library resources use numeric keys while
// assessments use UUIDs.
func parseResourceFromPath(path string) (string, string) {
	path = strings.TrimPrefix(path, "/api/v1/")
	path = strings.TrimPrefix(path, "/")

	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		return "", ""
	}

	resourceType := parts[0]
	var resourceID string
	if len(parts) >= 2 {
		resourceID = parts[1]
	}

	switch resourceType {
	case "risk-scenario":
		if resourceID == "update-status" && len(parts) >= 3 {
			return "risk_scenario", parts[2]
		}
		return "risk_scenario", resourceID
	case "process":
		return "process", resourceID
	case "meta-data":
		return "meta_data", resourceID
	case "assessment":
		// Step paths like assessment/assessment-risk-details carry the
		// assessment id in the body, not the path.
		if strings.HasPrefix(resourceID, "assessment-") || resourceID == "all" {
			return "assessment", ""
		}
		return "assessment", resourceID
	case "organization":
		return "organization", resourceID
	case "taxonomy":
		return "taxonomy", resourceID
	case "auth":
		return "session", ""
	default:
		return resourceType, resourceID
	}
}
