// Package handlers implements the HTTP endpoints of the Stratum API.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stratum-grc/stratum/internal/db"
)

// respondData writes the standard success envelope.
func respondData(c *gin.Context, status int, data any, msg string) {
	c.JSON(status, gin.H{"data": data, "msg": msg})
}

// respondStoreError maps store errors onto HTTP statuses: validation and
// transition failures are the caller's fault, missing rows are 404, version
// conflicts 409, anything else a logged 500.
func respondStoreError(c *gin.Context, logger zerolog.Logger, err error, action string) {
	switch {
	case errors.Is(err, db.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, db.ErrInvalidTransition):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, db.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "resource not found"})
	case errors.Is(err, db.ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "resource was modified by another request, re-read and retry"})
	default:
		logger.Error().Err(err).Str("action", action).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to " + action})
	}
}
