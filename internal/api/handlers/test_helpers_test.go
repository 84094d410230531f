package handlers

import (
	"time"

	"github.com/google/uuid"

	"github.com/stratum-grc/stratum/internal/auth"
	"github.com/stratum-grc/stratum/internal/models"
)

// testUser creates a SessionUser for testing with a given org.
func testUser(orgID uuid.UUID) *auth.SessionUser {
	return &auth.SessionUser{
		ID:              uuid.New(),
		OrgID:           orgID,
		Email:           "test@example.com",
		Role:            models.UserRoleAdmin,
		AuthenticatedAt: time.Now(),
	}
}
