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

// OrganizationStore defines the persistence operations for organizations and
// business units.
type OrganizationStore interface {
	CreateOrganization(ctx context.Context, org *models.Organization) error
	GetOrganizationByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	GetAllOrganizations(ctx context.Context) ([]*models.Organization, error)
	UpdateOrganization(ctx context.Context, org *models.Organization) error
	CreateBusinessUnit(ctx context.Context, bu *models.BusinessUnit) error
	GetBusinessUnitsByOrgID(ctx context.Context, orgID uuid.UUID) ([]*models.BusinessUnit, error)
}

// OrganizationsHandler handles organization endpoints.
type OrganizationsHandler struct {
	store  OrganizationStore
	logger zerolog.Logger
}

// NewOrganizationsHandler creates a new OrganizationsHandler.
func NewOrganizationsHandler(store OrganizationStore, logger zerolog.Logger) *OrganizationsHandler {
	return &OrganizationsHandler{
		store:  store,
		logger: logger.With().Str("component", "organizations_handler").Logger(),
	}
}

// RegisterRoutes registers organization routes on the given router group.
// Creation and updates are admin-only.
func (h *OrganizationsHandler) RegisterRoutes(r *gin.RouterGroup) {
	orgs := r.Group("/organization")
	{
		orgs.GET("", h.List)
		orgs.GET("/:id", h.Get)
		orgs.GET("/:id/business-units", h.ListBusinessUnits)

		admin := orgs.Group("", middleware.RequireRole(models.UserRoleAdmin))
		{
			admin.POST("", h.Create)
			admin.PUT("/:id", h.Update)
			admin.POST("/:id/business-units", h.CreateBusinessUnit)
		}
	}
}

// OrganizationRequest is the request body for creating or updating an organization.
type OrganizationRequest struct {
	Name string   `json:"name" binding:"required"`
	Slug string   `json:"slug" binding:"required"`
	Tags []string `json:"tags"`
}

// Create adds an organization.
// POST /api/v1/organization
func (h *OrganizationsHandler) Create(c *gin.Context) {
	var req OrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and slug are required"})
		return
	}

	org := models.NewOrganization(req.Name, req.Slug)
	org.Tags = req.Tags
	if err := h.store.CreateOrganization(c.Request.Context(), org); err != nil {
		respondStoreError(c, h.logger, err, "create organization")
		return
	}

	h.logger.Info().Str("org_id", org.ID.String()).Str("slug", org.Slug).Msg("organization created")
	respondData(c, http.StatusCreated, org, "organization created")
}

// List returns all organizations.
// GET /api/v1/organization
func (h *OrganizationsHandler) List(c *gin.Context) {
	if middleware.RequireUser(c) == nil {
		return
	}

	orgs, err := h.store.GetAllOrganizations(c.Request.Context())
	if err != nil {
		respondStoreError(c, h.logger, err, "list organizations")
		return
	}

	respondData(c, http.StatusOK, orgs, "organizations retrieved")
}

// Get returns one organization.
// GET /api/v1/organization/:id
func (h *OrganizationsHandler) Get(c *gin.Context) {
	if middleware.RequireUser(c) == nil {
		return
	}

	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	org, err := h.store.GetOrganizationByID(c.Request.Context(), id)
	if err != nil {
		respondStoreError(c, h.logger, err, "get organization")
		return
	}
	if org == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "organization not found"})
		return
	}

	respondData(c, http.StatusOK, org, "organization retrieved")
}

// Update replaces an organization's name, slug, and tags.
// PUT /api/v1/organization/:id
func (h *OrganizationsHandler) Update(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req OrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and slug are required"})
		return
	}

	org := &models.Organization{
		ID:   id,
		Name: req.Name,
		Slug: req.Slug,
		Tags: req.Tags,
	}
	if err := h.store.UpdateOrganization(c.Request.Context(), org); err != nil {
		respondStoreError(c, h.logger, err, "update organization")
		return
	}

	respondData(c, http.StatusOK, org, "organization updated")
}

// BusinessUnitRequest is the request body for creating a business unit.
type BusinessUnitRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// CreateBusinessUnit adds a business unit to an organization.
// POST /api/v1/organization/:id/business-units
func (h *OrganizationsHandler) CreateBusinessUnit(c *gin.Context) {
	orgID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req BusinessUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	bu := models.NewBusinessUnit(orgID, req.Name)
	bu.Description = req.Description
	if err := h.store.CreateBusinessUnit(c.Request.Context(), bu); err != nil {
		respondStoreError(c, h.logger, err, "create business unit")
		return
	}

	respondData(c, http.StatusCreated, bu, "business unit created")
}

// ListBusinessUnits returns an organization's business units.
// GET /api/v1/organization/:id/business-units
func (h *OrganizationsHandler) ListBusinessUnits(c *gin.Context) {
	if middleware.RequireUser(c) == nil {
		return
	}

	orgID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	units, err := h.store.GetBusinessUnitsByOrgID(c.Request.Context(), orgID)
	if err != nil {
		respondStoreError(c, h.logger, err, "list business units")
		return
	}

	respondData(c, http.StatusOK, units, "business units retrieved")
}
