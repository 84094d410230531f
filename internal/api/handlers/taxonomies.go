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

// TaxonomyStore defines the persistence operations for risk taxonomies.
type TaxonomyStore interface {
	CreateTaxonomy(ctx context.Context, tax *models.Taxonomy) error
	GetTaxonomiesByOrgID(ctx context.Context, orgID uuid.UUID) ([]*models.Taxonomy, error)
	GetTaxonomyByID(ctx context.Context, id int64) (*models.Taxonomy, error)
}

// TaxonomiesHandler handles taxonomy endpoints.
type TaxonomiesHandler struct {
	store  TaxonomyStore
	logger zerolog.Logger
}

// NewTaxonomiesHandler creates a new TaxonomiesHandler.
func NewTaxonomiesHandler(store TaxonomyStore, logger zerolog.Logger) *TaxonomiesHandler {
	return &TaxonomiesHandler{
		store:  store,
		logger: logger.With().Str("component", "taxonomies_handler").Logger(),
	}
}

// RegisterRoutes registers taxonomy routes on the given router group.
func (h *TaxonomiesHandler) RegisterRoutes(r *gin.RouterGroup) {
	taxonomies := r.Group("/taxonomy")
	{
		taxonomies.GET("", h.List)
		taxonomies.GET("/:id", h.Get)
		taxonomies.POST("", middleware.RequireRole(models.UserRoleAdmin), h.Create)
	}
}

// TaxonomyRequest is the request body for creating a taxonomy.
type TaxonomyRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Bands       []struct {
		Name     string  `json:"name"`
		Min      float64 `json:"min"`
		Max      float64 `json:"max"`
		Color    string  `json:"color"`
		Position int     `json:"position"`
	} `json:"bands"`
}

// Create adds a taxonomy with its severity bands.
// POST /api/v1/taxonomy
func (h *TaxonomiesHandler) Create(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	var req TaxonomyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	tax := &models.Taxonomy{
		OrgID:       user.OrgID,
		Name:        req.Name,
		Description: req.Description,
	}
	for _, b := range req.Bands {
		tax.Bands = append(tax.Bands, &models.SeverityBand{
			Name:     b.Name,
			Min:      b.Min,
			Max:      b.Max,
			Color:    b.Color,
			Position: b.Position,
		})
	}

	if err := h.store.CreateTaxonomy(c.Request.Context(), tax); err != nil {
		respondStoreError(c, h.logger, err, "create taxonomy")
		return
	}

	respondData(c, http.StatusCreated, tax, "taxonomy created")
}

// List returns the organization's taxonomies with their severity bands.
// GET /api/v1/taxonomy
func (h *TaxonomiesHandler) List(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	taxonomies, err := h.store.GetTaxonomiesByOrgID(c.Request.Context(), user.OrgID)
	if err != nil {
		respondStoreError(c, h.logger, err, "list taxonomies")
		return
	}

	respondData(c, http.StatusOK, taxonomies, "taxonomies retrieved")
}

// Get returns one taxonomy with its severity bands.
// GET /api/v1/taxonomy/:id
func (h *TaxonomiesHandler) Get(c *gin.Context) {
	if middleware.RequireUser(c) == nil {
		return
	}

	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}

	tax, err := h.store.GetTaxonomyByID(c.Request.Context(), id)
	if err != nil {
		respondStoreError(c, h.logger, err, "get taxonomy")
		return
	}
	if tax == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "taxonomy not found"})
		return
	}

	respondData(c, http.StatusOK, tax, "taxonomy retrieved")
}
