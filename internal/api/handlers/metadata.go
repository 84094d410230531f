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

// MetaDataStore defines the persistence operations for metadata keys.
type MetaDataStore interface {
	CreateMetaData(ctx context.Context, md *models.MetaData) error
	GetMetaDataByID(ctx context.Context, id int64) (*models.MetaData, error)
	GetMetaDataByOrgID(ctx context.Context, orgID uuid.UUID, kind models.EntityKind) ([]*models.MetaData, error)
	UpdateMetaData(ctx context.Context, md *models.MetaData) error
	DeleteMetaData(ctx context.Context, id int64) error
}

// MetaDataHandler handles metadata key endpoints.
type MetaDataHandler struct {
	store  MetaDataStore
	logger zerolog.Logger
}

// NewMetaDataHandler creates a new MetaDataHandler.
func NewMetaDataHandler(store MetaDataStore, logger zerolog.Logger) *MetaDataHandler {
	return &MetaDataHandler{
		store:  store,
		logger: logger.With().Str("component", "metadata_handler").Logger(),
	}
}

// RegisterRoutes registers metadata routes on the given router group.
func (h *MetaDataHandler) RegisterRoutes(r *gin.RouterGroup) {
	md := r.Group("/meta-data")
	{
		md.POST("", h.Create)
		md.GET("", h.List)
		md.GET("/:id", h.Get)
		md.PUT("/:id", h.Update)
		md.DELETE("/:id", h.Delete)
	}
}

// MetaDataRequest is the request body for creating or updating a metadata key.
type MetaDataRequest struct {
	Name            string   `json:"name"`
	Label           string   `json:"label"`
	InputType       string   `json:"input_type"`
	SupportedValues []string `json:"supported_values"`
	AppliesTo       []string `json:"applies_to"`
}

func (r MetaDataRequest) toModel(orgID uuid.UUID) *models.MetaData {
	md := &models.MetaData{
		OrgID:           orgID,
		Name:            r.Name,
		Label:           r.Label,
		InputType:       models.MetaDataInputType(r.InputType),
		SupportedValues: r.SupportedValues,
	}
	for _, k := range r.AppliesTo {
		md.AppliesTo = append(md.AppliesTo, models.EntityKind(k))
	}
	return md
}

// Create adds a metadata key.
// POST /api/v1/meta-data
func (h *MetaDataHandler) Create(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	var req MetaDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	md := req.toModel(user.OrgID)
	if err := h.store.CreateMetaData(c.Request.Context(), md); err != nil {
		respondStoreError(c, h.logger, err, "create metadata key")
		return
	}

	respondData(c, http.StatusCreated, md, "metadata key created")
}

// List returns metadata keys, optionally filtered by the entity kind they
// apply to.
// GET /api/v1/meta-data?applies_to=risk_scenario
func (h *MetaDataHandler) List(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	kind := models.EntityKind(c.Query("applies_to"))
	if kind != "" && !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid applies_to"})
		return
	}

	keys, err := h.store.GetMetaDataByOrgID(c.Request.Context(), user.OrgID, kind)
	if err != nil {
		respondStoreError(c, h.logger, err, "list metadata keys")
		return
	}

	respondData(c, http.StatusOK, keys, "metadata keys retrieved")
}

// Get returns one metadata key.
// GET /api/v1/meta-data/:id
func (h *MetaDataHandler) Get(c *gin.Context) {
	if middleware.RequireUser(c) == nil {
		return
	}

	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}

	md, err := h.store.GetMetaDataByID(c.Request.Context(), id)
	if err != nil {
		respondStoreError(c, h.logger, err, "get metadata key")
		return
	}
	if md == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "metadata key not found"})
		return
	}

	respondData(c, http.StatusOK, md, "metadata key retrieved")
}

// Update replaces a metadata key's definition.
// PUT /api/v1/meta-data/:id
func (h *MetaDataHandler) Update(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}

	var req MetaDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	md := req.toModel(user.OrgID)
	md.ID = id
	if err := h.store.UpdateMetaData(c.Request.Context(), md); err != nil {
		respondStoreError(c, h.logger, err, "update metadata key")
		return
	}

	respondData(c, http.StatusOK, md, "metadata key updated")
}

// Delete removes a metadata key. Keys referenced by attributes are protected
// by a foreign key and cannot be removed.
// DELETE /api/v1/meta-data/:id
func (h *MetaDataHandler) Delete(c *gin.Context) {
	if middleware.RequireUser(c) == nil {
		return
	}

	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}

	if err := h.store.DeleteMetaData(c.Request.Context(), id); err != nil {
		respondStoreError(c, h.logger, err, "delete metadata key")
		return
	}

	respondData(c, http.StatusOK, gin.H{"id": id}, "metadata key deleted")
}
