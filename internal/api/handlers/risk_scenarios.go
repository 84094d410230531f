package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stratum-grc/stratum/internal/api/middleware"
	"github.com/stratum-grc/stratum/internal/models"
)

// RiskScenarioStore defines the persistence operations for the risk scenario library.
type RiskScenarioStore interface {
	CreateRiskScenario(ctx context.Context, rs *models.RiskScenario) error
	GetRiskScenarioByID(ctx context.Context, id int64) (*models.RiskScenario, error)
	ListRiskScenarios(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.RiskScenario, int, error)
	UpdateRiskScenario(ctx context.Context, rs *models.RiskScenario, expectedVersion int64) error
	UpdateRiskScenarioStatus(ctx context.Context, id int64, status models.LibraryStatus) error
	DeleteRiskScenario(ctx context.Context, id int64) error
}

// RiskScenariosHandler handles risk scenario library endpoints.
type RiskScenariosHandler struct {
	store  RiskScenarioStore
	logger zerolog.Logger
}

// NewRiskScenariosHandler creates a new RiskScenariosHandler.
func NewRiskScenariosHandler(store RiskScenarioStore, logger zerolog.Logger) *RiskScenariosHandler {
	return &RiskScenariosHandler{
		store:  store,
		logger: logger.With().Str("component", "risk_scenarios_handler").Logger(),
	}
}

// RegisterRoutes registers risk scenario routes on the given router group.
func (h *RiskScenariosHandler) RegisterRoutes(r *gin.RouterGroup) {
	scenarios := r.Group("/risk-scenario")
	{
		scenarios.POST("", h.Create)
		scenarios.GET("", h.List)
		scenarios.GET("/:id", h.Get)
		scenarios.PUT("/:id", h.Update)
		scenarios.DELETE("/:id", h.Delete)
		scenarios.PATCH("/update-status/:id", h.UpdateStatus)
	}
}

// attributeRequest is one submitted metadata attribute.
type attributeRequest struct {
	MetaDataKeyID int64    `json:"meta_data_key_id"`
	Values        []string `json:"values"`
}

// RiskScenarioRequest is the request body for creating or updating a risk scenario.
type RiskScenarioRequest struct {
	RiskScenario string             `json:"risk_scenario"`
	Description  string             `json:"description"`
	Status       string             `json:"status"`
	Attributes   []attributeRequest `json:"attributes"`
	Version      int64              `json:"version"`
}

func (r RiskScenarioRequest) toModel(orgID uuid.UUID) *models.RiskScenario {
	rs := &models.RiskScenario{
		OrgID:       orgID,
		Title:       r.RiskScenario,
		Description: r.Description,
		Status:      models.LibraryStatus(r.Status),
	}
	for _, a := range r.Attributes {
		rs.Attributes = append(rs.Attributes, &models.EntityAttribute{
			MetaDataKeyID: a.MetaDataKeyID,
			Values:        a.Values,
		})
	}
	return rs
}

// Create adds a risk scenario to the organization's library.
//
//	@Summary	Create a risk scenario
//	@Tags		risk-scenarios
//	@Accept		json
//	@Produce	json
//	@Param		request	body	RiskScenarioRequest	true	"Risk scenario"
//	@Success	201	{object}	map[string]any
//	@Failure	400	{object}	map[string]string
//	@Router		/risk-scenario [post]
func (h *RiskScenariosHandler) Create(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	var req RiskScenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	rs := req.toModel(user.OrgID)
	if err := h.store.CreateRiskScenario(c.Request.Context(), rs); err != nil {
		respondStoreError(c, h.logger, err, "create risk scenario")
		return
	}

	h.logger.Info().Int64("id", rs.ID).Str("risk_code", rs.RiskCode).Msg("risk scenario created")
	respondData(c, http.StatusCreated, rs, "risk scenario created")
}

// List returns one page of the organization's risk scenarios.
// GET /api/v1/risk-scenario?limit=10&page=1
func (h *RiskScenariosHandler) List(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	limit := queryInt(c, "limit", 10)
	page := queryInt(c, "page", 1)
	if page < 1 {
		page = 1
	}

	scenarios, total, err := h.store.ListRiskScenarios(c.Request.Context(), user.OrgID, limit, (page-1)*limit)
	if err != nil {
		respondStoreError(c, h.logger, err, "list risk scenarios")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  scenarios,
		"total": total,
		"page":  page,
		"limit": limit,
		"msg":   "risk scenarios retrieved",
	})
}

// Get returns one risk scenario with its attributes.
// GET /api/v1/risk-scenario/:id
func (h *RiskScenariosHandler) Get(c *gin.Context) {
	if middleware.RequireUser(c) == nil {
		return
	}

	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}

	rs, err := h.store.GetRiskScenarioByID(c.Request.Context(), id)
	if err != nil {
		respondStoreError(c, h.logger, err, "get risk scenario")
		return
	}
	if rs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "risk scenario not found"})
		return
	}

	respondData(c, http.StatusOK, rs, "risk scenario retrieved")
}

// Update replaces a risk scenario's fields and attributes. The request must
// carry the version the client read; a mismatch means someone else updated
// the row in between, and the caller gets a 409.
// PUT /api/v1/risk-scenario/:id
func (h *RiskScenariosHandler) Update(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}

	var req RiskScenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.RiskScenario == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "risk_scenario is required"})
		return
	}

	rs := req.toModel(user.OrgID)
	rs.ID = id
	if err := h.store.UpdateRiskScenario(c.Request.Context(), rs, req.Version); err != nil {
		respondStoreError(c, h.logger, err, "update risk scenario")
		return
	}

	respondData(c, http.StatusOK, rs, "risk scenario updated")
}

// UpdateStatusRequest is the request body for the status patch endpoint.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus patches just the library status of a risk scenario.
// PATCH /api/v1/risk-scenario/update-status/:id
func (h *RiskScenariosHandler) UpdateStatus(c *gin.Context) {
	if middleware.RequireUser(c) == nil {
		return
	}

	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}

	status := models.LibraryStatus(req.Status)
	if !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	if err := h.store.UpdateRiskScenarioStatus(c.Request.Context(), id, status); err != nil {
		respondStoreError(c, h.logger, err, "update risk scenario status")
		return
	}

	respondData(c, http.StatusOK, gin.H{"id": id, "status": status}, "risk scenario status updated")
}

// Delete removes a risk scenario and its attributes.
// DELETE /api/v1/risk-scenario/:id
func (h *RiskScenariosHandler) Delete(c *gin.Context) {
	if middleware.RequireUser(c) == nil {
		return
	}

	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}

	if err := h.store.DeleteRiskScenario(c.Request.Context(), id); err != nil {
		respondStoreError(c, h.logger, err, "delete risk scenario")
		return
	}

	respondData(c, http.StatusOK, gin.H{"id": id}, "risk scenario deleted")
}

// pathInt64 parses a numeric path parameter, writing a 400 on failure.
func pathInt64(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// queryInt parses an integer query parameter with a default.
func queryInt(c *gin.Context, name string, defaultVal int) int {
	val := c.Query(name)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}
