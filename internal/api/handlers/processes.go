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

// ProcessStore defines the persistence operations for the process library.
type ProcessStore interface {
	CreateProcess(ctx context.Context, p *models.Process) error
	GetProcessByID(ctx context.Context, id int64) (*models.Process, error)
	ListProcesses(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.Process, int, error)
	UpdateProcess(ctx context.Context, p *models.Process) error
	DeleteProcess(ctx context.Context, id int64) error
}

// ProcessesHandler handles process library endpoints.
type ProcessesHandler struct {
	store  ProcessStore
	logger zerolog.Logger
}

// NewProcessesHandler creates a new ProcessesHandler.
func NewProcessesHandler(store ProcessStore, logger zerolog.Logger) *ProcessesHandler {
	return &ProcessesHandler{
		store:  store,
		logger: logger.With().Str("component", "processes_handler").Logger(),
	}
}

// RegisterRoutes registers process routes on the given router group.
func (h *ProcessesHandler) RegisterRoutes(r *gin.RouterGroup) {
	processes := r.Group("/process")
	{
		processes.POST("", h.Create)
		processes.GET("", h.List)
		processes.GET("/:id", h.Get)
		processes.PUT("/:id", h.Update)
		processes.DELETE("/:id", h.Delete)
	}
}

// ProcessRequest is the request body for creating or updating a process.
type ProcessRequest struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Owner       string             `json:"owner"`
	Status      string             `json:"status"`
	Attributes  []attributeRequest `json:"attributes"`
}

func (r ProcessRequest) toModel(orgID uuid.UUID) *models.Process {
	p := &models.Process{
		OrgID:       orgID,
		Name:        r.Name,
		Description: r.Description,
		Owner:       r.Owner,
		Status:      models.LibraryStatus(r.Status),
	}
	for _, a := range r.Attributes {
		p.Attributes = append(p.Attributes, &models.EntityAttribute{
			MetaDataKeyID: a.MetaDataKeyID,
			Values:        a.Values,
		})
	}
	return p
}

// Create adds a process to the organization's library.
// POST /api/v1/process
func (h *ProcessesHandler) Create(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	var req ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	p := req.toModel(user.OrgID)
	if err := h.store.CreateProcess(c.Request.Context(), p); err != nil {
		respondStoreError(c, h.logger, err, "create process")
		return
	}

	h.logger.Info().Int64("id", p.ID).Str("process_code", p.ProcessCode).Msg("process created")
	respondData(c, http.StatusCreated, p, "process created")
}

// List returns one page of the organization's processes.
// GET /api/v1/process?limit=10&page=1
func (h *ProcessesHandler) List(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	limit := queryInt(c, "limit", 10)
	page := queryInt(c, "page", 1)

	processes, total, err := h.store.ListProcesses(c.Request.Context(), user.OrgID, limit, (page-1)*limit)
	if err != nil {
		respondStoreError(c, h.logger, err, "list processes")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  processes,
		"total": total,
		"page":  page,
		"limit": limit,
		"msg":   "processes retrieved",
	})
}

// Get returns one process with its attributes.
// GET /api/v1/process/:id
func (h *ProcessesHandler) Get(c *gin.Context) {
	if middleware.RequireUser(c) == nil {
		return
	}

	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}

	p, err := h.store.GetProcessByID(c.Request.Context(), id)
	if err != nil {
		respondStoreError(c, h.logger, err, "get process")
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "process not found"})
		return
	}

	respondData(c, http.StatusOK, p, "process retrieved")
}

// Update replaces a process's fields and attributes.
// PUT /api/v1/process/:id
func (h *ProcessesHandler) Update(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}

	var req ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	p := req.toModel(user.OrgID)
	p.ID = id
	if err := h.store.UpdateProcess(c.Request.Context(), p); err != nil {
		respondStoreError(c, h.logger, err, "update process")
		return
	}

	respondData(c, http.StatusOK, p, "process updated")
}

// Delete removes a process and its attributes.
// DELETE /api/v1/process/:id
func (h *ProcessesHandler) Delete(c *gin.Context) {
	if middleware.RequireUser(c) == nil {
		return
	}

	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}

	if err := h.store.DeleteProcess(c.Request.Context(), id); err != nil {
		respondStoreError(c, h.logger, err, "delete process")
		return
	}

	respondData(c, http.StatusOK, gin.H{"id": id}, "process deleted")
}
