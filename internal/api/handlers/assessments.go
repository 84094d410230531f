package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stratum-grc/stratum/internal/api/middleware"
	"github.com/stratum-grc/stratum/internal/assessment"
	"github.com/stratum-grc/stratum/internal/models"
)

// AssessmentService defines the workflow operations the handler needs.
// Implemented by *assessment.Service.
type AssessmentService interface {
	Create(ctx context.Context, in assessment.CreateInput) (*models.Assessment, error)
	AddProcesses(ctx context.Context, assessmentID uuid.UUID, procs []*models.AssessmentProcess, userID uuid.UUID) error
	AddRiskScenarios(ctx context.Context, assessmentID uuid.UUID, scenarios []*models.AssessmentRiskScenario, userID uuid.UUID) error
	SaveRiskDetails(ctx context.Context, assessmentID uuid.UUID, details []*models.RiskDetail, userID uuid.UUID) error
	AddAssets(ctx context.Context, assessmentID uuid.UUID, assets []*models.AssessmentAsset, userID uuid.UUID) error
	Close(ctx context.Context, assessmentID, userID uuid.UUID) error
	SoftDelete(ctx context.Context, assessmentID, userID uuid.UUID) error
	SaveQuestionnaire(ctx context.Context, assessmentID uuid.UUID, responses []*models.QuestionnaireResponse) error
	GetQuestionnaire(ctx context.Context, assessmentID uuid.UUID) ([]*models.QuestionnaireResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Assessment, error)
	GetDetails(ctx context.Context, id uuid.UUID) (*models.Assessment, error)
	GetByOrgOrBU(ctx context.Context, orgID, businessUnitID *uuid.UUID) ([]*models.Assessment, error)
	List(ctx context.Context, opts assessment.ListOptions) ([]*models.Assessment, int, error)
}

// AssessmentsHandler handles assessment workflow endpoints.
type AssessmentsHandler struct {
	service AssessmentService
	logger  zerolog.Logger
}

// NewAssessmentsHandler creates a new AssessmentsHandler.
func NewAssessmentsHandler(service AssessmentService, logger zerolog.Logger) *AssessmentsHandler {
	return &AssessmentsHandler{
		service: service,
		logger:  logger.With().Str("component", "assessments_handler").Logger(),
	}
}

// RegisterRoutes registers assessment routes on the given router group.
func (h *AssessmentsHandler) RegisterRoutes(r *gin.RouterGroup) {
	assessments := r.Group("/assessment")
	{
		assessments.POST("", h.Create)
		assessments.GET("", h.ListForOrg)
		assessments.GET("/by-org-or-bu", h.GetByOrgOrBU)
		assessments.GET("/all/details", h.ListDetails)
		assessments.GET("/:id", h.Get)
		assessments.GET("/:id/details", h.GetDetails)
		assessments.GET("/:id/questionnaire", h.GetQuestionnaire)
		assessments.POST("/:id/save_processes", h.SaveProcesses)
		assessments.POST("/:id/close", h.Close)
		assessments.POST("/assessment-process-risk-scenarios", h.SaveRiskScenarios)
		assessments.POST("/assessment-risk-details", h.SaveRiskDetails)
		assessments.POST("/assessment-process-assets", h.SaveAssets)
		assessments.POST("/assessment-questionaire", h.SaveQuestionnaire)
		assessments.DELETE("/:id", h.Delete)
	}
}

// CreateAssessmentRequest is the request body for creating an assessment.
type CreateAssessmentRequest struct {
	Name           string     `json:"name" binding:"required"`
	Description    string     `json:"description"`
	RunID          string     `json:"run_id" binding:"required"`
	BusinessUnitID *uuid.UUID `json:"business_unit_id"`
}

// Create starts a new assessment in the pending state.
//
//	@Summary	Create an assessment
//	@Tags		assessments
//	@Accept		json
//	@Produce	json
//	@Param		request	body	CreateAssessmentRequest	true	"Assessment"
//	@Success	201	{object}	map[string]any
//	@Router		/assessment [post]
func (h *AssessmentsHandler) Create(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	var req CreateAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and run_id are required"})
		return
	}

	a, err := h.service.Create(c.Request.Context(), assessment.CreateInput{
		OrgID:          user.OrgID,
		BusinessUnitID: req.BusinessUnitID,
		Name:           req.Name,
		Description:    req.Description,
		RunID:          req.RunID,
		CreatedBy:      user.ID,
	})
	if err != nil {
		respondStoreError(c, h.logger, err, "create assessment")
		return
	}

	respondData(c, http.StatusCreated, a, "assessment created")
}

// assessmentProcessRequest is one process entry in the save-processes step.
type assessmentProcessRequest struct {
	ProcessID   *int64 `json:"process_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Position    int    `json:"position"`
}

// SaveProcesses runs the save-processes workflow step.
// POST /api/v1/assessment/:id/save_processes
func (h *AssessmentsHandler) SaveProcesses(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Processes []assessmentProcessRequest `json:"processes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	procs := make([]*models.AssessmentProcess, len(req.Processes))
	for i, p := range req.Processes {
		procs[i] = &models.AssessmentProcess{
			ProcessID:   p.ProcessID,
			Name:        p.Name,
			Description: p.Description,
			Position:    p.Position,
		}
	}

	if err := h.service.AddProcesses(c.Request.Context(), id, procs, user.ID); err != nil {
		respondStoreError(c, h.logger, err, "save assessment processes")
		return
	}

	respondData(c, http.StatusOK, gin.H{"assessment_id": id, "count": len(procs)}, "assessment processes saved")
}

// assessmentRiskScenarioRequest is one entry in the save-risk-scenarios step.
type assessmentRiskScenarioRequest struct {
	AssessmentProcessID uuid.UUID `json:"assessment_process_id"`
	RiskScenarioID      *int64    `json:"risk_scenario_id"`
	Title               string    `json:"title"`
	Description         string    `json:"description"`
}

// SaveRiskScenarios runs the save-risk-scenarios workflow step. The
// assessment id travels in the body because entries span multiple processes.
// POST /api/v1/assessment/assessment-process-risk-scenarios
func (h *AssessmentsHandler) SaveRiskScenarios(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	var req struct {
		AssessmentID  uuid.UUID                       `json:"assessment_id" binding:"required"`
		RiskScenarios []assessmentRiskScenarioRequest `json:"risk_scenarios"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "assessment_id is required"})
		return
	}

	scenarios := make([]*models.AssessmentRiskScenario, len(req.RiskScenarios))
	for i, rs := range req.RiskScenarios {
		scenarios[i] = &models.AssessmentRiskScenario{
			AssessmentProcessID: rs.AssessmentProcessID,
			RiskScenarioID:      rs.RiskScenarioID,
			Title:               rs.Title,
			Description:         rs.Description,
		}
	}

	if err := h.service.AddRiskScenarios(c.Request.Context(), req.AssessmentID, scenarios, user.ID); err != nil {
		respondStoreError(c, h.logger, err, "save assessment risk scenarios")
		return
	}

	respondData(c, http.StatusOK, gin.H{"assessment_id": req.AssessmentID, "count": len(scenarios)}, "assessment risk scenarios saved")
}

// riskDetailRequest is one entry in the save-risk-details step.
type riskDetailRequest struct {
	AssessmentRiskScenarioID uuid.UUID `json:"assessment_risk_scenario_id"`
	ThresholdHours           float64   `json:"threshold_hours"`
	ThresholdCost            float64   `json:"threshold_cost"`
	Taxonomies               []struct {
		TaxonomyID    int64   `json:"taxonomy_id"`
		SeverityName  string  `json:"severity_name"`
		SeverityMin   float64 `json:"severity_min"`
		SeverityMax   float64 `json:"severity_max"`
		SeverityColor string  `json:"severity_color"`
	} `json:"taxonomies"`
}

// SaveRiskDetails runs the save-risk-details workflow step.
// POST /api/v1/assessment/assessment-risk-details
func (h *AssessmentsHandler) SaveRiskDetails(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	var req struct {
		AssessmentID uuid.UUID           `json:"assessment_id" binding:"required"`
		RiskDetails  []riskDetailRequest `json:"risk_details"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "assessment_id is required"})
		return
	}

	details := make([]*models.RiskDetail, len(req.RiskDetails))
	for i, d := range req.RiskDetails {
		detail := &models.RiskDetail{
			AssessmentRiskScenarioID: d.AssessmentRiskScenarioID,
			ThresholdHours:           d.ThresholdHours,
			ThresholdCost:            d.ThresholdCost,
		}
		for _, taxEntry := range d.Taxonomies {
			detail.Taxonomies = append(detail.Taxonomies, &models.AssessmentRiskTaxonomy{
				TaxonomyID:    taxEntry.TaxonomyID,
				SeverityName:  taxEntry.SeverityName,
				SeverityMin:   taxEntry.SeverityMin,
				SeverityMax:   taxEntry.SeverityMax,
				SeverityColor: taxEntry.SeverityColor,
			})
		}
		details[i] = detail
	}

	if err := h.service.SaveRiskDetails(c.Request.Context(), req.AssessmentID, details, user.ID); err != nil {
		respondStoreError(c, h.logger, err, "save assessment risk details")
		return
	}

	respondData(c, http.StatusOK, gin.H{"assessment_id": req.AssessmentID, "count": len(details)}, "assessment risk details saved")
}

// SaveAssets replaces the assessment's assets.
// POST /api/v1/assessment/assessment-process-assets
func (h *AssessmentsHandler) SaveAssets(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	var req struct {
		AssessmentID uuid.UUID `json:"assessment_id" binding:"required"`
		Assets       []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			Position    int    `json:"position"`
		} `json:"assets"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "assessment_id is required"})
		return
	}

	assets := make([]*models.AssessmentAsset, len(req.Assets))
	for i, a := range req.Assets {
		assets[i] = &models.AssessmentAsset{
			Name:        a.Name,
			Description: a.Description,
			Position:    a.Position,
		}
	}

	if err := h.service.AddAssets(c.Request.Context(), req.AssessmentID, assets, user.ID); err != nil {
		respondStoreError(c, h.logger, err, "save assessment assets")
		return
	}

	respondData(c, http.StatusOK, gin.H{"assessment_id": req.AssessmentID, "count": len(assets)}, "assessment assets saved")
}

// SaveQuestionnaire stores questionnaire responses for an assessment.
// POST /api/v1/assessment/assessment-questionaire
func (h *AssessmentsHandler) SaveQuestionnaire(c *gin.Context) {
	if middleware.RequireUser(c) == nil {
		return
	}

	var req struct {
		AssessmentID uuid.UUID `json:"assessment_id" binding:"required"`
		Responses    []struct {
			Question string `json:"question"`
			Answer   string `json:"answer"`
			Category string `json:"category"`
		} `json:"responses"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "assessment_id is required"})
		return
	}

	responses := make([]*models.QuestionnaireResponse, len(req.Responses))
	for i, r := range req.Responses {
		responses[i] = &models.QuestionnaireResponse{
			Question: r.Question,
			Answer:   r.Answer,
			Category: r.Category,
		}
	}

	if err := h.service.SaveQuestionnaire(c.Request.Context(), req.AssessmentID, responses); err != nil {
		respondStoreError(c, h.logger, err, "save questionnaire")
		return
	}

	respondData(c, http.StatusOK, gin.H{"assessment_id": req.AssessmentID, "count": len(responses)}, "questionnaire saved")
}

// GetQuestionnaire returns the questionnaire responses for an assessment.
// GET /api/v1/assessment/:id/questionnaire
func (h *AssessmentsHandler) GetQuestionnaire(c *gin.Context) {
	if middleware.RequireUser(c) == nil {
		return
	}

	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	responses, err := h.service.GetQuestionnaire(c.Request.Context(), id)
	if err != nil {
		respondStoreError(c, h.logger, err, "get questionnaire")
		return
	}

	respondData(c, http.StatusOK, responses, "questionnaire retrieved")
}

// Close finishes an assessment.
// POST /api/v1/assessment/:id/close
func (h *AssessmentsHandler) Close(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Close(c.Request.Context(), id, user.ID); err != nil {
		respondStoreError(c, h.logger, err, "close assessment")
		return
	}

	respondData(c, http.StatusOK, gin.H{"assessment_id": id}, "assessment closed")
}

// Delete soft-deletes an assessment.
// DELETE /api/v1/assessment/:id
func (h *AssessmentsHandler) Delete(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.service.SoftDelete(c.Request.Context(), id, user.ID); err != nil {
		respondStoreError(c, h.logger, err, "delete assessment")
		return
	}

	respondData(c, http.StatusOK, gin.H{"assessment_id": id}, "assessment deleted")
}

// Get returns one assessment without children.
// GET /api/v1/assessment/:id
func (h *AssessmentsHandler) Get(c *gin.Context) {
	if middleware.RequireUser(c) == nil {
		return
	}

	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	a, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondStoreError(c, h.logger, err, "get assessment")
		return
	}
	if a == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "assessment not found"})
		return
	}

	respondData(c, http.StatusOK, a, "assessment retrieved")
}

// GetDetails returns one assessment with the full child tree.
// GET /api/v1/assessment/:id/details
func (h *AssessmentsHandler) GetDetails(c *gin.Context) {
	if middleware.RequireUser(c) == nil {
		return
	}

	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	a, err := h.service.GetDetails(c.Request.Context(), id)
	if err != nil {
		respondStoreError(c, h.logger, err, "get assessment details")
		return
	}
	if a == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "assessment not found"})
		return
	}

	respondData(c, http.StatusOK, a, "assessment details retrieved")
}

// ListForOrg returns the shallow assessments of the caller's organization.
// GET /api/v1/assessment
func (h *AssessmentsHandler) ListForOrg(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	orgID := user.OrgID
	assessments, err := h.service.GetByOrgOrBU(c.Request.Context(), &orgID, nil)
	if err != nil {
		respondStoreError(c, h.logger, err, "list assessments")
		return
	}

	respondData(c, http.StatusOK, assessments, "assessments retrieved")
}

// GetByOrgOrBU returns shallow assessments filtered by organization or
// business unit.
// GET /api/v1/assessment/by-org-or-bu?orgId=...|businessUnitId=...
func (h *AssessmentsHandler) GetByOrgOrBU(c *gin.Context) {
	if middleware.RequireUser(c) == nil {
		return
	}

	var orgID, buID *uuid.UUID
	if raw := c.Query("orgId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid orgId"})
			return
		}
		orgID = &id
	}
	if raw := c.Query("businessUnitId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid businessUnitId"})
			return
		}
		buID = &id
	}

	assessments, err := h.service.GetByOrgOrBU(c.Request.Context(), orgID, buID)
	if err != nil {
		respondStoreError(c, h.logger, err, "list assessments")
		return
	}

	respondData(c, http.StatusOK, assessments, "assessments retrieved")
}

// ListDetails returns a paginated, sortable list of assessments with the full
// child tree.
// GET /api/v1/assessment/all/details?page=1&limit=20&sortBy=name&sortOrder=asc
func (h *AssessmentsHandler) ListDetails(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	orgID := user.OrgID
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 20)

	assessments, total, err := h.service.List(c.Request.Context(), assessment.ListOptions{
		OrgID:     &orgID,
		Page:      page,
		Limit:     limit,
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	})
	if err != nil {
		respondStoreError(c, h.logger, err, "list assessment details")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  assessments,
		"total": total,
		"page":  page,
		"limit": limit,
		"msg":   "assessment details retrieved",
	})
}

// pathUUID parses a UUID path parameter, writing a 400 on failure.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}
