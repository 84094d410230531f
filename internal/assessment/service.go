// Package assessment orchestrates the assessment workflow: creation, the
// fixed chain of step operations, questionnaire capture, and reads. Payload
// shape is validated here; state transitions and referential checks are
// enforced inside the store's transactions.
package assessment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stratum-grc/stratum/internal/db"
	"github.com/stratum-grc/stratum/internal/models"
)

// Store is the persistence surface the service needs.
type Store interface {
	CreateAssessment(ctx context.Context, a *models.Assessment) error
	GetAssessmentByID(ctx context.Context, id uuid.UUID) (*models.Assessment, error)
	GetAssessmentDetails(ctx context.Context, id uuid.UUID) (*models.Assessment, error)
	GetAssessmentsByOrgOrBU(ctx context.Context, orgID, businessUnitID *uuid.UUID) ([]*models.Assessment, error)
	ListAssessmentDetails(ctx context.Context, opts db.AssessmentListOptions) ([]*models.Assessment, int, error)
	AddAssessmentProcesses(ctx context.Context, assessmentID uuid.UUID, procs []*models.AssessmentProcess, userID uuid.UUID) error
	AddAssessmentRiskScenarios(ctx context.Context, assessmentID uuid.UUID, scenarios []*models.AssessmentRiskScenario, userID uuid.UUID) error
	SaveAssessmentRiskDetails(ctx context.Context, assessmentID uuid.UUID, details []*models.RiskDetail, userID uuid.UUID) error
	AddAssessmentAssets(ctx context.Context, assessmentID uuid.UUID, assets []*models.AssessmentAsset, userID uuid.UUID) error
	CloseAssessment(ctx context.Context, assessmentID, userID uuid.UUID) error
	SoftDeleteAssessment(ctx context.Context, id, userID uuid.UUID) error
	CreateQuestionnaireResponses(ctx context.Context, assessmentID uuid.UUID, responses []*models.QuestionnaireResponse) error
	GetQuestionnaireResponses(ctx context.Context, assessmentID uuid.UUID) ([]*models.QuestionnaireResponse, error)
}

// Service implements the assessment workflow on top of a Store.
type Service struct {
	store  Store
	logger zerolog.Logger
}

// NewService creates an assessment Service.
func NewService(store Store, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With().Str("component", "assessment").Logger(),
	}
}

// CreateInput carries the fields needed to start an assessment.
type CreateInput struct {
	OrgID          uuid.UUID
	BusinessUnitID *uuid.UUID
	Name           string
	Description    string
	RunID          string
	CreatedBy      uuid.UUID
}

// Create starts a new pending assessment.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Assessment, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", db.ErrValidation)
	}
	if in.RunID == "" {
		return nil, fmt.Errorf("%w: run_id is required", db.ErrValidation)
	}
	if in.OrgID == uuid.Nil {
		return nil, fmt.Errorf("%w: org_id is required", db.ErrValidation)
	}

	a := models.NewAssessment(in.OrgID, in.Name, in.Description, in.RunID, in.CreatedBy)
	a.BusinessUnitID = in.BusinessUnitID
	if err := s.store.CreateAssessment(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Info().Str("assessment_id", a.ID.String()).Str("run_id", a.RunID).Msg("Assessment created")
	return a, nil
}

// AddProcesses runs the save-processes step.
func (s *Service) AddProcesses(ctx context.Context, assessmentID uuid.UUID, procs []*models.AssessmentProcess, userID uuid.UUID) error {
	if len(procs) == 0 {
		return fmt.Errorf("%w: at least one process is required", db.ErrValidation)
	}
	if err := s.store.AddAssessmentProcesses(ctx, assessmentID, procs, userID); err != nil {
		return err
	}
	s.logger.Info().Str("assessment_id", assessmentID.String()).Int("count", len(procs)).Msg("Assessment processes saved")
	return nil
}

// AddRiskScenarios runs the save-risk-scenarios step.
func (s *Service) AddRiskScenarios(ctx context.Context, assessmentID uuid.UUID, scenarios []*models.AssessmentRiskScenario, userID uuid.UUID) error {
	if len(scenarios) == 0 {
		return fmt.Errorf("%w: at least one risk scenario is required", db.ErrValidation)
	}
	if err := s.store.AddAssessmentRiskScenarios(ctx, assessmentID, scenarios, userID); err != nil {
		return err
	}
	s.logger.Info().Str("assessment_id", assessmentID.String()).Int("count", len(scenarios)).Msg("Assessment risk scenarios saved")
	return nil
}

// SaveRiskDetails runs the save-risk-details step.
func (s *Service) SaveRiskDetails(ctx context.Context, assessmentID uuid.UUID, details []*models.RiskDetail, userID uuid.UUID) error {
	if len(details) == 0 {
		return fmt.Errorf("%w: at least one risk detail is required", db.ErrValidation)
	}
	if err := s.store.SaveAssessmentRiskDetails(ctx, assessmentID, details, userID); err != nil {
		return err
	}
	s.logger.Info().Str("assessment_id", assessmentID.String()).Int("count", len(details)).Msg("Assessment risk details saved")
	return nil
}

// AddAssets replaces the assessment's assets without advancing the workflow.
func (s *Service) AddAssets(ctx context.Context, assessmentID uuid.UUID, assets []*models.AssessmentAsset, userID uuid.UUID) error {
	if len(assets) == 0 {
		return fmt.Errorf("%w: at least one asset is required", db.ErrValidation)
	}
	return s.store.AddAssessmentAssets(ctx, assessmentID, assets, userID)
}

// Close finishes an assessment.
func (s *Service) Close(ctx context.Context, assessmentID, userID uuid.UUID) error {
	if err := s.store.CloseAssessment(ctx, assessmentID, userID); err != nil {
		return err
	}
	s.logger.Info().Str("assessment_id", assessmentID.String()).Msg("Assessment closed")
	return nil
}

// SoftDelete hides an assessment from reads and blocks further steps.
func (s *Service) SoftDelete(ctx context.Context, assessmentID, userID uuid.UUID) error {
	if err := s.store.SoftDeleteAssessment(ctx, assessmentID, userID); err != nil {
		return err
	}
	s.logger.Info().Str("assessment_id", assessmentID.String()).Msg("Assessment soft-deleted")
	return nil
}

// SaveQuestionnaire stores questionnaire responses for an assessment.
func (s *Service) SaveQuestionnaire(ctx context.Context, assessmentID uuid.UUID, responses []*models.QuestionnaireResponse) error {
	if len(responses) == 0 {
		return fmt.Errorf("%w: at least one response is required", db.ErrValidation)
	}
	return s.store.CreateQuestionnaireResponses(ctx, assessmentID, responses)
}

// GetQuestionnaire returns the questionnaire responses for an assessment.
func (s *Service) GetQuestionnaire(ctx context.Context, assessmentID uuid.UUID) ([]*models.QuestionnaireResponse, error) {
	return s.store.GetQuestionnaireResponses(ctx, assessmentID)
}

// Get returns a shallow assessment, or nil when absent.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Assessment, error) {
	return s.store.GetAssessmentByID(ctx, id)
}

// GetDetails returns an assessment with the full child tree, or nil.
func (s *Service) GetDetails(ctx context.Context, id uuid.UUID) (*models.Assessment, error) {
	return s.store.GetAssessmentDetails(ctx, id)
}

// GetByOrgOrBU returns shallow assessments for an organization or business
// unit. Exactly one filter must be set.
func (s *Service) GetByOrgOrBU(ctx context.Context, orgID, businessUnitID *uuid.UUID) ([]*models.Assessment, error) {
	if orgID == nil && businessUnitID == nil {
		return nil, fmt.Errorf("%w: orgId or businessUnitId is required", db.ErrValidation)
	}
	if orgID != nil && businessUnitID != nil {
		return nil, fmt.Errorf("%w: orgId and businessUnitId are mutually exclusive", db.ErrValidation)
	}
	return s.store.GetAssessmentsByOrgOrBU(ctx, orgID, businessUnitID)
}

// ListOptions control the paginated details listing.
type ListOptions struct {
	OrgID     *uuid.UUID
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// List returns one page of assessments with children, plus the total count.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]*models.Assessment, int, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	return s.store.ListAssessmentDetails(ctx, db.AssessmentListOptions{
		OrgID:     opts.OrgID,
		Limit:     opts.Limit,
		Offset:    (opts.Page - 1) * opts.Limit,
		SortBy:    opts.SortBy,
		SortOrder: opts.SortOrder,
	})
}
