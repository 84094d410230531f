package models

import (
	"time"

	"github.com/google/uuid"
)

// AssessmentStatus is the workflow state of an assessment. The workflow is a
// fixed chain; each step endpoint moves the assessment one state forward.
type AssessmentStatus string

const (
	AssessmentStatusPending            AssessmentStatus = "pending"
	AssessmentStatusProcessesAdded     AssessmentStatus = "processes_added"
	AssessmentStatusRiskScenariosAdded AssessmentStatus = "risk_scenarios_added"
	AssessmentStatusDetailsAdded       AssessmentStatus = "details_added"
	AssessmentStatusClosed             AssessmentStatus = "closed"
)

// Valid reports whether the status is a known value.
func (s AssessmentStatus) Valid() bool {
	switch s {
	case AssessmentStatusPending, AssessmentStatusProcessesAdded,
		AssessmentStatusRiskScenariosAdded, AssessmentStatusDetailsAdded,
		AssessmentStatusClosed:
		return true
	}
	return false
}

// assessmentTransitions maps each status to its allowed successor.
var assessmentTransitions = map[AssessmentStatus]AssessmentStatus{
	AssessmentStatusPending:            AssessmentStatusProcessesAdded,
	AssessmentStatusProcessesAdded:     AssessmentStatusRiskScenariosAdded,
	AssessmentStatusRiskScenariosAdded: AssessmentStatusDetailsAdded,
	AssessmentStatusDetailsAdded:       AssessmentStatusClosed,
}

// CanTransitionTo reports whether a step may move the assessment from s to
// target. Re-entering the current state is allowed so a step can be re-run
// (replacing its child rows); closed assessments accept no transitions.
func (s AssessmentStatus) CanTransitionTo(target AssessmentStatus) bool {
	if s == AssessmentStatusClosed {
		return false
	}
	if s == target {
		return true
	}
	return assessmentTransitions[s] == target
}

// Assessment is the root of one governance exercise for an organization or
// business unit, progressing through process, risk-scenario, and impact steps.
type Assessment struct {
	ID             uuid.UUID        `json:"id"`
	OrgID          uuid.UUID        `json:"org_id"`
	BusinessUnitID *uuid.UUID       `json:"business_unit_id,omitempty"`
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	RunID          string           `json:"run_id"`
	Status         AssessmentStatus `json:"status"`
	StartDate      time.Time        `json:"start_date"`
	EndDate        *time.Time       `json:"end_date,omitempty"`
	LastActivityAt time.Time        `json:"last_activity_at"`
	CreatedBy      uuid.UUID        `json:"created_by"`
	ModifiedBy     uuid.UUID        `json:"modified_by"`
	DeletedAt      *time.Time       `json:"-"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`

	// Stale is set by the maintenance sweeper when an open assessment has
	// seen no activity past the idle threshold, and cleared by any step.
	Stale bool `json:"stale"`

	// Processes is populated by the details read.
	Processes []*AssessmentProcess `json:"processes,omitempty"`
	Assets    []*AssessmentAsset   `json:"assets,omitempty"`
}

// RiskDetail is one entry of the save-risk-details step: threshold values plus
// the chosen severity band per taxonomy for one assessment risk scenario.
type RiskDetail struct {
	AssessmentRiskScenarioID uuid.UUID                 `json:"assessment_risk_scenario_id"`
	ThresholdHours           float64                   `json:"threshold_hours"`
	ThresholdCost            float64                   `json:"threshold_cost"`
	Taxonomies               []*AssessmentRiskTaxonomy `json:"taxonomies,omitempty"`
}

// NewAssessment creates a pending Assessment stamped with audit fields.
func NewAssessment(orgID uuid.UUID, name, description, runID string, createdBy uuid.UUID) *Assessment {
	now := time.Now()
	return &Assessment{
		ID:             uuid.New(),
		OrgID:          orgID,
		Name:           name,
		Description:    description,
		RunID:          runID,
		Status:         AssessmentStatusPending,
		StartDate:      now,
		LastActivityAt: now,
		CreatedBy:      createdBy,
		ModifiedBy:     createdBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// AssessmentProcess is a process instance bound to one assessment, created in
// bulk by the save-processes step and never updated in place.
type AssessmentProcess struct {
	ID           uuid.UUID `json:"id"`
	AssessmentID uuid.UUID `json:"assessment_id"`
	ProcessID    *int64    `json:"process_id,omitempty"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Position     int       `json:"position"`
	CreatedAt    time.Time `json:"created_at"`

	RiskScenarios []*AssessmentRiskScenario `json:"risk_scenarios,omitempty"`
}

// AssessmentRiskScenario is a risk scenario instance bound to one
// assessment process.
type AssessmentRiskScenario struct {
	ID                  uuid.UUID `json:"id"`
	AssessmentProcessID uuid.UUID `json:"assessment_process_id"`
	RiskScenarioID      *int64    `json:"risk_scenario_id,omitempty"`
	Title               string    `json:"title"`
	Description         string    `json:"description,omitempty"`
	CreatedAt           time.Time `json:"created_at"`

	BusinessImpact *AssessmentBusinessImpact `json:"business_impact,omitempty"`
	Taxonomies     []*AssessmentRiskTaxonomy `json:"taxonomies,omitempty"`
}

// AssessmentBusinessImpact holds the threshold values attached to one
// assessment risk scenario.
type AssessmentBusinessImpact struct {
	ID                       uuid.UUID `json:"id"`
	AssessmentRiskScenarioID uuid.UUID `json:"assessment_risk_scenario_id"`
	ThresholdHours           float64   `json:"threshold_hours"`
	ThresholdCost            float64   `json:"threshold_cost"`
	CreatedAt                time.Time `json:"created_at"`
}

// AssessmentRiskTaxonomy records the chosen severity band for one risk under
// one taxonomy.
type AssessmentRiskTaxonomy struct {
	ID                       uuid.UUID `json:"id"`
	AssessmentRiskScenarioID uuid.UUID `json:"assessment_risk_scenario_id"`
	TaxonomyID               int64     `json:"taxonomy_id"`
	SeverityName             string    `json:"severity_name"`
	SeverityMin              float64   `json:"severity_min"`
	SeverityMax              float64   `json:"severity_max"`
	SeverityColor            string    `json:"severity_color,omitempty"`
	CreatedAt                time.Time `json:"created_at"`
}

// AssessmentAsset is an asset instance bound to one assessment, the asset
// analogue of AssessmentProcess.
type AssessmentAsset struct {
	ID           uuid.UUID `json:"id"`
	AssessmentID uuid.UUID `json:"assessment_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Position     int       `json:"position"`
	CreatedAt    time.Time `json:"created_at"`
}

// QuestionnaireResponse is one answered questionnaire entry attached to an
// assessment, independent of the workflow chain.
type QuestionnaireResponse struct {
	ID           uuid.UUID `json:"id"`
	AssessmentID uuid.UUID `json:"assessment_id"`
	Question     string    `json:"question"`
	Answer       string    `json:"answer,omitempty"`
	Category     string    `json:"category,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
