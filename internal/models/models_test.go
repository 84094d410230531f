package models

import (
	"testing"

	"github.com/google/uuid"
)

// --- Constructor Tests ---

func TestNewOrganization(t *testing.T) {
	org := NewOrganization("Acme Corp", "acme-corp")

	if org.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
	if org.Name != "Acme Corp" {
		t.Errorf("expected Name 'Acme Corp', got %s", org.Name)
	}
	if org.Slug != "acme-corp" {
		t.Errorf("expected Slug 'acme-corp', got %s", org.Slug)
	}
	if org.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestNewAssessment(t *testing.T) {
	orgID := uuid.New()
	userID := uuid.New()
	a := NewAssessment(orgID, "Q3 review", "quarterly risk review", "run-7", userID)

	if a.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
	if a.OrgID != orgID {
		t.Errorf("expected OrgID %v, got %v", orgID, a.OrgID)
	}
	if a.Status != AssessmentStatusPending {
		t.Errorf("expected status pending, got %s", a.Status)
	}
	if a.CreatedBy != userID || a.ModifiedBy != userID {
		t.Error("expected audit fields stamped with creator")
	}
	if a.StartDate.IsZero() {
		t.Error("expected StartDate to be set")
	}
	if a.EndDate != nil {
		t.Error("expected EndDate unset on a new assessment")
	}
}

// --- Code Generation Tests ---

func TestFormatRiskCode(t *testing.T) {
	tests := []struct {
		id   int64
		want string
	}{
		{7, "RS-00007"},
		{1, "RS-00001"},
		{99999, "RS-99999"},
		{100000, "RS-100000"},
	}
	for _, tt := range tests {
		if got := FormatRiskCode(tt.id); got != tt.want {
			t.Errorf("FormatRiskCode(%d) = %s, want %s", tt.id, got, tt.want)
		}
	}
}

func TestFormatProcessCode(t *testing.T) {
	if got := FormatProcessCode(42); got != "PR-00042" {
		t.Errorf("FormatProcessCode(42) = %s, want PR-00042", got)
	}
}

// --- Status Machine Tests ---

func TestAssessmentStatusTransitions(t *testing.T) {
	tests := []struct {
		from    AssessmentStatus
		to      AssessmentStatus
		allowed bool
	}{
		{AssessmentStatusPending, AssessmentStatusProcessesAdded, true},
		{AssessmentStatusProcessesAdded, AssessmentStatusRiskScenariosAdded, true},
		{AssessmentStatusRiskScenariosAdded, AssessmentStatusDetailsAdded, true},
		{AssessmentStatusDetailsAdded, AssessmentStatusClosed, true},

		// re-running the step that produced the current state
		{AssessmentStatusProcessesAdded, AssessmentStatusProcessesAdded, true},
		{AssessmentStatusRiskScenariosAdded, AssessmentStatusRiskScenariosAdded, true},

		// skipping or rewinding steps
		{AssessmentStatusPending, AssessmentStatusRiskScenariosAdded, false},
		{AssessmentStatusPending, AssessmentStatusClosed, false},
		{AssessmentStatusRiskScenariosAdded, AssessmentStatusProcessesAdded, false},
		{AssessmentStatusDetailsAdded, AssessmentStatusProcessesAdded, false},

		// closed is terminal
		{AssessmentStatusClosed, AssessmentStatusClosed, false},
		{AssessmentStatusClosed, AssessmentStatusPending, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.allowed {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestAssessmentStatusValid(t *testing.T) {
	for _, s := range []AssessmentStatus{
		AssessmentStatusPending, AssessmentStatusProcessesAdded,
		AssessmentStatusRiskScenariosAdded, AssessmentStatusDetailsAdded,
		AssessmentStatusClosed,
	} {
		if !s.Valid() {
			t.Errorf("expected %s to be valid", s)
		}
	}
	if AssessmentStatus("in-progress").Valid() {
		t.Error("expected free-text status to be invalid")
	}
}

// --- Validation Tests ---

func TestRiskScenarioValidate(t *testing.T) {
	rs := &RiskScenario{Title: "Data center outage", Status: LibraryStatusDraft}
	if err := rs.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	rs = &RiskScenario{}
	if err := rs.Validate(); err == nil {
		t.Error("expected error for missing title")
	}

	rs = &RiskScenario{Title: "x", Status: "archived"}
	if err := rs.Validate(); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestMetaDataValidateValues(t *testing.T) {
	md := &MetaData{
		Name:            "criticality",
		InputType:       MetaDataInputSelect,
		SupportedValues: []string{"a", "b"},
	}

	if err := md.ValidateValues([]string{"a"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := md.ValidateValues([]string{"a", "b"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := md.ValidateValues([]string{"not-allowed"}); err == nil {
		t.Error("expected error for unsupported value")
	}

	// empty supported list accepts anything
	md.SupportedValues = nil
	if err := md.ValidateValues([]string{"whatever"}); err != nil {
		t.Errorf("unexpected error with open value set: %v", err)
	}
}

func TestMetaDataAppliesToKind(t *testing.T) {
	md := &MetaData{Name: "tier", InputType: MetaDataInputText, AppliesTo: []EntityKind{EntityKindProcess}}
	if !md.AppliesToKind(EntityKindProcess) {
		t.Error("expected process kind to apply")
	}
	if md.AppliesToKind(EntityKindRiskScenario) {
		t.Error("expected risk_scenario kind not to apply")
	}

	md.AppliesTo = []EntityKind{EntityKindAll}
	if !md.AppliesToKind(EntityKindControl) {
		t.Error("expected 'all' to apply to every kind")
	}
}
