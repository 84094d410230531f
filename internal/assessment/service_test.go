package assessment

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stratum-grc/stratum/internal/db"
	"github.com/stratum-grc/stratum/internal/models"
)

type mockStore struct {
	created      *models.Assessment
	procCalls    int
	lastProcs    []*models.AssessmentProcess
	listOpts     db.AssessmentListOptions
	stepErr      error
	orgFilter    *uuid.UUID
	buFilter     *uuid.UUID
	closedWith   uuid.UUID
	deletedWith  uuid.UUID
	questionnres []*models.QuestionnaireResponse
}

func (m *mockStore) CreateAssessment(_ context.Context, a *models.Assessment) error {
	m.created = a
	return nil
}

func (m *mockStore) GetAssessmentByID(_ context.Context, id uuid.UUID) (*models.Assessment, error) {
	return nil, nil
}

func (m *mockStore) GetAssessmentDetails(_ context.Context, id uuid.UUID) (*models.Assessment, error) {
	return nil, nil
}

func (m *mockStore) GetAssessmentsByOrgOrBU(_ context.Context, orgID, buID *uuid.UUID) ([]*models.Assessment, error) {
	m.orgFilter = orgID
	m.buFilter = buID
	return nil, nil
}

func (m *mockStore) ListAssessmentDetails(_ context.Context, opts db.AssessmentListOptions) ([]*models.Assessment, int, error) {
	m.listOpts = opts
	return nil, 0, nil
}

func (m *mockStore) AddAssessmentProcesses(_ context.Context, _ uuid.UUID, procs []*models.AssessmentProcess, _ uuid.UUID) error {
	m.procCalls++
	m.lastProcs = procs
	return m.stepErr
}

func (m *mockStore) AddAssessmentRiskScenarios(_ context.Context, _ uuid.UUID, _ []*models.AssessmentRiskScenario, _ uuid.UUID) error {
	return m.stepErr
}

func (m *mockStore) SaveAssessmentRiskDetails(_ context.Context, _ uuid.UUID, _ []*models.RiskDetail, _ uuid.UUID) error {
	return m.stepErr
}

func (m *mockStore) AddAssessmentAssets(_ context.Context, _ uuid.UUID, _ []*models.AssessmentAsset, _ uuid.UUID) error {
	return m.stepErr
}

func (m *mockStore) CloseAssessment(_ context.Context, assessmentID, _ uuid.UUID) error {
	m.closedWith = assessmentID
	return m.stepErr
}

func (m *mockStore) SoftDeleteAssessment(_ context.Context, id, _ uuid.UUID) error {
	m.deletedWith = id
	return m.stepErr
}

func (m *mockStore) CreateQuestionnaireResponses(_ context.Context, _ uuid.UUID, responses []*models.QuestionnaireResponse) error {
	m.questionnres = responses
	return nil
}

func (m *mockStore) GetQuestionnaireResponses(_ context.Context, _ uuid.UUID) ([]*models.QuestionnaireResponse, error) {
	return m.questionnres, nil
}

func newTestService(store Store) *Service {
	return NewService(store, zerolog.Nop())
}

func TestCreateRequiresFields(t *testing.T) {
	svc := newTestService(&mockStore{})

	cases := []struct {
		name string
		in   CreateInput
	}{
		{"missing name", CreateInput{OrgID: uuid.New(), RunID: "run-1"}},
		{"missing run id", CreateInput{OrgID: uuid.New(), Name: "Q3 review"}},
		{"missing org", CreateInput{Name: "Q3 review", RunID: "run-1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.in)
			if !errors.Is(err, db.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateStampsDefaults(t *testing.T) {
	store := &mockStore{}
	svc := newTestService(store)

	userID := uuid.New()
	a, err := svc.Create(context.Background(), CreateInput{
		OrgID:     uuid.New(),
		Name:      "Q3 review",
		RunID:     "run-1",
		CreatedBy: userID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.Status != models.AssessmentStatusPending {
		t.Errorf("expected pending status, got %s", a.Status)
	}
	if a.CreatedBy != userID || a.ModifiedBy != userID {
		t.Error("expected audit fields stamped with the creating user")
	}
	if a.EndDate != nil {
		t.Error("expected no end date on a new assessment")
	}
	if store.created == nil || store.created.ID != a.ID {
		t.Error("expected assessment persisted through the store")
	}
}

func TestAddProcessesRejectsEmpty(t *testing.T) {
	store := &mockStore{}
	svc := newTestService(store)

	err := svc.AddProcesses(context.Background(), uuid.New(), nil, uuid.New())
	if !errors.Is(err, db.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if store.procCalls != 0 {
		t.Error("store should not be called for an empty payload")
	}
}

func TestAddProcessesPropagatesStoreError(t *testing.T) {
	store := &mockStore{stepErr: db.ErrInvalidTransition}
	svc := newTestService(store)

	procs := []*models.AssessmentProcess{{Name: "Payments"}}
	err := svc.AddProcesses(context.Background(), uuid.New(), procs, uuid.New())
	if !errors.Is(err, db.ErrInvalidTransition) {
		t.Errorf("expected transition error, got %v", err)
	}
}

func TestGetByOrgOrBURequiresFilter(t *testing.T) {
	svc := newTestService(&mockStore{})

	_, err := svc.GetByOrgOrBU(context.Background(), nil, nil)
	if !errors.Is(err, db.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}

	orgID := uuid.New()
	buID := uuid.New()
	_, err = svc.GetByOrgOrBU(context.Background(), &orgID, &buID)
	if !errors.Is(err, db.ErrValidation) {
		t.Errorf("expected validation error for both filters, got %v", err)
	}
}

func TestListPagination(t *testing.T) {
	store := &mockStore{}
	svc := newTestService(store)

	_, _, err := svc.List(context.Background(), ListOptions{Page: 3, Limit: 10, SortBy: "name", SortOrder: "asc"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if store.listOpts.Offset != 20 || store.listOpts.Limit != 10 {
		t.Errorf("expected offset 20 limit 10, got offset %d limit %d", store.listOpts.Offset, store.listOpts.Limit)
	}

	_, _, err = svc.List(context.Background(), ListOptions{})
	if err != nil {
		t.Fatalf("list defaults: %v", err)
	}
	if store.listOpts.Offset != 0 || store.listOpts.Limit != 20 {
		t.Errorf("expected default offset 0 limit 20, got offset %d limit %d", store.listOpts.Offset, store.listOpts.Limit)
	}
}
