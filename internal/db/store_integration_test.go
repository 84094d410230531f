//go:build integration

package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/stratum-grc/stratum/internal/models"
)

var testDB *DB

func TestMain(m *testing.M) {
	if !dockerAvailable() {
		fmt.Println("Docker is not available, skipping integration tests")
		os.Exit(0)
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("stratum_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		pgContainer.Terminate(ctx)
		log.Fatalf("failed to get connection string: %v", err)
	}

	logger := zerolog.New(zerolog.NewConsoleWriter())
	cfg := DefaultConfig(connStr)
	cfg.MaxConns = 5
	cfg.MinConns = 1

	testDB, err = New(ctx, cfg, logger)
	if err != nil {
		pgContainer.Terminate(ctx)
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := testDB.Migrate(ctx); err != nil {
		testDB.Close()
		pgContainer.Terminate(ctx)
		log.Fatalf("failed to run migrations: %v", err)
	}

	code := m.Run()

	testDB.Close()
	pgContainer.Terminate(ctx)

	os.Exit(code)
}

// dockerAvailable returns true if a Docker daemon is reachable.
func dockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	return cmd.Run() == nil
}

// setupTestDB returns the shared test database after cleaning all tables.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	cleanTables(t, testDB)
	return testDB
}

// cleanTables truncates all user tables between tests for isolation.
func cleanTables(t *testing.T, db *DB) {
	t.Helper()
	ctx := context.Background()
	_, err := db.Pool.Exec(ctx, `
		DO $$ DECLARE r RECORD;
		BEGIN
			FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public' AND tablename != 'schema_migrations') LOOP
				EXECUTE 'TRUNCATE TABLE ' || quote_ident(r.tablename) || ' RESTART IDENTITY CASCADE';
			END LOOP;
		END $$;
	`)
	require.NoError(t, err)
}

// createTestOrg creates and persists a test organization.
func createTestOrg(t *testing.T, db *DB, name, slug string) *models.Organization {
	t.Helper()
	org := models.NewOrganization(name, slug)
	err := db.CreateOrganization(context.Background(), org)
	require.NoError(t, err)
	return org
}

// createTestUser creates and persists a test user.
func createTestUser(t *testing.T, db *DB, orgID uuid.UUID, email string) *models.User {
	t.Helper()
	user := models.NewUser(orgID, email, "Test User", models.UserRoleAdmin)
	err := db.CreateUser(context.Background(), user)
	require.NoError(t, err)
	return user
}

// createTestMetaData creates a select-typed metadata key applying to the
// given entity kinds.
func createTestMetaData(t *testing.T, db *DB, orgID uuid.UUID, name string, values []string, kinds ...models.EntityKind) *models.MetaData {
	t.Helper()
	md := &models.MetaData{
		OrgID:           orgID,
		Name:            name,
		Label:           name,
		InputType:       models.MetaDataInputSelect,
		SupportedValues: values,
		AppliesTo:       kinds,
	}
	err := db.CreateMetaData(context.Background(), md)
	require.NoError(t, err)
	return md
}

// walkToDetailsAdded runs the workflow chain up to the details_added state.
func walkToDetailsAdded(t *testing.T, db *DB, a *models.Assessment, userID uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, db.AddAssessmentProcesses(ctx, a.ID, []*models.AssessmentProcess{{Name: "Process"}}, userID))

	details, err := db.GetAssessmentDetails(ctx, a.ID)
	require.NoError(t, err)
	require.NotEmpty(t, details.Processes)

	require.NoError(t, db.AddAssessmentRiskScenarios(ctx, a.ID, []*models.AssessmentRiskScenario{
		{AssessmentProcessID: details.Processes[0].ID, Title: "Scenario"},
	}, userID))

	details, err = db.GetAssessmentDetails(ctx, a.ID)
	require.NoError(t, err)
	require.NotEmpty(t, details.Processes[0].RiskScenarios)

	require.NoError(t, db.SaveAssessmentRiskDetails(ctx, a.ID, []*models.RiskDetail{
		{AssessmentRiskScenarioID: details.Processes[0].RiskScenarios[0].ID, ThresholdHours: 1, ThresholdCost: 1000},
	}, userID))
}

func TestOrganizationRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	org := createTestOrg(t, db, "Acme", "acme")

	got, err := db.GetOrganizationBySlug(ctx, "acme")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, org.ID, got.ID)
	assert.Equal(t, "Acme", got.Name)

	bu := models.NewBusinessUnit(org.ID, "Platform")
	require.NoError(t, db.CreateBusinessUnit(ctx, bu))

	units, err := db.GetBusinessUnitsByOrgID(ctx, org.ID)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "Platform", units[0].Name)

	missing, err := db.GetOrganizationBySlug(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestOrganizationUpdate(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	org := createTestOrg(t, db, "Acme", "acme")
	createTestOrg(t, db, "Globex", "globex")

	org.Name = "Acme Corp"
	org.Slug = "acme-corp"
	org.Tags = []string{"pilot"}
	require.NoError(t, db.UpdateOrganization(ctx, org))

	got, err := db.GetOrganizationByID(ctx, org.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Acme Corp", got.Name)
	assert.Equal(t, "acme-corp", got.Slug)
	assert.Equal(t, []string{"pilot"}, got.Tags)

	org.Slug = "globex"
	assert.ErrorIs(t, db.UpdateOrganization(ctx, org), ErrValidation)

	ghost := &models.Organization{ID: uuid.New(), Name: "Ghost", Slug: "ghost"}
	assert.ErrorIs(t, db.UpdateOrganization(ctx, ghost), ErrNotFound)
}

func TestRiskScenarioLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	org := createTestOrg(t, db, "Acme", "acme")
	md := createTestMetaData(t, db, org.ID, "likelihood", []string{"low", "medium", "high"}, models.EntityKindRiskScenario)

	rs := &models.RiskScenario{
		OrgID:       org.ID,
		Title:       "Data center outage",
		Description: "Primary site offline for more than an hour",
		Attributes: []*models.EntityAttribute{
			{MetaDataKeyID: md.ID, Values: []string{"high"}},
		},
	}
	require.NoError(t, db.CreateRiskScenario(ctx, rs))
	assert.Equal(t, models.FormatRiskCode(rs.ID), rs.RiskCode)
	assert.Equal(t, int64(1), rs.Version)
	assert.Equal(t, models.LibraryStatusDraft, rs.Status)

	got, err := db.GetRiskScenarioByID(ctx, rs.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rs.RiskCode, got.RiskCode)
	require.Len(t, got.Attributes, 1)
	assert.Equal(t, []string{"high"}, got.Attributes[0].Values)
	require.NotNil(t, got.Attributes[0].MetaData)
	assert.Equal(t, "likelihood", got.Attributes[0].MetaData.Name)

	// First writer wins; the stale second update gets a conflict.
	update := &models.RiskScenario{ID: rs.ID, OrgID: org.ID, Title: "Regional outage", Status: models.LibraryStatusDraft}
	require.NoError(t, db.UpdateRiskScenario(ctx, update, 1))
	assert.Equal(t, int64(2), update.Version)

	stale := &models.RiskScenario{ID: rs.ID, OrgID: org.ID, Title: "Other edit", Status: models.LibraryStatusDraft}
	err = db.UpdateRiskScenario(ctx, stale, 1)
	require.ErrorIs(t, err, ErrVersionConflict)

	require.NoError(t, db.UpdateRiskScenarioStatus(ctx, rs.ID, models.LibraryStatusPublished))
	got, err = db.GetRiskScenarioByID(ctx, rs.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LibraryStatusPublished, got.Status)

	require.NoError(t, db.DeleteRiskScenario(ctx, rs.ID))
	gone, err := db.GetRiskScenarioByID(ctx, rs.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	err = db.DeleteRiskScenario(ctx, rs.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRiskScenarioAttributeValidation(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	org := createTestOrg(t, db, "Acme", "acme")
	md := createTestMetaData(t, db, org.ID, "likelihood", []string{"low", "medium", "high"}, models.EntityKindRiskScenario)
	procOnly := createTestMetaData(t, db, org.ID, "criticality", []string{"tier1", "tier2"}, models.EntityKindProcess)

	t.Run("unknown metadata key", func(t *testing.T) {
		rs := &models.RiskScenario{
			OrgID: org.ID,
			Title: "Outage",
			Attributes: []*models.EntityAttribute{
				{MetaDataKeyID: 99999, Values: []string{"high"}},
			},
		}
		err := db.CreateRiskScenario(ctx, rs)
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("value outside supported set", func(t *testing.T) {
		rs := &models.RiskScenario{
			OrgID: org.ID,
			Title: "Outage",
			Attributes: []*models.EntityAttribute{
				{MetaDataKeyID: md.ID, Values: []string{"extreme"}},
			},
		}
		err := db.CreateRiskScenario(ctx, rs)
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("wrong entity kind", func(t *testing.T) {
		rs := &models.RiskScenario{
			OrgID: org.ID,
			Title: "Outage",
			Attributes: []*models.EntityAttribute{
				{MetaDataKeyID: procOnly.ID, Values: []string{"tier1"}},
			},
		}
		err := db.CreateRiskScenario(ctx, rs)
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("rejected create leaves no rows and next code is contiguous", func(t *testing.T) {
		var before int64
		require.NoError(t, db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM risk_scenarios`).Scan(&before))

		rs := &models.RiskScenario{
			OrgID: org.ID,
			Title: "Outage",
			Attributes: []*models.EntityAttribute{
				{MetaDataKeyID: md.ID, Values: []string{"bogus"}},
			},
		}
		require.Error(t, db.CreateRiskScenario(ctx, rs))

		var after int64
		require.NoError(t, db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM risk_scenarios`).Scan(&after))
		assert.Equal(t, before, after)

		// Attributes are validated before the insert, so a rejected request
		// never consumes an id and codes stay contiguous.
		ok := &models.RiskScenario{OrgID: org.ID, Title: "Valid scenario"}
		require.NoError(t, db.CreateRiskScenario(ctx, ok))
		assert.Equal(t, models.FormatRiskCode(ok.ID), ok.RiskCode)
	})
}

func TestProcessLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	org := createTestOrg(t, db, "Acme", "acme")

	p := &models.Process{OrgID: org.ID, Name: "Payments", Owner: "finance"}
	require.NoError(t, db.CreateProcess(ctx, p))
	assert.Equal(t, models.FormatProcessCode(p.ID), p.ProcessCode)

	got, err := db.GetProcessByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Payments", got.Name)
	assert.Equal(t, "finance", got.Owner)

	procs, total, err := db.ListProcesses(ctx, org.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, procs, 1)

	require.NoError(t, db.DeleteProcess(ctx, p.ID))
	gone, err := db.GetProcessByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestAssessmentWorkflow(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	org := createTestOrg(t, db, "Acme", "acme")
	user := createTestUser(t, db, org.ID, "admin@acme.test")

	tax := &models.Taxonomy{
		OrgID: org.ID,
		Name:  "Financial",
		Bands: []*models.SeverityBand{
			{Name: "Minor", Min: 0, Max: 10000, Position: 1},
			{Name: "Major", Min: 10000, Max: 1000000, Position: 2},
		},
	}
	require.NoError(t, db.CreateTaxonomy(ctx, tax))

	a := models.NewAssessment(org.ID, "Q3 review", "", "run-42", user.ID)
	require.NoError(t, db.CreateAssessment(ctx, a))
	assert.Equal(t, models.AssessmentStatusPending, a.Status)

	// Steps run in order. Skipping ahead is rejected.
	err := db.AddAssessmentRiskScenarios(ctx, a.ID, []*models.AssessmentRiskScenario{
		{AssessmentProcessID: uuid.New(), Title: "Outage"},
	}, user.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	procs := []*models.AssessmentProcess{
		{Name: "Payments"},
		{Name: "Billing", Position: 2},
	}
	require.NoError(t, db.AddAssessmentProcesses(ctx, a.ID, procs, user.ID))

	got, err := db.GetAssessmentByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssessmentStatusProcessesAdded, got.Status)

	// Re-running the same step replaces the prior rows.
	replacement := []*models.AssessmentProcess{{Name: "Payments only"}}
	require.NoError(t, db.AddAssessmentProcesses(ctx, a.ID, replacement, user.ID))

	details, err := db.GetAssessmentDetails(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, details.Processes, 1)
	assert.Equal(t, "Payments only", details.Processes[0].Name)

	procID := details.Processes[0].ID

	// A risk scenario pointing at another assessment's process is rejected.
	err = db.AddAssessmentRiskScenarios(ctx, a.ID, []*models.AssessmentRiskScenario{
		{AssessmentProcessID: uuid.New(), Title: "Outage"},
	}, user.ID)
	require.ErrorIs(t, err, ErrValidation)

	scenarios := []*models.AssessmentRiskScenario{
		{AssessmentProcessID: procID, Title: "Outage"},
		{AssessmentProcessID: procID, Title: "Fraud"},
	}
	require.NoError(t, db.AddAssessmentRiskScenarios(ctx, a.ID, scenarios, user.ID))

	got, err = db.GetAssessmentByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssessmentStatusRiskScenariosAdded, got.Status)

	details, err = db.GetAssessmentDetails(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, details.Processes[0].RiskScenarios, 2)
	riskID := details.Processes[0].RiskScenarios[0].ID

	riskDetails := []*models.RiskDetail{
		{
			AssessmentRiskScenarioID: riskID,
			ThresholdHours:           4,
			ThresholdCost:            50000,
			Taxonomies: []*models.AssessmentRiskTaxonomy{
				{TaxonomyID: tax.ID, SeverityName: "Major", SeverityMin: 10000, SeverityMax: 1000000},
			},
		},
	}
	require.NoError(t, db.SaveAssessmentRiskDetails(ctx, a.ID, riskDetails, user.ID))

	got, err = db.GetAssessmentByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssessmentStatusDetailsAdded, got.Status)

	details, err = db.GetAssessmentDetails(ctx, a.ID)
	require.NoError(t, err)
	var withImpact *models.AssessmentRiskScenario
	for _, rs := range details.Processes[0].RiskScenarios {
		if rs.ID == riskID {
			withImpact = rs
		}
	}
	require.NotNil(t, withImpact)
	require.NotNil(t, withImpact.BusinessImpact)
	assert.Equal(t, float64(4), withImpact.BusinessImpact.ThresholdHours)
	require.Len(t, withImpact.Taxonomies, 1)
	assert.Equal(t, "Major", withImpact.Taxonomies[0].SeverityName)

	// Assets can be attached in any open state.
	require.NoError(t, db.AddAssessmentAssets(ctx, a.ID, []*models.AssessmentAsset{
		{Name: "Payment gateway"},
	}, user.ID))

	require.NoError(t, db.CloseAssessment(ctx, a.ID, user.ID))
	got, err = db.GetAssessmentByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssessmentStatusClosed, got.Status)
	require.NotNil(t, got.EndDate)

	// Closed is terminal.
	err = db.AddAssessmentProcesses(ctx, a.ID, procs, user.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
	err = db.CloseAssessment(ctx, a.ID, user.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
	err = db.AddAssessmentAssets(ctx, a.ID, []*models.AssessmentAsset{{Name: "Ledger"}}, user.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAssessmentSoftDelete(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	org := createTestOrg(t, db, "Acme", "acme")
	user := createTestUser(t, db, org.ID, "admin@acme.test")

	a := models.NewAssessment(org.ID, "Q3 review", "", "run-42", user.ID)
	require.NoError(t, db.CreateAssessment(ctx, a))

	require.NoError(t, db.SoftDeleteAssessment(ctx, a.ID, user.ID))

	got, err := db.GetAssessmentByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	err = db.SoftDeleteAssessment(ctx, a.ID, user.ID)
	require.ErrorIs(t, err, ErrNotFound)

	// Deleted assessments drop out of every listing.
	orgID := org.ID
	list, err := db.GetAssessmentsByOrgOrBU(ctx, &orgID, nil)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAssessmentListing(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	org := createTestOrg(t, db, "Acme", "acme")
	user := createTestUser(t, db, org.ID, "admin@acme.test")
	bu := models.NewBusinessUnit(org.ID, "Platform")
	require.NoError(t, db.CreateBusinessUnit(ctx, bu))

	for i := 0; i < 3; i++ {
		a := models.NewAssessment(org.ID, fmt.Sprintf("Assessment %d", i), "", fmt.Sprintf("run-%d", i), user.ID)
		if i == 0 {
			a.BusinessUnitID = &bu.ID
		}
		require.NoError(t, db.CreateAssessment(ctx, a))
	}

	orgID := org.ID
	byOrg, err := db.GetAssessmentsByOrgOrBU(ctx, &orgID, nil)
	require.NoError(t, err)
	assert.Len(t, byOrg, 3)

	buID := bu.ID
	byBU, err := db.GetAssessmentsByOrgOrBU(ctx, nil, &buID)
	require.NoError(t, err)
	assert.Len(t, byBU, 1)

	// Exactly one filter is allowed.
	_, err = db.GetAssessmentsByOrgOrBU(ctx, nil, nil)
	require.ErrorIs(t, err, ErrValidation)
	_, err = db.GetAssessmentsByOrgOrBU(ctx, &orgID, &buID)
	require.ErrorIs(t, err, ErrValidation)

	page, total, err := db.ListAssessmentDetails(ctx, AssessmentListOptions{
		OrgID:  &orgID,
		Limit:  2,
		SortBy: "name",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, page, 2)
}

func TestQuestionnaireResponses(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	org := createTestOrg(t, db, "Acme", "acme")
	user := createTestUser(t, db, org.ID, "admin@acme.test")

	a := models.NewAssessment(org.ID, "Q3 review", "", "run-42", user.ID)
	require.NoError(t, db.CreateAssessment(ctx, a))

	responses := []*models.QuestionnaireResponse{
		{Question: "Is there an incident runbook?", Answer: "yes", Category: "readiness"},
		{Question: "When was the last DR test?", Answer: "2026-01", Category: "readiness"},
	}
	require.NoError(t, db.CreateQuestionnaireResponses(ctx, a.ID, responses))

	got, err := db.GetQuestionnaireResponses(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	questions := []string{got[0].Question, got[1].Question}
	assert.Contains(t, questions, "Is there an incident runbook?")
	assert.Contains(t, questions, "When was the last DR test?")

	err = db.CreateQuestionnaireResponses(ctx, uuid.New(), responses)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMarkStaleAssessments(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	org := createTestOrg(t, db, "Acme", "acme")
	user := createTestUser(t, db, org.ID, "admin@acme.test")

	a := models.NewAssessment(org.ID, "Idle", "", "run-1", user.ID)
	require.NoError(t, db.CreateAssessment(ctx, a))

	closed := models.NewAssessment(org.ID, "Done", "", "run-2", user.ID)
	require.NoError(t, db.CreateAssessment(ctx, closed))
	walkToDetailsAdded(t, db, closed, user.ID)
	require.NoError(t, db.CloseAssessment(ctx, closed.ID, user.ID))

	// A cutoff in the future makes every open assessment stale; closed ones
	// are never flagged.
	flagged, err := db.MarkStaleAssessments(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), flagged)

	// Second sweep is a no-op.
	flagged, err = db.MarkStaleAssessments(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), flagged)

	// Any workflow activity clears the flag.
	require.NoError(t, db.AddAssessmentProcesses(ctx, a.ID, []*models.AssessmentProcess{{Name: "P"}}, user.ID))
	var stale bool
	require.NoError(t, db.Pool.QueryRow(ctx, `SELECT stale FROM assessments WHERE id = $1`, a.ID).Scan(&stale))
	assert.False(t, stale)
}

func TestAuditLogs(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	org := createTestOrg(t, db, "Acme", "acme")
	user := createTestUser(t, db, org.ID, "admin@acme.test")

	for i := 0; i < 3; i++ {
		entry := models.NewAuditLog(org.ID, models.AuditActionCreate, "risk_scenario", models.AuditResultSuccess).
			WithUser(user.ID).
			WithResource(fmt.Sprintf("%d", i+1))
		require.NoError(t, db.CreateAuditLog(ctx, entry))
	}

	logs, total, err := db.ListAuditLogs(ctx, org.ID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, len(logs))
	assert.Equal(t, 3, total)

	other := createTestOrg(t, db, "Other", "other")
	logs, total, err = db.ListAuditLogs(ctx, other.ID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, logs)
	assert.Equal(t, 0, total)
}

func TestConcurrentStatusAdvance(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	org := createTestOrg(t, db, "Acme", "acme")
	user := createTestUser(t, db, org.ID, "admin@acme.test")

	a := models.NewAssessment(org.ID, "Race", "", "run-1", user.ID)
	require.NoError(t, db.CreateAssessment(ctx, a))
	walkToDetailsAdded(t, db, a, user.ID)

	// Two goroutines close the same assessment. Row locking serializes them,
	// so exactly one wins and the loser sees an invalid transition.
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			results <- db.CloseAssessment(ctx, a.ID, user.ID)
		}()
	}

	var okCount, txErrCount int
	for i := 0; i < 2; i++ {
		err := <-results
		switch {
		case err == nil:
			okCount++
		case errors.Is(err, ErrInvalidTransition):
			txErrCount++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, okCount)
	assert.Equal(t, 1, txErrCount)
}
