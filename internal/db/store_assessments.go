package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/stratum-grc/stratum/internal/models"
)

// Assessment methods
//
// Every workflow step runs in one transaction: the assessment row is locked,
// the status transition is checked against the workflow chain, child rows for
// the step are replaced, and the status/audit fields are updated. A failure
// anywhere rolls back the whole step.

const assessmentColumns = `
	id, org_id, business_unit_id, name, description, run_id, status,
	start_date, end_date, last_activity_at, created_by, modified_by,
	stale, deleted_at, created_at, updated_at`

func scanAssessment(row pgx.Row) (*models.Assessment, error) {
	var a models.Assessment
	var statusStr string
	err := row.Scan(
		&a.ID, &a.OrgID, &a.BusinessUnitID, &a.Name, &a.Description, &a.RunID, &statusStr,
		&a.StartDate, &a.EndDate, &a.LastActivityAt, &a.CreatedBy, &a.ModifiedBy,
		&a.Stale, &a.DeletedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Status = models.AssessmentStatus(statusStr)
	return &a, nil
}

// CreateAssessment persists a new assessment.
func (db *DB) CreateAssessment(ctx context.Context, a *models.Assessment) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO assessments (id, org_id, business_unit_id, name, description, run_id, status,
			start_date, end_date, last_activity_at, created_by, modified_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, a.ID, a.OrgID, a.BusinessUnitID, a.Name, a.Description, a.RunID, string(a.Status),
		a.StartDate, a.EndDate, a.LastActivityAt, a.CreatedBy, a.ModifiedBy, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create assessment: %w", err)
	}
	return nil
}

// GetAssessmentByID returns an assessment without children, or nil when the
// row is absent or soft-deleted.
func (db *DB) GetAssessmentByID(ctx context.Context, id uuid.UUID) (*models.Assessment, error) {
	a, err := scanAssessment(db.Pool.QueryRow(ctx, `
		SELECT `+assessmentColumns+`
		FROM assessments
		WHERE id = $1 AND deleted_at IS NULL
	`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get assessment: %w", err)
	}
	return a, nil
}

// lockAssessment loads the assessment row FOR UPDATE inside tx, returning
// ErrNotFound for absent or soft-deleted rows.
func lockAssessment(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Assessment, error) {
	a, err := scanAssessment(tx.QueryRow(ctx, `
		SELECT `+assessmentColumns+`
		FROM assessments
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE
	`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock assessment: %w", err)
	}
	return a, nil
}

// advanceAssessment checks the workflow transition and updates the status and
// audit fields inside tx.
func advanceAssessment(ctx context.Context, tx pgx.Tx, a *models.Assessment, target models.AssessmentStatus, userID uuid.UUID) error {
	if !a.Status.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, target)
	}
	now := time.Now()
	_, err := tx.Exec(ctx, `
		UPDATE assessments
		SET status = $2, last_activity_at = $3, modified_by = $4, stale = FALSE, updated_at = $3
		WHERE id = $1
	`, a.ID, string(target), now, userID)
	if err != nil {
		return fmt.Errorf("advance assessment status: %w", err)
	}
	a.Status = target
	a.LastActivityAt = now
	a.ModifiedBy = userID
	a.UpdatedAt = now
	a.Stale = false
	return nil
}

// AddAssessmentProcesses bulk-inserts the process step's rows and advances the
// assessment to processes_added. Re-running the step replaces the previous
// rows (and, via cascade, any risk scenarios hanging off them).
func (db *DB) AddAssessmentProcesses(ctx context.Context, assessmentID uuid.UUID, procs []*models.AssessmentProcess, userID uuid.UUID) error {
	if len(procs) == 0 {
		return fmt.Errorf("%w: processes are required", ErrValidation)
	}

	return db.ExecTx(ctx, func(tx pgx.Tx) error {
		a, err := lockAssessment(ctx, tx, assessmentID)
		if err != nil {
			return err
		}
		if !a.Status.CanTransitionTo(models.AssessmentStatusProcessesAdded) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, models.AssessmentStatusProcessesAdded)
		}

		if _, err := tx.Exec(ctx,
			`DELETE FROM assessment_processes WHERE assessment_id = $1`, assessmentID,
		); err != nil {
			return fmt.Errorf("clear assessment processes: %w", err)
		}

		now := time.Now()
		for i, p := range procs {
			if p.Name == "" {
				return fmt.Errorf("%w: process name is required", ErrValidation)
			}
			p.ID = uuid.New()
			p.AssessmentID = assessmentID
			if p.Position == 0 {
				p.Position = i + 1
			}
			p.CreatedAt = now
			if _, err := tx.Exec(ctx, `
				INSERT INTO assessment_processes (id, assessment_id, process_id, name, description, position, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, p.ID, p.AssessmentID, p.ProcessID, p.Name, p.Description, p.Position, p.CreatedAt); err != nil {
				return fmt.Errorf("insert assessment process: %w", err)
			}
		}

		return advanceAssessment(ctx, tx, a, models.AssessmentStatusProcessesAdded, userID)
	})
}

// AddAssessmentRiskScenarios bulk-inserts risk scenario rows under the
// assessment's processes and advances to risk_scenarios_added. Every entry
// must reference a process belonging to this assessment.
func (db *DB) AddAssessmentRiskScenarios(ctx context.Context, assessmentID uuid.UUID, scenarios []*models.AssessmentRiskScenario, userID uuid.UUID) error {
	if len(scenarios) == 0 {
		return fmt.Errorf("%w: risk scenarios are required", ErrValidation)
	}

	return db.ExecTx(ctx, func(tx pgx.Tx) error {
		a, err := lockAssessment(ctx, tx, assessmentID)
		if err != nil {
			return err
		}
		if !a.Status.CanTransitionTo(models.AssessmentStatusRiskScenariosAdded) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, models.AssessmentStatusRiskScenariosAdded)
		}

		processIDs, err := assessmentProcessIDs(ctx, tx, assessmentID)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			DELETE FROM assessment_risk_scenarios
			WHERE assessment_process_id = ANY($1)
		`, processIDs); err != nil {
			return fmt.Errorf("clear assessment risk scenarios: %w", err)
		}

		known := make(map[uuid.UUID]bool, len(processIDs))
		for _, id := range processIDs {
			known[id] = true
		}

		now := time.Now()
		for _, rs := range scenarios {
			if rs.Title == "" {
				return fmt.Errorf("%w: risk scenario title is required", ErrValidation)
			}
			if !known[rs.AssessmentProcessID] {
				return fmt.Errorf("%w: process %s does not belong to assessment %s",
					ErrValidation, rs.AssessmentProcessID, assessmentID)
			}
			rs.ID = uuid.New()
			rs.CreatedAt = now
			if _, err := tx.Exec(ctx, `
				INSERT INTO assessment_risk_scenarios (id, assessment_process_id, risk_scenario_id, title, description, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, rs.ID, rs.AssessmentProcessID, rs.RiskScenarioID, rs.Title, rs.Description, rs.CreatedAt); err != nil {
				return fmt.Errorf("insert assessment risk scenario: %w", err)
			}
		}

		return advanceAssessment(ctx, tx, a, models.AssessmentStatusRiskScenariosAdded, userID)
	})
}

// SaveAssessmentRiskDetails writes one business-impact row and zero or more
// taxonomy rows per entry, replacing any previous details, and advances to
// details_added.
func (db *DB) SaveAssessmentRiskDetails(ctx context.Context, assessmentID uuid.UUID, details []*models.RiskDetail, userID uuid.UUID) error {
	if len(details) == 0 {
		return fmt.Errorf("%w: risk details are required", ErrValidation)
	}

	return db.ExecTx(ctx, func(tx pgx.Tx) error {
		a, err := lockAssessment(ctx, tx, assessmentID)
		if err != nil {
			return err
		}
		if !a.Status.CanTransitionTo(models.AssessmentStatusDetailsAdded) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, models.AssessmentStatusDetailsAdded)
		}

		riskIDs, err := assessmentRiskScenarioIDs(ctx, tx, assessmentID)
		if err != nil {
			return err
		}
		known := make(map[uuid.UUID]bool, len(riskIDs))
		for _, id := range riskIDs {
			known[id] = true
		}

		if _, err := tx.Exec(ctx, `
			DELETE FROM assessment_business_impacts WHERE assessment_risk_scenario_id = ANY($1)
		`, riskIDs); err != nil {
			return fmt.Errorf("clear business impacts: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			DELETE FROM assessment_risk_taxonomies WHERE assessment_risk_scenario_id = ANY($1)
		`, riskIDs); err != nil {
			return fmt.Errorf("clear risk taxonomies: %w", err)
		}

		now := time.Now()
		for _, d := range details {
			if !known[d.AssessmentRiskScenarioID] {
				return fmt.Errorf("%w: risk scenario %s does not belong to assessment %s",
					ErrValidation, d.AssessmentRiskScenarioID, assessmentID)
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO assessment_business_impacts (id, assessment_risk_scenario_id, threshold_hours, threshold_cost, created_at)
				VALUES ($1, $2, $3, $4, $5)
			`, uuid.New(), d.AssessmentRiskScenarioID, d.ThresholdHours, d.ThresholdCost, now); err != nil {
				return fmt.Errorf("insert business impact: %w", err)
			}
			for _, taxEntry := range d.Taxonomies {
				if _, err := tx.Exec(ctx, `
					INSERT INTO assessment_risk_taxonomies (id, assessment_risk_scenario_id, taxonomy_id,
						severity_name, severity_min, severity_max, severity_color, created_at)
					VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				`, uuid.New(), d.AssessmentRiskScenarioID, taxEntry.TaxonomyID,
					taxEntry.SeverityName, taxEntry.SeverityMin, taxEntry.SeverityMax, taxEntry.SeverityColor, now); err != nil {
					return fmt.Errorf("insert risk taxonomy: %w", err)
				}
			}
		}

		return advanceAssessment(ctx, tx, a, models.AssessmentStatusDetailsAdded, userID)
	})
}

// AddAssessmentAssets replaces the assessment's asset rows. Assets are a side
// channel: they refresh activity but do not advance the workflow chain.
func (db *DB) AddAssessmentAssets(ctx context.Context, assessmentID uuid.UUID, assets []*models.AssessmentAsset, userID uuid.UUID) error {
	if len(assets) == 0 {
		return fmt.Errorf("%w: assets are required", ErrValidation)
	}

	return db.ExecTx(ctx, func(tx pgx.Tx) error {
		a, err := lockAssessment(ctx, tx, assessmentID)
		if err != nil {
			return err
		}
		if a.Status == models.AssessmentStatusClosed {
			return fmt.Errorf("%w: assessment is closed", ErrInvalidTransition)
		}

		if _, err := tx.Exec(ctx,
			`DELETE FROM assessment_assets WHERE assessment_id = $1`, assessmentID,
		); err != nil {
			return fmt.Errorf("clear assessment assets: %w", err)
		}

		now := time.Now()
		for i, asset := range assets {
			if asset.Name == "" {
				return fmt.Errorf("%w: asset name is required", ErrValidation)
			}
			asset.ID = uuid.New()
			asset.AssessmentID = assessmentID
			if asset.Position == 0 {
				asset.Position = i + 1
			}
			asset.CreatedAt = now
			if _, err := tx.Exec(ctx, `
				INSERT INTO assessment_assets (id, assessment_id, name, description, position, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, asset.ID, asset.AssessmentID, asset.Name, asset.Description, asset.Position, asset.CreatedAt); err != nil {
				return fmt.Errorf("insert assessment asset: %w", err)
			}
		}

		return advanceAssessment(ctx, tx, a, a.Status, userID)
	})
}

// CloseAssessment moves a details_added assessment to closed and stamps the
// end date.
func (db *DB) CloseAssessment(ctx context.Context, assessmentID, userID uuid.UUID) error {
	return db.ExecTx(ctx, func(tx pgx.Tx) error {
		a, err := lockAssessment(ctx, tx, assessmentID)
		if err != nil {
			return err
		}
		if !a.Status.CanTransitionTo(models.AssessmentStatusClosed) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, models.AssessmentStatusClosed)
		}

		now := time.Now()
		if _, err := tx.Exec(ctx, `
			UPDATE assessments
			SET status = $2, end_date = $3, last_activity_at = $3, modified_by = $4, stale = FALSE, updated_at = $3
			WHERE id = $1
		`, assessmentID, string(models.AssessmentStatusClosed), now, userID); err != nil {
			return fmt.Errorf("close assessment: %w", err)
		}
		return nil
	})
}

// SoftDeleteAssessment marks an assessment deleted; its rows remain for audit
// but it disappears from every read and rejects all steps.
func (db *DB) SoftDeleteAssessment(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE assessments
		SET deleted_at = NOW(), modified_by = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, id, userID)
	if err != nil {
		return fmt.Errorf("soft delete assessment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateQuestionnaireResponses bulk-inserts questionnaire answers for an
// assessment. Independent of the workflow chain.
func (db *DB) CreateQuestionnaireResponses(ctx context.Context, assessmentID uuid.UUID, responses []*models.QuestionnaireResponse) error {
	if len(responses) == 0 {
		return fmt.Errorf("%w: responses are required", ErrValidation)
	}

	return db.ExecTx(ctx, func(tx pgx.Tx) error {
		if _, err := lockAssessment(ctx, tx, assessmentID); err != nil {
			return err
		}

		now := time.Now()
		for _, r := range responses {
			if r.Question == "" {
				return fmt.Errorf("%w: question is required", ErrValidation)
			}
			r.ID = uuid.New()
			r.AssessmentID = assessmentID
			r.CreatedAt = now
			if _, err := tx.Exec(ctx, `
				INSERT INTO questionnaire_responses (id, assessment_id, question, answer, category, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, r.ID, r.AssessmentID, r.Question, r.Answer, r.Category, r.CreatedAt); err != nil {
				return fmt.Errorf("insert questionnaire response: %w", err)
			}
		}
		return nil
	})
}

// GetQuestionnaireResponses returns all responses for an assessment.
func (db *DB) GetQuestionnaireResponses(ctx context.Context, assessmentID uuid.UUID) ([]*models.QuestionnaireResponse, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, assessment_id, question, answer, category, created_at
		FROM questionnaire_responses
		WHERE assessment_id = $1
		ORDER BY created_at, id
	`, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("list questionnaire responses: %w", err)
	}
	defer rows.Close()

	var responses []*models.QuestionnaireResponse
	for rows.Next() {
		var r models.QuestionnaireResponse
		if err := rows.Scan(&r.ID, &r.AssessmentID, &r.Question, &r.Answer, &r.Category, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan questionnaire response: %w", err)
		}
		responses = append(responses, &r)
	}
	return responses, rows.Err()
}

// GetAssessmentsByOrgOrBU returns shallow assessments filtered by organization
// or business unit.
func (db *DB) GetAssessmentsByOrgOrBU(ctx context.Context, orgID, businessUnitID *uuid.UUID) ([]*models.Assessment, error) {
	query := `
		SELECT ` + assessmentColumns + `
		FROM assessments
		WHERE deleted_at IS NULL`
	var args []any
	switch {
	case orgID != nil:
		query += ` AND org_id = $1`
		args = append(args, *orgID)
	case businessUnitID != nil:
		query += ` AND business_unit_id = $1`
		args = append(args, *businessUnitID)
	default:
		return nil, fmt.Errorf("%w: orgId or businessUnitId is required", ErrValidation)
	}
	query += ` ORDER BY last_activity_at DESC`

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assessments by org or bu: %w", err)
	}
	defer rows.Close()

	var assessments []*models.Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		assessments = append(assessments, a)
	}
	return assessments, rows.Err()
}

// AssessmentListOptions control pagination and ordering of assessment lists.
type AssessmentListOptions struct {
	OrgID     *uuid.UUID
	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}

// assessmentSortColumns whitelists sortable columns to keep user input out of
// the ORDER BY clause.
var assessmentSortColumns = map[string]string{
	"name":         "name",
	"status":       "status",
	"startDate":    "start_date",
	"lastActivity": "last_activity_at",
	"createdAt":    "created_at",
}

// ListAssessmentDetails returns one page of assessments with the full child
// tree (processes, risk scenarios, business impacts, taxonomies, assets)
// eager-loaded, plus the total count.
func (db *DB) ListAssessmentDetails(ctx context.Context, opts AssessmentListOptions) ([]*models.Assessment, int, error) {
	where := `WHERE deleted_at IS NULL`
	var args []any
	if opts.OrgID != nil {
		where += ` AND org_id = $1`
		args = append(args, *opts.OrgID)
	}

	var total int
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM assessments `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count assessments: %w", err)
	}

	sortCol, ok := assessmentSortColumns[opts.SortBy]
	if !ok {
		sortCol = "last_activity_at"
	}
	order := "DESC"
	if opts.SortOrder == "asc" {
		order = "ASC"
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM assessments
		%s
		ORDER BY %s %s
		LIMIT %d OFFSET %d
	`, assessmentColumns, where, sortCol, order, opts.Limit, opts.Offset)

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list assessments: %w", err)
	}
	defer rows.Close()

	var assessments []*models.Assessment
	var ids []uuid.UUID
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan assessment: %w", err)
		}
		assessments = append(assessments, a)
		ids = append(ids, a.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if len(ids) > 0 {
		if err := db.loadAssessmentChildren(ctx, assessments, ids); err != nil {
			return nil, 0, err
		}
	}
	return assessments, total, nil
}

// GetAssessmentDetails returns one assessment with the full child tree, or
// nil if absent.
func (db *DB) GetAssessmentDetails(ctx context.Context, id uuid.UUID) (*models.Assessment, error) {
	a, err := db.GetAssessmentByID(ctx, id)
	if err != nil || a == nil {
		return a, err
	}
	if err := db.loadAssessmentChildren(ctx, []*models.Assessment{a}, []uuid.UUID{a.ID}); err != nil {
		return nil, err
	}
	return a, nil
}

// loadAssessmentChildren populates the process -> risk scenario -> details
// tree for the given assessments with one batched query per level.
func (db *DB) loadAssessmentChildren(ctx context.Context, assessments []*models.Assessment, ids []uuid.UUID) error {
	byID := make(map[uuid.UUID]*models.Assessment, len(assessments))
	for _, a := range assessments {
		byID[a.ID] = a
	}

	procRows, err := db.Pool.Query(ctx, `
		SELECT id, assessment_id, process_id, name, description, position, created_at
		FROM assessment_processes
		WHERE assessment_id = ANY($1)
		ORDER BY assessment_id, position
	`, ids)
	if err != nil {
		return fmt.Errorf("load assessment processes: %w", err)
	}
	defer procRows.Close()

	procByID := make(map[uuid.UUID]*models.AssessmentProcess)
	var procIDs []uuid.UUID
	for procRows.Next() {
		var p models.AssessmentProcess
		if err := procRows.Scan(&p.ID, &p.AssessmentID, &p.ProcessID, &p.Name, &p.Description, &p.Position, &p.CreatedAt); err != nil {
			return fmt.Errorf("scan assessment process: %w", err)
		}
		byID[p.AssessmentID].Processes = append(byID[p.AssessmentID].Processes, &p)
		procByID[p.ID] = &p
		procIDs = append(procIDs, p.ID)
	}
	if err := procRows.Err(); err != nil {
		return err
	}

	assetRows, err := db.Pool.Query(ctx, `
		SELECT id, assessment_id, name, description, position, created_at
		FROM assessment_assets
		WHERE assessment_id = ANY($1)
		ORDER BY assessment_id, position
	`, ids)
	if err != nil {
		return fmt.Errorf("load assessment assets: %w", err)
	}
	defer assetRows.Close()
	for assetRows.Next() {
		var asset models.AssessmentAsset
		if err := assetRows.Scan(&asset.ID, &asset.AssessmentID, &asset.Name, &asset.Description, &asset.Position, &asset.CreatedAt); err != nil {
			return fmt.Errorf("scan assessment asset: %w", err)
		}
		byID[asset.AssessmentID].Assets = append(byID[asset.AssessmentID].Assets, &asset)
	}
	if err := assetRows.Err(); err != nil {
		return err
	}

	if len(procIDs) == 0 {
		return nil
	}

	riskRows, err := db.Pool.Query(ctx, `
		SELECT id, assessment_process_id, risk_scenario_id, title, description, created_at
		FROM assessment_risk_scenarios
		WHERE assessment_process_id = ANY($1)
		ORDER BY created_at, id
	`, procIDs)
	if err != nil {
		return fmt.Errorf("load assessment risk scenarios: %w", err)
	}
	defer riskRows.Close()

	riskByID := make(map[uuid.UUID]*models.AssessmentRiskScenario)
	var riskIDs []uuid.UUID
	for riskRows.Next() {
		var rs models.AssessmentRiskScenario
		if err := riskRows.Scan(&rs.ID, &rs.AssessmentProcessID, &rs.RiskScenarioID, &rs.Title, &rs.Description, &rs.CreatedAt); err != nil {
			return fmt.Errorf("scan assessment risk scenario: %w", err)
		}
		procByID[rs.AssessmentProcessID].RiskScenarios = append(procByID[rs.AssessmentProcessID].RiskScenarios, &rs)
		riskByID[rs.ID] = &rs
		riskIDs = append(riskIDs, rs.ID)
	}
	if err := riskRows.Err(); err != nil {
		return err
	}
	if len(riskIDs) == 0 {
		return nil
	}

	impactRows, err := db.Pool.Query(ctx, `
		SELECT id, assessment_risk_scenario_id, threshold_hours, threshold_cost, created_at
		FROM assessment_business_impacts
		WHERE assessment_risk_scenario_id = ANY($1)
	`, riskIDs)
	if err != nil {
		return fmt.Errorf("load business impacts: %w", err)
	}
	defer impactRows.Close()
	for impactRows.Next() {
		var bi models.AssessmentBusinessImpact
		if err := impactRows.Scan(&bi.ID, &bi.AssessmentRiskScenarioID, &bi.ThresholdHours, &bi.ThresholdCost, &bi.CreatedAt); err != nil {
			return fmt.Errorf("scan business impact: %w", err)
		}
		riskByID[bi.AssessmentRiskScenarioID].BusinessImpact = &bi
	}
	if err := impactRows.Err(); err != nil {
		return err
	}

	taxRows, err := db.Pool.Query(ctx, `
		SELECT id, assessment_risk_scenario_id, taxonomy_id, severity_name, severity_min, severity_max, severity_color, created_at
		FROM assessment_risk_taxonomies
		WHERE assessment_risk_scenario_id = ANY($1)
		ORDER BY taxonomy_id
	`, riskIDs)
	if err != nil {
		return fmt.Errorf("load risk taxonomies: %w", err)
	}
	defer taxRows.Close()
	for taxRows.Next() {
		var rt models.AssessmentRiskTaxonomy
		if err := taxRows.Scan(&rt.ID, &rt.AssessmentRiskScenarioID, &rt.TaxonomyID, &rt.SeverityName, &rt.SeverityMin, &rt.SeverityMax, &rt.SeverityColor, &rt.CreatedAt); err != nil {
			return fmt.Errorf("scan risk taxonomy: %w", err)
		}
		riskByID[rt.AssessmentRiskScenarioID].Taxonomies = append(riskByID[rt.AssessmentRiskScenarioID].Taxonomies, &rt)
	}
	return taxRows.Err()
}

func assessmentProcessIDs(ctx context.Context, tx pgx.Tx, assessmentID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := tx.Query(ctx,
		`SELECT id FROM assessment_processes WHERE assessment_id = $1`, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("list assessment process ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan assessment process id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func assessmentRiskScenarioIDs(ctx context.Context, tx pgx.Tx, assessmentID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := tx.Query(ctx, `
		SELECT rs.id
		FROM assessment_risk_scenarios rs
		JOIN assessment_processes p ON p.id = rs.assessment_process_id
		WHERE p.assessment_id = $1
	`, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("list assessment risk scenario ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan assessment risk scenario id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountAssessmentsByStatus returns assessment counts grouped by status,
// excluding soft-deleted rows. Used by the metrics collector.
func (db *DB) CountAssessmentsByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT status, COUNT(*)
		FROM assessments
		WHERE deleted_at IS NULL
		GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("count assessments by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan assessment count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// MarkStaleAssessments flags open assessments whose last activity predates
// cutoff. Returns the number of rows flagged.
func (db *DB) MarkStaleAssessments(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE assessments
		SET stale = TRUE
		WHERE deleted_at IS NULL
		  AND stale = FALSE
		  AND status <> $1
		  AND last_activity_at < $2
	`, string(models.AssessmentStatusClosed), cutoff)
	if err != nil {
		return 0, fmt.Errorf("mark stale assessments: %w", err)
	}
	return tag.RowsAffected(), nil
}
