package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/stratum-grc/stratum/internal/models"
)

// RiskScenario methods
//
// Scenario and attribute writes are transactional: any validation failure
// rolls back the whole operation, so a rejected request leaves no scenario
// row, no attribute rows, and an unconsumed id sequence (attributes are
// validated before the scenario insert).

// CreateRiskScenario creates a risk scenario together with its attribute set.
// The human-readable risk_code is derived from the generated numeric id inside
// the same transaction.
func (db *DB) CreateRiskScenario(ctx context.Context, rs *models.RiskScenario) error {
	if err := rs.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if rs.Status == "" {
		rs.Status = models.LibraryStatusDraft
	}

	return db.ExecTx(ctx, func(tx pgx.Tx) error {
		if err := validateAttributes(ctx, tx, rs.Attributes, models.EntityKindRiskScenario); err != nil {
			return err
		}

		now := time.Now()
		rs.CreatedAt = now
		rs.UpdatedAt = now
		rs.Version = 1
		err := tx.QueryRow(ctx, `
			INSERT INTO risk_scenarios (org_id, title, description, status, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`, rs.OrgID, rs.Title, rs.Description, string(rs.Status), rs.Version, rs.CreatedAt, rs.UpdatedAt).Scan(&rs.ID)
		if err != nil {
			return fmt.Errorf("insert risk scenario: %w", err)
		}

		rs.RiskCode = models.FormatRiskCode(rs.ID)
		if _, err := tx.Exec(ctx,
			`UPDATE risk_scenarios SET risk_code = $2 WHERE id = $1`,
			rs.ID, rs.RiskCode,
		); err != nil {
			return fmt.Errorf("set risk code: %w", err)
		}

		if err := insertRiskScenarioAttributes(ctx, tx, rs.ID, rs.Attributes); err != nil {
			return err
		}
		return nil
	})
}

// UpdateRiskScenario replaces a scenario's fields and its entire attribute
// set. expectedVersion is the version the caller read; a mismatch fails the
// transaction with ErrVersionConflict.
func (db *DB) UpdateRiskScenario(ctx context.Context, rs *models.RiskScenario, expectedVersion int64) error {
	if err := rs.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	return db.ExecTx(ctx, func(tx pgx.Tx) error {
		if err := validateAttributes(ctx, tx, rs.Attributes, models.EntityKindRiskScenario); err != nil {
			return err
		}

		rs.UpdatedAt = time.Now()
		tag, err := tx.Exec(ctx, `
			UPDATE risk_scenarios
			SET title = $3, description = $4, status = $5, version = version + 1, updated_at = $6
			WHERE id = $1 AND version = $2
		`, rs.ID, expectedVersion, rs.Title, rs.Description, string(rs.Status), rs.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update risk scenario: %w", err)
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS(SELECT 1 FROM risk_scenarios WHERE id = $1)`, rs.ID,
			).Scan(&exists); err != nil {
				return fmt.Errorf("check risk scenario: %w", err)
			}
			if !exists {
				return ErrNotFound
			}
			return ErrVersionConflict
		}
		rs.Version = expectedVersion + 1

		if _, err := tx.Exec(ctx,
			`DELETE FROM risk_scenario_attributes WHERE risk_scenario_id = $1`, rs.ID,
		); err != nil {
			return fmt.Errorf("delete risk scenario attributes: %w", err)
		}
		if err := insertRiskScenarioAttributes(ctx, tx, rs.ID, rs.Attributes); err != nil {
			return err
		}
		return nil
	})
}

// UpdateRiskScenarioStatus patches only the publication status.
func (db *DB) UpdateRiskScenarioStatus(ctx context.Context, id int64, status models.LibraryStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, status)
	}
	tag, err := db.Pool.Exec(ctx, `
		UPDATE risk_scenarios SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, string(status))
	if err != nil {
		return fmt.Errorf("update risk scenario status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteRiskScenario hard-deletes a scenario; attribute rows go with it via
// the cascading foreign key.
func (db *DB) DeleteRiskScenario(ctx context.Context, id int64) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM risk_scenarios WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete risk scenario: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetRiskScenarioByID returns a scenario with its attributes and their
// metadata definitions eager-loaded, or nil if absent.
func (db *DB) GetRiskScenarioByID(ctx context.Context, id int64) (*models.RiskScenario, error) {
	var rs models.RiskScenario
	var statusStr string
	err := db.Pool.QueryRow(ctx, `
		SELECT id, org_id, title, description, status, risk_code, version, created_at, updated_at
		FROM risk_scenarios
		WHERE id = $1
	`, id).Scan(&rs.ID, &rs.OrgID, &rs.Title, &rs.Description, &statusStr,
		&rs.RiskCode, &rs.Version, &rs.CreatedAt, &rs.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get risk scenario: %w", err)
	}
	rs.Status = models.LibraryStatus(statusStr)

	attrs, err := db.loadRiskScenarioAttributes(ctx, []int64{rs.ID})
	if err != nil {
		return nil, err
	}
	rs.Attributes = attrs[rs.ID]
	return &rs, nil
}

// ListRiskScenarios returns one page of an organization's scenarios with
// attributes eager-loaded, plus the total count.
func (db *DB) ListRiskScenarios(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.RiskScenario, int, error) {
	var total int
	if err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM risk_scenarios WHERE org_id = $1`, orgID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count risk scenarios: %w", err)
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT id, org_id, title, description, status, risk_code, version, created_at, updated_at
		FROM risk_scenarios
		WHERE org_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3
	`, orgID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list risk scenarios: %w", err)
	}
	defer rows.Close()

	var scenarios []*models.RiskScenario
	var ids []int64
	for rows.Next() {
		var rs models.RiskScenario
		var statusStr string
		if err := rows.Scan(&rs.ID, &rs.OrgID, &rs.Title, &rs.Description, &statusStr,
			&rs.RiskCode, &rs.Version, &rs.CreatedAt, &rs.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan risk scenario: %w", err)
		}
		rs.Status = models.LibraryStatus(statusStr)
		scenarios = append(scenarios, &rs)
		ids = append(ids, rs.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if len(ids) > 0 {
		attrs, err := db.loadRiskScenarioAttributes(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for _, rs := range scenarios {
			rs.Attributes = attrs[rs.ID]
		}
	}

	return scenarios, total, nil
}

// CountRiskScenarios returns the total number of risk scenarios in the library.
func (db *DB) CountRiskScenarios(ctx context.Context) (int64, error) {
	var n int64
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM risk_scenarios`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count risk scenarios: %w", err)
	}
	return n, nil
}

// validateAttributes checks each attribute's required fields and, when the
// owning metadata defines a non-empty supported_values list, rejects values
// outside that list. Runs inside the caller's transaction so a failure rolls
// back everything.
func validateAttributes(ctx context.Context, tx pgx.Tx, attrs []*models.EntityAttribute, kind models.EntityKind) error {
	for _, attr := range attrs {
		if err := attr.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		md, err := getMetaDataByID(ctx, tx, attr.MetaDataKeyID)
		if err != nil {
			return err
		}
		if md == nil {
			return fmt.Errorf("%w: meta_data_key_id %d does not exist", ErrValidation, attr.MetaDataKeyID)
		}
		if !md.AppliesToKind(kind) {
			return fmt.Errorf("%w: attribute %q does not apply to %s", ErrValidation, md.Name, kind)
		}
		if err := md.ValidateValues(attr.Values); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		attr.MetaData = md
	}
	return nil
}

func insertRiskScenarioAttributes(ctx context.Context, tx pgx.Tx, scenarioID int64, attrs []*models.EntityAttribute) error {
	for _, attr := range attrs {
		attr.ParentID = scenarioID
		err := tx.QueryRow(ctx, `
			INSERT INTO risk_scenario_attributes (risk_scenario_id, meta_data_key_id, attr_values)
			VALUES ($1, $2, $3)
			RETURNING id
		`, scenarioID, attr.MetaDataKeyID, attr.Values).Scan(&attr.ID)
		if err != nil {
			return fmt.Errorf("insert risk scenario attribute: %w", err)
		}
	}
	return nil
}

// loadRiskScenarioAttributes returns attributes keyed by scenario id, with
// metadata definitions joined in.
func (db *DB) loadRiskScenarioAttributes(ctx context.Context, scenarioIDs []int64) (map[int64][]*models.EntityAttribute, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT a.id, a.risk_scenario_id, a.meta_data_key_id, a.attr_values,
		       m.id, m.org_id, m.name, m.label, m.input_type, m.supported_values, m.applies_to, m.created_at, m.updated_at
		FROM risk_scenario_attributes a
		JOIN meta_data m ON m.id = a.meta_data_key_id
		WHERE a.risk_scenario_id = ANY($1)
		ORDER BY a.id
	`, scenarioIDs)
	if err != nil {
		return nil, fmt.Errorf("load risk scenario attributes: %w", err)
	}
	defer rows.Close()

	result := make(map[int64][]*models.EntityAttribute)
	for rows.Next() {
		var attr models.EntityAttribute
		var md models.MetaData
		var inputType string
		var appliesTo []string
		if err := rows.Scan(&attr.ID, &attr.ParentID, &attr.MetaDataKeyID, &attr.Values,
			&md.ID, &md.OrgID, &md.Name, &md.Label, &inputType,
			&md.SupportedValues, &appliesTo, &md.CreatedAt, &md.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan risk scenario attribute: %w", err)
		}
		md.InputType = models.MetaDataInputType(inputType)
		md.AppliesTo = stringsToEntityKinds(appliesTo)
		attr.MetaData = &md
		result[attr.ParentID] = append(result[attr.ParentID], &attr)
	}
	return result, rows.Err()
}
