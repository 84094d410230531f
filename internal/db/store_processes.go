package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/stratum-grc/stratum/internal/models"
)

// Process methods. Same transactional shape as risk scenarios: attributes are
// validated before the insert and replaced wholesale on update.

// CreateProcess creates a library process together with its attribute set and
// assigns its process_code from the generated id.
func (db *DB) CreateProcess(ctx context.Context, p *models.Process) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if p.Status == "" {
		p.Status = models.LibraryStatusDraft
	}

	return db.ExecTx(ctx, func(tx pgx.Tx) error {
		if err := validateAttributes(ctx, tx, p.Attributes, models.EntityKindProcess); err != nil {
			return err
		}

		now := time.Now()
		p.CreatedAt = now
		p.UpdatedAt = now
		err := tx.QueryRow(ctx, `
			INSERT INTO processes (org_id, name, description, owner, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`, p.OrgID, p.Name, p.Description, p.Owner, string(p.Status), p.CreatedAt, p.UpdatedAt).Scan(&p.ID)
		if err != nil {
			return fmt.Errorf("insert process: %w", err)
		}

		p.ProcessCode = models.FormatProcessCode(p.ID)
		if _, err := tx.Exec(ctx,
			`UPDATE processes SET process_code = $2 WHERE id = $1`,
			p.ID, p.ProcessCode,
		); err != nil {
			return fmt.Errorf("set process code: %w", err)
		}

		return insertProcessAttributes(ctx, tx, p.ID, p.Attributes)
	})
}

// UpdateProcess replaces a process's fields and its entire attribute set.
func (db *DB) UpdateProcess(ctx context.Context, p *models.Process) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	return db.ExecTx(ctx, func(tx pgx.Tx) error {
		if err := validateAttributes(ctx, tx, p.Attributes, models.EntityKindProcess); err != nil {
			return err
		}

		p.UpdatedAt = time.Now()
		tag, err := tx.Exec(ctx, `
			UPDATE processes
			SET name = $2, description = $3, owner = $4, status = $5, updated_at = $6
			WHERE id = $1
		`, p.ID, p.Name, p.Description, p.Owner, string(p.Status), p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update process: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}

		if _, err := tx.Exec(ctx,
			`DELETE FROM process_attributes WHERE process_id = $1`, p.ID,
		); err != nil {
			return fmt.Errorf("delete process attributes: %w", err)
		}
		return insertProcessAttributes(ctx, tx, p.ID, p.Attributes)
	})
}

// DeleteProcess hard-deletes a process after an existence check via the
// affected-row count.
func (db *DB) DeleteProcess(ctx context.Context, id int64) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM processes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete process: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetProcessByID returns a process with attributes eager-loaded, or nil.
func (db *DB) GetProcessByID(ctx context.Context, id int64) (*models.Process, error) {
	var p models.Process
	var statusStr string
	err := db.Pool.QueryRow(ctx, `
		SELECT id, org_id, name, description, owner, status, process_code, created_at, updated_at
		FROM processes
		WHERE id = $1
	`, id).Scan(&p.ID, &p.OrgID, &p.Name, &p.Description, &p.Owner, &statusStr,
		&p.ProcessCode, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get process: %w", err)
	}
	p.Status = models.LibraryStatus(statusStr)

	attrs, err := db.loadProcessAttributes(ctx, []int64{p.ID})
	if err != nil {
		return nil, err
	}
	p.Attributes = attrs[p.ID]
	return &p, nil
}

// ListProcesses returns one page of an organization's processes with
// attributes eager-loaded, plus the total count.
func (db *DB) ListProcesses(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.Process, int, error) {
	var total int
	if err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM processes WHERE org_id = $1`, orgID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count processes: %w", err)
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT id, org_id, name, description, owner, status, process_code, created_at, updated_at
		FROM processes
		WHERE org_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3
	`, orgID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list processes: %w", err)
	}
	defer rows.Close()

	var procs []*models.Process
	var ids []int64
	for rows.Next() {
		var p models.Process
		var statusStr string
		if err := rows.Scan(&p.ID, &p.OrgID, &p.Name, &p.Description, &p.Owner, &statusStr,
			&p.ProcessCode, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan process: %w", err)
		}
		p.Status = models.LibraryStatus(statusStr)
		procs = append(procs, &p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if len(ids) > 0 {
		attrs, err := db.loadProcessAttributes(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for _, p := range procs {
			p.Attributes = attrs[p.ID]
		}
	}

	return procs, total, nil
}

func insertProcessAttributes(ctx context.Context, tx pgx.Tx, processID int64, attrs []*models.EntityAttribute) error {
	for _, attr := range attrs {
		attr.ParentID = processID
		err := tx.QueryRow(ctx, `
			INSERT INTO process_attributes (process_id, meta_data_key_id, attr_values)
			VALUES ($1, $2, $3)
			RETURNING id
		`, processID, attr.MetaDataKeyID, attr.Values).Scan(&attr.ID)
		if err != nil {
			return fmt.Errorf("insert process attribute: %w", err)
		}
	}
	return nil
}

func (db *DB) loadProcessAttributes(ctx context.Context, processIDs []int64) (map[int64][]*models.EntityAttribute, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT a.id, a.process_id, a.meta_data_key_id, a.attr_values,
		       m.id, m.org_id, m.name, m.label, m.input_type, m.supported_values, m.applies_to, m.created_at, m.updated_at
		FROM process_attributes a
		JOIN meta_data m ON m.id = a.meta_data_key_id
		WHERE a.process_id = ANY($1)
		ORDER BY a.id
	`, processIDs)
	if err != nil {
		return nil, fmt.Errorf("load process attributes: %w", err)
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
			return nil, fmt.Errorf("scan process attribute: %w", err)
		}
		md.InputType = models.MetaDataInputType(inputType)
		md.AppliesTo = stringsToEntityKinds(appliesTo)
		attr.MetaData = &md
		result[attr.ParentID] = append(result[attr.ParentID], &attr)
	}
	return result, rows.Err()
}

// CountProcesses returns the total number of processes in the library.
func (db *DB) CountProcesses(ctx context.Context) (int64, error) {
	var n int64
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM processes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count processes: %w", err)
	}
	return n, nil
}
