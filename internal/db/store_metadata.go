package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/stratum-grc/stratum/internal/models"
)

// MetaData methods

// CreateMetaData creates a new metadata attribute definition and fills in the
// generated id.
func (db *DB) CreateMetaData(ctx context.Context, md *models.MetaData) error {
	now := time.Now()
	md.CreatedAt = now
	md.UpdatedAt = now
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO meta_data (org_id, name, label, input_type, supported_values, applies_to, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, md.OrgID, md.Name, md.Label, string(md.InputType), md.SupportedValues,
		entityKindsToStrings(md.AppliesTo), md.CreatedAt, md.UpdatedAt).Scan(&md.ID)
	if err != nil {
		return fmt.Errorf("create metadata: %w", err)
	}
	return nil
}

// GetMetaDataByID returns a metadata definition by id, or nil if absent.
func (db *DB) GetMetaDataByID(ctx context.Context, id int64) (*models.MetaData, error) {
	md, err := getMetaDataByID(ctx, db.Pool, id)
	if err != nil {
		return nil, err
	}
	return md, nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so lookups can run
// inside or outside a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func getMetaDataByID(ctx context.Context, q querier, id int64) (*models.MetaData, error) {
	var md models.MetaData
	var inputType string
	var appliesTo []string
	err := q.QueryRow(ctx, `
		SELECT id, org_id, name, label, input_type, supported_values, applies_to, created_at, updated_at
		FROM meta_data
		WHERE id = $1
	`, id).Scan(&md.ID, &md.OrgID, &md.Name, &md.Label, &inputType,
		&md.SupportedValues, &appliesTo, &md.CreatedAt, &md.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get metadata: %w", err)
	}
	md.InputType = models.MetaDataInputType(inputType)
	md.AppliesTo = stringsToEntityKinds(appliesTo)
	return &md, nil
}

// GetMetaDataByOrgID returns metadata definitions for an organization,
// optionally filtered to those applying to the given entity kind.
func (db *DB) GetMetaDataByOrgID(ctx context.Context, orgID uuid.UUID, kind models.EntityKind) ([]*models.MetaData, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, org_id, name, label, input_type, supported_values, applies_to, created_at, updated_at
		FROM meta_data
		WHERE org_id = $1
		ORDER BY name
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list metadata: %w", err)
	}
	defer rows.Close()

	var defs []*models.MetaData
	for rows.Next() {
		var md models.MetaData
		var inputType string
		var appliesTo []string
		if err := rows.Scan(&md.ID, &md.OrgID, &md.Name, &md.Label, &inputType,
			&md.SupportedValues, &appliesTo, &md.CreatedAt, &md.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan metadata: %w", err)
		}
		md.InputType = models.MetaDataInputType(inputType)
		md.AppliesTo = stringsToEntityKinds(appliesTo)
		if kind != "" && !md.AppliesToKind(kind) {
			continue
		}
		defs = append(defs, &md)
	}
	return defs, rows.Err()
}

// UpdateMetaData updates a metadata definition.
func (db *DB) UpdateMetaData(ctx context.Context, md *models.MetaData) error {
	md.UpdatedAt = time.Now()
	tag, err := db.Pool.Exec(ctx, `
		UPDATE meta_data
		SET name = $2, label = $3, input_type = $4, supported_values = $5, applies_to = $6, updated_at = $7
		WHERE id = $1
	`, md.ID, md.Name, md.Label, string(md.InputType), md.SupportedValues,
		entityKindsToStrings(md.AppliesTo), md.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update metadata: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMetaData deletes a metadata definition. Definitions still referenced
// by attribute rows are protected by a RESTRICT foreign key.
func (db *DB) DeleteMetaData(ctx context.Context, id int64) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM meta_data WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete metadata: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func entityKindsToStrings(kinds []models.EntityKind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

func stringsToEntityKinds(values []string) []models.EntityKind {
	if len(values) == 0 {
		return nil
	}
	out := make([]models.EntityKind, len(values))
	for i, v := range values {
		out[i] = models.EntityKind(v)
	}
	return out
}
