package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/stratum-grc/stratum/internal/models"
)

// Taxonomy methods

// CreateTaxonomy creates a taxonomy and its severity bands in one transaction.
func (db *DB) CreateTaxonomy(ctx context.Context, tax *models.Taxonomy) error {
	if tax.Name == "" {
		return fmt.Errorf("%w: taxonomy name is required", ErrValidation)
	}
	return db.ExecTx(ctx, func(tx pgx.Tx) error {
		now := time.Now()
		tax.CreatedAt = now
		tax.UpdatedAt = now
		err := tx.QueryRow(ctx, `
			INSERT INTO taxonomies (org_id, name, description, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, tax.OrgID, tax.Name, tax.Description, tax.CreatedAt, tax.UpdatedAt).Scan(&tax.ID)
		if err != nil {
			return fmt.Errorf("insert taxonomy: %w", err)
		}

		for i, band := range tax.Bands {
			band.TaxonomyID = tax.ID
			if band.Position == 0 {
				band.Position = i + 1
			}
			err := tx.QueryRow(ctx, `
				INSERT INTO severity_bands (taxonomy_id, name, min_value, max_value, color, position)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id
			`, band.TaxonomyID, band.Name, band.Min, band.Max, band.Color, band.Position).Scan(&band.ID)
			if err != nil {
				return fmt.Errorf("insert severity band: %w", err)
			}
		}
		return nil
	})
}

// GetTaxonomiesByOrgID returns an organization's taxonomies with bands
// eager-loaded, ordered by name.
func (db *DB) GetTaxonomiesByOrgID(ctx context.Context, orgID uuid.UUID) ([]*models.Taxonomy, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, org_id, name, description, created_at, updated_at
		FROM taxonomies
		WHERE org_id = $1
		ORDER BY name
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list taxonomies: %w", err)
	}
	defer rows.Close()

	var taxonomies []*models.Taxonomy
	byID := make(map[int64]*models.Taxonomy)
	var ids []int64
	for rows.Next() {
		var tax models.Taxonomy
		if err := rows.Scan(&tax.ID, &tax.OrgID, &tax.Name, &tax.Description, &tax.CreatedAt, &tax.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan taxonomy: %w", err)
		}
		taxonomies = append(taxonomies, &tax)
		byID[tax.ID] = &tax
		ids = append(ids, tax.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return taxonomies, nil
	}

	bandRows, err := db.Pool.Query(ctx, `
		SELECT id, taxonomy_id, name, min_value, max_value, color, position
		FROM severity_bands
		WHERE taxonomy_id = ANY($1)
		ORDER BY taxonomy_id, position
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("load severity bands: %w", err)
	}
	defer bandRows.Close()

	for bandRows.Next() {
		var band models.SeverityBand
		if err := bandRows.Scan(&band.ID, &band.TaxonomyID, &band.Name, &band.Min, &band.Max, &band.Color, &band.Position); err != nil {
			return nil, fmt.Errorf("scan severity band: %w", err)
		}
		if tax, ok := byID[band.TaxonomyID]; ok {
			tax.Bands = append(tax.Bands, &band)
		}
	}
	return taxonomies, bandRows.Err()
}

// GetTaxonomyByID returns one taxonomy with bands, or nil if absent.
func (db *DB) GetTaxonomyByID(ctx context.Context, id int64) (*models.Taxonomy, error) {
	var tax models.Taxonomy
	err := db.Pool.QueryRow(ctx, `
		SELECT id, org_id, name, description, created_at, updated_at
		FROM taxonomies
		WHERE id = $1
	`, id).Scan(&tax.ID, &tax.OrgID, &tax.Name, &tax.Description, &tax.CreatedAt, &tax.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get taxonomy: %w", err)
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT id, taxonomy_id, name, min_value, max_value, color, position
		FROM severity_bands
		WHERE taxonomy_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("load severity bands: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var band models.SeverityBand
		if err := rows.Scan(&band.ID, &band.TaxonomyID, &band.Name, &band.Min, &band.Max, &band.Color, &band.Position); err != nil {
			return nil, fmt.Errorf("scan severity band: %w", err)
		}
		tax.Bands = append(tax.Bands, &band)
	}
	return &tax, rows.Err()
}
