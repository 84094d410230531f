package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/stratum-grc/stratum/internal/models"
)

// Organization methods

// CreateOrganization creates a new organization.
func (db *DB) CreateOrganization(ctx context.Context, org *models.Organization) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO organizations (id, name, slug, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, org.ID, org.Name, org.Slug, org.Tags, org.CreatedAt, org.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create organization: %w", err)
	}
	return nil
}

// GetOrganizationByID returns an organization by id, or nil if absent.
func (db *DB) GetOrganizationByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	err := db.Pool.QueryRow(ctx, `
		SELECT id, name, slug, tags, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`, id).Scan(&org.ID, &org.Name, &org.Slug, &org.Tags, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get organization: %w", err)
	}
	return &org, nil
}

// GetOrganizationBySlug returns an organization by slug, or nil if absent.
func (db *DB) GetOrganizationBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	var org models.Organization
	err := db.Pool.QueryRow(ctx, `
		SELECT id, name, slug, tags, created_at, updated_at
		FROM organizations
		WHERE slug = $1
	`, slug).Scan(&org.ID, &org.Name, &org.Slug, &org.Tags, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get organization by slug: %w", err)
	}
	return &org, nil
}

// GetAllOrganizations returns all organizations.
func (db *DB) GetAllOrganizations(ctx context.Context) ([]*models.Organization, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, name, slug, tags, created_at, updated_at
		FROM organizations
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []*models.Organization
	for rows.Next() {
		var org models.Organization
		err := rows.Scan(&org.ID, &org.Name, &org.Slug, &org.Tags, &org.CreatedAt, &org.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		orgs = append(orgs, &org)
	}

	return orgs, rows.Err()
}

// UpdateOrganization updates an organization's name, slug, and tags.
func (db *DB) UpdateOrganization(ctx context.Context, org *models.Organization) error {
	org.UpdatedAt = time.Now()
	tag, err := db.Pool.Exec(ctx, `
		UPDATE organizations
		SET name = $2, slug = $3, tags = $4, updated_at = $5
		WHERE id = $1
	`, org.ID, org.Name, org.Slug, org.Tags, org.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: slug %q is already taken", ErrValidation, org.Slug)
		}
		return fmt.Errorf("update organization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Business unit methods

// CreateBusinessUnit creates a new business unit.
func (db *DB) CreateBusinessUnit(ctx context.Context, bu *models.BusinessUnit) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO business_units (id, org_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, bu.ID, bu.OrgID, bu.Name, bu.Description, bu.CreatedAt, bu.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create business unit: %w", err)
	}
	return nil
}

// GetBusinessUnitByID returns a business unit by id, or nil if absent.
func (db *DB) GetBusinessUnitByID(ctx context.Context, id uuid.UUID) (*models.BusinessUnit, error) {
	var bu models.BusinessUnit
	err := db.Pool.QueryRow(ctx, `
		SELECT id, org_id, name, description, created_at, updated_at
		FROM business_units
		WHERE id = $1
	`, id).Scan(&bu.ID, &bu.OrgID, &bu.Name, &bu.Description, &bu.CreatedAt, &bu.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get business unit: %w", err)
	}
	return &bu, nil
}

// GetBusinessUnitsByOrgID returns all business units of an organization.
func (db *DB) GetBusinessUnitsByOrgID(ctx context.Context, orgID uuid.UUID) ([]*models.BusinessUnit, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, org_id, name, description, created_at, updated_at
		FROM business_units
		WHERE org_id = $1
		ORDER BY name
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list business units: %w", err)
	}
	defer rows.Close()

	var units []*models.BusinessUnit
	for rows.Next() {
		var bu models.BusinessUnit
		if err := rows.Scan(&bu.ID, &bu.OrgID, &bu.Name, &bu.Description, &bu.CreatedAt, &bu.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan business unit: %w", err)
		}
		units = append(units, &bu)
	}

	return units, rows.Err()
}

// User methods

// CreateUser creates a new user.
func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO users (id, org_id, email, name, role, oidc_subject, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9)
	`, user.ID, user.OrgID, user.Email, user.Name, string(user.Role),
		user.OIDCSubject, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUserByID returns a user by id, or nil if absent.
func (db *DB) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return db.getUser(ctx, "id = $1", id)
}

// GetUserByEmail returns a user by email, or nil if absent.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.getUser(ctx, "email = $1", email)
}

// GetUserByOIDCSubject returns a user by OIDC subject, or nil if absent.
func (db *DB) GetUserByOIDCSubject(ctx context.Context, subject string) (*models.User, error) {
	return db.getUser(ctx, "oidc_subject = $1", subject)
}

func (db *DB) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	var user models.User
	var roleStr string
	var oidcSubject, passwordHash *string
	err := db.Pool.QueryRow(ctx, `
		SELECT id, org_id, email, name, role, oidc_subject, password_hash, created_at, updated_at
		FROM users
		WHERE `+where, arg).Scan(
		&user.ID, &user.OrgID, &user.Email, &user.Name, &roleStr,
		&oidcSubject, &passwordHash, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	user.Role = models.UserRole(roleStr)
	if oidcSubject != nil {
		user.OIDCSubject = *oidcSubject
	}
	if passwordHash != nil {
		user.PasswordHash = *passwordHash
	}
	return &user, nil
}

// ListUsersByOrgID returns all users of an organization.
func (db *DB) ListUsersByOrgID(ctx context.Context, orgID uuid.UUID) ([]*models.User, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, org_id, email, name, role, created_at, updated_at
		FROM users
		WHERE org_id = $1
		ORDER BY name, email
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var u models.User
		var roleStr string
		if err := rows.Scan(&u.ID, &u.OrgID, &u.Email, &u.Name, &roleStr, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.Role = models.UserRole(roleStr)
		users = append(users, &u)
	}
	return users, rows.Err()
}
