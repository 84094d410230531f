package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/stratum-grc/stratum/internal/models"
)

// CreateAuditLog persists an audit log entry.
func (db *DB) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO audit_logs (id, org_id, user_id, action, resource_type, resource_id,
			result, ip_address, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, entry.ID, entry.OrgID, entry.UserID, string(entry.Action), entry.ResourceType, entry.ResourceID,
		string(entry.Result), entry.IPAddress, entry.UserAgent, entry.Details, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// ListAuditLogs returns one page of an organization's audit trail, newest
// first, plus the total count.
func (db *DB) ListAuditLogs(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.AuditLog, int, error) {
	if limit <= 0 {
		limit = 50
	}

	var total int
	if err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM audit_logs WHERE org_id = $1`, orgID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT id, org_id, user_id, action, resource_type, resource_id,
			result, ip_address, user_agent, details, created_at
		FROM audit_logs
		WHERE org_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, orgID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		var l models.AuditLog
		var action, result string
		if err := rows.Scan(&l.ID, &l.OrgID, &l.UserID, &action, &l.ResourceType, &l.ResourceID,
			&result, &l.IPAddress, &l.UserAgent, &l.Details, &l.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan audit log: %w", err)
		}
		l.Action = models.AuditAction(action)
		l.Result = models.AuditResult(result)
		logs = append(logs, &l)
	}
	return logs, total, rows.Err()
}
