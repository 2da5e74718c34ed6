package database

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/dealership/internal/domain"
)

// DefaultAuditLimit caps audit queries without an explicit limit.
const DefaultAuditLimit = 100

// InsertAudit records an admin action.
func (s *Store) InsertAudit(ctx context.Context, e *domain.AuditEntry) error {
	err := s.pool.QueryRow(ctx, `INSERT INTO audit_log
			(action, entity, entity_id, session_id, username, ip_address, user_agent, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`,
		e.Action, e.Entity, e.EntityID, e.SessionID, e.Username, e.IPAddress, e.UserAgent, e.Detail,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListAudit returns audit entries newest first.
func (s *Store) ListAudit(ctx context.Context, f domain.AuditFilter) ([]domain.AuditEntry, error) {
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = DefaultAuditLimit
	}

	wb := newWhereBuilder()
	wb.Add("action", string(f.Action))
	wb.Add("entity", f.Entity)
	wb.Add("entity_id", f.EntityID)
	where, args := wb.Build()

	query := `SELECT id, action, entity, entity_id, session_id, username, ip_address, user_agent, detail, created_at
		FROM audit_log` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", wb.NextArgIndex(), wb.NextArgIndex()+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit log: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.AuditEntry, 0)
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(&e.ID, &e.Action, &e.Entity, &e.EntityID, &e.SessionID,
			&e.Username, &e.IPAddress, &e.UserAgent, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
