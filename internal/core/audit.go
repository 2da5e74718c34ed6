package core

import (
	"context"
	"log/slog"

	"github.com/JonMunkholm/dealership/internal/auth"
	"github.com/JonMunkholm/dealership/internal/domain"
)

// Audited entity names.
const (
	EntityListing   = "listing"
	EntityImage     = "image"
	EntityFinancing = "financing_request"
	EntityPost      = "blog_post"
)

// recordAudit writes an audit entry for the admin in ctx. Failures are logged;
// the audited action has already happened.
func (s *Service) recordAudit(ctx context.Context, action domain.AuditAction, entity, entityID string, detail map[string]any) {
	if s.audit == nil {
		return
	}

	client := ClientInfoFromContext(ctx)
	entry := &domain.AuditEntry{
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		Detail:    detail,
	}
	if sess, ok := auth.FromContext(ctx); ok {
		entry.SessionID = sess.ID
		entry.Username = sess.Username
	}

	if err := s.audit.InsertAudit(ctx, entry); err != nil {
		slog.Error("audit entry not recorded",
			"action", action,
			"entity", entity,
			"entity_id", entityID,
			"error", err,
		)
	}
}

// ListAudit returns audit entries newest first.
func (s *Service) ListAudit(ctx context.Context, f domain.AuditFilter) ([]domain.AuditEntry, error) {
	return s.audit.ListAudit(ctx, f)
}
