package web

import (
	"net/http"
	"strconv"

	"github.com/JonMunkholm/dealership/internal/domain"
)

// handleAuditLog lists audit entries, newest first.
//
// Query params: action, entity, entity_id, limit (default 50), offset.
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.AuditFilter{
		Action:   domain.AuditAction(q.Get("action")),
		Entity:   q.Get("entity"),
		EntityID: q.Get("entity_id"),
		Limit:    parseIntParam(r, "limit", 50),
	}
	if off, err := strconv.Atoi(q.Get("offset")); err == nil && off > 0 {
		f.Offset = off
	}

	entries, err := s.svc.ListAudit(r.Context(), f)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	writeJSON(w, entries)
}
