package web

import (
	"net/http"
	"strings"

	"github.com/JonMunkholm/dealership/internal/domain"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListFinancing(w http.ResponseWriter, r *http.Request) {
	f := domain.FinancingFilter{
		Query:    strings.TrimSpace(r.URL.Query().Get("q")),
		Page:     parseIntParam(r, "page", 1),
		PageSize: parseIntParam(r, "page_size", 0),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := domain.ParseRequestStatus(raw)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		f.Status = status
	}

	requests, total, err := s.svc.ListFinancing(r.Context(), f)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, newPage(requests, total, f.Page, f.Limit()))
}

func (s *Server) handleGetFinancing(w http.ResponseWriter, r *http.Request) {
	req, err := s.svc.GetFinancing(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, req)
}

// handleFinancingStatus accepts the unified status or a legacy label and
// answers with the stored value.
func (s *Server) handleFinancingStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if isJSONBody(r) {
		if err := decodeJSON(r, &body); err != nil {
			s.respondError(w, r, err)
			return
		}
	} else {
		body.Status = r.FormValue("status")
	}

	status, err := s.svc.UpdateFinancingStatus(r.Context(), chi.URLParam(r, "id"), body.Status)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]domain.RequestStatus{"status": status})
}

func (s *Server) handleDeleteFinancing(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteFinancing(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
