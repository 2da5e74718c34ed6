package web

// Admin listing endpoints.

import (
	"net/http"

	"github.com/JonMunkholm/dealership/internal/core"
	"github.com/JonMunkholm/dealership/internal/web/templates"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleAdminListings(w http.ResponseWriter, r *http.Request) {
	f := listingFilter(r)
	listings, total, err := s.svc.ListListings(r.Context(), f)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, newPage(listings, total, f.Page, f.Limit()))
}

func (s *Server) handleAdminListing(w http.ResponseWriter, r *http.Request) {
	listing, err := s.svc.GetListing(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, listing)
}

func (s *Server) handleCreateListing(w http.ResponseWriter, r *http.Request) {
	s.saveListing(w, r, "")
}

func (s *Server) handleUpdateListing(w http.ResponseWriter, r *http.Request) {
	s.saveListing(w, r, chi.URLParam(r, "id"))
}

// saveListing creates the listing when id is empty and updates it
// otherwise. Image failures come back as warnings with a 201/200 status.
func (s *Server) saveListing(w http.ResponseWriter, r *http.Request, id string) {
	cleanup, err := parseMultipart(w, r, s.cfg.Upload.MaxRequestSize())
	defer cleanup()
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	in, changes, err := parseListingForm(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var res *core.ListingResult
	status := http.StatusOK
	if id == "" {
		res, err = s.svc.CreateListing(r.Context(), in, changes)
		status = http.StatusCreated
	} else {
		res, err = s.svc.UpdateListing(r.Context(), id, in, changes)
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		for _, warning := range res.Warnings {
			if err := templates.Notice("warning", warning).Render(r.Context(), w); err != nil {
				s.logRenderError(r, err)
				return
			}
		}
		if err := templates.ImageGrid(res.Images).Render(r.Context(), w); err != nil {
			s.logRenderError(r, err)
		}
		return
	}
	writeJSONStatus(w, status, res)
}

func (s *Server) handleDeleteListing(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteListing(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleApproveListing(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ApproveListing(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRejectListing deletes the listing permanently.
func (s *Server) handleRejectListing(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.RejectListing(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetFeatured(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Featured bool `json:"featured"`
	}
	if isJSONBody(r) {
		if err := decodeJSON(r, &body); err != nil {
			s.respondError(w, r, err)
			return
		}
	} else {
		body.Featured = parseBool(r.FormValue("featured"))
	}

	if err := s.svc.SetFeatured(r.Context(), chi.URLParam(r, "id"), body.Featured); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, body)
}

func (s *Server) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteImage(r.Context(), chi.URLParam(r, "imageID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetPrimaryImage(w http.ResponseWriter, r *http.Request) {
	err := s.svc.SetPrimaryImage(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "imageID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListRepairs(w http.ResponseWriter, r *http.Request) {
	pageNum := parseIntParam(r, "page", 1)
	listings, total, err := s.svc.ListRepairs(r.Context(), pageNum)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, newPage(listings, total, pageNum, len(listings)))
}

func (s *Server) handleRepairListing(w http.ResponseWriter, r *http.Request) {
	listing, err := s.svc.RepairListing(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, listing)
}

// handleReconcile runs one reconciler pass now.
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.Reconcile(r.Context(), s.reconcileConfig())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, report)
}

func (s *Server) reconcileConfig() core.ReconcileConfig {
	return core.ReconcileConfig{
		Interval:    s.cfg.Reconcile.Interval,
		GracePeriod: s.cfg.Reconcile.GracePeriod,
		BatchSize:   s.cfg.Reconcile.BatchSize,
	}
}
