package web

import (
	"net/http"

	"github.com/JonMunkholm/dealership/internal/domain"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, domain.FeatureLabels)
}

// handlePublicListings lists active listings. Any status in the query is
// ignored.
func (s *Server) handlePublicListings(w http.ResponseWriter, r *http.Request) {
	f := listingFilter(r)
	f.SyncState = ""

	listings, total, err := s.svc.ListPublicListings(r.Context(), f)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, newPage(listings, total, f.Page, f.Limit()))
}

func (s *Server) handlePublicListing(w http.ResponseWriter, r *http.Request) {
	listing, err := s.svc.ViewListing(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, listing)
}

func (s *Server) handleContactListing(w http.ResponseWriter, r *http.Request) {
	number, err := s.svc.ContactListing(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"contact_number": number})
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	pageNum := parseIntParam(r, "page", 1)
	pageSize := parseIntParam(r, "page_size", 12)

	posts, total, err := s.svc.ListPosts(r.Context(), pageNum, pageSize)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, newPage(posts, total, pageNum, pageSize))
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.svc.GetPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, post)
}
