package web

import (
	"net/http"

	"github.com/JonMunkholm/dealership/internal/core"
	"github.com/go-chi/chi/v5"
)

func postInput(r *http.Request) core.PostInput {
	return core.PostInput{
		Title:   r.FormValue("title"),
		Summary: r.FormValue("summary"),
		Content: r.FormValue("content"),
		Author:  r.FormValue("author"),
	}
}

// handleCreatePost reads a multipart form with an optional "cover" file.
func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	cleanup, err := parseMultipart(w, r, s.cfg.Upload.MaxImageSize+1<<20)
	defer cleanup()
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	cover, closeCover, _, err := formFile(r, "cover")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer closeCover()

	post, err := s.svc.CreatePost(r.Context(), postInput(r), cover)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, post)
}

// handleUpdatePost replaces the post fields. A new "cover" file replaces the
// cover; remove_cover=true clears it.
func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	cleanup, err := parseMultipart(w, r, s.cfg.Upload.MaxImageSize+1<<20)
	defer cleanup()
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	cover, closeCover, _, err := formFile(r, "cover")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer closeCover()

	change := core.CoverChange{File: cover, Remove: parseBool(r.FormValue("remove_cover"))}
	post, err := s.svc.UpdatePost(r.Context(), chi.URLParam(r, "id"), postInput(r), change)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, post)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeletePost(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
