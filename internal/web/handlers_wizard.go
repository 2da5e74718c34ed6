package web

// Financing wizard endpoints. Each request loads the session, applies one
// operation and saves it back.

import (
	"fmt"
	"net/http"

	"github.com/JonMunkholm/dealership/internal/domain"
	"github.com/JonMunkholm/dealership/internal/web/templates"
	"github.com/JonMunkholm/dealership/internal/wizard"
	"github.com/go-chi/chi/v5"
)

var errNoFile = fmt.Errorf("%w: no file provided", errBadRequest)

func (s *Server) handleWizardStart(w http.ResponseWriter, r *http.Request) {
	st, err := s.wizard.Start(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, st)
}

func (s *Server) handleWizardGet(w http.ResponseWriter, r *http.Request) {
	st, err := s.wizard.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, st)
}

func (s *Server) handleWizardDiscard(w http.ResponseWriter, r *http.Request) {
	if err := s.wizard.Discard(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleWizardValues merges field values, sent as a JSON object or as a
// url-encoded form.
func (s *Server) handleWizardValues(w http.ResponseWriter, r *http.Request) {
	values := make(map[string]string)
	if isJSONBody(r) {
		if err := decodeJSON(r, &values); err != nil {
			s.respondError(w, r, err)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			s.respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		for k := range r.PostForm {
			values[k] = r.PostForm.Get(k)
		}
	}

	st, err := s.wizard.SetValues(r.Context(), chi.URLParam(r, "id"), values)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, st)
}

// handleWizardDocument attaches the multipart "file" to a document slot.
func (s *Server) handleWizardDocument(w http.ResponseWriter, r *http.Request) {
	cleanup, err := parseMultipart(w, r, s.cfg.Upload.MaxDocumentSize+1<<20)
	defer cleanup()
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	f, closeFile, ok, err := formFile(r, "file")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if !ok {
		s.respondError(w, r, errNoFile)
		return
	}
	defer closeFile()

	doc := domain.DocumentType(chi.URLParam(r, "doc"))
	st, err := s.wizard.AttachDocument(r.Context(), chi.URLParam(r, "id"), doc, *f)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, st)
}

func (s *Server) handleWizardBack(w http.ResponseWriter, r *http.Request) {
	st, err := s.wizard.Back(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, st)
}

// handleWizardNext validates the current step and advances or submits.
// Blocked steps answer 422 and failed submissions 502, with the result body
// either way.
func (s *Server) handleWizardNext(w http.ResponseWriter, r *http.Request) {
	res, err := s.wizard.Next(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	status := http.StatusOK
	switch res.Outcome {
	case wizard.OutcomeBlocked:
		status = http.StatusUnprocessableEntity
	case wizard.OutcomeFailed:
		status = http.StatusBadGateway
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		if err := templates.WizardResult(res).Render(r.Context(), w); err != nil {
			s.logRenderError(r, err)
		}
		return
	}
	writeJSONStatus(w, status, res)
}
