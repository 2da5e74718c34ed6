package web

// errors.go turns handler errors into responses: the technical error is
// logged with the request id, and the client gets the user message from
// core.MapError as JSON, an HTMX fragment, or plain text.

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/dealership/internal/auth"
	"github.com/JonMunkholm/dealership/internal/core"
	"github.com/JonMunkholm/dealership/internal/domain"
	"github.com/JonMunkholm/dealership/internal/images"
	"github.com/JonMunkholm/dealership/internal/logging"
	"github.com/JonMunkholm/dealership/internal/storage"
	mw "github.com/JonMunkholm/dealership/internal/web/middleware"
	"github.com/JonMunkholm/dealership/internal/web/templates"
	"github.com/JonMunkholm/dealership/internal/wizard"
)

// ErrorResponse is the JSON body of an API error.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Action  string            `json:"action,omitempty"`
	Code    string            `json:"code"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// errBadRequest marks malformed request bodies and parameters.
var errBadRequest = errors.New("invalid request")

// statusFor maps domain and infrastructure errors to HTTP statuses.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case core.IsValidationError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrListingNotFound),
		errors.Is(err, domain.ErrImageNotFound),
		errors.Is(err, domain.ErrFinancingNotFound),
		errors.Is(err, domain.ErrPostNotFound),
		errors.Is(err, wizard.ErrSessionNotFound),
		errors.Is(err, images.ErrEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrFileTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadRequest),
		errors.Is(err, storage.ErrEmptyFile),
		errors.Is(err, images.ErrTooManyImages),
		errors.Is(err, domain.ErrInvalidListingData),
		errors.Is(err, domain.ErrInvalidPostData),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrUnknownFeature),
		errors.Is(err, domain.ErrUnknownField),
		errors.Is(err, wizard.ErrUnknownDocument),
		errors.Is(err, wizard.ErrInvalidSession):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrSessionExpired),
		errors.Is(err, auth.ErrSessionNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, mw.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, storage.ErrTooManyUploads):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the user-facing message in the format
// the client asked for.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request rejected", attrs...)
	}

	switch {
	case isHTMX(r):
		renderErrorPartial(w, r, userMsg, status)
	case wantsJSON(r):
		resp := ErrorResponse{
			Error:   userMsg.Message,
			Message: userMsg.Message,
			Action:  userMsg.Action,
			Code:    userMsg.Code,
		}
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			resp.Fields = verr.Fields
		}
		writeJSONStatus(w, status, resp)
	default:
		http.Error(w, userMsg.Message+" ("+userMsg.Code+")", status)
	}
}

// renderErrorPartial renders an HTMX-compatible error fragment.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w); err != nil {
		slog.Error("render error fragment", "error", err)
	}
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON reports whether the client prefers a JSON response. API routes
// default to JSON.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}
