package web

// Admin session endpoints.

import (
	"net/http"
	"strings"
	"time"

	"github.com/JonMunkholm/dealership/internal/auth"
	"github.com/JonMunkholm/dealership/internal/logging"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Session *auth.Session `json:"session"`
	Token   string        `json:"token"`
}

// handleLogin checks credentials, sets the HttpOnly session cookie and
// returns the token for API clients.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if isJSONBody(r) {
		if err := decodeJSON(r, &req); err != nil {
			s.respondError(w, r, err)
			return
		}
	} else {
		req.Username = r.FormValue("username")
		req.Password = r.FormValue("password")
	}

	sess, token, err := s.auth.Login(r.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	http.SetCookie(w, s.sessionCookie(token, sess.ExpiresAt))
	logging.FromContext(r.Context()).Info("admin logged in", "username", sess.Username, "session_id", sess.ID)
	writeJSON(w, loginResponse{Session: sess, Token: token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.FromContext(r.Context())
	if err := s.auth.Logout(r.Context(), sess.ID); err != nil {
		s.respondError(w, r, err)
		return
	}
	http.SetCookie(w, s.sessionCookie("", time.Unix(0, 0)))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.FromContext(r.Context())
	writeJSON(w, sess)
}

func (s *Server) sessionCookie(token string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     s.cfg.Auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.cfg.Auth.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if token == "" {
		c.MaxAge = -1
	}
	return c
}

func (s *Server) logRenderError(r *http.Request, err error) {
	logging.FromContext(r.Context()).Error("render fragment", "path", r.URL.Path, "error", err)
}
