package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/meur/comparador/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleLogin checks admin credentials and issues a session
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sess, err := s.sessions.Login(req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrLoginDisabled):
		respondError(w, http.StatusServiceUnavailable, "El acceso de administrador no está configurado")
		return
	case err != nil:
		respondError(w, http.StatusUnauthorized, "Credenciales inválidas")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, http.StatusOK, sess)
}

// handleGetSession reports whether the caller holds an admin session
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]bool{
		"admin": s.sessions.Active(auth.TokenFromRequest(r)),
	})
}

// handleLogout ends the caller's session
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Logout(auth.TokenFromRequest(r))

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}
