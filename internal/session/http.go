package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bekeleetsub857-cloud/etsub-shop/pkg/kit"
)

const maxBodyBytes = 1 << 20

type Server struct {
	Log   *zap.Logger
	Guard *Guard
}

// Register wires the login surface onto the admin router. loginLimit is an
// optional per-IP limiter for the login endpoint; the guard's own lockout
// handles repeated bad passwords from a single operator.
func (s *Server) Register(r chi.Router, loginLimit func(http.Handler) http.Handler) {
	if loginLimit != nil {
		r.With(loginLimit).Post("/login", s.handleLogin)
	} else {
		r.Post("/login", s.handleLogin)
	}
	r.Post("/logout", s.handleLogout)
	r.Get("/session", s.handleSession)
}

type loginReq struct {
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req loginReq
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}
	if strings.TrimSpace(req.Password) == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "password required", nil)
		return
	}

	sess, err := s.Guard.Submit(req.Password)
	if err != nil {
		var locked *LockedOutError
		if errors.As(err, &locked) {
			kit.WriteError(w, r, http.StatusLocked, "too many failed attempts", map[string]any{
				"retry_after_seconds": int(locked.Remaining.Seconds() + 0.5),
			})
			return
		}
		if errors.Is(err, ErrBadPassword) {
			kit.WriteError(w, r, http.StatusUnauthorized, "invalid password", nil)
			return
		}
		s.Log.Error("login failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	kit.WriteJSON(w, http.StatusOK, sess)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !s.Guard.Validate(bearerToken(r)) {
		kit.WriteError(w, r, http.StatusUnauthorized, "not logged in", nil)
		return
	}
	s.Guard.Logout()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	state := s.Guard.State()
	resp := map[string]any{"state": state}
	if state == StateLoggedIn {
		resp["expires_at"] = s.Guard.ExpiresAt()
	}
	kit.WriteJSON(w, http.StatusOK, resp)
}

// RequireAdmin guards the write surface: the bearer token must belong to the
// single live admin session.
func RequireAdmin(g *Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !g.Validate(bearerToken(r)) {
				kit.WriteError(w, r, http.StatusUnauthorized, "admin session required", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(authz, "Bearer ")
}
