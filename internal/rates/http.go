package rates

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bekeleetsub857-cloud/etsub-shop/pkg/kit"
)

type Server struct {
	Log    *zap.Logger
	Engine *Engine
}

// Register wires the rate surface onto the admin router; the caller places
// it behind the session guard.
func (s *Server) Register(r chi.Router) {
	r.Get("/rate", s.handleGet)
	r.Post("/rate/refresh", s.handleRefresh)
	r.Put("/rate", s.handleSetManual)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	kit.WriteJSON(w, http.StatusOK, s.Engine.Current())
}

type refreshResp struct {
	State
	Stale bool `json:"stale,omitempty"`
}

// handleRefresh forces a refresh. Provider failure is soft: the response is
// still 200 with the retained rate, flagged stale.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	err := s.Engine.Refresh(r.Context())
	if err != nil && !errors.Is(err, ErrRateStale) {
		s.Log.Error("rate refresh", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if errors.Is(err, ErrRateStale) {
		s.Log.Warn("rate refresh served stale", zap.Error(err))
	}

	kit.WriteJSON(w, http.StatusOK, refreshResp{
		State: s.Engine.Current(),
		Stale: errors.Is(err, ErrRateStale),
	})
}

type setRateReq struct {
	Rate float64 `json:"rate"`
}

func (s *Server) handleSetManual(w http.ResponseWriter, r *http.Request) {
	var req setRateReq
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	if err := s.Engine.SetManual(r.Context(), req.Rate); err != nil {
		if errors.Is(err, ErrInvalidRate) {
			kit.WriteError(w, r, http.StatusBadRequest, "rate must be positive", nil)
			return
		}
		s.Log.Error("set manual rate", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	kit.WriteJSON(w, http.StatusOK, s.Engine.Current())
}
