package catalog

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bekeleetsub857-cloud/etsub-shop/pkg/kit"
)

const maxBodyBytes = 8 << 20 // media references arrive inline

// RegisterAdmin wires the write surface onto the admin router; the caller
// places it behind the session guard.
func (s *Server) RegisterAdmin(r chi.Router) {
	r.Post("/products", s.create)
	r.Put("/products/{id}", s.update)
	r.Delete("/products/{id}", s.delete)
	r.Delete("/products", s.deleteAll)
	r.Get("/export", s.export)
}

// productReq carries the admin-entered fields. Derived prices are computed
// server-side from the active rate; any client-sent values are ignored.
type productReq struct {
	Name          string   `json:"name"`
	SourceCostUSD float64  `json:"source_cost_usd"`
	AgentFeeETB   float64  `json:"agent_fee_etb"`
	MarginETB     float64  `json:"margin_etb"`
	Status        string   `json:"status"`
	Category      string   `json:"category"`
	Size          string   `json:"size"`
	Color         string   `json:"color"`
	Description   string   `json:"description"`
	Images        []string `json:"images"`
	Videos        []string `json:"videos"`
}

func (s *Server) decodeProduct(w http.ResponseWriter, r *http.Request) (productReq, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req productReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return productReq{}, false
	}
	return req, true
}

func (req productReq) apply(p *Product, rate float64) {
	p.Name = strings.TrimSpace(req.Name)
	p.SourceCostUSD = req.SourceCostUSD
	p.AgentFeeETB = req.AgentFeeETB
	p.MarginETB = req.MarginETB
	p.Status = Status(req.Status)
	if req.Status == "" {
		p.Status = StatusInStock
	}
	p.Category = strings.TrimSpace(req.Category)
	p.Size = strings.TrimSpace(req.Size)
	p.Color = strings.TrimSpace(req.Color)
	p.Description = req.Description
	p.Images = req.Images
	if p.Images == nil {
		p.Images = []string{}
	}
	p.Videos = req.Videos
	if p.Videos == nil {
		p.Videos = []string{}
	}
	p.Reprice(rate)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeProduct(w, r)
	if !ok {
		return
	}

	p := Product{
		ID:        "p_" + uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
	req.apply(&p, s.Rate())

	if err := p.Validate(); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := s.Store.Put(r.Context(), p); err != nil {
		s.Log.Error("create product failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	s.Log.Info("product created", zap.String("id", p.ID), zap.String("name", p.Name))
	kit.WriteJSON(w, http.StatusCreated, p)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	req, ok := s.decodeProduct(w, r)
	if !ok {
		return
	}

	p, found, err := s.Store.Get(r.Context(), id)
	if err != nil {
		s.Log.Error("load product failed", zap.Error(err), zap.String("id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !found {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}

	// id and created_at survive every edit
	req.apply(&p, s.Rate())

	if err := p.Validate(); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := s.Store.Put(r.Context(), p); err != nil {
		s.Log.Error("update product failed", zap.Error(err), zap.String("id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	found, err := s.Store.Delete(r.Context(), id)
	if err != nil {
		s.Log.Error("delete product failed", zap.Error(err), zap.String("id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !found {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}

	s.Log.Info("product deleted", zap.String("id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteAll(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.DeleteAll(r.Context()); err != nil {
		s.Log.Error("wipe catalog failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	s.Log.Warn("catalog wiped")
	w.WriteHeader(http.StatusNoContent)
}

// export serves a full backup of the catalog as a downloadable JSON file.
func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	products, err := s.Store.List(r.Context())
	if err != nil {
		s.Log.Error("export failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if products == nil {
		products = []Product{}
	}

	w.Header().Set("Content-Disposition", `attachment; filename="etsub_products_backup.json"`)
	kit.WriteJSON(w, http.StatusOK, products)
}
