package catalog

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bekeleetsub857-cloud/etsub-shop/internal/links"
	"github.com/bekeleetsub857-cloud/etsub-shop/pkg/kit"
)

type Server struct {
	Store    Store
	Log      *zap.Logger
	Contacts links.Contacts

	// Rate reports the active ETB-per-USD rate for repricing admin writes.
	Rate func() float64
}

// Routes is the public storefront surface.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()

		if err := s.Store.Ping(ctx); err != nil {
			if s.Log != nil {
				s.Log.Warn("readyz failed", zap.Error(err))
			}
			kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/products", s.list)
	r.Get("/products/{id}", s.get)
	r.Get("/products/{id}/order-links", s.orderLinks)
	r.Get("/stats", s.stats)

	return r
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	products, err := s.Store.List(r.Context())
	if err != nil {
		s.Log.Error("list products failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	q := r.URL.Query()
	products = filterProducts(products, q.Get("category"), q.Get("status"), q.Get("q"))
	sortProducts(products, q.Get("sort"))

	if products == nil {
		products = []Product{}
	}
	kit.WriteJSON(w, http.StatusOK, products)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, ok, err := s.Store.Get(r.Context(), id)
	if err != nil {
		s.Log.Error("get product failed", zap.Error(err), zap.String("id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) orderLinks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, ok, err := s.Store.Get(r.Context(), id)
	if err != nil {
		s.Log.Error("get product failed", zap.Error(err), zap.String("id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	kit.WriteJSON(w, http.StatusOK, s.Contacts.For(p.Name, p.FinalPriceETB))
}

type statsResp struct {
	Total           int     `json:"total"`
	InStock         int     `json:"in_stock"`
	OnOrder         int     `json:"on_order"`
	Sold            int     `json:"sold"`
	TotalValueETB   float64 `json:"total_value_etb"`
	InStockValueETB float64 `json:"in_stock_value_etb"`
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	products, err := s.Store.List(r.Context())
	if err != nil {
		s.Log.Error("stats failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	var out statsResp
	out.Total = len(products)
	for _, p := range products {
		out.TotalValueETB += p.FinalPriceETB
		switch p.Status {
		case StatusInStock:
			out.InStock++
			out.InStockValueETB += p.FinalPriceETB
		case StatusOnOrder:
			out.OnOrder++
		case StatusSold:
			out.Sold++
		}
	}
	kit.WriteJSON(w, http.StatusOK, out)
}

func filterProducts(ps []Product, category, status, query string) []Product {
	category = strings.ToLower(strings.TrimSpace(category))
	query = strings.ToLower(strings.TrimSpace(query))

	out := ps[:0:0]
	for _, p := range ps {
		if category != "" && strings.ToLower(p.Category) != category {
			continue
		}
		if status != "" && p.Status != Status(status) {
			continue
		}
		if query != "" && !matchesQuery(p, query) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchesQuery(p Product, query string) bool {
	return strings.Contains(strings.ToLower(p.Name), query) ||
		strings.Contains(strings.ToLower(p.Description), query) ||
		strings.Contains(strings.ToLower(p.Category), query)
}

// sortProducts orders the listing; input arrives newest-first from the store.
func sortProducts(ps []Product, key string) {
	switch key {
	case "price_asc":
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].FinalPriceETB < ps[j].FinalPriceETB })
	case "price_desc":
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].FinalPriceETB > ps[j].FinalPriceETB })
	case "name":
		sort.SliceStable(ps, func(i, j int) bool {
			return strings.ToLower(ps[i].Name) < strings.ToLower(ps[j].Name)
		})
	}
}
