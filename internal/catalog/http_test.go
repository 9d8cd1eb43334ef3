package catalog_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bekeleetsub857-cloud/etsub-shop/internal/catalog"
	"github.com/bekeleetsub857-cloud/etsub-shop/internal/kvstore"
	"github.com/bekeleetsub857-cloud/etsub-shop/internal/links"
)

func newShopTS(t *testing.T) *httptest.Server {
	t.Helper()

	store := catalog.NewKVStore(kvstore.NewMemStore(), zap.NewNop())
	s := &catalog.Server{
		Store: store,
		Log:   zap.NewNop(),
		Contacts: links.Contacts{
			WhatsAppPhone:  "251992011629",
			TelegramHandle: "EtsubOnline",
		},
		Rate: func() float64 { return 154 },
	}

	r := chi.NewRouter()
	r.Route("/admin", func(ar chi.Router) { s.RegisterAdmin(ar) })
	r.Mount("/", s.Routes())

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

func createProduct(t *testing.T, ts *httptest.Server, body map[string]any) catalog.Product {
	t.Helper()

	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/admin/products", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status %d body %s", resp.StatusCode, raw)
	}
	var p catalog.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		t.Fatalf("decode product: %v", err)
	}
	return p
}

func TestCreateComputesDerivedFields(t *testing.T) {
	ts := newShopTS(t)

	p := createProduct(t, ts, map[string]any{
		"name":            "Summer Dress",
		"source_cost_usd": 15.5,
		"agent_fee_etb":   500,
		"margin_etb":      300,
	})

	if p.ID == "" || p.CreatedAt.IsZero() {
		t.Errorf("missing id/created_at: %+v", p)
	}
	if p.ConvertedCostETB != 2387 {
		t.Errorf("converted = %v, want 2387", p.ConvertedCostETB)
	}
	if p.FinalPriceETB != 800 {
		t.Errorf("final = %v, want 800", p.FinalPriceETB)
	}
	if p.Status != catalog.StatusInStock {
		t.Errorf("default status = %q", p.Status)
	}
}

func TestCreateRejectsEmptyName(t *testing.T) {
	ts := newShopTS(t)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/admin/products", map[string]any{
		"name": "   ",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	// no partial record
	resp, raw := doJSON(t, http.MethodGet, ts.URL+"/products", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: status %d", resp.StatusCode)
	}
	var ps []catalog.Product
	if err := json.Unmarshal(raw, &ps); err != nil {
		t.Fatal(err)
	}
	if len(ps) != 0 {
		t.Errorf("catalog not empty after rejected create: %d records", len(ps))
	}
}

func TestClientSentDerivedFieldsIgnored(t *testing.T) {
	ts := newShopTS(t)

	p := createProduct(t, ts, map[string]any{
		"name":               "Skirt",
		"source_cost_usd":    10,
		"agent_fee_etb":      100,
		"margin_etb":         50,
		"converted_cost_etb": 999999,
		"final_price_etb":    999999,
	})
	if p.ConvertedCostETB != 1540 || p.FinalPriceETB != 150 {
		t.Errorf("derived fields not recomputed: %+v", p)
	}
}

func TestUpdatePreservesIDAndCreatedAt(t *testing.T) {
	ts := newShopTS(t)

	p := createProduct(t, ts, map[string]any{"name": "Top", "status": "in_stock"})

	resp, raw := doJSON(t, http.MethodPut, ts.URL+"/admin/products/"+p.ID, map[string]any{
		"name":   "Crop Top",
		"status": "sold",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: status %d body %s", resp.StatusCode, raw)
	}
	var got catalog.Product
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != p.ID || !got.CreatedAt.Equal(p.CreatedAt) {
		t.Errorf("id/created_at changed on edit: %+v vs %+v", got, p)
	}
	if got.Name != "Crop Top" || got.Status != catalog.StatusSold {
		t.Errorf("edit not applied: %+v", got)
	}
}

func TestUpdateUnknownProduct(t *testing.T) {
	ts := newShopTS(t)

	resp, _ := doJSON(t, http.MethodPut, ts.URL+"/admin/products/p_missing", map[string]any{"name": "x"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestDeleteProduct(t *testing.T) {
	ts := newShopTS(t)
	p := createProduct(t, ts, map[string]any{"name": "Top"})

	resp, _ := doJSON(t, http.MethodDelete, ts.URL+"/admin/products/"+p.ID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: status %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/products/"+p.ID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("deleted product still served: status %d", resp.StatusCode)
	}
}

func TestListFiltersAndSearch(t *testing.T) {
	ts := newShopTS(t)

	createProduct(t, ts, map[string]any{"name": "Red Dress", "category": "Dress", "status": "in_stock"})
	createProduct(t, ts, map[string]any{"name": "Black Skirt", "category": "Skirt", "status": "sold"})
	createProduct(t, ts, map[string]any{"name": "Blue Dress", "category": "Dress", "status": "on_order"})

	cases := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"?category=dress", 2},
		{"?status=sold", 1},
		{"?q=blue", 1},
		{"?q=skirt", 1}, // matches name and category
		{"?category=dress&status=in_stock", 1},
		{"?q=nothing-here", 0},
	}
	for _, tc := range cases {
		resp, raw := doJSON(t, http.MethodGet, ts.URL+"/products"+tc.query, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%q: status %d", tc.query, resp.StatusCode)
		}
		var ps []catalog.Product
		if err := json.Unmarshal(raw, &ps); err != nil {
			t.Fatal(err)
		}
		if len(ps) != tc.want {
			t.Errorf("%q: got %d products, want %d", tc.query, len(ps), tc.want)
		}
	}
}

func TestListSortByPrice(t *testing.T) {
	ts := newShopTS(t)

	createProduct(t, ts, map[string]any{"name": "Mid", "agent_fee_etb": 300, "margin_etb": 200})
	createProduct(t, ts, map[string]any{"name": "Cheap", "agent_fee_etb": 100, "margin_etb": 50})
	createProduct(t, ts, map[string]any{"name": "Pricey", "agent_fee_etb": 900, "margin_etb": 100})

	_, raw := doJSON(t, http.MethodGet, ts.URL+"/products?sort=price_asc", nil)
	var ps []catalog.Product
	if err := json.Unmarshal(raw, &ps); err != nil {
		t.Fatal(err)
	}
	if len(ps) != 3 || ps[0].Name != "Cheap" || ps[2].Name != "Pricey" {
		t.Errorf("unexpected price_asc order: %v", names(ps))
	}
}

func TestStats(t *testing.T) {
	ts := newShopTS(t)

	createProduct(t, ts, map[string]any{"name": "a", "status": "in_stock", "agent_fee_etb": 500, "margin_etb": 300})
	createProduct(t, ts, map[string]any{"name": "b", "status": "sold", "agent_fee_etb": 100, "margin_etb": 100})
	createProduct(t, ts, map[string]any{"name": "c", "status": "on_order", "agent_fee_etb": 50, "margin_etb": 50})

	_, raw := doJSON(t, http.MethodGet, ts.URL+"/stats", nil)
	var got struct {
		Total           int     `json:"total"`
		InStock         int     `json:"in_stock"`
		OnOrder         int     `json:"on_order"`
		Sold            int     `json:"sold"`
		TotalValueETB   float64 `json:"total_value_etb"`
		InStockValueETB float64 `json:"in_stock_value_etb"`
	}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatal(err)
	}
	if got.Total != 3 || got.InStock != 1 || got.OnOrder != 1 || got.Sold != 1 {
		t.Errorf("counts: %+v", got)
	}
	if got.TotalValueETB != 1100 || got.InStockValueETB != 800 {
		t.Errorf("values: %+v", got)
	}
}

func TestOrderLinks(t *testing.T) {
	ts := newShopTS(t)
	p := createProduct(t, ts, map[string]any{"name": "Red Dress", "agent_fee_etb": 500, "margin_etb": 300})

	resp, raw := doJSON(t, http.MethodGet, ts.URL+"/products/"+p.ID+"/order-links", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var got struct {
		WhatsApp string `json:"whatsapp"`
		Telegram string `json:"telegram"`
	}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatal(err)
	}
	if got.WhatsApp == "" || got.Telegram == "" {
		t.Errorf("missing links: %+v", got)
	}
}

func TestExport(t *testing.T) {
	ts := newShopTS(t)
	createProduct(t, ts, map[string]any{"name": "a"})

	resp, raw := doJSON(t, http.MethodGet, ts.URL+"/admin/export", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd == "" {
		t.Error("missing Content-Disposition header")
	}
	var ps []catalog.Product
	if err := json.Unmarshal(raw, &ps); err != nil {
		t.Fatal(err)
	}
	if len(ps) != 1 {
		t.Errorf("export returned %d products", len(ps))
	}
}

func TestDeleteAll(t *testing.T) {
	ts := newShopTS(t)
	createProduct(t, ts, map[string]any{"name": "a"})
	createProduct(t, ts, map[string]any{"name": "b"})

	resp, _ := doJSON(t, http.MethodDelete, ts.URL+"/admin/products", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("wipe: status %d", resp.StatusCode)
	}
	_, raw := doJSON(t, http.MethodGet, ts.URL+"/products", nil)
	var ps []catalog.Product
	if err := json.Unmarshal(raw, &ps); err != nil {
		t.Fatal(err)
	}
	if len(ps) != 0 {
		t.Errorf("catalog not empty after wipe: %d", len(ps))
	}
}

func names(ps []catalog.Product) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}
