package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFrankfurterFetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/latest" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("to"); got != "ETB" {
			t.Errorf("to = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"amount":1.0,"base":"USD","rates":{"ETB":154.37}}`))
	}))
	defer ts.Close()

	p := &Frankfurter{BaseURL: ts.URL, Client: ts.Client()}
	rate, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if rate != 154.37 {
		t.Errorf("rate = %v, want 154.37", rate)
	}
}

func TestExchangeRateAPIFetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v4/latest/USD" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"base":"USD","rates":{"EUR":0.92,"ETB":155.1}}`))
	}))
	defer ts.Close()

	p := &ExchangeRateAPI{BaseURL: ts.URL, Client: ts.Client()}
	rate, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if rate != 155.1 {
		t.Errorf("rate = %v, want 155.1", rate)
	}
}

func TestProviderRejectsMissingOrBadRate(t *testing.T) {
	cases := map[string]string{
		"missing ETB":  `{"rates":{"EUR":0.92}}`,
		"non-positive": `{"rates":{"ETB":0}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer ts.Close()

			p := &Frankfurter{BaseURL: ts.URL, Client: ts.Client()}
			if _, err := p.Fetch(context.Background()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestProviderRejectsBadStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer ts.Close()

	p := &ExchangeRateAPI{BaseURL: ts.URL, Client: ts.Client()}
	if _, err := p.Fetch(context.Background()); err == nil {
		t.Error("expected error on 502")
	}
}
