package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// fetchTimeout bounds every single provider call.
const fetchTimeout = 5 * time.Second

// Provider returns the current ETB-per-USD rate from one external API.
type Provider interface {
	Name() string
	Fetch(ctx context.Context) (float64, error)
}

// Frankfurter queries api.frankfurter.app, the first provider in priority
// order.
type Frankfurter struct {
	BaseURL string
	Client  *http.Client
}

func NewFrankfurter() *Frankfurter {
	return &Frankfurter{BaseURL: "https://api.frankfurter.app", Client: http.DefaultClient}
}

func (p *Frankfurter) Name() string { return "frankfurter" }

func (p *Frankfurter) Fetch(ctx context.Context) (float64, error) {
	var body struct {
		Rates map[string]float64 `json:"rates"`
	}
	url := p.BaseURL + "/latest?from=USD&to=ETB"
	if err := getJSON(ctx, p.Client, url, &body); err != nil {
		return 0, err
	}
	return rateFrom(body.Rates)
}

// ExchangeRateAPI queries api.exchangerate-api.com (v4), the fallback
// provider.
type ExchangeRateAPI struct {
	BaseURL string
	Client  *http.Client
}

func NewExchangeRateAPI() *ExchangeRateAPI {
	return &ExchangeRateAPI{BaseURL: "https://api.exchangerate-api.com", Client: http.DefaultClient}
}

func (p *ExchangeRateAPI) Name() string { return "exchangerate-api" }

func (p *ExchangeRateAPI) Fetch(ctx context.Context) (float64, error) {
	var body struct {
		Rates map[string]float64 `json:"rates"`
	}
	url := p.BaseURL + "/v4/latest/USD"
	if err := getJSON(ctx, p.Client, url, &body); err != nil {
		return 0, err
	}
	return rateFrom(body.Rates)
}

func getJSON(ctx context.Context, c *http.Client, url string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	if c == nil {
		c = http.DefaultClient
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func rateFrom(rates map[string]float64) (float64, error) {
	r, ok := rates["ETB"]
	if !ok || r <= 0 {
		return 0, fmt.Errorf("no usable ETB rate in response")
	}
	return r, nil
}
