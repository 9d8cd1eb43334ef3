package catalog

import (
	"errors"
	"strings"
	"time"
)

type Status string

const (
	StatusInStock Status = "in_stock"
	StatusOnOrder Status = "on_order"
	StatusSold    Status = "sold"
)

func (s Status) Valid() bool {
	switch s {
	case StatusInStock, StatusOnOrder, StatusSold:
		return true
	}
	return false
}

const (
	MaxImages = 10
	MaxVideos = 1
)

var (
	ErrNameRequired = errors.New("product name is required")
	ErrBadStatus    = errors.New("unknown product status")
	ErrTooManyMedia = errors.New("too many media attachments")
)

// Product is a catalog record. ConvertedCostETB and FinalPriceETB are derived
// and only ever written through Reprice; they are never accepted from input.
type Product struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	SourceCostUSD    float64   `json:"source_cost_usd"`
	ConvertedCostETB float64   `json:"converted_cost_etb"`
	AgentFeeETB      float64   `json:"agent_fee_etb"`
	MarginETB        float64   `json:"margin_etb"`
	FinalPriceETB    float64   `json:"final_price_etb"`
	Status           Status    `json:"status"`
	Category         string    `json:"category,omitempty"`
	Size             string    `json:"size,omitempty"`
	Color            string    `json:"color,omitempty"`
	Description      string    `json:"description,omitempty"`
	Images           []string  `json:"images"`
	Videos           []string  `json:"videos"`
	CreatedAt        time.Time `json:"created_at"`
}

// Validate checks the invariants an admin write must satisfy. Derived fields
// are not checked here since Reprice owns them.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrNameRequired
	}
	if !p.Status.Valid() {
		return ErrBadStatus
	}
	if len(p.Images) > MaxImages || len(p.Videos) > MaxVideos {
		return ErrTooManyMedia
	}
	return nil
}

// Reprice recomputes the derived monetary fields at the given rate.
func (p *Product) Reprice(rate float64) {
	d := Compute(Inputs{
		SourceCostUSD: p.SourceCostUSD,
		Rate:          rate,
		AgentFeeETB:   p.AgentFeeETB,
		MarginETB:     p.MarginETB,
	})
	p.SourceCostUSD = coerceAmount(p.SourceCostUSD)
	p.AgentFeeETB = coerceAmount(p.AgentFeeETB)
	p.MarginETB = coerceAmount(p.MarginETB)
	p.ConvertedCostETB = d.ConvertedCostETB
	p.FinalPriceETB = d.FinalPriceETB
}
