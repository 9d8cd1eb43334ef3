package catalog

import "math"

// Inputs are the three admin-entered amounts plus the active exchange rate.
type Inputs struct {
	SourceCostUSD float64
	Rate          float64
	AgentFeeETB   float64
	MarginETB     float64
}

// Derived holds the two computed monetary fields.
//
// ConvertedCostETB is informational only: the final price depends on the
// agent fee and the margin, never on the converted cost.
type Derived struct {
	ConvertedCostETB float64
	FinalPriceETB    float64
}

// Compute is the single place derived prices come from. Negative, NaN or
// infinite amounts coerce to 0, mirroring how free-form numeric input is
// taken. The converted cost is rounded to the nearest whole birr.
func Compute(in Inputs) Derived {
	usd := coerceAmount(in.SourceCostUSD)
	fee := coerceAmount(in.AgentFeeETB)
	margin := coerceAmount(in.MarginETB)

	rate := in.Rate
	if rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		rate = 0
	}

	return Derived{
		ConvertedCostETB: math.Round(usd * rate),
		FinalPriceETB:    fee + margin,
	}
}

func coerceAmount(v float64) float64 {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
