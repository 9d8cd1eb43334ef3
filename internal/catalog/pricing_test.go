package catalog

import (
	"math"
	"testing"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name          string
		in            Inputs
		wantConverted float64
		wantFinal     float64
	}{
		{
			name:          "typical listing",
			in:            Inputs{SourceCostUSD: 15.5, Rate: 154, AgentFeeETB: 500, MarginETB: 300},
			wantConverted: 2387,
			wantFinal:     800,
		},
		{
			name:          "rounds to nearest birr",
			in:            Inputs{SourceCostUSD: 10.01, Rate: 154},
			wantConverted: 1542, // 1541.54
			wantFinal:     0,
		},
		{
			name:          "zero source cost leaves final price alone",
			in:            Inputs{SourceCostUSD: 0, Rate: 154, AgentFeeETB: 700, MarginETB: 250},
			wantConverted: 0,
			wantFinal:     950,
		},
		{
			name:          "negative amounts coerce to zero",
			in:            Inputs{SourceCostUSD: -5, Rate: 154, AgentFeeETB: -100, MarginETB: 300},
			wantConverted: 0,
			wantFinal:     300,
		},
		{
			name:          "NaN coerces to zero",
			in:            Inputs{SourceCostUSD: math.NaN(), Rate: 154, AgentFeeETB: math.NaN(), MarginETB: 40},
			wantConverted: 0,
			wantFinal:     40,
		},
		{
			name:          "infinite fee coerces to zero",
			in:            Inputs{SourceCostUSD: 2, Rate: 150, AgentFeeETB: math.Inf(1), MarginETB: 40},
			wantConverted: 300,
			wantFinal:     40,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.in)
			if got.ConvertedCostETB != tt.wantConverted {
				t.Errorf("converted = %v, want %v", got.ConvertedCostETB, tt.wantConverted)
			}
			if got.FinalPriceETB != tt.wantFinal {
				t.Errorf("final = %v, want %v", got.FinalPriceETB, tt.wantFinal)
			}
		})
	}
}

func TestFinalPriceIndependentOfSourceCost(t *testing.T) {
	base := Inputs{Rate: 154, AgentFeeETB: 500, MarginETB: 300}

	for _, usd := range []float64{0, 1, 15.5, 9999} {
		in := base
		in.SourceCostUSD = usd
		if got := Compute(in).FinalPriceETB; got != 800 {
			t.Errorf("usd=%v: final = %v, want 800", usd, got)
		}
	}
}

func TestReprice(t *testing.T) {
	p := Product{SourceCostUSD: 15.5, AgentFeeETB: 500, MarginETB: 300}
	p.Reprice(154)

	if p.ConvertedCostETB != 2387 {
		t.Errorf("converted = %v, want 2387", p.ConvertedCostETB)
	}
	if p.FinalPriceETB != 800 {
		t.Errorf("final = %v, want 800", p.FinalPriceETB)
	}

	// a rate change moves only the converted cost
	p.Reprice(200)
	if p.ConvertedCostETB != 3100 {
		t.Errorf("converted after rate change = %v, want 3100", p.ConvertedCostETB)
	}
	if p.FinalPriceETB != 800 {
		t.Errorf("final after rate change = %v, want 800", p.FinalPriceETB)
	}
}

func TestValidate(t *testing.T) {
	valid := Product{Name: "Summer Dress", Status: StatusInStock}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid product rejected: %v", err)
	}

	tests := []struct {
		name string
		p    Product
		want error
	}{
		{"empty name", Product{Name: "   ", Status: StatusInStock}, ErrNameRequired},
		{"bad status", Product{Name: "x", Status: "onhand"}, ErrBadStatus},
		{"too many images", Product{Name: "x", Status: StatusSold, Images: make([]string, 11)}, ErrTooManyMedia},
		{"too many videos", Product{Name: "x", Status: StatusSold, Videos: make([]string, 2)}, ErrTooManyMedia},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.p.Validate(); err != tt.want {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}
