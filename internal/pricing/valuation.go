package pricing

import "math"

// Moneyness classifies spot against strike.
type Moneyness string

const (
	ITM Moneyness = "ITM"
	ATM Moneyness = "ATM"
	OTM Moneyness = "OTM"
)

// atmBand is the relative distance of S/K from 1 still treated as at-the-money.
const atmBand = 0.02

// ClassifyMoneyness returns ATM when S/K is within 2% of 1, ITM for calls
// above the band or puts below it, and OTM otherwise.
func ClassifyMoneyness(t OptionType, S, K float64) Moneyness {
	ratio := S / K
	switch {
	case math.Abs(ratio-1) < atmBand:
		return ATM
	case t.IsCall() && ratio > 1+atmBand, !t.IsCall() && ratio < 1-atmBand:
		return ITM
	default:
		return OTM
	}
}

// Valuation splits a model price into intrinsic and time value.
type Valuation struct {
	Price          float64   `json:"option_price"`
	IntrinsicValue float64   `json:"intrinsic_value"`
	TimeValue      float64   `json:"time_value"`
	Moneyness      Moneyness `json:"moneyness"`
}

// Value prices the option and decomposes the result.
func Value(t OptionType, S, K, r, T, sigma float64) Valuation {
	price := Price(t, S, K, r, T, sigma)
	intrinsic := IntrinsicValue(t, S, K)
	return Valuation{
		Price:          price,
		IntrinsicValue: intrinsic,
		TimeValue:      price - intrinsic,
		Moneyness:      ClassifyMoneyness(t, S, K),
	}
}
