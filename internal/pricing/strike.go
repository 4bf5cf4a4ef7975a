package pricing

import (
	"fmt"
	"math"
)

// StrikeFromDelta inverts the delta of a European option: it returns the
// strike whose delta is delta at spot S. Call deltas must lie in (0, 1)
// and put deltas in (-1, 0).
func StrikeFromDelta(t OptionType, S, delta, r, T, sigma float64) (float64, error) {
	if S <= 0 || T <= 0 || sigma <= 0 {
		return 0, fmt.Errorf("strike from delta needs positive spot, expiry and volatility")
	}

	p := delta
	switch t {
	case Call:
		if delta <= 0 || delta >= 1 {
			return 0, fmt.Errorf("call delta must be in (0, 1), got %g", delta)
		}
	case Put:
		if delta <= -1 || delta >= 0 {
			return 0, fmt.Errorf("put delta must be in (-1, 0), got %g", delta)
		}
		p = delta + 1
	default:
		return 0, fmt.Errorf("unknown option type %q", t)
	}

	d1 := stdNormal.Quantile(p)
	sqrtT := math.Sqrt(T)
	return S * math.Exp(-d1*sigma*sqrtT+(r+0.5*sigma*sigma)*T), nil
}
