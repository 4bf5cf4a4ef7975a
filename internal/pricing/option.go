package pricing

import (
	"fmt"
	"math"
	"strings"
)

// OptionType is either CALL or PUT.
type OptionType string

const (
	Call OptionType = "CALL"
	Put  OptionType = "PUT"
)

// ParseOptionType accepts "call"/"put" in any case, and the "c"/"p" shorthands.
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CALL", "C":
		return Call, nil
	case "PUT", "P":
		return Put, nil
	}
	return "", fmt.Errorf("unknown option type %q", s)
}

// IsCall reports whether t is a call.
func (t OptionType) IsCall() bool { return t == Call }

// Greeks holds the first and second order sensitivities of an option.
// Theta is per calendar day; vega and rho are per unit change.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	Rho   float64 `json:"rho"`
}

// Price dispatches to CallPrice or PutPrice.
func Price(t OptionType, S, K, r, T, sigma float64) float64 {
	if t.IsCall() {
		return CallPrice(S, K, r, T, sigma)
	}
	return PutPrice(S, K, r, T, sigma)
}

// Delta dispatches to DeltaCall or DeltaPut.
func Delta(t OptionType, S, K, r, T, sigma float64) float64 {
	if t.IsCall() {
		return DeltaCall(S, K, r, T, sigma)
	}
	return DeltaPut(S, K, r, T, sigma)
}

// Theta dispatches to ThetaCall or ThetaPut.
func Theta(t OptionType, S, K, r, T, sigma float64) float64 {
	if t.IsCall() {
		return ThetaCall(S, K, r, T, sigma)
	}
	return ThetaPut(S, K, r, T, sigma)
}

// Rho dispatches to RhoCall or RhoPut.
func Rho(t OptionType, S, K, r, T, sigma float64) float64 {
	if t.IsCall() {
		return RhoCall(S, K, r, T, sigma)
	}
	return RhoPut(S, K, r, T, sigma)
}

// ComputeGreeks evaluates all Greeks for the given option.
func ComputeGreeks(t OptionType, S, K, r, T, sigma float64) Greeks {
	return Greeks{
		Delta: Delta(t, S, K, r, T, sigma),
		Gamma: Gamma(S, K, r, T, sigma),
		Theta: Theta(t, S, K, r, T, sigma),
		Vega:  Vega(S, K, r, T, sigma),
		Rho:   Rho(t, S, K, r, T, sigma),
	}
}

// IntrinsicValue is the payoff if exercised now: max(0, S-K) for calls,
// max(0, K-S) for puts.
func IntrinsicValue(t OptionType, S, K float64) float64 {
	if t.IsCall() {
		return math.Max(0, S-K)
	}
	return math.Max(0, K-S)
}

// DiscountedIntrinsic is the zero-volatility price floor used for arbitrage
// checks: max(0, S-K*e^{-rT}) for calls, max(0, K*e^{-rT}-S) for puts.
func DiscountedIntrinsic(t OptionType, S, K, r, T float64) float64 {
	pvK := K * math.Exp(-r*T)
	if t.IsCall() {
		return math.Max(0, S-pvK)
	}
	return math.Max(0, pvK-S)
}

// YearsFromDays converts calendar days to years.
func YearsFromDays(days float64) float64 {
	return days / DaysPerYear
}
