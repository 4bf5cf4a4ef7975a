// Package pricing implements the closed-form Black-Scholes model for European
// options together with its analytic Greeks.
//
// Every function is pure. Inputs follow the usual notation:
//   - S: spot price of the underlying
//   - K: strike price
//   - r: annualized risk-free rate
//   - T: time to expiry in years
//   - sigma: annualized volatility (as a decimal, 0.2 == 20%)
//
// When T <= 0 the functions return the expiry limit (intrinsic value for
// prices, step functions for delta, zero for the other Greeks). S and K are
// not validated here; callers reject non-positive values before pricing.
package pricing

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// DaysPerYear converts calendar days to the year fraction used for T and
// the per-day theta convention.
const DaysPerYear = 365.0

var stdNormal = distuv.UnitNormal

// normCDF is the standard normal cumulative distribution function.
func normCDF(x float64) float64 {
	return stdNormal.CDF(x)
}

// normPDF is the standard normal probability density function.
func normPDF(x float64) float64 {
	return stdNormal.Prob(x)
}

// D1D2 returns the d1 and d2 terms of the Black-Scholes formula.
// It requires T > 0 and sigma > 0.
func D1D2(S, K, r, T, sigma float64) (d1, d2 float64) {
	sqrtT := math.Sqrt(T)
	d1 = (math.Log(S/K) + (r+0.5*sigma*sigma)*T) / (sigma * sqrtT)
	d2 = d1 - sigma*sqrtT
	return d1, d2
}

// CallPrice calculates the price of a European call.
// If time to expiry is zero or negative, the intrinsic value max(0, S-K) is returned.
func CallPrice(S, K, r, T, sigma float64) float64 {
	if T <= 0 {
		return math.Max(0, S-K)
	}

	d1, d2 := D1D2(S, K, r, T, sigma)
	return S*normCDF(d1) - K*math.Exp(-r*T)*normCDF(d2)
}

// PutPrice calculates the price of a European put.
// If time to expiry is zero or negative, the intrinsic value max(0, K-S) is returned.
func PutPrice(S, K, r, T, sigma float64) float64 {
	if T <= 0 {
		return math.Max(0, K-S)
	}

	d1, d2 := D1D2(S, K, r, T, sigma)
	return K*math.Exp(-r*T)*normCDF(-d2) - S*normCDF(-d1)
}

// Vega is the derivative of the price with respect to volatility, per unit
// of volatility (not per 1%). It is identical for calls and puts.
func Vega(S, K, r, T, sigma float64) float64 {
	if T <= 0 {
		return 0
	}

	d1, _ := D1D2(S, K, r, T, sigma)
	return S * normPDF(d1) * math.Sqrt(T)
}

// DeltaCall returns N(d1). At expiry it is 1 when S > K, else 0.
func DeltaCall(S, K, r, T, sigma float64) float64 {
	if T <= 0 {
		if S > K {
			return 1
		}
		return 0
	}

	d1, _ := D1D2(S, K, r, T, sigma)
	return normCDF(d1)
}

// DeltaPut returns N(d1) - 1. At expiry it is -1 when S < K, else 0.
func DeltaPut(S, K, r, T, sigma float64) float64 {
	if T <= 0 {
		if S < K {
			return -1
		}
		return 0
	}

	d1, _ := D1D2(S, K, r, T, sigma)
	return normCDF(d1) - 1
}

// Gamma is the second derivative of the price with respect to S.
func Gamma(S, K, r, T, sigma float64) float64 {
	if T <= 0 {
		return 0
	}

	d1, _ := D1D2(S, K, r, T, sigma)
	return normPDF(d1) / (S * sigma * math.Sqrt(T))
}

// ThetaCall is the time decay of a call, per calendar day.
func ThetaCall(S, K, r, T, sigma float64) float64 {
	if T <= 0 {
		return 0
	}

	d1, d2 := D1D2(S, K, r, T, sigma)
	theta := -S*normPDF(d1)*sigma/(2*math.Sqrt(T)) - r*K*math.Exp(-r*T)*normCDF(d2)
	return theta / DaysPerYear
}

// ThetaPut is the time decay of a put, per calendar day.
func ThetaPut(S, K, r, T, sigma float64) float64 {
	if T <= 0 {
		return 0
	}

	d1, d2 := D1D2(S, K, r, T, sigma)
	theta := -S*normPDF(d1)*sigma/(2*math.Sqrt(T)) + r*K*math.Exp(-r*T)*normCDF(-d2)
	return theta / DaysPerYear
}

// RhoCall is the sensitivity of a call to the risk-free rate.
func RhoCall(S, K, r, T, sigma float64) float64 {
	if T <= 0 {
		return 0
	}

	_, d2 := D1D2(S, K, r, T, sigma)
	return K * T * math.Exp(-r*T) * normCDF(d2)
}

// RhoPut is the sensitivity of a put to the risk-free rate.
func RhoPut(S, K, r, T, sigma float64) float64 {
	if T <= 0 {
		return 0
	}

	_, d2 := D1D2(S, K, r, T, sigma)
	return -K * T * math.Exp(-r*T) * normCDF(-d2)
}
