// Package analytics is the numeric boundary of the engine. It accepts
// decimal inputs, validates them, converts to float64 for the pricing
// model and solver, and rounds the outputs back into decimals.
package analytics

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/contactkeval/option-analytics/internal/impliedvol"
	"github.com/contactkeval/option-analytics/internal/logger"
	"github.com/contactkeval/option-analytics/internal/pricing"
)

// Decimal places kept on the way out.
const (
	PricePlaces       = 4
	SensitivityPlaces = 6
)

// CalculationMethod describes how implied volatility is searched for.
const CalculationMethod = "Newton-Raphson with bisection fallback"

// ErrInvalidRequest wraps every request validation failure.
var ErrInvalidRequest = errors.New("invalid request")

// Valuation is the rounded result of Service.Price.
type Valuation struct {
	OptionPrice    decimal.Decimal   `json:"option_price"`
	IntrinsicValue decimal.Decimal   `json:"intrinsic_value"`
	TimeValue      decimal.Decimal   `json:"time_value"`
	Moneyness      pricing.Moneyness `json:"moneyness"`
}

// GreeksResult is the rounded result of Service.Greeks.
type GreeksResult struct {
	Delta       decimal.Decimal `json:"delta"`
	Gamma       decimal.Decimal `json:"gamma"`
	Theta       decimal.Decimal `json:"theta"`
	Vega        decimal.Decimal `json:"vega"`
	Rho         decimal.Decimal `json:"rho"`
	OptionPrice decimal.Decimal `json:"option_price"`
}

// ImpliedVolatilityResult is the rounded result of Service.ImpliedVolatility.
type ImpliedVolatilityResult struct {
	ImpliedVolatility     decimal.Decimal   `json:"implied_volatility"`
	ConvergenceIterations int               `json:"convergence_iterations"`
	Method                impliedvol.Method `json:"method"`
	CalculationMethod     string            `json:"calculation_method"`
}

// Service prices options and solves for implied volatility.
type Service struct {
	solver *impliedvol.Solver
}

// NewService returns a Service backed by solver. A nil solver means the
// default configuration.
func NewService(solver *impliedvol.Solver) *Service {
	if solver == nil {
		solver = impliedvol.NewSolver(impliedvol.DefaultConfig())
	}
	return &Service{solver: solver}
}

// Price values the option at the requested volatility.
func (s *Service) Price(req PricingRequest) (*Valuation, error) {
	req.normalize()
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	in := req.inputs()
	v := pricing.Value(in.typ, in.S, in.K, in.r, in.T, req.Volatility.InexactFloat64())
	logger.Debugf("priced %s S=%g K=%g T=%.4f price=%.6f", in.typ, in.S, in.K, in.T, v.Price)

	return &Valuation{
		OptionPrice:    round(v.Price, PricePlaces),
		IntrinsicValue: round(v.IntrinsicValue, PricePlaces),
		TimeValue:      round(v.TimeValue, PricePlaces),
		Moneyness:      v.Moneyness,
	}, nil
}

// Greeks returns all sensitivities together with the option price.
func (s *Service) Greeks(req PricingRequest) (*GreeksResult, error) {
	req.normalize()
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	in := req.inputs()
	sigma := req.Volatility.InexactFloat64()
	g := pricing.ComputeGreeks(in.typ, in.S, in.K, in.r, in.T, sigma)
	price := pricing.Price(in.typ, in.S, in.K, in.r, in.T, sigma)

	return &GreeksResult{
		Delta:       round(g.Delta, SensitivityPlaces),
		Gamma:       round(g.Gamma, SensitivityPlaces),
		Theta:       round(g.Theta, SensitivityPlaces),
		Vega:        round(g.Vega, SensitivityPlaces),
		Rho:         round(g.Rho, SensitivityPlaces),
		OptionPrice: round(price, PricePlaces),
	}, nil
}

// ImpliedVolatility solves for the volatility implied by req.OptionPrice.
// A query without a solution returns an error matching
// impliedvol.ErrNoSolution.
func (s *Service) ImpliedVolatility(req ImpliedVolatilityRequest) (*ImpliedVolatilityResult, error) {
	req.normalize()
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	in := req.inputs()
	res := s.solver.CalculateIV(req.OptionPrice.InexactFloat64(), in.S, in.K, in.r, in.T, in.typ)
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("implied volatility for %s K=%s: %w", in.typ, req.StrikePrice, err)
	}

	return &ImpliedVolatilityResult{
		ImpliedVolatility:     round(res.Volatility, SensitivityPlaces),
		ConvergenceIterations: res.Iterations,
		Method:                res.Method,
		CalculationMethod:     CalculationMethod,
	}, nil
}

// StrikeResult is the rounded result of Service.StrikeForDelta.
type StrikeResult struct {
	StrikePrice decimal.Decimal `json:"strike_price"`
	Delta       decimal.Decimal `json:"delta"`
}

// StrikeForDelta returns the strike whose delta matches req.Delta. The
// returned Delta is recomputed at the rounded strike.
func (s *Service) StrikeForDelta(req StrikeRequest) (*StrikeResult, error) {
	req.OptionType = strings.ToUpper(strings.TrimSpace(req.OptionType))
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	typ := pricing.OptionType(req.OptionType)
	S := req.UnderlyingPrice.InexactFloat64()
	r := req.RiskFreeRate.InexactFloat64()
	T := pricing.YearsFromDays(float64(req.DaysToExpiry))
	sigma := req.Volatility.InexactFloat64()

	K, err := pricing.StrikeFromDelta(typ, S, req.Delta.InexactFloat64(), r, T, sigma)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	strike := round(K, PricePlaces)

	return &StrikeResult{
		StrikePrice: strike,
		Delta:       round(pricing.Delta(typ, S, strike.InexactFloat64(), r, T, sigma), SensitivityPlaces),
	}, nil
}

func round(x float64, places int32) decimal.Decimal {
	return decimal.NewFromFloat(x).Round(places)
}
