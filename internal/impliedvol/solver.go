// Package impliedvol recovers Black-Scholes implied volatility from an
// observed option price.
//
// The solver runs Newton-Raphson on vega first and falls back to bisection
// over a fixed volatility bracket when Newton stalls or runs out of
// iterations. Every query resolves to a Result; numerical trouble never
// escapes as a panic.
package impliedvol

import (
	"math"

	"github.com/contactkeval/option-analytics/internal/logger"
	"github.com/contactkeval/option-analytics/internal/pricing"
)

const (
	DefaultMaxIterations = 100
	DefaultTolerance     = 1e-6
	DefaultInitialGuess  = 0.20
	DefaultMinVolatility = 0.001
	DefaultMaxVolatility = 5.0
	DefaultVegaFloor     = 1e-10
)

// Config is fixed at construction. Zero fields take the defaults above.
type Config struct {
	// MaxIterations caps the Newton-Raphson rounds.
	MaxIterations int `mapstructure:"max_iterations"`
	// BisectionMaxIterations caps the bisection fallback. It is separate so
	// that a tight Newton budget does not starve the fallback.
	BisectionMaxIterations int `mapstructure:"bisection_max_iterations"`
	// Tolerance is the accepted absolute price error.
	Tolerance    float64 `mapstructure:"tolerance"`
	InitialGuess float64 `mapstructure:"initial_guess"`
	// MinVolatility and MaxVolatility bound the search; Newton iterates are
	// clamped into (0, MaxVolatility] and bisection brackets exactly this range.
	MinVolatility float64 `mapstructure:"min_volatility"`
	MaxVolatility float64 `mapstructure:"max_volatility"`
	// VegaFloor is the vega below which a Newton step is not trusted.
	VegaFloor float64 `mapstructure:"vega_floor"`
}

// DefaultConfig returns the stock solver settings.
func DefaultConfig() Config {
	return Config{
		MaxIterations:          DefaultMaxIterations,
		BisectionMaxIterations: DefaultMaxIterations,
		Tolerance:              DefaultTolerance,
		InitialGuess:           DefaultInitialGuess,
		MinVolatility:          DefaultMinVolatility,
		MaxVolatility:          DefaultMaxVolatility,
		VegaFloor:              DefaultVegaFloor,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.BisectionMaxIterations <= 0 {
		c.BisectionMaxIterations = d.BisectionMaxIterations
	}
	if c.Tolerance <= 0 {
		c.Tolerance = d.Tolerance
	}
	if c.MinVolatility <= 0 {
		c.MinVolatility = d.MinVolatility
	}
	if c.MaxVolatility <= c.MinVolatility {
		c.MaxVolatility = math.Max(d.MaxVolatility, c.MinVolatility*2)
	}
	if c.InitialGuess <= 0 || c.InitialGuess > c.MaxVolatility {
		c.InitialGuess = math.Min(d.InitialGuess, c.MaxVolatility)
	}
	if c.VegaFloor <= 0 {
		c.VegaFloor = d.VegaFloor
	}
	return c
}

// Solver inverts the pricing model. It holds only read-only configuration
// and is safe for concurrent use.
type Solver struct {
	cfg Config
}

// NewSolver builds a Solver from cfg, filling unset fields with defaults.
func NewSolver(cfg Config) *Solver {
	return &Solver{cfg: cfg.withDefaults()}
}

// Config returns the effective configuration.
func (s *Solver) Config() Config {
	return s.cfg
}

// CalculateIV finds the volatility at which the Black-Scholes price of the
// option equals optionPrice.
//
// Parameters:
//   - optionPrice: observed market price
//   - S, K: spot and strike
//   - r: risk-free rate
//   - T: time to expiry in years
//   - t: CALL or PUT
func (s *Solver) CalculateIV(optionPrice, S, K, r, T float64, t pricing.OptionType) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			logger.Errorf("implied vol panic recovered: %v (price=%g S=%g K=%g r=%g T=%g)", p, optionPrice, S, K, r, T)
			res = noSolution(ReasonNumericalFault, res.Iterations)
		}
	}()

	if reason, ok := s.checkQuery(optionPrice, S, K, r, T, t); !ok {
		return noSolution(reason, 0)
	}

	res = newton(s.cfg, optionPrice, S, K, r, T, t)
	if res.Converged() {
		logger.Debugf("iv converged method=newton iterations=%d iv=%.6f", res.Iterations, res.Volatility)
		return res
	}

	logger.Infof("falling back to bisection after %d newton iterations", res.Iterations)
	res = bisection(s.cfg, optionPrice, S, K, r, T, t)
	if res.Converged() {
		logger.Debugf("iv converged method=bisection iterations=%d iv=%.6f", res.Iterations, res.Volatility)
	}
	return res
}

// checkQuery applies the domain preconditions. A false result carries the
// reason the query has no solution.
func (s *Solver) checkQuery(optionPrice, S, K, r, T float64, t pricing.OptionType) (Reason, bool) {
	if !finite(optionPrice, S, K, r, T) || (t != pricing.Call && t != pricing.Put) {
		logger.Warnf("invalid iv inputs price=%g S=%g K=%g r=%g T=%g type=%q", optionPrice, S, K, r, T, t)
		return ReasonInvalidInput, false
	}
	if T <= 0 {
		logger.Warnf("cannot calculate iv for expired option T=%g", T)
		return ReasonExpired, false
	}
	if optionPrice <= 0 {
		logger.Warnf("option price must be positive price=%g", optionPrice)
		return ReasonNonPositivePrice, false
	}
	if S <= 0 || K <= 0 {
		logger.Warnf("spot and strike must be positive S=%g K=%g", S, K)
		return ReasonInvalidInput, false
	}
	if intrinsic := pricing.DiscountedIntrinsic(t, S, K, r, T); optionPrice < intrinsic {
		logger.Warnf("%s price below intrinsic value price=%g intrinsic=%g", t, optionPrice, intrinsic)
		return ReasonBelowIntrinsic, false
	}
	return "", true
}

// newton runs Newton-Raphson from cfg.InitialGuess. A NoSolution result
// means the caller should fall back; its Iterations is the rounds spent.
func newton(cfg Config, target, S, K, r, T float64, t pricing.OptionType) Result {
	sigma := cfg.InitialGuess

	for i := 0; i < cfg.MaxIterations; i++ {
		price := pricing.Price(t, S, K, r, T, sigma)
		vega := pricing.Vega(S, K, r, T, sigma)

		diff := price - target
		logger.Tracef("newton i=%d sigma=%.8f price=%.8f diff=%.3g vega=%.6g", i+1, sigma, price, diff, vega)

		if !finite(price, vega) {
			logger.Warnf("newton produced non-finite price/vega at sigma=%g", sigma)
			return noSolution(ReasonNumericalFault, i+1)
		}
		if math.Abs(diff) < cfg.Tolerance {
			return converged(sigma, i+1, MethodNewton)
		}
		if vega < cfg.VegaFloor {
			logger.Warnf("vega too small (%.3g) at sigma=%g, switching to bisection", vega, sigma)
			return noSolution(ReasonNotConverged, i+1)
		}

		sigma -= diff / vega

		// Guardrails
		if sigma <= 0 {
			sigma = cfg.MinVolatility
		} else if sigma > cfg.MaxVolatility {
			sigma = cfg.MaxVolatility
		}
	}

	logger.Warnf("newton-raphson did not converge in %d iterations", cfg.MaxIterations)
	return noSolution(ReasonNotConverged, cfg.MaxIterations)
}

// bisection searches [cfg.MinVolatility, cfg.MaxVolatility]. It relies on
// price being strictly increasing in volatility.
func bisection(cfg Config, target, S, K, r, T float64, t pricing.OptionType) Result {
	low, high := cfg.MinVolatility, cfg.MaxVolatility

	priceLow := pricing.Price(t, S, K, r, T, low)
	priceHigh := pricing.Price(t, S, K, r, T, high)
	if !finite(priceLow, priceHigh) {
		logger.Warnf("non-finite bracket prices low=%g high=%g", priceLow, priceHigh)
		return noSolution(ReasonNumericalFault, 0)
	}

	if target < priceLow || target > priceHigh {
		logger.Warnf("option price %g outside bracket [%g, %g]", target, priceLow, priceHigh)
		return noSolution(ReasonOutOfBounds, 0)
	}

	for i := 0; i < cfg.BisectionMaxIterations; i++ {
		mid := (low + high) / 2
		price := pricing.Price(t, S, K, r, T, mid)
		logger.Tracef("bisection i=%d sigma=%.8f price=%.8f", i+1, mid, price)

		if math.Abs(price-target) < cfg.Tolerance {
			return converged(mid, i+1, MethodBisection)
		}

		if price < target {
			low = mid
		} else {
			high = mid
		}
	}

	logger.Errorf("bisection did not converge in %d iterations", cfg.BisectionMaxIterations)
	return noSolution(ReasonNotConverged, cfg.BisectionMaxIterations)
}

func finite(xs ...float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

var defaultSolver = NewSolver(DefaultConfig())

// ImpliedVolatility solves with the default configuration.
func ImpliedVolatility(t pricing.OptionType, optionPrice, S, K, r, T float64) Result {
	return defaultSolver.CalculateIV(optionPrice, S, K, r, T, t)
}
