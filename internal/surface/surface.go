// Package surface solves implied volatility for a whole option chain and
// arranges the results by expiry and strike.
package surface

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/contactkeval/option-analytics/internal/impliedvol"
	"github.com/contactkeval/option-analytics/internal/logger"
	"github.com/contactkeval/option-analytics/internal/metrics"
	"github.com/contactkeval/option-analytics/internal/pricing"
)

// Quote is one observed option price.
type Quote struct {
	Strike float64            `json:"strike"`
	Days   int                `json:"days"`
	Type   pricing.OptionType `json:"type"`
	Price  float64            `json:"price"`
}

// Chain is every quote for one underlying at one spot price.
type Chain struct {
	Underlying   string  `json:"underlying"`
	Spot         float64 `json:"spot"`
	RiskFreeRate float64 `json:"risk_free_rate"`
	Quotes       []Quote `json:"quotes"`
}

// Point is a quote together with its solver outcome.
type Point struct {
	Quote
	Moneyness  float64           `json:"moneyness"`
	Status     impliedvol.Status `json:"status"`
	Volatility float64           `json:"iv,omitempty"`
	Iterations int               `json:"iterations"`
	Method     impliedvol.Method `json:"method,omitempty"`
	Reason     impliedvol.Reason `json:"reason,omitempty"`
}

// Converged reports whether the point has a volatility.
func (p Point) Converged() bool { return p.Status == impliedvol.Converged }

// Surface is the solved chain. Points keep the order of Chain.Quotes.
type Surface struct {
	Underlying   string  `json:"underlying"`
	Spot         float64 `json:"spot"`
	RiskFreeRate float64 `json:"risk_free_rate"`
	Points       []Point `json:"points"`
}

// Options tunes Build.
type Options struct {
	// Workers bounds concurrent solves. Zero means GOMAXPROCS.
	Workers int
	// Metrics, when set, records every solve and the build duration.
	Metrics *metrics.Metrics
}

// Build solves every quote in chain. A quote without a solution becomes a
// NoSolution point; only cancellation of ctx fails the whole build.
func Build(ctx context.Context, solver *impliedvol.Solver, chain Chain, opts Options) (*Surface, error) {
	if solver == nil {
		solver = impliedvol.NewSolver(impliedvol.DefaultConfig())
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	start := time.Now()
	points := make([]Point, len(chain.Quotes))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, q := range chain.Quotes {
		i, q := i, q
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			points[i] = solve(solver, chain, q, opts.Metrics)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build surface for %s: %w", chain.Underlying, err)
	}

	s := &Surface{
		Underlying:   chain.Underlying,
		Spot:         chain.Spot,
		RiskFreeRate: chain.RiskFreeRate,
		Points:       points,
	}
	opts.Metrics.ObserveBuild(time.Since(start).Seconds())
	logger.Infof("surface %s: %d of %d points converged", chain.Underlying, s.ConvergedCount(), len(points))
	return s, nil
}

func solve(solver *impliedvol.Solver, chain Chain, q Quote, m *metrics.Metrics) Point {
	T := pricing.YearsFromDays(float64(q.Days))
	res := solver.CalculateIV(q.Price, chain.Spot, q.Strike, chain.RiskFreeRate, T, q.Type)
	m.ObserveSolve(res)
	if !res.Converged() {
		logger.Debugf("no iv for %s %s K=%g days=%d: %s", chain.Underlying, q.Type, q.Strike, q.Days, res.Reason)
	}

	p := Point{
		Quote:      q,
		Status:     res.Status,
		Volatility: res.Volatility,
		Iterations: res.Iterations,
		Method:     res.Method,
		Reason:     res.Reason,
	}
	if chain.Spot > 0 {
		p.Moneyness = q.Strike / chain.Spot
	}
	return p
}

// ConvergedCount is the number of points with a volatility.
func (s *Surface) ConvergedCount() int {
	n := 0
	for _, p := range s.Points {
		if p.Converged() {
			n++
		}
	}
	return n
}

// Expiries lists the distinct days to expiry in ascending order.
func (s *Surface) Expiries() []int {
	seen := make(map[int]bool)
	var out []int
	for _, p := range s.Points {
		if !seen[p.Days] {
			seen[p.Days] = true
			out = append(out, p.Days)
		}
	}
	sort.Ints(out)
	return out
}

// Smile returns the converged points expiring in days, sorted by strike
// with calls ahead of puts at the same strike.
func (s *Surface) Smile(days int) []Point {
	var out []Point
	for _, p := range s.Points {
		if p.Days == days && p.Converged() {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Strike != out[j].Strike {
			return out[i].Strike < out[j].Strike
		}
		return out[i].Type.IsCall() && !out[j].Type.IsCall()
	})
	return out
}

// SmilePoint is the call/put averaged volatility at one strike.
type SmilePoint struct {
	Strike     float64 `json:"strike"`
	Days       int     `json:"days"`
	Moneyness  float64 `json:"moneyness"`
	Volatility float64 `json:"iv"`
	Samples    int     `json:"samples"`
}

// AverageIV averages the converged call and put volatility per strike for
// one expiry.
func (s *Surface) AverageIV(days int) []SmilePoint {
	var out []SmilePoint
	for _, p := range s.Smile(days) {
		n := len(out)
		if n > 0 && out[n-1].Strike == p.Strike {
			last := &out[n-1]
			last.Volatility = (last.Volatility*float64(last.Samples) + p.Volatility) / float64(last.Samples+1)
			last.Samples++
			continue
		}
		out = append(out, SmilePoint{
			Strike:     p.Strike,
			Days:       p.Days,
			Moneyness:  p.Moneyness,
			Volatility: p.Volatility,
			Samples:    1,
		})
	}
	return out
}

// SyntheticSmile is a symmetric smile around the money:
// base + skew*|m-1|^1.5 where m is strike over spot.
func SyntheticSmile(base, skew, moneyness float64) float64 {
	return base + skew*math.Pow(math.Abs(moneyness-1), 1.5)
}
