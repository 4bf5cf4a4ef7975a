package surface

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/option-analytics/internal/impliedvol"
	"github.com/contactkeval/option-analytics/internal/metrics"
	"github.com/contactkeval/option-analytics/internal/pricing"
)

const (
	spot = 100.0
	rate = 0.05
)

func smileChain() Chain {
	c := Chain{Underlying: "CL", Spot: spot, RiskFreeRate: rate}
	for _, days := range []int{60, 30} {
		for _, k := range []float64{120, 80, 100, 90, 110} {
			for _, typ := range []pricing.OptionType{pricing.Put, pricing.Call} {
				sigma := SyntheticSmile(0.25, 0.1, k/spot)
				price := pricing.Price(typ, spot, k, rate, pricing.YearsFromDays(float64(days)), sigma)
				c.Quotes = append(c.Quotes, Quote{Strike: k, Days: days, Type: typ, Price: price})
			}
		}
	}
	return c
}

func TestBuildRecoversSmile(t *testing.T) {
	chain := smileChain()

	s, err := Build(context.Background(), impliedvol.NewSolver(impliedvol.DefaultConfig()), chain, Options{Workers: 3})
	require.NoError(t, err)
	require.Len(t, s.Points, len(chain.Quotes))
	assert.Equal(t, len(chain.Quotes), s.ConvergedCount())

	for i, p := range s.Points {
		assert.Equal(t, chain.Quotes[i], p.Quote, "point %d out of order", i)
		assert.InDelta(t, SyntheticSmile(0.25, 0.1, p.Strike/spot), p.Volatility, 1e-4)
		assert.InDelta(t, p.Strike/spot, p.Moneyness, 1e-12)
	}
}

func TestBuildKeepsFailedPoints(t *testing.T) {
	chain := Chain{
		Underlying:   "NG",
		Spot:         spot,
		RiskFreeRate: rate,
		Quotes: []Quote{
			{Strike: 100, Days: 90, Type: pricing.Call, Price: pricing.CallPrice(spot, 100, rate, pricing.YearsFromDays(90), 0.3)},
			{Strike: 80, Days: 90, Type: pricing.Call, Price: 5},
			{Strike: 100, Days: 0, Type: pricing.Put, Price: 2},
			{Strike: 100, Days: 90, Type: pricing.Put, Price: 0},
		},
	}

	m := metrics.New()
	s, err := Build(context.Background(), nil, chain, Options{Metrics: m})
	require.NoError(t, err)
	require.Len(t, s.Points, 4)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SolvesTotal.WithLabelValues("converged", "newton")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SolvesTotal.WithLabelValues("no_solution", "expired")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.BuildDuration))

	assert.True(t, s.Points[0].Converged())
	assert.InDelta(t, 0.3, s.Points[0].Volatility, 1e-4)

	assert.Equal(t, impliedvol.ReasonBelowIntrinsic, s.Points[1].Reason)
	assert.Equal(t, impliedvol.ReasonExpired, s.Points[2].Reason)
	assert.Equal(t, impliedvol.ReasonNonPositivePrice, s.Points[3].Reason)
	for _, p := range s.Points[1:] {
		assert.Equal(t, impliedvol.NoSolution, p.Status)
		assert.Zero(t, p.Volatility)
	}
	assert.Equal(t, 1, s.ConvergedCount())
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Build(ctx, nil, smileChain(), Options{Workers: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestBuildEmptyChain(t *testing.T) {
	s, err := Build(context.Background(), nil, Chain{Underlying: "ZC", Spot: spot}, Options{})
	require.NoError(t, err)
	assert.Empty(t, s.Points)
	assert.Empty(t, s.Expiries())
}

func TestSmileOrdering(t *testing.T) {
	s, err := Build(context.Background(), nil, smileChain(), Options{})
	require.NoError(t, err)

	assert.Equal(t, []int{30, 60}, s.Expiries())

	smile := s.Smile(30)
	require.Len(t, smile, 10)
	for i := 1; i < len(smile); i++ {
		assert.LessOrEqual(t, smile[i-1].Strike, smile[i].Strike)
	}
	assert.Equal(t, pricing.Call, smile[0].Type)
	assert.Equal(t, pricing.Put, smile[1].Type)

	assert.Empty(t, s.Smile(45))
}

func TestAverageIV(t *testing.T) {
	s, err := Build(context.Background(), nil, smileChain(), Options{})
	require.NoError(t, err)

	avg := s.AverageIV(60)
	require.Len(t, avg, 5)
	for i, sp := range avg {
		assert.Equal(t, []float64{80, 90, 100, 110, 120}[i], sp.Strike)
		assert.Equal(t, 2, sp.Samples)
		assert.Equal(t, 60, sp.Days)
		assert.InDelta(t, SyntheticSmile(0.25, 0.1, sp.Moneyness), sp.Volatility, 1e-4)
	}

	// the wings sit above the money
	assert.Greater(t, avg[0].Volatility, avg[2].Volatility)
	assert.Greater(t, avg[4].Volatility, avg[2].Volatility)
}

func TestSyntheticSmile(t *testing.T) {
	assert.Equal(t, 0.25, SyntheticSmile(0.25, 0.1, 1))
	assert.InDelta(t, 0.25+0.1*0.0894427191, SyntheticSmile(0.25, 0.1, 0.8), 1e-9)
	assert.InDelta(t, SyntheticSmile(0.25, 0.1, 0.8), SyntheticSmile(0.25, 0.1, 1.2), 1e-12)
}
