package data

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/contactkeval/option-analytics/internal/pricing"
	"github.com/contactkeval/option-analytics/internal/surface"
)

// SyntheticParams shapes a generated chain.
type SyntheticParams struct {
	Spot         float64
	RiskFreeRate float64
	// BaseVol and Skew feed surface.SyntheticSmile.
	BaseVol float64
	Skew    float64
	// StrikeRatios are strikes as a fraction of spot.
	StrikeRatios []float64
	// StrikeInterval rounds generated strikes. Zero rounds to cents.
	StrikeInterval float64
	Expiries       []int
	// Noise is the standard deviation of a relative price perturbation.
	// Zero keeps model prices exact.
	Noise float64
	Seed  int64
}

// DefaultSyntheticParams is a 25% smile around a spot of 100.
func DefaultSyntheticParams() SyntheticParams {
	return SyntheticParams{
		Spot:           100,
		RiskFreeRate:   0.05,
		BaseVol:        0.25,
		Skew:           0.1,
		StrikeRatios:   []float64{0.8, 0.9, 1.0, 1.1, 1.2},
		StrikeInterval: 0.01,
		Expiries:       []int{30, 60, 90, 120},
	}
}

// synthSource generates quotes priced by the model under a synthetic smile.
type synthSource struct {
	params SyntheticParams
}

// NewSyntheticSource returns a Source that prices every strike and expiry
// in p with both a call and a put.
func NewSyntheticSource(p SyntheticParams) Source {
	if p.StrikeInterval <= 0 {
		p.StrikeInterval = 0.01
	}
	return &synthSource{params: p}
}

func (s *synthSource) Chain(underlying string) (surface.Chain, error) {
	p := s.params
	if p.Spot <= 0 {
		return surface.Chain{}, fmt.Errorf("synthetic spot must be positive, got %g", p.Spot)
	}

	var rng *rand.Rand
	if p.Noise > 0 {
		rng = rand.New(rand.NewSource(p.Seed))
	}

	chain := surface.Chain{
		Underlying:   strings.ToUpper(underlying),
		Spot:         p.Spot,
		RiskFreeRate: p.RiskFreeRate,
	}
	for _, ratio := range p.StrikeRatios {
		strike := RoundToStrike(p.Spot*ratio, p.StrikeInterval)
		sigma := surface.SyntheticSmile(p.BaseVol, p.Skew, strike/p.Spot)
		for _, days := range p.Expiries {
			T := pricing.YearsFromDays(float64(days))
			for _, typ := range []pricing.OptionType{pricing.Call, pricing.Put} {
				price := pricing.Price(typ, p.Spot, strike, p.RiskFreeRate, T, sigma)
				if rng != nil {
					price *= 1 + rng.NormFloat64()*p.Noise
				}
				chain.Quotes = append(chain.Quotes, surface.Quote{
					Strike: strike,
					Days:   days,
					Type:   typ,
					Price:  price,
				})
			}
		}
	}
	return chain, nil
}
