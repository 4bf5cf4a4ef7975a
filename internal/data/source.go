// Package data supplies option chains to the surface builder.
package data

import (
	"errors"
	"math"

	"github.com/contactkeval/option-analytics/internal/surface"
)

// Source supplies the option chain for an underlying.
type Source interface {
	Chain(underlying string) (surface.Chain, error)
}

// ErrUnknownUnderlying is returned when a source has no quotes for the
// requested underlying.
var ErrUnknownUnderlying = errors.New("no quotes for underlying")

// RoundToStrike rounds v to the nearest multiple of interval. A
// non-positive interval leaves v unchanged.
func RoundToStrike(v, interval float64) float64 {
	if interval <= 0 {
		return v
	}
	return math.Round(v/interval) * interval
}
