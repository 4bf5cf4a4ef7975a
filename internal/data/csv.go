package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/contactkeval/option-analytics/internal/logger"
	"github.com/contactkeval/option-analytics/internal/pricing"
	"github.com/contactkeval/option-analytics/internal/surface"
)

// csvColumns is the required header of a quotes file.
var csvColumns = []string{"underlying", "spot", "strike", "days", "type", "price"}

// csvSource reads quotes from a CSV file.
type csvSource struct {
	path string
	rate float64
}

// NewCSVSource returns a Source reading path. Every chain it returns
// carries riskFreeRate.
func NewCSVSource(path string, riskFreeRate float64) Source {
	return &csvSource{path: path, rate: riskFreeRate}
}

func (s *csvSource) Chain(underlying string) (surface.Chain, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return surface.Chain{}, fmt.Errorf("open quotes file: %w", err)
	}
	defer f.Close()

	chain, err := ReadChain(f, underlying)
	if err != nil {
		return surface.Chain{}, fmt.Errorf("%s: %w", s.path, err)
	}
	chain.RiskFreeRate = s.rate
	return chain, nil
}

// ReadChain parses CSV quotes for underlying from r. Rows for other
// underlyings are skipped. The first matching row fixes the spot price.
func ReadChain(r io.Reader, underlying string) (surface.Chain, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return surface.Chain{}, fmt.Errorf("read header: %w", err)
	}
	cols, err := columnIndex(header)
	if err != nil {
		return surface.Chain{}, err
	}

	want := strings.ToUpper(strings.TrimSpace(underlying))
	chain := surface.Chain{Underlying: want}
	var spot decimal.Decimal

	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return surface.Chain{}, fmt.Errorf("line %d: %w", line, err)
		}
		if strings.ToUpper(strings.TrimSpace(row[cols["underlying"]])) != want {
			continue
		}

		q, rowSpot, err := parseQuote(row, cols)
		if err != nil {
			return surface.Chain{}, fmt.Errorf("line %d: %w", line, err)
		}
		if spot.IsZero() {
			spot = rowSpot
		} else if !rowSpot.Equal(spot) {
			logger.Warnf("line %d: spot %s differs from %s, keeping the first", line, rowSpot, spot)
		}
		chain.Quotes = append(chain.Quotes, q)
	}

	if len(chain.Quotes) == 0 {
		return surface.Chain{}, fmt.Errorf("%w %s", ErrUnknownUnderlying, want)
	}
	chain.Spot = spot.InexactFloat64()
	logger.Debugf("read %d quotes for %s", len(chain.Quotes), want)
	return chain, nil
}

func columnIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range csvColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("missing column %q", c)
		}
	}
	return cols, nil
}

func parseQuote(row []string, cols map[string]int) (surface.Quote, decimal.Decimal, error) {
	field := func(name string) string { return strings.TrimSpace(row[cols[name]]) }

	spot, err := decimal.NewFromString(field("spot"))
	if err != nil {
		return surface.Quote{}, decimal.Zero, fmt.Errorf("spot: %w", err)
	}
	strike, err := decimal.NewFromString(field("strike"))
	if err != nil {
		return surface.Quote{}, decimal.Zero, fmt.Errorf("strike: %w", err)
	}
	price, err := decimal.NewFromString(field("price"))
	if err != nil {
		return surface.Quote{}, decimal.Zero, fmt.Errorf("price: %w", err)
	}
	days, err := strconv.Atoi(field("days"))
	if err != nil {
		return surface.Quote{}, decimal.Zero, fmt.Errorf("days: %w", err)
	}
	typ, err := pricing.ParseOptionType(field("type"))
	if err != nil {
		return surface.Quote{}, decimal.Zero, err
	}

	return surface.Quote{
		Strike: strike.InexactFloat64(),
		Days:   days,
		Type:   typ,
		Price:  price.InexactFloat64(),
	}, spot, nil
}
