package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/contactkeval/option-analytics/internal/analytics"
	"github.com/contactkeval/option-analytics/internal/config"
	"github.com/contactkeval/option-analytics/internal/data"
	"github.com/contactkeval/option-analytics/internal/logger"
	"github.com/contactkeval/option-analytics/internal/metrics"
	"github.com/contactkeval/option-analytics/internal/report"
	"github.com/contactkeval/option-analytics/internal/surface"
)

const usage = `usage: option-analytics [-config file] [-v level] <command> [flags]

commands:
  price    price an option at a given volatility
  greeks   option price and sensitivities
  iv       implied volatility of an observed price
  strike   strike carrying a target delta
  surface  implied volatility surface for a quote chain
`

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	global := flag.NewFlagSet("option-analytics", flag.ContinueOnError)
	configPath := global.String("config", "", "path to yaml, toml or json config")
	verbosity := global.Int("v", -1, "log verbosity 0=error .. 4=trace, overrides config")
	global.Usage = func() { fmt.Fprint(global.Output(), usage) }
	if err := global.Parse(args); err != nil {
		return errUsage
	}
	if global.NArg() == 0 {
		global.Usage()
		return errUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger.Configure(cfg.Log)
	if *verbosity >= 0 {
		logger.SetVerbosity(*verbosity)
	}

	cmd, rest := global.Arg(0), global.Args()[1:]
	svc := analytics.NewService(cfg.NewSolver())

	var out any
	switch cmd {
	case "price":
		req, err := parsePricing(cmd, rest, cfg)
		if err != nil {
			return err
		}
		out, err = svc.Price(req)
		if err != nil {
			return err
		}
	case "greeks":
		req, err := parsePricing(cmd, rest, cfg)
		if err != nil {
			return err
		}
		out, err = svc.Greeks(req)
		if err != nil {
			return err
		}
	case "iv":
		req, err := parseImpliedVol(rest, cfg)
		if err != nil {
			return err
		}
		out, err = svc.ImpliedVolatility(req)
		if err != nil {
			return err
		}
	case "strike":
		req, err := parseStrike(rest, cfg)
		if err != nil {
			return err
		}
		out, err = svc.StrikeForDelta(req)
		if err != nil {
			return err
		}
	case "surface":
		out, err = runSurface(ctx, rest, cfg)
		if err != nil {
			return err
		}
	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// decimalFlag is a flag.Value holding a decimal and whether it was set.
type decimalFlag struct {
	d   decimal.Decimal
	set bool
}

func (f *decimalFlag) String() string { return f.d.String() }

func (f *decimalFlag) Set(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	f.d, f.set = d, true
	return nil
}

type contractFlags struct {
	typ    *string
	spot   decimalFlag
	strike decimalFlag
	days   *int
	rate   decimalFlag
}

func bindContract(fs *flag.FlagSet) *contractFlags {
	c := &contractFlags{
		typ:  fs.String("type", "CALL", "option type, CALL or PUT"),
		days: fs.Int("days", 30, "calendar days to expiry"),
	}
	fs.Var(&c.spot, "spot", "underlying price")
	fs.Var(&c.strike, "strike", "strike price")
	fs.Var(&c.rate, "rate", "risk-free rate, defaults to pricing.risk_free_rate")
	return c
}

func (c *contractFlags) request(cfg *config.Config) analytics.ContractRequest {
	rate := c.rate.d
	if !c.rate.set {
		rate = decimal.NewFromFloat(cfg.Pricing.RiskFreeRate)
	}
	return analytics.ContractRequest{
		OptionType:      *c.typ,
		UnderlyingPrice: c.spot.d,
		StrikePrice:     c.strike.d,
		DaysToExpiry:    *c.days,
		RiskFreeRate:    rate,
	}
}

func parsePricing(name string, args []string, cfg *config.Config) (analytics.PricingRequest, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	c := bindContract(fs)
	var vol decimalFlag
	fs.Var(&vol, "vol", "annualised volatility, e.g. 0.2")
	if err := fs.Parse(args); err != nil {
		return analytics.PricingRequest{}, errUsage
	}
	return analytics.PricingRequest{ContractRequest: c.request(cfg), Volatility: vol.d}, nil
}

func parseImpliedVol(args []string, cfg *config.Config) (analytics.ImpliedVolatilityRequest, error) {
	fs := flag.NewFlagSet("iv", flag.ContinueOnError)
	c := bindContract(fs)
	var price decimalFlag
	fs.Var(&price, "price", "observed option price")
	if err := fs.Parse(args); err != nil {
		return analytics.ImpliedVolatilityRequest{}, errUsage
	}
	return analytics.ImpliedVolatilityRequest{ContractRequest: c.request(cfg), OptionPrice: price.d}, nil
}

func parseStrike(args []string, cfg *config.Config) (analytics.StrikeRequest, error) {
	fs := flag.NewFlagSet("strike", flag.ContinueOnError)
	typ := fs.String("type", "CALL", "option type, CALL or PUT")
	days := fs.Int("days", 30, "calendar days to expiry")
	var spot, delta, rate, vol decimalFlag
	fs.Var(&spot, "spot", "underlying price")
	fs.Var(&delta, "delta", "target delta, negative for puts")
	fs.Var(&rate, "rate", "risk-free rate, defaults to pricing.risk_free_rate")
	fs.Var(&vol, "vol", "annualised volatility, e.g. 0.2")
	if err := fs.Parse(args); err != nil {
		return analytics.StrikeRequest{}, errUsage
	}
	if !rate.set {
		rate.d = decimal.NewFromFloat(cfg.Pricing.RiskFreeRate)
	}
	return analytics.StrikeRequest{
		OptionType:      *typ,
		UnderlyingPrice: spot.d,
		Delta:           delta.d,
		DaysToExpiry:    *days,
		RiskFreeRate:    rate.d,
		Volatility:      vol.d,
	}, nil
}

type surfaceSummary struct {
	Underlying string                       `json:"underlying"`
	Spot       float64                      `json:"spot"`
	Points     int                          `json:"points"`
	Converged  int                          `json:"converged"`
	ReportDir  string                       `json:"report_dir,omitempty"`
	Smiles     map[int][]surface.SmilePoint `json:"smiles"`
	Elapsed    string                       `json:"elapsed"`
}

func runSurface(ctx context.Context, args []string, cfg *config.Config) (*surfaceSummary, error) {
	fs := flag.NewFlagSet("surface", flag.ContinueOnError)
	underlying := fs.String("underlying", "CL", "underlying symbol")
	quotes := fs.String("quotes", "", "quotes CSV (underlying,spot,strike,days,type,price); synthetic chain when empty")
	spot := fs.Float64("spot", 100, "spot price of the synthetic chain")
	workers := fs.Int("workers", cfg.Surface.Workers, "concurrent solves")
	out := fs.String("out", cfg.Surface.ReportDir, "report directory, empty to skip writing")
	metricsFile := fs.String("metrics", "", "write solver metrics in Prometheus text format to this file")
	if err := fs.Parse(args); err != nil {
		return nil, errUsage
	}

	var src data.Source
	if *quotes != "" {
		src = data.NewCSVSource(*quotes, cfg.Pricing.RiskFreeRate)
		logger.Infof("csv quotes from %s", *quotes)
	} else {
		p := data.DefaultSyntheticParams()
		p.Spot = *spot
		p.RiskFreeRate = cfg.Pricing.RiskFreeRate
		src = data.NewSyntheticSource(p)
		logger.Infof("synthetic quotes around spot %g", *spot)
	}

	start := time.Now()
	chain, err := src.Chain(strings.ToUpper(*underlying))
	if err != nil {
		return nil, err
	}
	m := metrics.New()
	s, err := surface.Build(ctx, cfg.NewSolver(), chain, surface.Options{Workers: *workers, Metrics: m})
	if err != nil {
		return nil, err
	}
	if *metricsFile != "" {
		if err := m.WriteFile(*metricsFile); err != nil {
			return nil, fmt.Errorf("write metrics: %w", err)
		}
	}

	if *out != "" {
		if err := report.Write(s, *out); err != nil {
			return nil, err
		}
		logger.Infof("wrote %d points to %s", len(s.Points), *out)
	}

	smiles := make(map[int][]surface.SmilePoint)
	for _, days := range s.Expiries() {
		smiles[days] = s.AverageIV(days)
	}
	return &surfaceSummary{
		Underlying: s.Underlying,
		Spot:       s.Spot,
		Points:     len(s.Points),
		Converged:  s.ConvergedCount(),
		ReportDir:  *out,
		Smiles:     smiles,
		Elapsed:    time.Since(start).Round(time.Millisecond).String(),
	}, nil
}
