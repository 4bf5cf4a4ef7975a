// Package config loads engine settings from an optional file plus
// OPTION_ANALYTICS_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/contactkeval/option-analytics/internal/impliedvol"
	"github.com/contactkeval/option-analytics/internal/logger"
)

// EnvPrefix is prepended to every environment override,
// e.g. OPTION_ANALYTICS_SOLVER_TOLERANCE.
const EnvPrefix = "OPTION_ANALYTICS"

// Config is the full application configuration.
type Config struct {
	Solver  impliedvol.Config `mapstructure:"solver"`
	Pricing PricingConfig     `mapstructure:"pricing"`
	Surface SurfaceConfig     `mapstructure:"surface"`
	Log     logger.Config     `mapstructure:"log"`
}

// PricingConfig holds defaults applied when a request leaves them out.
type PricingConfig struct {
	RiskFreeRate float64 `mapstructure:"risk_free_rate"`
}

// SurfaceConfig tunes batch implied volatility.
type SurfaceConfig struct {
	// Workers bounds the number of points solved at once.
	Workers int `mapstructure:"workers"`
	// ReportDir is where surface reports are written.
	ReportDir string `mapstructure:"report_dir"`
}

func setDefaults(v *viper.Viper) {
	d := impliedvol.DefaultConfig()
	v.SetDefault("solver.max_iterations", d.MaxIterations)
	v.SetDefault("solver.bisection_max_iterations", d.BisectionMaxIterations)
	v.SetDefault("solver.tolerance", d.Tolerance)
	v.SetDefault("solver.initial_guess", d.InitialGuess)
	v.SetDefault("solver.min_volatility", d.MinVolatility)
	v.SetDefault("solver.max_volatility", d.MaxVolatility)
	v.SetDefault("solver.vega_floor", d.VegaFloor)

	v.SetDefault("pricing.risk_free_rate", 0.05)

	v.SetDefault("surface.workers", runtime.GOMAXPROCS(0))
	v.SetDefault("surface.report_dir", "out")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 10)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
}

// Load reads path (yaml, toml or json by extension) when non-empty, then
// applies environment overrides. An empty path yields defaults plus env.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the solver cannot work with.
func (c *Config) Validate() error {
	var errs []error
	s := c.Solver
	if s.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("solver.max_iterations must be positive, got %d", s.MaxIterations))
	}
	if s.BisectionMaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("solver.bisection_max_iterations must be positive, got %d", s.BisectionMaxIterations))
	}
	if s.Tolerance <= 0 {
		errs = append(errs, fmt.Errorf("solver.tolerance must be positive, got %g", s.Tolerance))
	}
	if s.MinVolatility <= 0 || s.MaxVolatility <= s.MinVolatility {
		errs = append(errs, fmt.Errorf("solver volatility bounds must satisfy 0 < min < max, got [%g, %g]", s.MinVolatility, s.MaxVolatility))
	}
	if s.InitialGuess <= 0 || s.InitialGuess > s.MaxVolatility {
		errs = append(errs, fmt.Errorf("solver.initial_guess must be in (0, %g], got %g", s.MaxVolatility, s.InitialGuess))
	}
	if c.Surface.Workers <= 0 {
		errs = append(errs, fmt.Errorf("surface.workers must be positive, got %d", c.Surface.Workers))
	}
	return errors.Join(errs...)
}

// NewSolver builds the solver described by the configuration.
func (c *Config) NewSolver() *impliedvol.Solver {
	return impliedvol.NewSolver(c.Solver)
}
