package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/option-analytics/internal/analytics"
	"github.com/contactkeval/option-analytics/internal/impliedvol"
	"github.com/contactkeval/option-analytics/internal/report"
)

func runJSON(t *testing.T, args ...string) map[string]any {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), args, &out))

	var m map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &m))
	return m
}

func TestPriceCommand(t *testing.T) {
	m := runJSON(t, "-v", "0", "price", "-type", "call", "-spot", "100", "-strike", "100", "-days", "365", "-rate", "0.05", "-vol", "0.2")

	assert.Equal(t, "10.4506", m["option_price"])
	assert.Equal(t, "ATM", m["moneyness"])
}

func TestGreeksCommandUsesConfiguredRate(t *testing.T) {
	t.Setenv("OPTION_ANALYTICS_PRICING_RISK_FREE_RATE", "0.05")
	m := runJSON(t, "-v", "0", "greeks", "-spot", "100", "-strike", "100", "-days", "365", "-vol", "0.2")

	assert.Equal(t, "0.636831", m["delta"])
	assert.Equal(t, "53.232482", m["rho"])
}

func TestIVCommand(t *testing.T) {
	m := runJSON(t, "-v", "0", "iv", "-type", "PUT", "-spot", "100", "-strike", "100", "-days", "90", "-price", "4")

	assert.Equal(t, string(impliedvol.MethodNewton), m["method"])
	assert.Equal(t, analytics.CalculationMethod, m["calculation_method"])
	assert.NotEmpty(t, m["implied_volatility"])
}

func TestIVCommandNoSolution(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"-v", "0", "iv", "-spot", "100", "-strike", "100", "-days", "90", "-price", "0.01", "-rate", "0.5"}, &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, impliedvol.ErrNoSolution))
	assert.Empty(t, out.String())
}

func TestStrikeCommand(t *testing.T) {
	m := runJSON(t, "-v", "0", "strike", "-type", "put", "-spot", "100", "-delta", "-0.25", "-days", "60", "-vol", "0.3")

	require.Contains(t, m, "strike_price")
	assert.Contains(t, m["delta"], "-0.2")
}

func TestInvalidRequest(t *testing.T) {
	err := run(context.Background(), []string{"-v", "0", "price", "-strike", "100", "-vol", "0.2"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, analytics.ErrInvalidRequest))
	assert.Contains(t, err.Error(), "underlying_price")
}

func TestUsageErrors(t *testing.T) {
	assert.ErrorIs(t, run(context.Background(), nil, &bytes.Buffer{}), errUsage)
	assert.ErrorIs(t, run(context.Background(), []string{"price", "-spot", "abc"}, &bytes.Buffer{}), errUsage)

	err := run(context.Background(), []string{"straddle"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestSurfaceCommand(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	m := runJSON(t, "-v", "0", "surface", "-underlying", "ng", "-spot", "50", "-workers", "2", "-out", dir)

	assert.Equal(t, "NG", m["underlying"])
	assert.Equal(t, float64(40), m["points"])
	assert.Equal(t, float64(40), m["converged"])

	smiles, ok := m["smiles"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, smiles, 4)
	assert.Contains(t, smiles, "30")

	assert.FileExists(t, filepath.Join(dir, report.JSONFile))
	assert.FileExists(t, filepath.Join(dir, report.CSVFile))
}

func TestSurfaceCommandFromCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quotes.csv")
	require.NoError(t, os.WriteFile(path, []byte("underlying,spot,strike,days,type,price\nCL,100,100,30,CALL,3.0626\nCL,100,80,30,CALL,5\n"), 0o644))

	prom := filepath.Join(t.TempDir(), "iv.prom")
	m := runJSON(t, "-v", "0", "surface", "-quotes", path, "-out", "", "-metrics", prom)
	assert.Equal(t, float64(2), m["points"])
	assert.Equal(t, float64(1), m["converged"])
	assert.Nil(t, m["report_dir"])

	b, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(b), `option_analytics_iv_solves_total{detail="below_intrinsic",status="no_solution"} 1`)
}

func TestConfigFileErrors(t *testing.T) {
	err := run(context.Background(), []string{"-config", filepath.Join(t.TempDir(), "none.yaml"), "price"}, &bytes.Buffer{})
	assert.Error(t, err)
}
