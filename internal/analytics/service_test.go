package analytics

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/option-analytics/internal/impliedvol"
	"github.com/contactkeval/option-analytics/internal/pricing"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func contract(typ string, spot, strike string, days int) ContractRequest {
	return ContractRequest{
		OptionType:      typ,
		UnderlyingPrice: dec(spot),
		StrikePrice:     dec(strike),
		DaysToExpiry:    days,
		RiskFreeRate:    dec("0.05"),
	}
}

func TestPriceOneYearCall(t *testing.T) {
	svc := NewService(nil)

	v, err := svc.Price(PricingRequest{
		ContractRequest: contract("call", "100", "100", 365),
		Volatility:      dec("0.2"),
	})
	require.NoError(t, err)

	assert.Equal(t, "10.4506", v.OptionPrice.String())
	assert.True(t, v.IntrinsicValue.IsZero())
	assert.Equal(t, "10.4506", v.TimeValue.String())
	assert.Equal(t, pricing.ATM, v.Moneyness)
}

func TestPriceInTheMoneyPut(t *testing.T) {
	v, err := NewService(nil).Price(PricingRequest{
		ContractRequest: contract("PUT", "90", "100", 180),
		Volatility:      dec("0.25"),
	})
	require.NoError(t, err)

	assert.Equal(t, pricing.ITM, v.Moneyness)
	assert.Equal(t, "10", v.IntrinsicValue.String())
	assert.True(t, v.OptionPrice.Equal(v.IntrinsicValue.Add(v.TimeValue)))
}

func TestGreeksRounded(t *testing.T) {
	g, err := NewService(nil).Greeks(PricingRequest{
		ContractRequest: contract("CALL", "100", "100", 365),
		Volatility:      dec("0.2"),
	})
	require.NoError(t, err)

	assert.Equal(t, "0.636831", g.Delta.String())
	assert.Equal(t, "0.018762", g.Gamma.String())
	assert.Equal(t, "-0.017573", g.Theta.String())
	assert.Equal(t, "37.524035", g.Vega.String())
	assert.Equal(t, "53.232482", g.Rho.String())
	assert.Equal(t, "10.4506", g.OptionPrice.String())
}

func TestImpliedVolatilityRoundTrip(t *testing.T) {
	T := pricing.YearsFromDays(91)
	price := pricing.PutPrice(95, 100, 0.05, T, 0.3)

	res, err := NewService(nil).ImpliedVolatility(ImpliedVolatilityRequest{
		ContractRequest: contract("put", "95", "100", 91),
		OptionPrice:     decimal.NewFromFloat(price),
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.3, res.ImpliedVolatility.InexactFloat64(), 1e-4)
	assert.Positive(t, res.ConvergenceIterations)
	assert.Equal(t, impliedvol.MethodNewton, res.Method)
	assert.Equal(t, CalculationMethod, res.CalculationMethod)
}

func TestImpliedVolatilityUsesConfiguredSolver(t *testing.T) {
	svc := NewService(impliedvol.NewSolver(impliedvol.Config{MaxIterations: 2}))
	price := pricing.CallPrice(100, 100, 0.05, pricing.YearsFromDays(91), 0.4)

	res, err := svc.ImpliedVolatility(ImpliedVolatilityRequest{
		ContractRequest: contract("CALL", "100", "100", 91),
		OptionPrice:     decimal.NewFromFloat(price),
	})
	require.NoError(t, err)
	assert.Equal(t, impliedvol.MethodBisection, res.Method)
	assert.InDelta(t, 0.4, res.ImpliedVolatility.InexactFloat64(), 1e-2)
}

func TestImpliedVolatilityNoSolution(t *testing.T) {
	_, err := NewService(nil).ImpliedVolatility(ImpliedVolatilityRequest{
		ContractRequest: contract("CALL", "120", "100", 90),
		OptionPrice:     dec("5"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, impliedvol.ErrNoSolution))
	assert.True(t, errors.Is(err, impliedvol.ErrBelowIntrinsic))
	assert.False(t, errors.Is(err, ErrInvalidRequest))
}

func TestRequestValidation(t *testing.T) {
	cases := []struct {
		name  string
		req   PricingRequest
		field string
	}{
		{
			name:  "unknown option type",
			req:   PricingRequest{ContractRequest: contract("straddle", "100", "100", 30), Volatility: dec("0.2")},
			field: "option_type",
		},
		{
			name:  "zero spot",
			req:   PricingRequest{ContractRequest: contract("CALL", "0", "100", 30), Volatility: dec("0.2")},
			field: "underlying_price",
		},
		{
			name:  "negative strike",
			req:   PricingRequest{ContractRequest: contract("CALL", "100", "-1", 30), Volatility: dec("0.2")},
			field: "strike_price",
		},
		{
			name:  "expired",
			req:   PricingRequest{ContractRequest: contract("PUT", "100", "100", 0), Volatility: dec("0.2")},
			field: "days_to_expiry",
		},
		{
			name:  "volatility above cap",
			req:   PricingRequest{ContractRequest: contract("PUT", "100", "100", 30), Volatility: dec("5.5")},
			field: "volatility",
		},
		{
			name:  "zero volatility",
			req:   PricingRequest{ContractRequest: contract("PUT", "100", "100", 30), Volatility: decimal.Zero},
			field: "volatility",
		},
	}

	svc := NewService(nil)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Price(tc.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRequest))
			assert.Contains(t, err.Error(), tc.field)

			_, err = svc.Greeks(tc.req)
			assert.True(t, errors.Is(err, ErrInvalidRequest))
		})
	}
}

func TestRiskFreeRateRange(t *testing.T) {
	req := ImpliedVolatilityRequest{
		ContractRequest: contract("CALL", "100", "100", 30),
		OptionPrice:     dec("2"),
	}
	req.RiskFreeRate = dec("1.5")

	_, err := NewService(nil).ImpliedVolatility(req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRequest))
	assert.Contains(t, err.Error(), "risk_free_rate")
}

func TestRequestDecodesFromJSON(t *testing.T) {
	var req PricingRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"option_type": "call",
		"underlying_price": "100",
		"strike_price": 105,
		"days_to_expiry": 60,
		"risk_free_rate": "0.04",
		"volatility": "0.22"
	}`), &req))

	v, err := NewService(nil).Price(req)
	require.NoError(t, err)
	assert.Equal(t, pricing.OTM, v.Moneyness)
	assert.True(t, v.OptionPrice.Equal(v.TimeValue))

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"moneyness":"OTM"`)
}

func TestStrikeForDelta(t *testing.T) {
	svc := NewService(nil)

	res, err := svc.StrikeForDelta(StrikeRequest{
		OptionType:      "call",
		UnderlyingPrice: dec("100"),
		Delta:           dec("0.25"),
		DaysToExpiry:    91,
		RiskFreeRate:    dec("0.05"),
		Volatility:      dec("0.3"),
	})
	require.NoError(t, err)
	assert.True(t, res.StrikePrice.GreaterThan(dec("100")))
	assert.InDelta(t, 0.25, res.Delta.InexactFloat64(), 1e-4)

	put, err := svc.StrikeForDelta(StrikeRequest{
		OptionType:      "PUT",
		UnderlyingPrice: dec("100"),
		Delta:           dec("-0.25"),
		DaysToExpiry:    91,
		RiskFreeRate:    dec("0.05"),
		Volatility:      dec("0.3"),
	})
	require.NoError(t, err)
	assert.True(t, put.StrikePrice.LessThan(dec("100")))
	assert.InDelta(t, -0.25, put.Delta.InexactFloat64(), 1e-4)
}

func TestStrikeForDeltaRejectsWrongSign(t *testing.T) {
	_, err := NewService(nil).StrikeForDelta(StrikeRequest{
		OptionType:      "PUT",
		UnderlyingPrice: dec("100"),
		Delta:           dec("0.25"),
		DaysToExpiry:    30,
		RiskFreeRate:    dec("0.05"),
		Volatility:      dec("0.3"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRequest))
	assert.Contains(t, err.Error(), "put delta")
}
