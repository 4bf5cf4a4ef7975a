package analytics

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/contactkeval/option-analytics/internal/pricing"
)

// ContractRequest holds the contract inputs shared by every request.
type ContractRequest struct {
	OptionType      string          `json:"option_type" validate:"required,oneof=CALL PUT"`
	UnderlyingPrice decimal.Decimal `json:"underlying_price" validate:"gt=0"`
	StrikePrice     decimal.Decimal `json:"strike_price" validate:"gt=0"`
	DaysToExpiry    int             `json:"days_to_expiry" validate:"gt=0"`
	RiskFreeRate    decimal.Decimal `json:"risk_free_rate" validate:"gte=0,lte=1"`
}

// PricingRequest asks for a price or Greeks at a given volatility.
type PricingRequest struct {
	ContractRequest
	Volatility decimal.Decimal `json:"volatility" validate:"gt=0,lte=5"`
}

// ImpliedVolatilityRequest asks for the volatility implied by OptionPrice.
type ImpliedVolatilityRequest struct {
	ContractRequest
	OptionPrice decimal.Decimal `json:"option_price" validate:"gt=0"`
}

// StrikeRequest asks for the strike carrying a target delta.
type StrikeRequest struct {
	OptionType      string          `json:"option_type" validate:"required,oneof=CALL PUT"`
	UnderlyingPrice decimal.Decimal `json:"underlying_price" validate:"gt=0"`
	Delta           decimal.Decimal `json:"delta" validate:"gt=-1,lt=1"`
	DaysToExpiry    int             `json:"days_to_expiry" validate:"gt=0"`
	RiskFreeRate    decimal.Decimal `json:"risk_free_rate" validate:"gte=0,lte=1"`
	Volatility      decimal.Decimal `json:"volatility" validate:"gt=0,lte=5"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// numeric tags (gt, lte, ...) compare the float value of a decimal
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// normalize upper-cases the option type so "call" validates as CALL.
func (c *ContractRequest) normalize() {
	c.OptionType = strings.ToUpper(strings.TrimSpace(c.OptionType))
}

// inputs is the float form of a contract passed to the engine.
type inputs struct {
	typ     pricing.OptionType
	S, K, r float64
	T       float64
}

func (c ContractRequest) inputs() inputs {
	return inputs{
		typ: pricing.OptionType(c.OptionType),
		S:   c.UnderlyingPrice.InexactFloat64(),
		K:   c.StrikePrice.InexactFloat64(),
		r:   c.RiskFreeRate.InexactFloat64(),
		T:   pricing.YearsFromDays(float64(c.DaysToExpiry)),
	}
}

func validateRequest(req any) error {
	if err := validate.Struct(req); err != nil {
		var fields []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(fields, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}
