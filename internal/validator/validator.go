// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// assetSymbolRegex matches ticker-style symbols such as BTC, USDT, or ETH2.
var assetSymbolRegex = regexp.MustCompile(`^[A-Z0-9]{2,10}$`)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("asset_symbol", validateAssetSymbol)
		_ = v.RegisterValidation("decimal", validateDecimal)
	}
}

func validateAssetSymbol(fl validator.FieldLevel) bool {
	return assetSymbolRegex.MatchString(fl.Field().String())
}

// validateDecimal accepts strings parseable as arbitrary-precision decimals,
// e.g. "0.05" or "-1000".
func validateDecimal(fl validator.FieldLevel) bool {
	_, err := decimal.NewFromString(fl.Field().String())
	return err == nil
}
