package util

import (
	"github.com/go-playground/validator/v10"
)

// iso4217 常用货币代码白名单
var iso4217 = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true,
	"CNY": true, "KRW": true, "CAD": true, "AUD": true,
	"BGN": true, "CHF": true, "SEK": true, "PLN": true,
}

// ValidateCurrencyCode 验证货币代码是否为支持的 ISO 4217 代码
func ValidateCurrencyCode(fl validator.FieldLevel) bool {
	code, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return iso4217[code]
}
