package catalog

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is the ISO 4217 code prices are rendered in.
const DefaultCurrency = "BRL"

// currencySymbols maps ISO codes to the symbols used by pt-BR formatting.
var currencySymbols = map[string]string{
	"BRL": "R$",
	"USD": "US$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "JP¥",
}

// FormatPrice renders value as a pt-BR currency string, e.g. "R$ 1.234,56".
// Unknown but well-formed ISO codes are printed as the code itself. Malformed
// codes and non-finite values fall back to "R$ <value with two decimals>".
func FormatPrice(value float64, currency string) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "R$ 0.00"
	}
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		code = DefaultCurrency
	}
	symbol, ok := currencySymbols[code]
	if !ok {
		if !isCurrencyCode(code) {
			return fmt.Sprintf("R$ %.2f", value)
		}
		symbol = code
	}

	d := decimal.NewFromFloat(value).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	whole, frac, _ := strings.Cut(d.StringFixed(2), ".")
	return sign + symbol + " " + groupThousands(whole) + "," + frac
}

// groupThousands inserts "." between groups of three digits.
func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func isCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
