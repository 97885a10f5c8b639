package transaction

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// parseAmount reads the money strings the banks emit: "150.50", "-100,00",
// "+1.234,56", "1,234.56". When both separators appear the later one is the
// decimal mark; a lone comma is a decimal comma.
func parseAmount(s string) (decimal.Decimal, error) {
	v := strings.TrimSpace(s)
	v = strings.ReplaceAll(v, " ", "")
	if v == "" {
		return decimal.Decimal{}, fmt.Errorf("empty amount")
	}

	negative := false
	switch v[0] {
	case '+':
		v = v[1:]
	case '-':
		negative = true
		v = v[1:]
	}

	lastDot := strings.LastIndexByte(v, '.')
	lastComma := strings.LastIndexByte(v, ',')
	switch {
	case lastDot >= 0 && lastComma >= 0 && lastComma > lastDot:
		v = strings.ReplaceAll(v, ".", "")
		v = strings.Replace(v, ",", ".", 1)
	case lastDot >= 0 && lastComma >= 0:
		v = strings.ReplaceAll(v, ",", "")
	case lastComma >= 0:
		if strings.Count(v, ",") > 1 {
			return decimal.Decimal{}, fmt.Errorf("ambiguous amount %q", s)
		}
		v = strings.Replace(v, ",", ".", 1)
	}

	if v == "" || strings.ContainsAny(v, "+-") {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q", s)
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}
