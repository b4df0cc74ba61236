package formatting

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var currencySymbols = []string{"$", "€", "£"}

// ParseAmount parses a monetary string (e.g. "$1,234.56") into a fixed-point decimal.
// Currency symbols, thousands separators, and surrounding whitespace are stripped.
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(s)
	for _, sym := range currencySymbols {
		cleaned = strings.ReplaceAll(cleaned, sym, "")
	}
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty amount string")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	return d.Round(2), nil
}
