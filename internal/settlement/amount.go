package settlement

import (
	"strings"

	"github.com/shopspring/decimal"
)

// parseMajorAmount parses an amount in major units written in the given
// style, e.g. "1,234.56" or "1.234,56". A leading "$" is ignored.
func parseMajorAmount(s string, style decimalStyle) (decimal.Decimal, error) {
	clean := strings.TrimPrefix(strings.TrimSpace(s), "$")
	clean = strings.ReplaceAll(clean, " ", "")

	switch style {
	case decimalComma:
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.ReplaceAll(clean, ",", ".")
	default:
		clean = strings.ReplaceAll(clean, ",", "")
	}

	return decimal.NewFromString(clean)
}
