package orders

import (
	"math"
	"strconv"
	"strings"
)

// discountPercent parses a string-encoded discount percentage. Absent,
// empty or malformed values mean no discount; values are clamped to
// [0, 100].
func discountPercent(raw string) float64 {
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
	if trimmed == "" {
		return 0
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || value <= 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}

// effectiveUnitPrice applies the product discount to the listed price,
// rounded to two decimals.
func effectiveUnitPrice(price float64, discount string) float64 {
	percent := discountPercent(discount)
	if percent == 0 {
		return price
	}
	return roundMoney(price * (1 - percent/100))
}

func roundMoney(value float64) float64 {
	return math.Round(value*100) / 100
}

// minorUnits converts a major-unit price to currency minor units for the
// payment provider.
func minorUnits(value float64) int64 {
	return int64(math.Round(value * 100))
}
