package model

import (
	"math"
	"strconv"
	"strings"
)

// Money is an amount in Vietnamese đồng. VND has no subunit, so whole
// đồng are the minor unit and every amount is an integer.
//
// Backends are inconsistent about number formatting ("250000", "250000.00",
// 250000), so the parsers below accept both integer and decimal notation.

// ParseVND converts a string amount to whole đồng (int64).
// Decimal fractions are rounded to the nearest đồng.
// Examples: "250000" → 250000, "250000.50" → 250001, "" → 0
func ParseVND(s string) int64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	// math.Round handles both positive and negative numbers correctly
	return int64(math.Round(f))
}

// FormatVND renders an amount with dot thousand separators and the ₫ sign,
// the way the storefront displays prices: 250000 → "250.000 ₫".
func FormatVND(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}

	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	b.WriteString(" ₫")
	return b.String()
}
