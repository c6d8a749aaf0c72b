package rules

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Balances and prices are held in minor units (cents). Gateways report
// settled amounts as decimal strings and the SMS provider quotes prices as
// major-unit floats, so both get converted here and nowhere else.

var ErrInvalidAmount = errors.New("invalid amount")

// ParseDecimalMinor converts a gateway decimal string such as "25.00" into
// cents. More than two fraction digits is rejected rather than silently
// truncated.
func ParseDecimalMinor(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, ErrInvalidAmount
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	major, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || major < 0 {
		return 0, ErrInvalidAmount
	}

	if len(frac) > 2 {
		return 0, fmt.Errorf("%w: too many fraction digits in %q", ErrInvalidAmount, raw)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil || cents < 0 {
		return 0, ErrInvalidAmount
	}

	return major*100 + cents, nil
}

// MajorToMinor converts a major-unit float (provider price quotes) into
// cents, rounding half up.
func MajorToMinor(major float64) (int64, error) {
	if major < 0 || math.IsNaN(major) || math.IsInf(major, 0) {
		return 0, ErrInvalidAmount
	}
	return int64(math.Floor(major*100 + 0.5)), nil
}

// ApplyMarkup scales a price in cents by (1 + margin), rounding half up.
func ApplyMarkup(minor int64, margin float64) int64 {
	if minor <= 0 {
		return minor
	}
	return int64(math.Floor(float64(minor)*(1+margin) + 0.5))
}

// FormatMinor renders cents as a two-decimal string for API responses.
func FormatMinor(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}
