package model

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// ParseCents converts decimal string amounts (dollars) to cents (int64).
// Use for catalog fields that carry amounts in major currency units
// (e.g. "99.00" = $99.00). Handles edge cases: empty strings, missing
// decimals, large values.
// Examples: "99.00" → 9900, "1234.56" → 123456, "" → 0
func ParseCents(s string) int64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	// math.Round handles both positive and negative numbers correctly
	return int64(math.Round(f * 100))
}

// ParseMinorUnits converts string amounts already in minor units to int64.
// Storefront product JSON carries all price fields this way
// (e.g. "8900" = 8900 cents = $89.00).
// Examples: "8900" → 8900, "123456" → 123456, "" → 0
func ParseMinorUnits(s string) int64 {
	if s == "" {
		return 0
	}
	// Parse as float to handle potential decimal values, then truncate
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(f)
}

// currencySymbols maps ISO 4217 codes to the symbol shown before the amount.
// Codes not listed render as "12.34 XXX".
var currencySymbols = map[string]string{
	"USD": "$",
	"CAD": "$",
	"AUD": "$",
	"NZD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
}

// zeroDecimalCurrencies have no minor unit (1 JPY, not 100).
var zeroDecimalCurrencies = map[string]bool{
	"JPY": true,
	"KRW": true,
	"VND": true,
}

// FormatMinorUnits renders an amount in minor units as a display price in
// the given currency, e.g. FormatMinorUnits(1999, "USD") → "$19.99".
// Unknown currencies render with a trailing code: "19.99 SEK".
func FormatMinorUnits(amount int64, currency string) string {
	d := decimal.NewFromInt(amount)
	places := int32(2)
	if zeroDecimalCurrencies[currency] {
		places = 0
	} else {
		d = d.Shift(-2)
	}
	text := d.StringFixed(places)

	if sym, ok := currencySymbols[currency]; ok {
		return sym + text
	}
	if currency == "" {
		return text
	}
	return text + " " + currency
}
