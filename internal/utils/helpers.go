package utils

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MoneyRe matches monetary-shaped tokens as invoice renderers emit them:
// optional currency sign, optional thousand separators, two decimals.
var MoneyRe = regexp.MustCompile(`\$?\s?\d{1,3}(?:,\d{3})*\.\d{2}`)

// ParseMoney converts a matched money token to a decimal, stripping currency
// signs, spaces, and thousand separators.
func ParseMoney(s string) (decimal.Decimal, error) {
	clean := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(s))
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse money %q: %w", s, err)
	}
	return d, nil
}

// dateLayouts to try when parsing extracted dates, most common first.
var dateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2006-01-02",
	"02/01/06",
	"2-Jan-2006",
	"02-Jan-2006",
}

// ParseDate tries the known invoice date layouts and returns midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %q", s)
}

// DecPtr returns a pointer to d. Handy when populating optional fields.
func DecPtr(d decimal.Decimal) *decimal.Decimal { return &d }
