package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var dateLayouts = []string{
	time.DateOnly,
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006/01/02",
	time.DateTime,
	"01/02/2006 15:04",
	"1/2/2006 15:04",
	"01/02/2006 3:04 PM",
	"1/2/2006 3:04 PM",
	time.RFC3339,
}

// ParseDate parses a calendar date from the formats found in CRM exports.
// An empty value yields a NULL date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("unrecognized date %q", s)
}

// ParseAmount parses a money value. Currency symbols, thousands separators
// and spaces are ignored; "(12.50)" and "-$12.50" are negative.
// An empty value yields a NULL amount.
func ParseAmount(s string) (decimal.NullDecimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case '$', ',', ' ', '€', '£':
			return -1
		}
		return r
	}, s)
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	if strings.HasPrefix(s, "-") {
		neg = !neg
		s = s[1:]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("unrecognized amount: %w", err)
	}
	if neg {
		d = d.Neg()
	}
	return decimal.NewNullDecimal(d.Round(2)), nil
}

var errNotInteger = errors.New("not an integer")

// ParseID parses an integer identifier, accepting a trailing ".0" left by spreadsheet tools.
// An empty value yields nil.
func ParseID(s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return nil, fmt.Errorf("%q: %w", s, errNotInteger)
	}
	v := int64(f)
	return &v, nil
}
