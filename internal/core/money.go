// Package core provides amount parsing utilities.
//
// Amounts are whole currency units. Form input may carry thousands
// separators, which are stripped before conversion.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseAmount converts user input into a positive whole amount.
//
// It accepts digits grouped with commas, underscores or spaces and rejects
// signs, fractions and zero. A dot is never a separator.
//
// Examples:
//
//	ParseAmount("3000")   -> 3000, nil
//	ParseAmount("3,000")  -> 3000, nil
//	ParseAmount(" 1 200") -> 1200, nil
//	ParseAmount("12.5")   -> 0, ErrInvalidAmount
//	ParseAmount("0,500")  -> 0, ErrInvalidAmount
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	groups := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '_' || r == ' '
	})
	if len(groups) == 0 {
		return 0, ErrInvalidAmount
	}
	// Grouped input uses groups of three after a first group without a
	// leading zero.
	if len(groups) > 1 {
		if len(groups[0]) > 3 || strings.HasPrefix(groups[0], "0") {
			return 0, ErrInvalidAmount
		}
		for _, g := range groups[1:] {
			if len(g) != 3 {
				return 0, ErrInvalidAmount
			}
		}
	}
	digits := strings.Join(groups, "")
	for _, r := range digits {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return 0, ErrInvalidAmount
		}
	}
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if v < 1 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}
