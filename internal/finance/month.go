package finance

import (
	"errors"
	"strconv"
	"time"

	"kakeibo/internal/core"
)

// MonthLayout is the wire format of MonthKey.
const MonthLayout = "2006-01"

// ErrInvalidMonth is returned for month keys that are not YYYY-MM.
var ErrInvalidMonth = errors.New("invalid month")

// MonthKey identifies a calendar month as YYYY-MM.
type MonthKey string

// ParseMonthKey validates s and returns it as a MonthKey.
func ParseMonthKey(s string) (MonthKey, error) {
	m := MonthKey(s)
	if err := m.Validate(); err != nil {
		return "", err
	}
	return m, nil
}

func (m MonthKey) Validate() error {
	s := string(m)
	if len(s) != len(MonthLayout) || s[4] != '-' {
		return ErrInvalidMonth
	}
	if _, err := time.Parse(MonthLayout, s); err != nil {
		return ErrInvalidMonth
	}
	return nil
}

// MonthOf returns the month containing d.
func MonthOf(d core.Date) MonthKey {
	return MonthKey(d.Month())
}

// CurrentMonth returns the month containing now.
func CurrentMonth(now time.Time) MonthKey {
	return MonthKey(now.Format(MonthLayout))
}

// Contains reports whether d is a well-formed date inside m.
func (m MonthKey) Contains(d core.Date) bool {
	if d.Validate() != nil {
		return false
	}
	return len(d) > len(m) && string(d[:len(m)]) == string(m) && d[len(m)] == '-'
}

// Prev returns the month before m, or the zero key when m is invalid or
// the result leaves the four-digit year range.
func (m MonthKey) Prev() MonthKey { return m.shift(-1) }

// Next returns the month after m, under the same rules as Prev.
func (m MonthKey) Next() MonthKey { return m.shift(1) }

func (m MonthKey) shift(delta int) MonthKey {
	if m.Validate() != nil {
		return ""
	}
	t, _ := time.Parse(MonthLayout, string(m))
	out := MonthKey(t.AddDate(0, delta, 0).Format(MonthLayout))
	if out.Validate() != nil {
		return ""
	}
	return out
}

// Year and Month split the key; both are zero on an invalid key.
func (m MonthKey) Year() int {
	if m.Validate() != nil {
		return 0
	}
	y, _ := strconv.Atoi(string(m[:4]))
	return y
}

func (m MonthKey) Month() int {
	if m.Validate() != nil {
		return 0
	}
	mm, _ := strconv.Atoi(string(m[5:]))
	return mm
}

func (m MonthKey) String() string { return string(m) }
