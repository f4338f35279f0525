package domain

import (
	"fmt"
	"time"
)

// Period identifies a contribution month
type Period struct {
	Year  int
	Month time.Month
}

// NewPeriod returns the period containing t
func NewPeriod(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// ParsePeriod parses the "YYYY-MM" form
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return NewPeriod(t), nil
}

// String formats the period as "YYYY-MM"
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Start returns midnight UTC on the first day of the period
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// IsOpen reports whether the period has started as of asOf
func (p Period) IsOpen(asOf time.Time) bool {
	return !asOf.Before(p.Start())
}

// Next returns the following month
func (p Period) Next() Period {
	return NewPeriod(p.Start().AddDate(0, 1, 0))
}

// PeriodsInYear lists the twelve periods of a calendar year
func PeriodsInYear(year int) []Period {
	periods := make([]Period, 0, 12)
	for m := time.January; m <= time.December; m++ {
		periods = append(periods, Period{Year: year, Month: m})
	}
	return periods
}
