package domain

import "strings"

// DayCounter converts a pair of dates into a year fraction.
type DayCounter interface {
	Name() string
	YearFraction(start, end Date) float64
}

// Actual365Fixed actual days over 365.
type Actual365Fixed struct{}

func (Actual365Fixed) Name() string { return "Actual/365 (Fixed)" }

func (Actual365Fixed) YearFraction(start, end Date) float64 {
	return float64(start.DaysUntil(end)) / 365.0
}

// Actual360 actual days over 360.
type Actual360 struct{}

func (Actual360) Name() string { return "Actual/360" }

func (Actual360) YearFraction(start, end Date) float64 {
	return float64(start.DaysUntil(end)) / 360.0
}

// DayCounterByName resolves a configuration identifier such as "actual365fixed".
func DayCounterByName(name string) (DayCounter, error) {
	switch strings.ToLower(strings.NewReplacer("/", "", " ", "", "_", "", "-", "").Replace(name)) {
	case "", "actual365fixed", "act365f", "actual365":
		return Actual365Fixed{}, nil
	case "actual360", "act360":
		return Actual360{}, nil
	default:
		return nil, InvalidConfigf("unknown day counter %q", name)
	}
}
