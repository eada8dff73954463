package domain

// EvaluationContext valuation date and the day counter used to turn dates into times.
type EvaluationContext struct {
	// Today valuation date; options whose last exercise date precedes it are expired.
	Today Date
	// DayCounter convention used by the instrument and term structures built from the context.
	DayCounter DayCounter
}

// NewEvaluationContext returns a context, defaulting the day counter to Actual/365 Fixed.
func NewEvaluationContext(today Date, dc DayCounter) EvaluationContext {
	if dc == nil {
		dc = Actual365Fixed{}
	}
	return EvaluationContext{Today: today, DayCounter: dc}
}

// YearFraction measures time from the valuation date to d.
func (c EvaluationContext) YearFraction(d Date) float64 {
	dc := c.DayCounter
	if dc == nil {
		dc = Actual365Fixed{}
	}
	return dc.YearFraction(c.Today, d)
}
