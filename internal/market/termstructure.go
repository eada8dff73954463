// Package market holds term structures and the market snapshot shared by processes and engines.
package market

import (
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/pricebench/internal/domain"
)

// YieldCurve discount factors and continuously compounded zero rates by time.
type YieldCurve interface {
	ReferenceDate() domain.Date
	DayCounter() domain.DayCounter
	// Discount returns the discount factor for a time measured from the reference date.
	Discount(t float64) (float64, error)
	// ZeroRate returns the continuously compounded zero rate for t.
	ZeroRate(t float64) (float64, error)
}

type versioned interface {
	Version() uint64
}

// TimeFromReference measures d from the curve's reference date.
func TimeFromReference(c YieldCurve, d domain.Date) float64 {
	return c.DayCounter().YearFraction(c.ReferenceDate(), d)
}

// DiscountAt returns the discount factor for a date.
func DiscountAt(c YieldCurve, d domain.Date) (float64, error) {
	return c.Discount(TimeFromReference(c, d))
}

// ForwardRate continuously compounded forward rate between t1 and t2.
func ForwardRate(c YieldCurve, t1, t2 float64) (float64, error) {
	if t2 <= t1 {
		z, err := c.ZeroRate(t1)
		return z, err
	}
	d1, err := c.Discount(t1)
	if err != nil {
		return 0, err
	}
	d2, err := c.Discount(t2)
	if err != nil {
		return 0, err
	}
	return math.Log(d1/d2) / (t2 - t1), nil
}

func checkTime(t float64) error {
	if t < 0 || math.IsNaN(t) {
		return errors.Wrapf(domain.ErrOutOfRange, "negative time %v", t)
	}
	return nil
}

// FlatForward constant continuously compounded rate.
type FlatForward struct {
	reference domain.Date
	rate      *domain.Quote
	dc        domain.DayCounter
}

// NewFlatForward returns a flat curve with a fixed rate.
func NewFlatForward(reference domain.Date, rate float64, dc domain.DayCounter) *FlatForward {
	return NewFlatForwardQuote(reference, domain.NewQuote(rate), dc)
}

// NewFlatForwardQuote returns a flat curve whose rate follows the quote.
func NewFlatForwardQuote(reference domain.Date, rate *domain.Quote, dc domain.DayCounter) *FlatForward {
	if dc == nil {
		dc = domain.Actual365Fixed{}
	}
	return &FlatForward{reference: reference, rate: rate, dc: dc}
}

func (f *FlatForward) ReferenceDate() domain.Date    { return f.reference }
func (f *FlatForward) DayCounter() domain.DayCounter { return f.dc }
func (f *FlatForward) Version() uint64               { return f.rate.Version() }
func (f *FlatForward) RateQuote() *domain.Quote      { return f.rate }

func (f *FlatForward) Discount(t float64) (float64, error) {
	if err := checkTime(t); err != nil {
		return 0, err
	}
	return math.Exp(-f.rate.Value() * t), nil
}

func (f *FlatForward) ZeroRate(t float64) (float64, error) {
	if err := checkTime(t); err != nil {
		return 0, err
	}
	return f.rate.Value(), nil
}

// ZeroCurve zero rates linearly interpolated between nodes.
type ZeroCurve struct {
	reference   domain.Date
	dc          domain.DayCounter
	times       []float64
	rates       []float64
	extrapolate bool
}

// NewZeroCurve builds a curve from node dates and zero rates.
func NewZeroCurve(reference domain.Date, dates []domain.Date, rates []float64, dc domain.DayCounter) (*ZeroCurve, error) {
	if len(dates) == 0 || len(dates) != len(rates) {
		return nil, domain.InvalidConfigf("zero curve needs matching non-empty dates and rates, got %d and %d", len(dates), len(rates))
	}
	if dc == nil {
		dc = domain.Actual365Fixed{}
	}

	times := make([]float64, len(dates))
	for i, d := range dates {
		times[i] = dc.YearFraction(reference, d)
		if times[i] < 0 {
			return nil, domain.InvalidConfigf("zero curve node %s precedes reference date %s", d, reference)
		}
		if i > 0 && times[i] <= times[i-1] {
			return nil, domain.InvalidConfigf("zero curve nodes must be strictly increasing at %s", d)
		}
	}

	return &ZeroCurve{
		reference: reference,
		dc:        dc,
		times:     times,
		rates:     append([]float64(nil), rates...),
	}, nil
}

// EnableExtrapolation allows flat extrapolation past the last node.
func (z *ZeroCurve) EnableExtrapolation() *ZeroCurve {
	z.extrapolate = true
	return z
}

func (z *ZeroCurve) ReferenceDate() domain.Date    { return z.reference }
func (z *ZeroCurve) DayCounter() domain.DayCounter { return z.dc }

// MaxTime last node time.
func (z *ZeroCurve) MaxTime() float64 {
	return z.times[len(z.times)-1]
}

func (z *ZeroCurve) ZeroRate(t float64) (float64, error) {
	if err := checkTime(t); err != nil {
		return 0, err
	}
	last := len(z.times) - 1
	if t > z.times[last] {
		if !z.extrapolate {
			return 0, errors.Wrapf(domain.ErrOutOfRange, "time %v beyond last node %v", t, z.times[last])
		}
		return z.rates[last], nil
	}
	if t <= z.times[0] {
		return z.rates[0], nil
	}

	i := sort.SearchFloat64s(z.times, t)
	t0, t1 := z.times[i-1], z.times[i]
	r0, r1 := z.rates[i-1], z.rates[i]
	return r0 + (r1-r0)*(t-t0)/(t1-t0), nil
}

func (z *ZeroCurve) Discount(t float64) (float64, error) {
	r, err := z.ZeroRate(t)
	if err != nil {
		return 0, err
	}
	return math.Exp(-r * t), nil
}
