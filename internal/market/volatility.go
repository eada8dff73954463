package market

import (
	"github.com/vadiminshakov/pricebench/internal/domain"
)

// BlackVolCurve Black volatility by time and strike.
type BlackVolCurve interface {
	ReferenceDate() domain.Date
	DayCounter() domain.DayCounter
	BlackVol(t, strike float64) (float64, error)
	BlackVariance(t, strike float64) (float64, error)
}

// BlackConstantVol flat volatility for every time and strike.
type BlackConstantVol struct {
	reference domain.Date
	vol       *domain.Quote
	dc        domain.DayCounter
}

// NewBlackConstantVol returns a constant volatility surface.
func NewBlackConstantVol(reference domain.Date, vol float64, dc domain.DayCounter) *BlackConstantVol {
	return NewBlackConstantVolQuote(reference, domain.NewQuote(vol), dc)
}

// NewBlackConstantVolQuote returns a constant volatility surface following the quote.
func NewBlackConstantVolQuote(reference domain.Date, vol *domain.Quote, dc domain.DayCounter) *BlackConstantVol {
	if dc == nil {
		dc = domain.Actual365Fixed{}
	}
	return &BlackConstantVol{reference: reference, vol: vol, dc: dc}
}

func (v *BlackConstantVol) ReferenceDate() domain.Date    { return v.reference }
func (v *BlackConstantVol) DayCounter() domain.DayCounter { return v.dc }
func (v *BlackConstantVol) Version() uint64               { return v.vol.Version() }
func (v *BlackConstantVol) VolQuote() *domain.Quote       { return v.vol }

func (v *BlackConstantVol) BlackVol(t, _ float64) (float64, error) {
	if err := checkTime(t); err != nil {
		return 0, err
	}
	return v.vol.Value(), nil
}

func (v *BlackConstantVol) BlackVariance(t, strike float64) (float64, error) {
	vol, err := v.BlackVol(t, strike)
	if err != nil {
		return 0, err
	}
	return vol * vol * t, nil
}
