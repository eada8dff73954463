package market

import (
	"github.com/vadiminshakov/pricebench/internal/domain"
)

// Snapshot observable market inputs shared by every process and engine built from it.
type Snapshot struct {
	ctx      domain.EvaluationContext
	spot     *domain.Quote
	riskFree YieldCurve
	dividend YieldCurve
	vol      BlackVolCurve
}

// NewSnapshot bundles the market inputs; all curves must share one reference date.
func NewSnapshot(ctx domain.EvaluationContext, spot *domain.Quote, riskFree, dividend YieldCurve, vol BlackVolCurve) (*Snapshot, error) {
	if spot == nil || riskFree == nil || dividend == nil || vol == nil {
		return nil, domain.InvalidConfigf("snapshot requires spot, risk-free curve, dividend curve and volatility")
	}
	if spot.Value() <= 0 {
		return nil, domain.InvalidConfigf("spot must be positive, got %v", spot.Value())
	}

	ref := riskFree.ReferenceDate()
	if !dividend.ReferenceDate().Equal(ref) || !vol.ReferenceDate().Equal(ref) {
		return nil, domain.InvalidConfigf("curves must share reference date %s (dividend %s, volatility %s)",
			ref, dividend.ReferenceDate(), vol.ReferenceDate())
	}
	if ref.Before(ctx.Today) {
		return nil, domain.InvalidConfigf("reference date %s precedes evaluation date %s", ref, ctx.Today)
	}

	return &Snapshot{ctx: ctx, spot: spot, riskFree: riskFree, dividend: dividend, vol: vol}, nil
}

func (s *Snapshot) Context() domain.EvaluationContext { return s.ctx }
func (s *Snapshot) Spot() *domain.Quote               { return s.spot }
func (s *Snapshot) RiskFree() YieldCurve              { return s.riskFree }
func (s *Snapshot) Dividend() YieldCurve              { return s.dividend }
func (s *Snapshot) Volatility() BlackVolCurve         { return s.vol }

// ReferenceDate settlement date shared by the curves.
func (s *Snapshot) ReferenceDate() domain.Date {
	return s.riskFree.ReferenceDate()
}

// Version changes whenever any quote observed by the snapshot changes.
func (s *Snapshot) Version() uint64 {
	v := s.spot.Version()
	for _, o := range []any{s.riskFree, s.dividend, s.vol} {
		if vo, ok := o.(versioned); ok {
			v += vo.Version()
		}
	}
	return v
}
