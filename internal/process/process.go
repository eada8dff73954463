// Package process defines the stochastic models engines are built against.
//
// Models read market quotes from their snapshot at calculation time; their own
// parameters are fixed at construction.
package process

import (
	"math"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/pricebench/internal/domain"
	"github.com/vadiminshakov/pricebench/internal/market"
)

// Model sealed set of process variants.
type Model interface {
	Name() string
	Snapshot() *market.Snapshot
	sealed()
}

type base struct {
	snap *market.Snapshot
}

func (b base) Snapshot() *market.Snapshot { return b.snap }
func (b base) sealed()                    {}

// X0 current spot.
func (b base) X0() float64 {
	return b.snap.Spot().Value()
}

// Time year fraction from the curves' reference date to d.
func (b base) Time(d domain.Date) float64 {
	return market.TimeFromReference(b.snap.RiskFree(), d)
}

// RiskFreeDiscount discount factor on the risk-free curve.
func (b base) RiskFreeDiscount(t float64) (float64, error) {
	df, err := b.snap.RiskFree().Discount(t)
	return df, errors.Wrap(err, "risk-free discount")
}

// DividendDiscount discount factor on the dividend curve.
func (b base) DividendDiscount(t float64) (float64, error) {
	df, err := b.snap.Dividend().Discount(t)
	return df, errors.Wrap(err, "dividend discount")
}

// Forward expected spot at t under the risk-neutral measure.
func (b base) Forward(t float64) (float64, error) {
	dr, err := b.RiskFreeDiscount(t)
	if err != nil {
		return 0, err
	}
	dq, err := b.DividendDiscount(t)
	if err != nil {
		return 0, err
	}
	return b.X0() * dq / dr, nil
}

// CarryRate continuously compounded r-q between t1 and t2.
func (b base) CarryRate(t1, t2 float64) (float64, error) {
	r, err := market.ForwardRate(b.snap.RiskFree(), t1, t2)
	if err != nil {
		return 0, errors.Wrap(err, "risk-free forward rate")
	}
	q, err := market.ForwardRate(b.snap.Dividend(), t1, t2)
	if err != nil {
		return 0, errors.Wrap(err, "dividend forward rate")
	}
	return r - q, nil
}

// BlackScholesMerton log-normal diffusion with deterministic rates, dividends and volatility.
type BlackScholesMerton struct {
	base
}

// NewBlackScholesMerton returns the log-normal process observing snap.
func NewBlackScholesMerton(snap *market.Snapshot) (*BlackScholesMerton, error) {
	if snap == nil {
		return nil, domain.InvalidConfigf("black-scholes-merton process requires a market snapshot")
	}
	return &BlackScholesMerton{base{snap: snap}}, nil
}

func (p *BlackScholesMerton) Name() string { return "black-scholes-merton" }

// BlackVariance total variance to t for the given strike.
func (p *BlackScholesMerton) BlackVariance(t, strike float64) (float64, error) {
	v, err := p.snap.Volatility().BlackVariance(t, strike)
	return v, errors.Wrap(err, "black variance")
}

// BlackVol volatility to t for the given strike.
func (p *BlackScholesMerton) BlackVol(t, strike float64) (float64, error) {
	v, err := p.snap.Volatility().BlackVol(t, strike)
	return v, errors.Wrap(err, "black volatility")
}

// FlatParams collapses the curves to constant r, q and vol up to maturity t.
func (p *BlackScholesMerton) FlatParams(t, strike float64) (FlatParams, error) {
	r, err := p.snap.RiskFree().ZeroRate(t)
	if err != nil {
		return FlatParams{}, errors.Wrap(err, "risk-free zero rate")
	}
	q, err := p.snap.Dividend().ZeroRate(t)
	if err != nil {
		return FlatParams{}, errors.Wrap(err, "dividend zero rate")
	}
	vol, err := p.BlackVol(t, strike)
	if err != nil {
		return FlatParams{}, err
	}
	return FlatParams{Spot: p.X0(), R: r, Q: q, Vol: vol, T: t}, nil
}

// FlatParams constant-coefficient view of a process up to T.
type FlatParams struct {
	Spot float64
	R    float64
	Q    float64
	Vol  float64
	T    float64
}

// Drift log-spot drift per unit time.
func (f FlatParams) Drift() float64 {
	return f.R - f.Q - 0.5*f.Vol*f.Vol
}

// StdDev total standard deviation of log-spot at T.
func (f FlatParams) StdDev() float64 {
	return f.Vol * math.Sqrt(f.T)
}

// HestonParams square-root variance process parameters.
type HestonParams struct {
	V0    float64
	Kappa float64
	Theta float64
	Sigma float64
	Rho   float64
}

// FellerSatisfied reports whether 2κθ ≥ σ².
func (h HestonParams) FellerSatisfied() bool {
	return 2*h.Kappa*h.Theta >= h.Sigma*h.Sigma
}

// Heston stochastic-volatility process.
type Heston struct {
	base
	params HestonParams
}

// NewHeston validates the parameters; the Feller condition is not enforced.
func NewHeston(snap *market.Snapshot, params HestonParams) (*Heston, error) {
	if snap == nil {
		return nil, domain.InvalidConfigf("heston process requires a market snapshot")
	}
	switch {
	case params.V0 < 0:
		return nil, domain.InvalidConfigf("heston v0 must be non-negative, got %v", params.V0)
	case params.Theta < 0:
		return nil, domain.InvalidConfigf("heston theta must be non-negative, got %v", params.Theta)
	case params.Kappa <= 0:
		return nil, domain.InvalidConfigf("heston kappa must be positive, got %v", params.Kappa)
	case params.Sigma < 0:
		return nil, domain.InvalidConfigf("heston sigma must be non-negative, got %v", params.Sigma)
	case math.Abs(params.Rho) > 1:
		return nil, domain.InvalidConfigf("heston rho must lie in [-1, 1], got %v", params.Rho)
	}
	return &Heston{base: base{snap: snap}, params: params}, nil
}

func (p *Heston) Name() string { return "heston" }

// Params returns a copy of the model parameters.
func (p *Heston) Params() HestonParams {
	return p.params
}
