// Package analytic prices European options in closed form under Black-Scholes-Merton.
package analytic

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/vadiminshakov/pricebench/internal/domain"
	"github.com/vadiminshakov/pricebench/internal/engine"
	"github.com/vadiminshakov/pricebench/internal/process"
)

const name = "analytic"

// EuropeanEngine Black formula on the forward.
type EuropeanEngine struct {
	engine.Binding
	process *process.BlackScholesMerton
}

// NewEuropeanEngine returns a closed-form engine for p.
func NewEuropeanEngine(p *process.BlackScholesMerton) (*EuropeanEngine, error) {
	if p == nil {
		return nil, domain.InvalidConfigf("%s: nil process", name)
	}
	return &EuropeanEngine{process: p}, nil
}

func (e *EuropeanEngine) Name() string { return name }

// Bind accepts plain vanilla and cash-or-nothing payoffs with European exercise.
func (e *EuropeanEngine) Bind(args engine.Arguments) error {
	if err := engine.RequireEuropean(name, args.Exercise); err != nil {
		return err
	}
	switch args.Payoff.(type) {
	case domain.PlainVanilla, domain.CashOrNothing:
	default:
		if err := engine.RequirePayoff(name, args.Payoff); err != nil {
			return err
		}
		return errors.Wrapf(domain.ErrIncompatiblePayoff, "%s: %s payoff not supported", name, args.Payoff.Name())
	}
	e.Store(args)
	return nil
}

func (e *EuropeanEngine) Calculate(ctx context.Context) (engine.Result, error) {
	args, err := e.Arguments()
	if err != nil {
		return engine.Result{}, err
	}
	if err := engine.CheckContext(ctx, name); err != nil {
		return engine.Result{}, err
	}

	t := e.process.Time(args.Exercise.LastDate())
	strike := args.Payoff.Strike()
	dr, err := e.process.RiskFreeDiscount(t)
	if err != nil {
		return engine.Result{}, err
	}
	forward, err := e.process.Forward(t)
	if err != nil {
		return engine.Result{}, err
	}
	variance, err := e.process.BlackVariance(t, strike)
	if err != nil {
		return engine.Result{}, err
	}
	stdDev := math.Sqrt(variance)

	var value float64
	switch p := args.Payoff.(type) {
	case domain.PlainVanilla:
		value = BlackFormula(p.OptionType, strike, forward, stdDev, dr)
	case domain.CashOrNothing:
		value = CashOrNothingFormula(p.OptionType, strike, forward, stdDev, dr, p.Cash)
	}
	if err := engine.CheckFinite(name, value); err != nil {
		return engine.Result{}, err
	}
	return engine.NewResult(value), nil
}

// BlackFormula undiscounted Black price multiplied by discount.
// A zero standard deviation yields the discounted intrinsic value on the forward.
func BlackFormula(t domain.OptionType, strike, forward, stdDev, discount float64) float64 {
	w := float64(t)
	if stdDev == 0 {
		return discount * math.Max(w*(forward-strike), 0)
	}
	d1 := math.Log(forward/strike)/stdDev + 0.5*stdDev
	d2 := d1 - stdDev
	return discount * w * (forward*distuv.UnitNormal.CDF(w*d1) - strike*distuv.UnitNormal.CDF(w*d2))
}

// CashOrNothingFormula discounted digital price.
func CashOrNothingFormula(t domain.OptionType, strike, forward, stdDev, discount, cash float64) float64 {
	w := float64(t)
	if stdDev == 0 {
		if w*(forward-strike) > 0 {
			return discount * cash
		}
		return 0
	}
	d2 := math.Log(forward/strike)/stdDev - 0.5*stdDev
	return discount * cash * distuv.UnitNormal.CDF(w*d2)
}
