// Package integral values European payoffs by quadrature against the
// log-normal terminal density.
package integral

import (
	"context"
	"math"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/vadiminshakov/pricebench/internal/domain"
	"github.com/vadiminshakov/pricebench/internal/engine"
	"github.com/vadiminshakov/pricebench/internal/process"
)

const name = "integral"

// Config quadrature settings.
type Config struct {
	// Points Gauss-Legendre nodes per integration segment, default 256.
	Points int
	// Width integration half-range in standard deviations, default 10.
	Width float64
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{Points: 256, Width: 10}
}

func (c Config) withDefaults() Config {
	if c.Points == 0 {
		c.Points = 256
	}
	if c.Width == 0 {
		c.Width = 10
	}
	return c
}

func (c Config) validate() error {
	if c.Points < 2 {
		return domain.InvalidConfigf("%s: points must be at least 2, got %d", name, c.Points)
	}
	if !(c.Width > 0) {
		return domain.InvalidConfigf("%s: width must be positive, got %v", name, c.Width)
	}
	return nil
}

// Engine integrates the discounted payoff over the terminal distribution.
type Engine struct {
	engine.Binding
	process *process.BlackScholesMerton
	conf    Config
}

// NewEngine zero fields in conf take their defaults.
func NewEngine(p *process.BlackScholesMerton, conf Config) (*Engine, error) {
	if p == nil {
		return nil, domain.InvalidConfigf("%s: nil process", name)
	}
	conf = conf.withDefaults()
	if err := conf.validate(); err != nil {
		return nil, err
	}
	return &Engine{process: p, conf: conf}, nil
}

func (e *Engine) Name() string   { return name }
func (e *Engine) Config() Config { return e.conf }

// Bind accepts any payoff with European exercise.
func (e *Engine) Bind(args engine.Arguments) error {
	if err := engine.RequireEuropean(name, args.Exercise); err != nil {
		return err
	}
	if err := engine.RequirePayoff(name, args.Payoff); err != nil {
		return err
	}
	e.Store(args)
	return nil
}

// Refined doubles the quadrature nodes.
func (e *Engine) Refined() (engine.Engine, error) {
	conf := e.conf
	conf.Points *= 2
	return NewEngine(e.process, conf)
}

func (e *Engine) Calculate(ctx context.Context) (engine.Result, error) {
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
	if variance <= 0 {
		return engine.NewResult(dr * args.Payoff.Value(forward)), nil
	}

	stdDev := math.Sqrt(variance)
	// S_T = F·exp(-v/2 + sqrt(v)·z), z standard normal
	integrand := func(z float64) float64 {
		s := forward * math.Exp(-0.5*variance+stdDev*z)
		return args.Payoff.Value(s) * distuv.UnitNormal.Prob(z)
	}

	lo, hi := -e.conf.Width, e.conf.Width
	var sum float64
	// split at the payoff discontinuity so every segment is smooth
	kink := (math.Log(strike/forward) + 0.5*variance) / stdDev
	if kink > lo && kink < hi {
		sum = quad.Fixed(integrand, lo, kink, e.conf.Points, quad.Legendre{}, 0) +
			quad.Fixed(integrand, kink, hi, e.conf.Points, quad.Legendre{}, 0)
	} else {
		sum = quad.Fixed(integrand, lo, hi, e.conf.Points, quad.Legendre{}, 0)
	}

	value := dr * sum
	if err := engine.CheckFinite(name, value); err != nil {
		return engine.Result{}, err
	}
	return engine.NewResult(value), nil
}
