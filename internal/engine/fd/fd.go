// Package fd solves the Black-Scholes PDE for European payoffs with a
// Crank-Nicolson scheme on a uniform log-spot grid.
package fd

import (
	"context"
	"math"

	"github.com/vadiminshakov/pricebench/internal/domain"
	"github.com/vadiminshakov/pricebench/internal/engine"
	"github.com/vadiminshakov/pricebench/internal/process"
)

const (
	name = "finite-difference"

	// grid half-width in standard deviations
	gridStdDevs = 5.0
	// smallest grid half-width in log-spot
	minHalfWidth = 0.05
)

// Config grid settings.
type Config struct {
	// TimeSteps default 100.
	TimeSteps int
	// GridPoints default 100.
	GridPoints int
	// DampingSteps fully implicit steps taken before Crank-Nicolson, default 0.
	DampingSteps int
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{TimeSteps: 100, GridPoints: 100}
}

func (c Config) withDefaults() Config {
	if c.TimeSteps == 0 {
		c.TimeSteps = 100
	}
	if c.GridPoints == 0 {
		c.GridPoints = 100
	}
	return c
}

func (c Config) validate() error {
	switch {
	case c.TimeSteps < 1:
		return domain.InvalidConfigf("%s: time steps must be positive, got %d", name, c.TimeSteps)
	case c.GridPoints < 5:
		return domain.InvalidConfigf("%s: grid needs at least 5 points, got %d", name, c.GridPoints)
	case c.DampingSteps < 0 || c.DampingSteps > c.TimeSteps:
		return domain.InvalidConfigf("%s: damping steps must lie in [0, %d], got %d", name, c.TimeSteps, c.DampingSteps)
	}
	return nil
}

// EuropeanEngine finite-difference engine.
type EuropeanEngine struct {
	engine.Binding
	process *process.BlackScholesMerton
	conf    Config
}

// NewEuropeanEngine zero fields in conf take their defaults.
func NewEuropeanEngine(p *process.BlackScholesMerton, conf Config) (*EuropeanEngine, error) {
	if p == nil {
		return nil, domain.InvalidConfigf("%s: nil process", name)
	}
	conf = conf.withDefaults()
	if err := conf.validate(); err != nil {
		return nil, err
	}
	return &EuropeanEngine{process: p, conf: conf}, nil
}

func (e *EuropeanEngine) Name() string   { return name }
func (e *EuropeanEngine) Config() Config { return e.conf }

// Bind accepts any payoff with European exercise.
func (e *EuropeanEngine) Bind(args engine.Arguments) error {
	if err := engine.RequireEuropean(name, args.Exercise); err != nil {
		return err
	}
	if err := engine.RequirePayoff(name, args.Payoff); err != nil {
		return err
	}
	e.Store(args)
	return nil
}

// Refined doubles both time steps and grid points.
func (e *EuropeanEngine) Refined() (engine.Engine, error) {
	conf := e.conf
	conf.TimeSteps *= 2
	conf.GridPoints *= 2
	conf.DampingSteps *= 2
	return NewEuropeanEngine(e.process, conf)
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
	params, err := e.process.FlatParams(t, strike)
	if err != nil {
		return engine.Result{}, err
	}
	if t <= 0 {
		return engine.NewResult(args.Payoff.Value(params.Spot)), nil
	}

	g := newGrid(params, strike, e.conf.GridPoints)
	values := make([]float64, g.size())
	for j := range values {
		values[j] = args.Payoff.Value(g.spot(j))
	}

	dt := t / float64(e.conf.TimeSteps)
	op := newOperator(params, g.dx)
	implicit := newStepper(op, dt, 1)
	crank := newStepper(op, dt, 0.5)

	for step := 1; step <= e.conf.TimeSteps; step++ {
		if step%64 == 0 {
			if err := engine.CheckContext(ctx, name); err != nil {
				return engine.Result{}, err
			}
		}
		tau := float64(step) * dt
		lower, upper := boundaries(args.Payoff, params, g, tau)

		s := crank
		if step <= e.conf.DampingSteps {
			s = implicit
		}
		if err := s.step(values, lower, upper); err != nil {
			return engine.Result{}, err
		}
	}

	value := g.interpolate(values, math.Log(params.Spot))
	if err := engine.CheckFinite(name, value); err != nil {
		return engine.Result{}, err
	}
	return engine.NewResult(value), nil
}

// boundaries Dirichlet values at time-to-maturity tau: the discounted payoff of
// the forward, exact far from the strike for linear and digital payoffs.
func boundaries(payoff domain.Payoff, p process.FlatParams, g grid, tau float64) (float64, float64) {
	growth := math.Exp((p.R - p.Q) * tau)
	df := math.Exp(-p.R * tau)
	lower := df * payoff.Value(g.spot(0)*growth)
	upper := df * payoff.Value(g.spot(g.size()-1)*growth)
	return lower, upper
}
