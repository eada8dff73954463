// Package lattice values European and American options on recombining
// binomial trees.
package lattice

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/pricebench/internal/domain"
	"github.com/vadiminshakov/pricebench/internal/engine"
	"github.com/vadiminshakov/pricebench/internal/process"
)

const name = "binomial"

// Config tree settings.
type Config struct {
	// Scheme required.
	Scheme Scheme
	// TimeSteps default 801; LR and Joshi4 round even counts up.
	TimeSteps int
}

func (c Config) withDefaults() Config {
	if c.TimeSteps == 0 {
		c.TimeSteps = 801
	}
	return c
}

func (c Config) validate() (Config, error) {
	scheme, err := ParseScheme(string(c.Scheme))
	if err != nil {
		return c, err
	}
	c.Scheme = scheme
	if c.TimeSteps < 1 {
		return c, domain.InvalidConfigf("%s: time steps must be positive, got %d", name, c.TimeSteps)
	}
	return c, nil
}

// Engine binomial engine.
type Engine struct {
	engine.Binding
	process *process.BlackScholesMerton
	conf    Config
}

// NewEngine fails with ErrUnknownScheme for an unrecognized scheme.
func NewEngine(p *process.BlackScholesMerton, conf Config) (*Engine, error) {
	if p == nil {
		return nil, domain.InvalidConfigf("%s: nil process", name)
	}
	conf, err := conf.withDefaults().validate()
	if err != nil {
		return nil, err
	}
	return &Engine{process: p, conf: conf}, nil
}

func (e *Engine) Name() string   { return name + "-" + string(e.conf.Scheme) }
func (e *Engine) Config() Config { return e.conf }

// Bind accepts any payoff with European or American exercise.
func (e *Engine) Bind(args engine.Arguments) error {
	if err := engine.RequirePayoff(name, args.Payoff); err != nil {
		return err
	}
	switch args.Exercise.(type) {
	case domain.European, domain.American:
	default:
		if args.Exercise == nil {
			return errors.Wrapf(domain.ErrIncompatibleExercise, "%s: no exercise", name)
		}
		return errors.Wrapf(domain.ErrIncompatibleExercise, "%s: %s exercise not supported", name, args.Exercise.Name())
	}
	e.Store(args)
	return nil
}

// Refined doubles the time steps.
func (e *Engine) Refined() (engine.Engine, error) {
	conf := e.conf
	conf.TimeSteps *= 2
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
	params, err := e.process.FlatParams(t, strike)
	if err != nil {
		return engine.Result{}, err
	}
	if t <= 0 {
		return engine.NewResult(args.Payoff.Value(params.Spot)), nil
	}

	tr, err := e.conf.Scheme.build(treeInputs{
		spot:     params.Spot,
		strike:   strike,
		drift:    params.Drift(),
		variance: params.Vol * params.Vol * t,
		t:        t,
	}, e.conf.TimeSteps)
	if err != nil {
		return engine.Result{}, err
	}

	earliest := math.Inf(1)
	if am, ok := args.Exercise.(domain.American); ok {
		earliest = math.Max(e.process.Time(am.Earliest), 0)
	}

	value, err := rollback(ctx, tr, params, t, earliest, args.Payoff)
	if err != nil {
		return engine.Result{}, err
	}
	if err := engine.CheckFinite(name, value); err != nil {
		return engine.Result{}, err
	}
	return engine.NewResult(value), nil
}

// rollback discounts the terminal payoff back to the root, exercising early at
// every node whose time is not before earliest.
func rollback(ctx context.Context, tr tree, p process.FlatParams, t, earliest float64, payoff domain.Payoff) (float64, error) {
	dt := t / float64(tr.steps)
	disc := math.Exp(-p.R * dt)
	pu, pd := tr.pu, 1-tr.pu

	node := func(i, j int) float64 {
		return p.Spot * math.Exp(float64(i)*tr.alpha+float64(j)*tr.beta)
	}

	values := make([]float64, tr.steps+1)
	for j := range values {
		values[j] = payoff.Value(node(tr.steps, j))
	}
	for i := tr.steps - 1; i >= 0; i-- {
		if i%256 == 0 {
			if err := engine.CheckContext(ctx, name); err != nil {
				return 0, err
			}
		}
		exercisable := float64(i)*dt >= earliest
		for j := 0; j <= i; j++ {
			v := disc * (pd*values[j] + pu*values[j+1])
			if exercisable {
				v = math.Max(v, payoff.Value(node(i, j)))
			}
			values[j] = v
		}
	}
	return values[0], nil
}
