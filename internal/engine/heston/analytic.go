// Package heston prices European vanilla options under the Heston model by
// Fourier inversion of its characteristic function.
package heston

import (
	"context"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/integrate/quad"

	"github.com/vadiminshakov/pricebench/internal/domain"
	"github.com/vadiminshakov/pricebench/internal/engine"
	"github.com/vadiminshakov/pricebench/internal/process"
)

const analyticName = "heston-analytic"

// AnalyticConfig integration settings of AnalyticEngine.
type AnalyticConfig struct {
	// IntegrationPoints Gauss-Legendre nodes, default 512.
	IntegrationPoints int
	// UpperLimit truncation of the Fourier integral, 0 picks it from the model.
	UpperLimit float64
}

// DefaultAnalyticConfig returns the default settings.
func DefaultAnalyticConfig() AnalyticConfig {
	return AnalyticConfig{IntegrationPoints: 512}
}

func (c AnalyticConfig) withDefaults() AnalyticConfig {
	if c.IntegrationPoints == 0 {
		c.IntegrationPoints = 512
	}
	return c
}

func (c AnalyticConfig) validate() error {
	if c.IntegrationPoints < 2 {
		return domain.InvalidConfigf("%s: integration points must be at least 2, got %d", analyticName, c.IntegrationPoints)
	}
	if c.UpperLimit < 0 || math.IsNaN(c.UpperLimit) {
		return domain.InvalidConfigf("%s: upper limit must be non-negative, got %v", analyticName, c.UpperLimit)
	}
	return nil
}

// AnalyticEngine semi-analytic Heston engine.
type AnalyticEngine struct {
	engine.Binding
	process *process.Heston
	conf    AnalyticConfig
}

// NewAnalyticEngine zero fields in conf take their defaults.
func NewAnalyticEngine(p *process.Heston, conf AnalyticConfig) (*AnalyticEngine, error) {
	if p == nil {
		return nil, domain.InvalidConfigf("%s: nil process", analyticName)
	}
	conf = conf.withDefaults()
	if err := conf.validate(); err != nil {
		return nil, err
	}
	return &AnalyticEngine{process: p, conf: conf}, nil
}

func (e *AnalyticEngine) Name() string           { return analyticName }
func (e *AnalyticEngine) Config() AnalyticConfig { return e.conf }

func (e *AnalyticEngine) Bind(args engine.Arguments) error {
	if err := bindable(analyticName, args); err != nil {
		return err
	}
	e.Store(args)
	return nil
}

// Refined doubles the quadrature nodes.
func (e *AnalyticEngine) Refined() (engine.Engine, error) {
	conf := e.conf
	conf.IntegrationPoints *= 2
	return NewAnalyticEngine(e.process, conf)
}

func (e *AnalyticEngine) Calculate(ctx context.Context) (engine.Result, error) {
	args, err := e.Arguments()
	if err != nil {
		return engine.Result{}, err
	}
	if err := engine.CheckContext(ctx, analyticName); err != nil {
		return engine.Result{}, err
	}
	in, err := loadInputs(e.process, args)
	if err != nil {
		return engine.Result{}, err
	}
	if in.t <= 0 {
		return engine.NewResult(in.intrinsic()), nil
	}

	cf := characteristic{p: e.process.Params(), t: in.t}
	limit := e.conf.UpperLimit
	if limit == 0 {
		limit = cf.upperLimit()
	}

	// call = Dr·[(F-K)/2 + 1/π ∫ Re(e^{-iuk}(F·φ(u-i) - K·φ(u))/(iu)) du], k = ln(K/F)
	k := math.Log(in.strike / in.forward)
	integrand := func(u float64) float64 {
		z := complex(u, 0)
		num := complex(in.forward, 0)*cf.phi(z-1i) - complex(in.strike, 0)*cf.phi(z)
		return real(cmplx.Exp(complex(0, -u*k)) * num / (1i * z))
	}
	integral := quad.Fixed(integrand, 0, limit, e.conf.IntegrationPoints, quad.Legendre{}, 0)
	call := in.discount * (0.5*(in.forward-in.strike) + integral/math.Pi)

	value := call
	if in.optionType == domain.Put {
		value = call - in.discount*(in.forward-in.strike)
	}
	if err := engine.CheckFinite(analyticName, value); err != nil {
		return engine.Result{}, err
	}
	return engine.NewResult(value), nil
}

// inputs market data of one Heston valuation.
type inputs struct {
	optionType domain.OptionType
	strike     float64
	t          float64
	discount   float64
	forward    float64
}

func (in inputs) intrinsic() float64 {
	return in.discount * math.Max(float64(in.optionType)*(in.forward-in.strike), 0)
}

func loadInputs(p *process.Heston, args engine.Arguments) (inputs, error) {
	t := p.Time(args.Exercise.LastDate())
	dr, err := p.RiskFreeDiscount(t)
	if err != nil {
		return inputs{}, err
	}
	fwd, err := p.Forward(t)
	if err != nil {
		return inputs{}, err
	}
	return inputs{
		optionType: args.Payoff.Type(),
		strike:     args.Payoff.Strike(),
		t:          t,
		discount:   dr,
		forward:    fwd,
	}, nil
}

func bindable(name string, args engine.Arguments) error {
	if err := engine.RequireEuropean(name, args.Exercise); err != nil {
		return err
	}
	return engine.RequirePlainVanilla(name, args.Payoff)
}
