// Package montecarlo values European payoffs by simulating log-normal paths.
package montecarlo

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/vadiminshakov/pricebench/internal/domain"
	"github.com/vadiminshakov/pricebench/internal/engine"
	"github.com/vadiminshakov/pricebench/internal/process"
	"github.com/vadiminshakov/pricebench/internal/random"
)

const (
	name = "montecarlo"

	// paths per chunk merged into the statistics, also the cancellation
	// check interval
	checkEvery = 4096

	// largest batch scheduled in one step of an uncapped tolerance run
	maxBatch = 1 << 24
)

// EuropeanEngine Monte Carlo engine. A fresh generator is built on every
// Calculate, so repeated calls with unchanged inputs give identical results.
type EuropeanEngine struct {
	engine.Binding
	process *process.BlackScholesMerton
	conf    Config
	logger  *zap.Logger
}

// NewEuropeanEngine validates conf eagerly. A nil logger is replaced by a no-op one.
func NewEuropeanEngine(p *process.BlackScholesMerton, conf Config, logger *zap.Logger) (*EuropeanEngine, error) {
	if p == nil {
		return nil, domain.InvalidConfigf("%s: nil process", name)
	}
	conf, err := conf.withDefaults().validate()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EuropeanEngine{process: p, conf: conf, logger: logger}, nil
}

func (e *EuropeanEngine) Name() string   { return name + "-" + string(e.conf.Sampling) }
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

// Refined doubles the sample budget: the fixed sample count, or the cap in
// tolerance mode. An uncapped tolerance run has no budget to grow and is
// rebuilt unchanged.
func (e *EuropeanEngine) Refined() (engine.Engine, error) {
	conf := e.conf
	if conf.RequiredSamples > 0 {
		conf.RequiredSamples *= 2
	} else {
		conf.MaxSamples *= 2
	}
	return NewEuropeanEngine(e.process, conf, e.logger)
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
	if t <= 0 {
		return engine.NewResult(args.Payoff.Value(e.process.X0())), nil
	}
	pricer, err := e.newPathPricer(args.Payoff, t)
	if err != nil {
		return engine.Result{}, err
	}
	gen, err := e.newGenerator()
	if err != nil {
		return engine.Result{}, err
	}

	var stats statistics
	if e.conf.RequiredSamples > 0 {
		if err := e.simulate(ctx, &stats, pricer, gen, e.conf.RequiredSamples); err != nil {
			return engine.Result{}, err
		}
	} else if err := e.simulateToTolerance(ctx, &stats, pricer, gen); err != nil {
		return engine.Result{}, err
	}

	if err := engine.CheckFinite(name, stats.mean); err != nil {
		return engine.Result{}, err
	}
	if e.conf.Sampling == LowDiscrepancy || stats.samples() < 2 {
		return engine.Result{Value: stats.mean, Samples: stats.samples()}, nil
	}
	return engine.NewEstimatedResult(stats.mean, stats.errorEstimate(), stats.samples()), nil
}

// simulateToTolerance grows the sample in batches until the standard error
// reaches the tolerance.
func (e *EuropeanEngine) simulateToTolerance(ctx context.Context, stats *statistics, pricer *pathPricer, gen random.Gaussian) error {
	tol := e.conf.RequiredTolerance
	minSamples := e.conf.MinSamples
	maxSamples := e.conf.MaxSamples

	if err := e.simulate(ctx, stats, pricer, gen, minSamples); err != nil {
		return err
	}
	for errEst := stats.errorEstimate(); errEst > tol; errEst = stats.errorEstimate() {
		n := stats.samples()
		if maxSamples > 0 && n >= maxSamples {
			return domain.NewNumericalError(e.Name(),
				"max number of samples (%d) reached, while error (%.6f) is still above tolerance (%.6f)", maxSamples, errEst, tol)
		}

		// clamp before converting, order overflows int for tiny tolerances
		order := errEst * errEst / (tol * tol)
		nextF := math.Max(float64(n)*order*0.8-float64(n), float64(minSamples))
		if maxSamples > 0 {
			nextF = math.Min(nextF, float64(maxSamples-n))
		}
		next := int(math.Min(nextF, maxBatch))
		e.logger.Debug("monte carlo batch",
			zap.String("engine", e.Name()),
			zap.Int("samples", n),
			zap.Float64("error", errEst),
			zap.Int("next", next))

		if err := engine.CheckContext(ctx, e.Name()); err != nil {
			return err
		}
		if err := e.simulate(ctx, stats, pricer, gen, next); err != nil {
			return err
		}
	}
	return nil
}

// simulate adds n discounted path values to stats, chunk by chunk.
func (e *EuropeanEngine) simulate(ctx context.Context, stats *statistics, pricer *pathPricer, gen random.Gaussian, n int) error {
	if n <= 0 {
		return nil
	}
	chunk := make([]float64, min(n, checkEvery))
	draws := make([]float64, gen.Dimension())
	for done := 0; done < n; {
		if done > 0 {
			if err := engine.CheckContext(ctx, e.Name()); err != nil {
				return err
			}
		}
		values := chunk[:min(n-done, len(chunk))]
		for i := range values {
			gen.Next(draws)
			v := pricer.value(draws, 1)
			if e.conf.Antithetic {
				v = 0.5 * (v + pricer.value(draws, -1))
			}
			values[i] = v
		}
		stats.addBatch(values)
		done += len(values)
	}
	return nil
}

func (e *EuropeanEngine) newGenerator() (random.Gaussian, error) {
	if e.conf.Sampling == LowDiscrepancy {
		return random.NewSobolGaussian(e.conf.TimeSteps)
	}
	return random.NewGaussian(e.conf.Seed, e.conf.TimeSteps)
}

// pathPricer discounted payoff of one log-normal path stepped exactly over
// equal intervals with the curves' forward drift and variance.
type pathPricer struct {
	payoff   domain.Payoff
	logSpot  float64
	drift    []float64
	stdDev   []float64
	discount float64
}

func (e *EuropeanEngine) newPathPricer(payoff domain.Payoff, t float64) (*pathPricer, error) {
	strike := payoff.Strike()
	steps := e.conf.TimeSteps
	dt := t / float64(steps)

	p := &pathPricer{
		payoff:  payoff,
		logSpot: math.Log(e.process.X0()),
		drift:   make([]float64, steps),
		stdDev:  make([]float64, steps),
	}
	prevVariance := 0.0
	for k := 0; k < steps; k++ {
		t1, t2 := float64(k)*dt, float64(k+1)*dt
		carry, err := e.process.CarryRate(t1, t2)
		if err != nil {
			return nil, err
		}
		variance, err := e.process.BlackVariance(t2, strike)
		if err != nil {
			return nil, err
		}
		step := math.Max(variance-prevVariance, 0)
		prevVariance = variance

		p.drift[k] = carry*dt - 0.5*step
		p.stdDev[k] = math.Sqrt(step)
	}

	discount, err := e.process.RiskFreeDiscount(t)
	if err != nil {
		return nil, err
	}
	p.discount = discount
	return p, nil
}

// value prices the path driven by sign·draws.
func (p *pathPricer) value(draws []float64, sign float64) float64 {
	x := p.logSpot
	for k, z := range draws {
		x += p.drift[k] + p.stdDev[k]*sign*z
	}
	return p.discount * p.payoff.Value(math.Exp(x))
}
