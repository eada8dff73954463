package internal

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/pricebench/config"
	"github.com/vadiminshakov/pricebench/internal/domain"
	"github.com/vadiminshakov/pricebench/internal/engine"
	"github.com/vadiminshakov/pricebench/internal/engine/analytic"
	"github.com/vadiminshakov/pricebench/internal/engine/fd"
	"github.com/vadiminshakov/pricebench/internal/engine/heston"
	"github.com/vadiminshakov/pricebench/internal/engine/integral"
	"github.com/vadiminshakov/pricebench/internal/engine/lattice"
	"github.com/vadiminshakov/pricebench/internal/engine/montecarlo"
	"github.com/vadiminshakov/pricebench/internal/process"
)

// Models processes the engines of a run are built against.
type Models struct {
	BlackScholes *process.BlackScholesMerton
	// Heston nil when the scenario has no stochastic-volatility parameters.
	Heston *process.Heston
}

// EngineFactory builds the engine described by spec.
type EngineFactory func(spec config.EngineSpec, models Models, logger *zap.Logger) (engine.Engine, error)

// NewEngine is the single dispatch point from engine type identifiers to
// engine constructors.
func NewEngine(spec config.EngineSpec, models Models, logger *zap.Logger) (engine.Engine, error) {
	bsm := models.BlackScholes

	switch spec.Type {
	case config.EngineAnalytic:
		return built(analytic.NewEuropeanEngine(bsm))

	case config.EngineHestonAnalytic:
		if models.Heston == nil {
			return nil, domain.InvalidConfigf("engine %q needs heston parameters", spec.Label)
		}
		return built(heston.NewAnalyticEngine(models.Heston, heston.AnalyticConfig{
			IntegrationPoints: spec.IntegrationPoints,
			UpperLimit:        spec.UpperLimit,
		}))

	case config.EngineHestonCOS:
		if models.Heston == nil {
			return nil, domain.InvalidConfigf("engine %q needs heston parameters", spec.Label)
		}
		return built(heston.NewCOSEngine(models.Heston, heston.COSConfig{
			L: spec.COSTruncation,
			N: spec.COSTerms,
		}))

	case config.EngineIntegral:
		return built(integral.NewEngine(bsm, integral.Config{
			Points: spec.Points,
			Width:  spec.Width,
		}))

	case config.EngineFiniteDifference:
		return built(fd.NewEuropeanEngine(bsm, fd.Config{
			TimeSteps:    spec.TimeSteps,
			GridPoints:   spec.GridPoints,
			DampingSteps: spec.DampingSteps,
		}))

	case config.EngineBinomial:
		scheme, err := lattice.ParseScheme(spec.Scheme)
		if err != nil {
			return nil, errors.Wrapf(err, "engine %q", spec.Label)
		}
		return built(lattice.NewEngine(bsm, lattice.Config{
			Scheme:    scheme,
			TimeSteps: spec.TimeSteps,
		}))

	case config.EngineMonteCarlo:
		sampling, err := montecarlo.ParseSampling(spec.Sampling)
		if err != nil {
			return nil, errors.Wrapf(err, "engine %q", spec.Label)
		}
		return built(montecarlo.NewEuropeanEngine(bsm, montecarlo.Config{
			Sampling:          sampling,
			TimeSteps:         spec.TimeSteps,
			RequiredSamples:   spec.RequiredSamples,
			RequiredTolerance: spec.RequiredTolerance,
			MaxSamples:        spec.MaxSamples,
			MinSamples:        spec.MinSamples,
			Seed:              spec.Seed,
			Antithetic:        spec.Antithetic,
		}, logger.With(zap.String("engine", spec.Label))))

	default:
		return nil, errors.Wrapf(domain.ErrUnknownEngine, "engine %q: type %q", spec.Label, spec.Type)
	}
}

// built drops the typed nil a failed constructor returns.
func built[E engine.Engine](e E, err error) (engine.Engine, error) {
	if err != nil {
		return nil, err
	}
	return e, nil
}
