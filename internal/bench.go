package internal

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/pricebench/config"
	"github.com/vadiminshakov/pricebench/internal/domain"
	"github.com/vadiminshakov/pricebench/internal/engine"
	"github.com/vadiminshakov/pricebench/internal/instrument"
	"github.com/vadiminshakov/pricebench/internal/market"
	"github.com/vadiminshakov/pricebench/internal/process"
	"github.com/vadiminshakov/pricebench/internal/report"
	"github.com/vadiminshakov/pricebench/pkg/retrier"
)

// Bench values one option with every configured engine and reports the
// rows in configuration order.
type Bench struct {
	conf      config.Config
	logger    *zap.Logger
	sink      report.Sink
	newEngine EngineFactory

	snapshot *market.Snapshot
	models   Models
	option   *instrument.VanillaOption
}

// NewBench validates conf and builds the market, models and option.
func NewBench(conf config.Config, logger *zap.Logger, sink report.Sink) (*Bench, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		return nil, errors.New("bench requires a report sink")
	}

	snap, err := newSnapshot(conf)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build market snapshot")
	}

	bsm, err := process.NewBlackScholesMerton(snap)
	if err != nil {
		return nil, err
	}
	models := Models{BlackScholes: bsm}
	if conf.Heston != nil {
		if models.Heston, err = process.NewHeston(snap, *conf.Heston); err != nil {
			return nil, err
		}
	}

	option, err := newOption(conf, snap)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build option")
	}

	return &Bench{
		conf:      conf,
		logger:    logger,
		sink:      sink,
		newEngine: NewEngine,
		snapshot:  snap,
		models:    models,
		option:    option,
	}, nil
}

func newSnapshot(conf config.Config) (*market.Snapshot, error) {
	dc := conf.DayCounter
	settlement := conf.SettlementDate
	return market.NewSnapshot(
		domain.NewEvaluationContext(conf.EvaluationDate, dc),
		domain.NewQuote(conf.Market.Spot),
		market.NewFlatForward(settlement, conf.Market.RiskFreeRate, dc),
		market.NewFlatForward(settlement, conf.Market.DividendYield, dc),
		market.NewBlackConstantVol(settlement, conf.Market.Volatility, dc),
	)
}

func newOption(conf config.Config, snap *market.Snapshot) (*instrument.VanillaOption, error) {
	terms := conf.Option

	var (
		payoff domain.Payoff
		err    error
	)
	switch terms.Payoff {
	case config.PayoffCashOrNothing:
		payoff, err = domain.NewCashOrNothing(terms.Type, terms.Strike, terms.Cash)
	default:
		payoff, err = domain.NewPlainVanilla(terms.Type, terms.Strike)
	}
	if err != nil {
		return nil, err
	}

	var exercise domain.Exercise = domain.European{Date: terms.Maturity}
	if terms.Exercise == config.ExerciseAmerican {
		earliest := terms.Earliest
		if earliest.IsZero() {
			earliest = conf.SettlementDate
		}
		exercise = domain.American{Earliest: earliest, Latest: terms.Maturity}
	}

	return instrument.NewVanillaOption(payoff, exercise, snap)
}

// Snapshot market data shared by every valuation of the run.
func (b *Bench) Snapshot() *market.Snapshot { return b.snapshot }

// Run values the option with each engine, reports every row and flushes the
// sink. Engine failures become failed rows; the returned error covers
// cancellation and sink failures only.
func (b *Bench) Run(ctx context.Context) ([]report.Row, error) {
	rows := make([]report.Row, len(b.conf.Engines))

	if b.conf.Parallel {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(b.conf.Workers)
		for i, spec := range b.conf.Engines {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				// each worker owns its option, the snapshot is only read
				rows[i] = b.value(gctx, b.option.Clone(), spec)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, errors.Wrap(err, "bench interrupted")
		}
	} else {
		for i, spec := range b.conf.Engines {
			if ctx.Err() != nil {
				break
			}
			rows[i] = b.value(ctx, b.option, spec)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "bench interrupted")
	}

	reference := b.reference(rows)
	var err error
	for i := range rows {
		rows[i].Reference = reference
		err = multierr.Append(err, b.sink.Report(rows[i]))
	}
	err = multierr.Append(err, b.sink.Flush())
	if err != nil {
		return rows, errors.Wrap(err, "failed to report valuations")
	}
	return rows, nil
}

// reference value of the configured reference engine, else of the first
// engine that succeeded.
func (b *Bench) reference(rows []report.Row) float64 {
	if b.conf.Reference != "" {
		for _, r := range rows {
			if r.Label != b.conf.Reference {
				continue
			}
			if r.Err == nil {
				return r.Value
			}
			b.logger.Warn("reference engine failed, falling back to the first valuation",
				zap.String("reference", r.Label), zap.Error(r.Err))
			break
		}
	}
	for _, r := range rows {
		if r.Err == nil {
			return r.Value
		}
	}
	return 0
}

// value prices opt with the engine described by spec, escalating to refined
// engines after numerical failures, at most spec.Escalations times.
func (b *Bench) value(ctx context.Context, opt *instrument.VanillaOption, spec config.EngineSpec) report.Row {
	start := time.Now()
	row := report.Row{Label: spec.Label, Engine: spec.Type}
	logger := b.logger.With(zap.String("label", spec.Label), zap.String("type", spec.Type))

	eng, err := b.newEngine(spec, b.models, b.logger)
	if err != nil {
		row.Err = err
		row.Elapsed = time.Since(start)
		logger.Error("failed to build engine", zap.Error(err))
		return row
	}

	escalations := spec.Escalations
	if _, ok := eng.(engine.Refiner); !ok {
		escalations = 0
	}
	r := retrier.New(
		retrier.WithMaxRetries(escalations),
		retrier.WithRetryIf(func(err error) bool { return errors.Is(err, domain.ErrNumerical) }),
	)

	res, err := retrier.DoWithData(r, ctx, func(ctx context.Context, attempt int) (engine.Result, error) {
		if attempt > 0 {
			refined, err := eng.(engine.Refiner).Refined()
			if err != nil {
				return engine.Result{}, errors.Wrapf(err, "refine %s", eng.Name())
			}
			logger.Info("escalating to a refined engine", zap.Int("attempt", attempt))
			eng = refined
		}
		if err := opt.SetPricingEngine(eng); err != nil {
			return engine.Result{}, err
		}
		return opt.Result(ctx)
	})

	row.Engine = eng.Name()
	row.Elapsed = time.Since(start)
	if err != nil {
		row.Err = err
		logger.Error("valuation failed", zap.Error(err), zap.Duration("elapsed", row.Elapsed))
		return row
	}

	row.Value = res.Value
	row.ErrorEstimate, row.HasErrorEstimate = res.ErrorEstimate()
	logger.Debug("valuation done",
		zap.String("engine", row.Engine),
		zap.Float64("value", row.Value),
		zap.Int("samples", res.Samples),
		zap.Duration("elapsed", row.Elapsed),
	)
	return row
}
