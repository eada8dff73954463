package montecarlo

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/pricebench/internal/domain"
	"github.com/vadiminshakov/pricebench/internal/engine"
	"github.com/vadiminshakov/pricebench/internal/market"
	"github.com/vadiminshakov/pricebench/internal/process"
)

const closedForm = 0.0300238

var maturity = domain.NewDate(1999, time.May, 17)

func newProcess(t *testing.T) *process.BlackScholesMerton {
	t.Helper()
	settlement := domain.NewDate(1998, time.May, 17)
	snap, err := market.NewSnapshot(
		domain.NewEvaluationContext(domain.NewDate(1998, time.May, 15), nil),
		domain.NewQuote(7.0),
		market.NewFlatForward(settlement, 0.05, nil),
		market.NewFlatForward(settlement, 0.05, nil),
		market.NewBlackConstantVol(settlement, 0.10, nil),
	)
	require.NoError(t, err)
	p, err := process.NewBlackScholesMerton(snap)
	require.NoError(t, err)
	return p
}

func newBoundEngine(t *testing.T, conf Config) *EuropeanEngine {
	t.Helper()
	e, err := NewEuropeanEngine(newProcess(t), conf, zap.NewNop())
	require.NoError(t, err)
	call, _ := domain.NewPlainVanilla(domain.Call, 8)
	require.NoError(t, e.Bind(engine.Arguments{Payoff: call, Exercise: domain.European{Date: maturity}}))
	return e
}

func TestEuropeanEngine_ToleranceMode(t *testing.T) {
	e := newBoundEngine(t, Config{Sampling: PseudoRandom, RequiredTolerance: 0.001, Seed: 42})

	res, err := e.Calculate(context.Background())
	require.NoError(t, err)

	errEst, ok := res.ErrorEstimate()
	require.True(t, ok)
	assert.LessOrEqual(t, errEst, 0.001)
	assert.Greater(t, res.Samples, defaultMinSamples)
	assert.InDelta(t, closedForm, res.Value, 5*errEst)
}

func TestEuropeanEngine_MaxSamplesExceeded(t *testing.T) {
	e := newBoundEngine(t, Config{Sampling: PseudoRandom, RequiredTolerance: 0.0001, MaxSamples: 2000, Seed: 42})

	_, err := e.Calculate(context.Background())
	assert.ErrorIs(t, err, domain.ErrNumerical)

	var numErr *domain.NumericalError
	require.ErrorAs(t, err, &numErr)
	assert.Equal(t, "montecarlo-pseudorandom", numErr.Engine)
}

func TestEuropeanEngine_UnreachableToleranceHitsCap(t *testing.T) {
	e := newBoundEngine(t, Config{Sampling: PseudoRandom, RequiredTolerance: 1e-12, MaxSamples: 1_000_000, Seed: 42})

	_, err := e.Calculate(context.Background())
	assert.ErrorIs(t, err, domain.ErrNumerical)
}

func TestEuropeanEngine_SingleSampleHasNoEstimate(t *testing.T) {
	e := newBoundEngine(t, Config{Sampling: PseudoRandom, RequiredSamples: 1, Seed: 42})

	res, err := e.Calculate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Samples)
	assert.False(t, math.IsNaN(res.Value) || math.IsInf(res.Value, 0))
	_, ok := res.ErrorEstimate()
	assert.False(t, ok)
}

func TestEuropeanEngine_ChunkedBatchMatchesSampleCount(t *testing.T) {
	e := newBoundEngine(t, Config{Sampling: PseudoRandom, RequiredSamples: 3*checkEvery + 17, Seed: 5})

	res, err := e.Calculate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3*checkEvery+17, res.Samples)
}

func TestEuropeanEngine_Refined(t *testing.T) {
	tests := []struct {
		name string
		conf Config
		want func(Config) Config
	}{
		{
			name: "fixed budget doubles",
			conf: Config{Sampling: PseudoRandom, RequiredSamples: 1000, Seed: 1},
			want: func(c Config) Config { c.RequiredSamples = 2000; return c },
		},
		{
			name: "capped tolerance doubles the cap",
			conf: Config{Sampling: PseudoRandom, RequiredTolerance: 0.001, MaxSamples: 4000, Seed: 1},
			want: func(c Config) Config { c.MaxSamples = 8000; return c },
		},
		{
			name: "uncapped tolerance is unchanged",
			conf: Config{Sampling: PseudoRandom, RequiredTolerance: 0.001, Seed: 1},
			want: func(c Config) Config { return c },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newBoundEngine(t, tt.conf)
			refined, err := e.Refined()
			require.NoError(t, err)
			assert.Equal(t, tt.want(e.Config()), refined.(*EuropeanEngine).Config())
		})
	}
}

func TestEuropeanEngine_FixedBudgetErrorShrinks(t *testing.T) {
	small := newBoundEngine(t, Config{Sampling: PseudoRandom, RequiredSamples: 1000, Seed: 7})
	large := newBoundEngine(t, Config{Sampling: PseudoRandom, RequiredSamples: 16000, Seed: 7})

	rs, err := small.Calculate(context.Background())
	require.NoError(t, err)
	rl, err := large.Calculate(context.Background())
	require.NoError(t, err)

	es, _ := rs.ErrorEstimate()
	el, _ := rl.ErrorEstimate()
	assert.Equal(t, 1000, rs.Samples)
	assert.Equal(t, 16000, rl.Samples)
	assert.Less(t, el, es)
}

func TestEuropeanEngine_Reproducible(t *testing.T) {
	e := newBoundEngine(t, Config{Sampling: PseudoRandom, RequiredSamples: 5000, Antithetic: true})

	first, err := engine.Value(context.Background(), e)
	require.NoError(t, err)
	second, err := engine.Value(context.Background(), e)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.NotZero(t, e.Config().Seed, "clock seed is drawn at construction")
}

func TestEuropeanEngine_LowDiscrepancy(t *testing.T) {
	a := newBoundEngine(t, Config{Sampling: LowDiscrepancy, RequiredSamples: 32768, Seed: 1})
	b := newBoundEngine(t, Config{Sampling: LowDiscrepancy, RequiredSamples: 32768, Seed: 99})

	ra, err := a.Calculate(context.Background())
	require.NoError(t, err)
	rb, err := b.Calculate(context.Background())
	require.NoError(t, err)

	_, ok := ra.ErrorEstimate()
	assert.False(t, ok)
	assert.Equal(t, ra.Value, rb.Value, "seed is ignored by low-discrepancy sampling")
	assert.InDelta(t, closedForm, ra.Value, 5e-4)
}

func TestEuropeanEngine_MultiStepPaths(t *testing.T) {
	e := newBoundEngine(t, Config{Sampling: LowDiscrepancy, RequiredSamples: 16383, TimeSteps: 4})

	v, err := engine.Value(context.Background(), e)
	require.NoError(t, err)
	assert.InDelta(t, closedForm, v, 2e-3)
}

func TestEuropeanEngine_Cancelled(t *testing.T) {
	e := newBoundEngine(t, Config{Sampling: PseudoRandom, RequiredTolerance: 0.0001, Seed: 3})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Calculate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConfig_Validation(t *testing.T) {
	p := newProcess(t)

	tests := []struct {
		name string
		conf Config
		err  error
	}{
		{name: "neither stopping rule", conf: Config{Sampling: PseudoRandom}, err: domain.ErrAmbiguousStoppingRule},
		{name: "both stopping rules", conf: Config{Sampling: PseudoRandom, RequiredSamples: 10, RequiredTolerance: 0.1}, err: domain.ErrAmbiguousStoppingRule},
		{name: "unknown sampling", conf: Config{Sampling: "quasi", RequiredSamples: 10}, err: domain.ErrUnknownScheme},
		{name: "tolerance with sobol", conf: Config{Sampling: LowDiscrepancy, RequiredTolerance: 0.01}, err: domain.ErrInvalidConfig},
		{name: "too many sobol steps", conf: Config{Sampling: LowDiscrepancy, RequiredSamples: 10, TimeSteps: 17}, err: domain.ErrInvalidConfig},
		{name: "negative samples", conf: Config{Sampling: PseudoRandom, RequiredSamples: -5}, err: domain.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEuropeanEngine(p, tt.conf, nil)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestStatistics_MergesBatches(t *testing.T) {
	var s statistics
	s.addBatch([]float64{1, 2, 3})
	s.addBatch([]float64{4})
	s.addBatch([]float64{5, 6})

	assert.Equal(t, 6, s.samples())
	assert.InDelta(t, 3.5, s.mean, 1e-12)
	// sample variance of 1..6 is 3.5
	assert.InDelta(t, math.Sqrt(3.5/6), s.errorEstimate(), 1e-12)
}
