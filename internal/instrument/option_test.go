package instrument

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/pricebench/internal/domain"
	"github.com/vadiminshakov/pricebench/internal/engine"
	"github.com/vadiminshakov/pricebench/internal/engine/analytic"
	"github.com/vadiminshakov/pricebench/internal/engine/lattice"
	"github.com/vadiminshakov/pricebench/internal/market"
	"github.com/vadiminshakov/pricebench/internal/process"
)

var (
	today    = domain.NewDate(1998, time.May, 15)
	maturity = domain.NewDate(1999, time.May, 17)
)

type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) Name() string { return "mock" }

func (m *mockEngine) Bind(args engine.Arguments) error {
	return m.Called(args).Error(0)
}

func (m *mockEngine) Calculate(ctx context.Context) (engine.Result, error) {
	ret := m.Called(ctx)
	return ret.Get(0).(engine.Result), ret.Error(1)
}

func newSnapshot(t *testing.T) *market.Snapshot {
	t.Helper()
	settlement := domain.NewDate(1998, time.May, 17)
	snap, err := market.NewSnapshot(
		domain.NewEvaluationContext(today, nil),
		domain.NewQuote(7.0),
		market.NewFlatForward(settlement, 0.05, nil),
		market.NewFlatForward(settlement, 0.05, nil),
		market.NewBlackConstantVol(settlement, 0.10, nil),
	)
	require.NoError(t, err)
	return snap
}

func newOption(t *testing.T, snap *market.Snapshot, ex domain.Exercise) *VanillaOption {
	t.Helper()
	call, err := domain.NewPlainVanilla(domain.Call, 8)
	require.NoError(t, err)
	opt, err := NewVanillaOption(call, ex, snap)
	require.NoError(t, err)
	return opt
}

func TestVanillaOption_NoEngine(t *testing.T) {
	opt := newOption(t, newSnapshot(t), domain.European{Date: maturity})

	_, err := opt.NPV(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoEngine)

	assert.ErrorIs(t, opt.SetPricingEngine(nil), domain.ErrNoEngine)
}

func TestVanillaOption_CachesUntilInputsChange(t *testing.T) {
	snap := newSnapshot(t)
	opt := newOption(t, snap, domain.European{Date: maturity})

	e := &mockEngine{}
	e.On("Bind", mock.Anything).Return(nil)
	e.On("Calculate", mock.Anything).Return(engine.NewResult(1.25), nil)
	require.NoError(t, opt.SetPricingEngine(e))

	for i := 0; i < 3; i++ {
		v, err := opt.NPV(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1.25, v)
	}
	e.AssertNumberOfCalls(t, "Calculate", 1)

	snap.Spot().SetValue(7.1)
	_, err := opt.NPV(context.Background())
	require.NoError(t, err)
	e.AssertNumberOfCalls(t, "Calculate", 2)

	require.NoError(t, opt.SetPricingEngine(e))
	_, err = opt.NPV(context.Background())
	require.NoError(t, err)
	e.AssertNumberOfCalls(t, "Calculate", 3)
}

func TestVanillaOption_FailedBindKeepsEngine(t *testing.T) {
	opt := newOption(t, newSnapshot(t), domain.European{Date: maturity})

	good := &mockEngine{}
	good.On("Bind", mock.Anything).Return(nil)
	good.On("Calculate", mock.Anything).Return(engine.NewResult(2), nil)
	require.NoError(t, opt.SetPricingEngine(good))

	bad := &mockEngine{}
	bad.On("Bind", mock.Anything).Return(errors.Wrap(domain.ErrIncompatiblePayoff, "mock"))
	assert.ErrorIs(t, opt.SetPricingEngine(bad), domain.ErrIncompatiblePayoff)

	assert.Same(t, good, opt.PricingEngine())
	v, err := opt.NPV(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)
}

func TestVanillaOption_EngineSwapReproducesValues(t *testing.T) {
	snap := newSnapshot(t)
	p, err := process.NewBlackScholesMerton(snap)
	require.NoError(t, err)
	a, err := analytic.NewEuropeanEngine(p)
	require.NoError(t, err)
	b, err := lattice.NewEngine(p, lattice.Config{Scheme: lattice.CoxRossRubin, TimeSteps: 101})
	require.NoError(t, err)

	opt := newOption(t, snap, domain.European{Date: maturity})

	require.NoError(t, opt.SetPricingEngine(a))
	first, err := opt.NPV(context.Background())
	require.NoError(t, err)

	require.NoError(t, opt.SetPricingEngine(b))
	other, err := opt.NPV(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first, other)

	require.NoError(t, opt.SetPricingEngine(a))
	again, err := opt.NPV(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestVanillaOption_SpotBumpIsMonotone(t *testing.T) {
	snap := newSnapshot(t)
	p, err := process.NewBlackScholesMerton(snap)
	require.NoError(t, err)
	e, err := analytic.NewEuropeanEngine(p)
	require.NoError(t, err)

	opt := newOption(t, snap, domain.European{Date: maturity})
	require.NoError(t, opt.SetPricingEngine(e))

	prev := -1.0
	for _, spot := range []float64{6.5, 7, 7.5, 8, 8.5} {
		snap.Spot().SetValue(spot)
		v, err := opt.NPV(context.Background())
		require.NoError(t, err)
		assert.Greater(t, v, prev)
		prev = v
	}
}

func TestVanillaOption_Expired(t *testing.T) {
	opt := newOption(t, newSnapshot(t), domain.European{Date: today.Add(-1)})
	assert.True(t, opt.IsExpired())

	e := &mockEngine{}
	v, err := opt.NPV(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
	e.AssertNotCalled(t, "Calculate", mock.Anything)
}

func TestVanillaOption_ErrorEstimate(t *testing.T) {
	opt := newOption(t, newSnapshot(t), domain.European{Date: maturity})
	e := &mockEngine{}
	e.On("Bind", mock.Anything).Return(nil)
	e.On("Calculate", mock.Anything).Return(engine.NewEstimatedResult(0.03, 0.001, 1000), nil)
	require.NoError(t, opt.SetPricingEngine(e))

	est, ok, err := opt.ErrorEstimate(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0.001, est)
}

func TestVanillaOption_ConcurrentValuation(t *testing.T) {
	snap := newSnapshot(t)
	p, err := process.NewBlackScholesMerton(snap)
	require.NoError(t, err)
	e, err := analytic.NewEuropeanEngine(p)
	require.NoError(t, err)

	opt := newOption(t, snap, domain.European{Date: maturity})
	require.NoError(t, opt.SetPricingEngine(e))
	want, err := opt.NPV(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := opt.NPV(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, want, v)
			assert.NoError(t, opt.SetPricingEngine(e))
		}()
	}
	wg.Wait()
}

func TestNewVanillaOption_Validation(t *testing.T) {
	snap := newSnapshot(t)
	call, _ := domain.NewPlainVanilla(domain.Call, 8)

	_, err := NewVanillaOption(nil, domain.European{Date: maturity}, snap)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	_, err = NewVanillaOption(call, domain.American{Earliest: maturity, Latest: today}, snap)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	opt, err := NewVanillaOption(call, domain.European{Date: maturity}, snap)
	require.NoError(t, err)
	clone := opt.Clone()
	assert.Nil(t, clone.PricingEngine())
	assert.Equal(t, opt.Arguments(), clone.Arguments())
}
