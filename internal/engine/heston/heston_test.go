package heston

import (
	"context"
	"math"
	"math/cmplx"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/pricebench/internal/domain"
	"github.com/vadiminshakov/pricebench/internal/engine"
	"github.com/vadiminshakov/pricebench/internal/market"
	"github.com/vadiminshakov/pricebench/internal/process"
)

var (
	maturity       = domain.NewDate(1999, time.May, 17)
	nearlyConstant = process.HestonParams{V0: 0.01, Kappa: 1, Theta: 0.01, Sigma: 0.0001, Rho: 0}
	skewed         = process.HestonParams{V0: 0.04, Kappa: 2, Theta: 0.04, Sigma: 0.5, Rho: -0.7}
)

func newHeston(t *testing.T, params process.HestonParams) *process.Heston {
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
	h, err := process.NewHeston(snap, params)
	require.NoError(t, err)
	return h
}

func value(t *testing.T, e engine.Engine, payoff domain.Payoff) float64 {
	t.Helper()
	require.NoError(t, e.Bind(engine.Arguments{Payoff: payoff, Exercise: domain.European{Date: maturity}}))
	v, err := engine.Value(context.Background(), e)
	require.NoError(t, err)
	return v
}

func TestEngines_MatchBlackWhenVarianceIsNearlyConstant(t *testing.T) {
	h := newHeston(t, nearlyConstant)
	analytic, err := NewAnalyticEngine(h, AnalyticConfig{})
	require.NoError(t, err)
	cos, err := NewCOSEngine(h, COSConfig{})
	require.NoError(t, err)

	call, _ := domain.NewPlainVanilla(domain.Call, 8)
	a := value(t, analytic, call)
	c := value(t, cos, call)

	assert.InDelta(t, 0.0300238, a, 1e-6)
	assert.InDelta(t, a, c, 1e-4)
}

func TestEngines_AgreeOnSkewedModel(t *testing.T) {
	h := newHeston(t, skewed)
	analytic, err := NewAnalyticEngine(h, AnalyticConfig{})
	require.NoError(t, err)
	cos, err := NewCOSEngine(h, COSConfig{})
	require.NoError(t, err)

	for _, typ := range []domain.OptionType{domain.Call, domain.Put} {
		payoff, _ := domain.NewPlainVanilla(typ, 8)
		assert.InDelta(t, value(t, analytic, payoff), value(t, cos, payoff), 1e-4, typ.String())
	}
}

func TestAnalyticEngine_PutCallParity(t *testing.T) {
	h := newHeston(t, skewed)
	e, err := NewAnalyticEngine(h, AnalyticConfig{})
	require.NoError(t, err)

	call, _ := domain.NewPlainVanilla(domain.Call, 8)
	put, _ := domain.NewPlainVanilla(domain.Put, 8)
	assert.InDelta(t, math.Exp(-0.05)*(7-8), value(t, e, call)-value(t, e, put), 1e-10)
}

func TestEngines_RejectDigital(t *testing.T) {
	h := newHeston(t, nearlyConstant)
	analytic, err := NewAnalyticEngine(h, AnalyticConfig{})
	require.NoError(t, err)
	cos, err := NewCOSEngine(h, COSConfig{})
	require.NoError(t, err)

	digital, _ := domain.NewCashOrNothing(domain.Call, 8, 1)
	args := engine.Arguments{Payoff: digital, Exercise: domain.European{Date: maturity}}
	assert.ErrorIs(t, analytic.Bind(args), domain.ErrIncompatiblePayoff)
	assert.ErrorIs(t, cos.Bind(args), domain.ErrIncompatiblePayoff)

	_, err = cos.Calculate(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotBound)
}

func TestConfigValidation(t *testing.T) {
	h := newHeston(t, nearlyConstant)

	_, err := NewAnalyticEngine(h, AnalyticConfig{IntegrationPoints: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	_, err = NewAnalyticEngine(h, AnalyticConfig{UpperLimit: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	_, err = NewCOSEngine(h, COSConfig{L: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	e, err := NewCOSEngine(h, COSConfig{})
	require.NoError(t, err)
	assert.Equal(t, DefaultCOSConfig(), e.Config())

	refined, err := e.Refined()
	require.NoError(t, err)
	assert.Equal(t, 400, refined.(*COSEngine).Config().N)
}

func TestCharacteristic(t *testing.T) {
	cf := characteristic{p: skewed, t: 1}

	assert.InDelta(t, 1.0, real(cf.phi(0)), 1e-12)
	// martingale: E[exp(X)] = 1
	assert.InDelta(t, 1.0, real(cf.phi(-1i)), 1e-9)

	c1, c2 := cf.cumulants()
	assert.InDelta(t, -0.5*cf.integratedVariance(), c1, 1e-6)
	assert.Greater(t, c2, 0.0)

	flat := characteristic{p: process.HestonParams{V0: 0.01, Kappa: 1, Theta: 0.01}, t: 1}
	assert.InDelta(t, math.Exp(-0.02), cmplx.Abs(flat.phi(2)), 1e-12)
}
