// Package engine holds the contract shared by every pricing engine family.
//
// An engine is constructed against one concrete process model, bound to the
// arguments of an instrument and then asked for a result. Calculate reads the
// market snapshot at call time, so a market change is reflected on the next
// call without rebinding.
package engine

import (
	"context"
	"math"
	"sync"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/pricebench/internal/domain"
)

// Engine computes the value of the contract it is bound to.
type Engine interface {
	Name() string
	Bind(args Arguments) error
	Calculate(ctx context.Context) (Result, error)
}

// Refiner is implemented by engines that can produce a more accurate copy of
// themselves (more steps, more samples, a wider integration domain).
type Refiner interface {
	Refined() (Engine, error)
}

// Arguments contract terms an engine is bound to.
type Arguments struct {
	Payoff   domain.Payoff
	Exercise domain.Exercise
}

// Result of one valuation.
type Result struct {
	Value float64
	// Samples number of paths or points used, zero for deterministic engines.
	Samples int

	errorEstimate    float64
	hasErrorEstimate bool
}

// NewResult returns a result without an error estimate.
func NewResult(value float64) Result {
	return Result{Value: value}
}

// NewEstimatedResult returns a result carrying a statistical error estimate.
func NewEstimatedResult(value, errorEstimate float64, samples int) Result {
	return Result{Value: value, Samples: samples, errorEstimate: errorEstimate, hasErrorEstimate: true}
}

// ErrorEstimate returns the estimated error and whether the engine provides one.
func (r Result) ErrorEstimate() (float64, bool) {
	return r.errorEstimate, r.hasErrorEstimate
}

// Value calculates and returns only the value.
func Value(ctx context.Context, e Engine) (float64, error) {
	res, err := e.Calculate(ctx)
	if err != nil {
		return 0, err
	}
	return res.Value, nil
}

// Binding stores the arguments an engine was bound to.
// Engines embed it and call Store from Bind once the arguments are accepted.
type Binding struct {
	mu   sync.RWMutex
	args *Arguments
}

// Store replaces the bound arguments.
func (b *Binding) Store(args Arguments) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.args = &args
}

// Arguments returns the bound arguments or ErrNotBound.
func (b *Binding) Arguments() (Arguments, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.args == nil {
		return Arguments{}, domain.ErrNotBound
	}
	return *b.args, nil
}

// Bound reports whether arguments have been stored.
func (b *Binding) Bound() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.args != nil
}

// RequireEuropean rejects every exercise but European.
func RequireEuropean(engine string, ex domain.Exercise) error {
	if ex == nil {
		return errors.Wrapf(domain.ErrIncompatibleExercise, "%s: no exercise", engine)
	}
	if _, ok := ex.(domain.European); !ok {
		return errors.Wrapf(domain.ErrIncompatibleExercise, "%s: %s exercise not supported", engine, ex.Name())
	}
	return nil
}

// RequirePlainVanilla rejects every payoff but PlainVanilla.
func RequirePlainVanilla(engine string, p domain.Payoff) error {
	if p == nil {
		return errors.Wrapf(domain.ErrIncompatiblePayoff, "%s: no payoff", engine)
	}
	if _, ok := p.(domain.PlainVanilla); !ok {
		return errors.Wrapf(domain.ErrIncompatiblePayoff, "%s: %s payoff not supported", engine, p.Name())
	}
	return nil
}

// RequirePayoff rejects a missing payoff.
func RequirePayoff(engine string, p domain.Payoff) error {
	if p == nil {
		return errors.Wrapf(domain.ErrIncompatiblePayoff, "%s: no payoff", engine)
	}
	return nil
}

// CheckFinite turns a NaN or infinite value into a NumericalError.
func CheckFinite(engine string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return domain.NewNumericalError(engine, "non-finite value %v", v)
	}
	return nil
}

// CheckContext returns the context error wrapped with the engine name.
func CheckContext(ctx context.Context, engine string) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrapf(err, "%s: valuation cancelled", engine)
	}
	return nil
}
