package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrIncompatiblePayoff engine does not support the payoff variant it was bound to.
	ErrIncompatiblePayoff = errors.New("incompatible payoff")
	// ErrIncompatibleExercise engine does not support the exercise variant it was bound to.
	ErrIncompatibleExercise = errors.New("incompatible exercise")
	// ErrNotBound engine was asked for a value before any instrument was bound.
	ErrNotBound = errors.New("engine not bound to an instrument")
	// ErrUnknownScheme unrecognized tree-construction or sampling scheme identifier.
	ErrUnknownScheme = errors.New("unknown scheme")
	// ErrAmbiguousStoppingRule Monte Carlo configured with both or neither of sample count and tolerance.
	ErrAmbiguousStoppingRule = errors.New("ambiguous stopping rule")
	// ErrOutOfRange term structure queried outside its domain.
	ErrOutOfRange = errors.New("out of range")
	// ErrNumerical valuation failed to converge.
	ErrNumerical = errors.New("numerical failure")
	// ErrInvalidConfig engine, model or market parameters are invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrNoEngine instrument valued without a pricing engine.
	ErrNoEngine = errors.New("no pricing engine set")
	// ErrUnknownEngine engine type identifier is not registered.
	ErrUnknownEngine = errors.New("unknown engine type")
)

// NumericalError describes a non-convergence during valuation.
type NumericalError struct {
	Engine string
	Reason string
}

// NewNumericalError returns a NumericalError for the given engine.
func NewNumericalError(engine, format string, args ...any) *NumericalError {
	return &NumericalError{Engine: engine, Reason: fmt.Sprintf(format, args...)}
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Engine, ErrNumerical.Error(), e.Reason)
}

// Is reports whether target is ErrNumerical.
func (e *NumericalError) Is(target error) bool {
	return target == ErrNumerical
}

// InvalidConfigf wraps ErrInvalidConfig with a formatted message.
func InvalidConfigf(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidConfig, format, args...)
}
