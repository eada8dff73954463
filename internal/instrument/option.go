// Package instrument holds the option contract and its swappable pricing engine.
package instrument

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/pricebench/internal/domain"
	"github.com/vadiminshakov/pricebench/internal/engine"
	"github.com/vadiminshakov/pricebench/internal/market"
)

// VanillaOption single-asset option whose pricing engine can be replaced at any time.
// The last result is cached until the engine, the market snapshot or the
// evaluation date changes.
type VanillaOption struct {
	mu sync.Mutex

	payoff   domain.Payoff
	exercise domain.Exercise
	snapshot *market.Snapshot

	engine     engine.Engine
	generation uint64
	cache      *cachedResult
}

type cachedResult struct {
	generation uint64
	version    uint64
	today      domain.Date
	result     engine.Result
}

// NewVanillaOption returns an option without an engine.
func NewVanillaOption(payoff domain.Payoff, exercise domain.Exercise, snapshot *market.Snapshot) (*VanillaOption, error) {
	if payoff == nil {
		return nil, domain.InvalidConfigf("option requires a payoff")
	}
	if exercise == nil {
		return nil, domain.InvalidConfigf("option requires an exercise")
	}
	if snapshot == nil {
		return nil, domain.InvalidConfigf("option requires a market snapshot")
	}
	if am, ok := exercise.(domain.American); ok && am.Latest.Before(am.Earliest) {
		return nil, domain.InvalidConfigf("american exercise window %s..%s is empty", am.Earliest, am.Latest)
	}
	return &VanillaOption{payoff: payoff, exercise: exercise, snapshot: snapshot}, nil
}

func (o *VanillaOption) Payoff() domain.Payoff     { return o.payoff }
func (o *VanillaOption) Exercise() domain.Exercise { return o.exercise }

// Arguments terms passed to an engine on binding.
func (o *VanillaOption) Arguments() engine.Arguments {
	return engine.Arguments{Payoff: o.payoff, Exercise: o.exercise}
}

// SetPricingEngine binds e to the option and makes it current. On a binding
// error the previous engine stays in place.
func (o *VanillaOption) SetPricingEngine(e engine.Engine) error {
	if e == nil {
		return errors.Wrap(domain.ErrNoEngine, "set pricing engine")
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := e.Bind(o.Arguments()); err != nil {
		return errors.Wrapf(err, "bind %s", e.Name())
	}
	o.engine = e
	o.generation++
	o.cache = nil
	return nil
}

// PricingEngine returns the current engine, nil if none was set.
func (o *VanillaOption) PricingEngine() engine.Engine {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.engine
}

// IsExpired reports whether the last exercise date precedes the evaluation date.
func (o *VanillaOption) IsExpired() bool {
	return o.exercise.LastDate().Before(o.snapshot.Context().Today)
}

// Result returns the cached result or recalculates it with the current engine.
func (o *VanillaOption) Result(ctx context.Context) (engine.Result, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.IsExpired() {
		return engine.NewResult(0), nil
	}
	if o.engine == nil {
		return engine.Result{}, domain.ErrNoEngine
	}

	version := o.snapshot.Version()
	today := o.snapshot.Context().Today
	if c := o.cache; c != nil && c.generation == o.generation && c.version == version && c.today.Equal(today) {
		return c.result, nil
	}

	// rebind so an engine shared with another option values this contract
	if err := o.engine.Bind(o.Arguments()); err != nil {
		return engine.Result{}, errors.Wrapf(err, "bind %s", o.engine.Name())
	}
	res, err := o.engine.Calculate(ctx)
	if err != nil {
		return engine.Result{}, errors.Wrapf(err, "calculate %s", o.engine.Name())
	}
	o.cache = &cachedResult{generation: o.generation, version: version, today: today, result: res}
	return res, nil
}

// NPV net present value.
func (o *VanillaOption) NPV(ctx context.Context) (float64, error) {
	res, err := o.Result(ctx)
	if err != nil {
		return 0, err
	}
	return res.Value, nil
}

// ErrorEstimate statistical error of the NPV, ok is false for deterministic engines.
func (o *VanillaOption) ErrorEstimate(ctx context.Context) (estimate float64, ok bool, err error) {
	res, err := o.Result(ctx)
	if err != nil {
		return 0, false, err
	}
	estimate, ok = res.ErrorEstimate()
	return estimate, ok, nil
}

// Clone returns an option with the same terms and snapshot and no engine.
func (o *VanillaOption) Clone() *VanillaOption {
	return &VanillaOption{payoff: o.payoff, exercise: o.exercise, snapshot: o.snapshot}
}
