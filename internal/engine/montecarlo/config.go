package montecarlo

import (
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/pricebench/internal/domain"
	"github.com/vadiminshakov/pricebench/internal/random"
)

// Sampling source of the Gaussian draws.
type Sampling string

const (
	PseudoRandom   Sampling = "pseudorandom"
	LowDiscrepancy Sampling = "lowdiscrepancy"
)

// ParseSampling case-insensitive lookup of a sampling identifier.
func ParseSampling(s string) (Sampling, error) {
	switch Sampling(strings.ToLower(strings.TrimSpace(s))) {
	case PseudoRandom:
		return PseudoRandom, nil
	case LowDiscrepancy:
		return LowDiscrepancy, nil
	default:
		return "", errors.Wrapf(domain.ErrUnknownScheme, "monte carlo sampling %q", s)
	}
}

const (
	defaultMinSamples = 1023
	maxSobolSamples   = math.MaxUint32 - 1
)

// Config Monte Carlo settings. Exactly one of RequiredSamples and
// RequiredTolerance must be set.
type Config struct {
	// Sampling required.
	Sampling Sampling
	// TimeSteps path steps, default 1.
	TimeSteps int
	// RequiredSamples fixed number of paths.
	RequiredSamples int
	// RequiredTolerance target standard error.
	RequiredTolerance float64
	// MaxSamples cap on paths in tolerance mode, 0 is unbounded.
	MaxSamples int
	// MinSamples first batch in tolerance mode, default 1023.
	MinSamples int
	// Seed pseudorandom seed, 0 draws one from the clock when the engine is built.
	// Ignored by low-discrepancy sampling.
	Seed uint64
	// Antithetic pairs every path with its mirror image.
	Antithetic bool
}

func (c Config) withDefaults() Config {
	if c.TimeSteps == 0 {
		c.TimeSteps = 1
	}
	if c.MinSamples == 0 {
		c.MinSamples = defaultMinSamples
	}
	return c
}

func (c Config) validate() (Config, error) {
	sampling, err := ParseSampling(string(c.Sampling))
	if err != nil {
		return c, err
	}
	c.Sampling = sampling

	hasSamples := c.RequiredSamples != 0
	hasTolerance := c.RequiredTolerance != 0
	if hasSamples == hasTolerance {
		return c, errors.Wrapf(domain.ErrAmbiguousStoppingRule,
			"%s: set exactly one of required samples (%d) and required tolerance (%v)", name, c.RequiredSamples, c.RequiredTolerance)
	}

	switch {
	case c.RequiredSamples < 0:
		return c, domain.InvalidConfigf("%s: required samples must be positive, got %d", name, c.RequiredSamples)
	case c.RequiredTolerance < 0 || math.IsNaN(c.RequiredTolerance):
		return c, domain.InvalidConfigf("%s: required tolerance must be positive, got %v", name, c.RequiredTolerance)
	case c.TimeSteps < 1:
		return c, domain.InvalidConfigf("%s: time steps must be positive, got %d", name, c.TimeSteps)
	case c.MinSamples < 1:
		return c, domain.InvalidConfigf("%s: min samples must be positive, got %d", name, c.MinSamples)
	case c.MaxSamples < 0:
		return c, domain.InvalidConfigf("%s: max samples must be non-negative, got %d", name, c.MaxSamples)
	case c.MaxSamples > 0 && c.MaxSamples < c.MinSamples && hasTolerance:
		return c, domain.InvalidConfigf("%s: max samples %d below min samples %d", name, c.MaxSamples, c.MinSamples)
	}

	if c.Sampling == LowDiscrepancy {
		if hasTolerance {
			return c, domain.InvalidConfigf("%s: low-discrepancy sampling provides no error estimate to reach a tolerance", name)
		}
		if c.TimeSteps > random.MaxSobolDimension {
			return c, domain.InvalidConfigf("%s: low-discrepancy sampling supports at most %d time steps, got %d",
				name, random.MaxSobolDimension, c.TimeSteps)
		}
		if int64(c.RequiredSamples) > maxSobolSamples {
			return c, domain.InvalidConfigf("%s: at most %d low-discrepancy samples, got %d", name, maxSobolSamples, c.RequiredSamples)
		}
	}

	if c.Sampling == PseudoRandom && c.Seed == 0 {
		c.Seed = uint64(time.Now().UnixNano())
	}
	return c, nil
}
