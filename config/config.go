package config

import (
	"time"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/pricebench/internal/domain"
	"github.com/vadiminshakov/pricebench/internal/process"
)

// Engine type identifiers.
const (
	EngineAnalytic         = "analytic"
	EngineHestonAnalytic   = "heston-analytic"
	EngineHestonCOS        = "heston-cos"
	EngineIntegral         = "integral"
	EngineFiniteDifference = "finite-difference"
	EngineBinomial         = "binomial"
	EngineMonteCarlo       = "montecarlo"
)

// Report formats.
const (
	OutputText  = "text"
	OutputTable = "table"
)

// Payoff and exercise identifiers.
const (
	PayoffVanilla       = "vanilla"
	PayoffCashOrNothing = "cash-or-nothing"

	ExerciseEuropean = "european"
	ExerciseAmerican = "american"
)

const (
	DefaultPath    = "pricebench.yaml"
	defaultWorkers = 4
)

// Config scenario and run settings.
type Config struct {
	// Path file the scenario was loaded from, empty for the built-in one.
	Path  string
	// Setup run the interactive wizard instead of the bench.
	Setup bool

	EvaluationDate domain.Date
	SettlementDate domain.Date
	DayCounter     domain.DayCounter

	Market Market
	Option Option
	Heston *process.HestonParams

	Engines   []EngineSpec
	// Reference label of the engine whose value the others are compared to,
	// empty means the first engine that succeeds.
	Reference string

	Output     string
	JournalDir string
	Parallel   bool
	Workers    int
	ServeAddr  string
}

// Market flat market data, rates continuously compounded.
type Market struct {
	Spot          float64
	RiskFreeRate  float64
	DividendYield float64
	Volatility    float64
}

// Option contract terms.
type Option struct {
	Type     domain.OptionType
	Payoff   string
	Strike   float64
	Cash     float64
	Exercise string
	Maturity domain.Date
	// Earliest first exercise date of an american option, zero means the settlement date.
	Earliest domain.Date
}

// EngineSpec one engine of the comparison. Fields irrelevant to Type are ignored;
// zero values take the engine family's defaults.
type EngineSpec struct {
	Label string
	Type  string

	Scheme string

	TimeSteps    int
	GridPoints   int
	DampingSteps int

	Sampling          string
	RequiredSamples   int
	RequiredTolerance float64
	MaxSamples        int
	MinSamples        int
	Seed              uint64
	Antithetic        bool

	IntegrationPoints int
	UpperLimit        float64

	COSTruncation float64
	COSTerms      int

	Points int
	Width  float64

	// Escalations retries with a refined engine after a numerical failure.
	Escalations int
}

// Heston reports whether the engine needs the stochastic-volatility model.
func (s EngineSpec) Heston() bool {
	return s.Type == EngineHestonAnalytic || s.Type == EngineHestonCOS
}

var knownEngines = map[string]bool{
	EngineAnalytic:         true,
	EngineHestonAnalytic:   true,
	EngineHestonCOS:        true,
	EngineIntegral:         true,
	EngineFiniteDifference: true,
	EngineBinomial:         true,
	EngineMonteCarlo:       true,
}

// DefaultConfig the classic European option comparison: a one-year call
// struck at 8 on a spot of 7, 5% rates and dividends, 10% volatility.
func DefaultConfig() Config {
	return Config{
		EvaluationDate: domain.NewDate(1998, time.May, 15),
		SettlementDate: domain.NewDate(1998, time.May, 17),
		DayCounter:     domain.Actual365Fixed{},
		Market: Market{
			Spot:          7,
			RiskFreeRate:  0.05,
			DividendYield: 0.05,
			Volatility:    0.10,
		},
		Option: Option{
			Type:     domain.Call,
			Payoff:   PayoffVanilla,
			Strike:   8,
			Exercise: ExerciseEuropean,
			Maturity: domain.NewDate(1999, time.May, 17),
		},
		Heston: &process.HestonParams{V0: 0.01, Kappa: 1, Theta: 0.01, Sigma: 0.0001, Rho: 0},
		Engines: []EngineSpec{
			{Label: "analytic", Type: EngineAnalytic},
			{Label: "Heston analytic", Type: EngineHestonAnalytic},
			{Label: "Heston COS Method", Type: EngineHestonCOS},
			{Label: "integral", Type: EngineIntegral},
			{Label: "finite diff.", Type: EngineFiniteDifference, TimeSteps: 801, GridPoints: 800},
			{Label: "binomial (JR)", Type: EngineBinomial, Scheme: "JR", TimeSteps: 801},
			{Label: "binomial (CRR)", Type: EngineBinomial, Scheme: "CRR", TimeSteps: 801},
			{Label: "binomial (EQP)", Type: EngineBinomial, Scheme: "EQP", TimeSteps: 801},
			{Label: "bin. (Trigeorgis)", Type: EngineBinomial, Scheme: "Trigeorgis", TimeSteps: 801},
			{Label: "binomial (Tian)", Type: EngineBinomial, Scheme: "Tian", TimeSteps: 801},
			{Label: "binomial (LR)", Type: EngineBinomial, Scheme: "LR", TimeSteps: 801},
			{Label: "binomial (Joshi)", Type: EngineBinomial, Scheme: "Joshi4", TimeSteps: 801},
			{Label: "MC (crude)", Type: EngineMonteCarlo, Sampling: "pseudorandom", TimeSteps: 1, RequiredTolerance: 0.02, Seed: 42},
			{Label: "MC (Sobol)", Type: EngineMonteCarlo, Sampling: "lowdiscrepancy", TimeSteps: 1, RequiredSamples: 32768},
		},
		Output:  OutputText,
		Workers: defaultWorkers,
	}
}

// Validate checks the scenario and run settings. Engine-specific parameters
// are validated when the engines are built.
func (c Config) Validate() error {
	switch {
	case c.EvaluationDate.IsZero():
		return domain.InvalidConfigf("evaluation date is required")
	case c.SettlementDate.Before(c.EvaluationDate):
		return domain.InvalidConfigf("settlement date %s precedes evaluation date %s", c.SettlementDate, c.EvaluationDate)
	case c.DayCounter == nil:
		return domain.InvalidConfigf("day counter is required")
	case !(c.Market.Spot > 0):
		return domain.InvalidConfigf("spot must be positive, got %v", c.Market.Spot)
	case c.Market.Volatility < 0:
		return domain.InvalidConfigf("volatility must be non-negative, got %v", c.Market.Volatility)
	case !(c.Option.Strike > 0):
		return domain.InvalidConfigf("strike must be positive, got %v", c.Option.Strike)
	case c.Option.Maturity.IsZero():
		return domain.InvalidConfigf("option maturity is required")
	case c.Option.Payoff != PayoffVanilla && c.Option.Payoff != PayoffCashOrNothing:
		return domain.InvalidConfigf("unknown payoff %q", c.Option.Payoff)
	case c.Option.Exercise != ExerciseEuropean && c.Option.Exercise != ExerciseAmerican:
		return domain.InvalidConfigf("unknown exercise %q", c.Option.Exercise)
	case c.Output != OutputText && c.Output != OutputTable:
		return domain.InvalidConfigf("unknown output %q, expected %s or %s", c.Output, OutputText, OutputTable)
	case c.Workers < 1:
		return domain.InvalidConfigf("workers must be positive, got %d", c.Workers)
	case len(c.Engines) == 0:
		return domain.InvalidConfigf("at least one engine is required")
	}

	labels := make(map[string]bool, len(c.Engines))
	for i, e := range c.Engines {
		if e.Label == "" {
			return domain.InvalidConfigf("engine %d has no label", i)
		}
		if labels[e.Label] {
			return domain.InvalidConfigf("duplicate engine label %q", e.Label)
		}
		labels[e.Label] = true
		if !knownEngines[e.Type] {
			return errors.Wrapf(domain.ErrUnknownEngine, "engine %q: type %q", e.Label, e.Type)
		}
		if e.Heston() && c.Heston == nil {
			return domain.InvalidConfigf("engine %q needs heston parameters", e.Label)
		}
		if e.Escalations < 0 {
			return domain.InvalidConfigf("engine %q: escalations must be non-negative, got %d", e.Label, e.Escalations)
		}
	}
	if c.Reference != "" && !labels[c.Reference] {
		return domain.InvalidConfigf("reference engine %q is not configured", c.Reference)
	}
	return nil
}
