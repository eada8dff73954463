package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/pricebench/internal/domain"
	"github.com/vadiminshakov/pricebench/internal/process"
)

// ConfigTmp on-disk form of Config; numerics are decimal strings.
type ConfigTmp struct {
	EvaluationDate string `yaml:"evaluation_date" toml:"evaluation_date"`
	SettlementDate string `yaml:"settlement_date" toml:"settlement_date"`
	DayCounter     string `yaml:"day_counter,omitempty" toml:"day_counter,omitempty"`

	Market MarketTmp  `yaml:"market" toml:"market"`
	Option OptionTmp  `yaml:"option" toml:"option"`
	Heston *HestonTmp `yaml:"heston,omitempty" toml:"heston,omitempty"`

	Engines   []EngineTmp `yaml:"engines" toml:"engines"`
	Reference string      `yaml:"reference,omitempty" toml:"reference,omitempty"`

	Output     string `yaml:"output,omitempty" toml:"output,omitempty"`
	JournalDir string `yaml:"journal_dir,omitempty" toml:"journal_dir,omitempty"`
	Parallel   bool   `yaml:"parallel,omitempty" toml:"parallel,omitempty"`
	Workers    int    `yaml:"workers,omitempty" toml:"workers,omitempty"`
	ServeAddr  string `yaml:"serve_addr,omitempty" toml:"serve_addr,omitempty"`
}

type MarketTmp struct {
	Spot          string `yaml:"spot" toml:"spot"`
	RiskFreeRate  string `yaml:"risk_free_rate" toml:"risk_free_rate"`
	DividendYield string `yaml:"dividend_yield" toml:"dividend_yield"`
	Volatility    string `yaml:"volatility" toml:"volatility"`
}

type OptionTmp struct {
	Type     string `yaml:"type" toml:"type"`
	Payoff   string `yaml:"payoff,omitempty" toml:"payoff,omitempty"`
	Strike   string `yaml:"strike" toml:"strike"`
	Cash     string `yaml:"cash,omitempty" toml:"cash,omitempty"`
	Exercise string `yaml:"exercise,omitempty" toml:"exercise,omitempty"`
	Maturity string `yaml:"maturity" toml:"maturity"`
	Earliest string `yaml:"earliest,omitempty" toml:"earliest,omitempty"`
}

type HestonTmp struct {
	V0    string `yaml:"v0" toml:"v0"`
	Kappa string `yaml:"kappa" toml:"kappa"`
	Theta string `yaml:"theta" toml:"theta"`
	Sigma string `yaml:"sigma" toml:"sigma"`
	Rho   string `yaml:"rho" toml:"rho"`
}

type EngineTmp struct {
	Label string `yaml:"label" toml:"label"`
	Type  string `yaml:"type" toml:"type"`

	Scheme string `yaml:"scheme,omitempty" toml:"scheme,omitempty"`

	TimeSteps    int `yaml:"time_steps,omitempty" toml:"time_steps,omitempty"`
	GridPoints   int `yaml:"grid_points,omitempty" toml:"grid_points,omitempty"`
	DampingSteps int `yaml:"damping_steps,omitempty" toml:"damping_steps,omitempty"`

	Sampling          string `yaml:"sampling,omitempty" toml:"sampling,omitempty"`
	RequiredSamples   int    `yaml:"required_samples,omitempty" toml:"required_samples,omitempty"`
	RequiredTolerance string `yaml:"required_tolerance,omitempty" toml:"required_tolerance,omitempty"`
	MaxSamples        int    `yaml:"max_samples,omitempty" toml:"max_samples,omitempty"`
	MinSamples        int    `yaml:"min_samples,omitempty" toml:"min_samples,omitempty"`
	Seed              uint64 `yaml:"seed,omitempty" toml:"seed,omitempty"`
	Antithetic        bool   `yaml:"antithetic,omitempty" toml:"antithetic,omitempty"`

	IntegrationPoints int    `yaml:"integration_points,omitempty" toml:"integration_points,omitempty"`
	UpperLimit        string `yaml:"upper_limit,omitempty" toml:"upper_limit,omitempty"`

	COSTruncation string `yaml:"cos_truncation,omitempty" toml:"cos_truncation,omitempty"`
	COSTerms      int    `yaml:"cos_terms,omitempty" toml:"cos_terms,omitempty"`

	Points int    `yaml:"points,omitempty" toml:"points,omitempty"`
	Width  string `yaml:"width,omitempty" toml:"width,omitempty"`

	Escalations int `yaml:"escalations,omitempty" toml:"escalations,omitempty"`
}

// Load reads a YAML or TOML scenario on top of the defaults. Fields the file
// omits keep their default values. The result is not validated.
func Load(path string) (Config, error) {
	defaults := ToTmp(DefaultConfig())
	raw := defaults
	raw.Engines = nil

	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(f), &raw); err != nil {
			return Config{}, domain.InvalidConfigf("decode %s: %v", path, err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(f, &raw); err != nil {
			return Config{}, domain.InvalidConfigf("decode %s: %v", path, err)
		}
	default:
		return Config{}, domain.InvalidConfigf("unsupported config format %q", filepath.Ext(path))
	}

	if len(raw.Engines) == 0 {
		raw.Engines = defaults.Engines
	}

	conf, err := FromTmp(raw)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	conf.Path = path
	return conf, nil
}

// Save writes conf to path, as TOML for a .toml extension and YAML otherwise.
func Save(path string, conf Config) error {
	raw := ToTmp(conf)

	var buf bytes.Buffer
	if strings.ToLower(filepath.Ext(path)) == ".toml" {
		if err := toml.NewEncoder(&buf).Encode(raw); err != nil {
			return errors.Wrap(err, "encode toml")
		}
	} else {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(raw); err != nil {
			return errors.Wrap(err, "encode yaml")
		}
		if err := enc.Close(); err != nil {
			return errors.Wrap(err, "encode yaml")
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	return errors.Wrapf(os.WriteFile(path, buf.Bytes(), 0o644), "write config %s", path)
}

// FromTmp converts the on-disk form into a typed Config.
func FromTmp(c ConfigTmp) (Config, error) {
	var (
		conf Config
		err  error
	)

	if conf.EvaluationDate, err = parseDate("evaluation_date", c.EvaluationDate); err != nil {
		return Config{}, err
	}
	if conf.SettlementDate, err = parseDate("settlement_date", c.SettlementDate); err != nil {
		return Config{}, err
	}
	if conf.DayCounter, err = domain.DayCounterByName(c.DayCounter); err != nil {
		return Config{}, err
	}

	p := newParser()
	conf.Market = Market{
		Spot:          p.float("market.spot", c.Market.Spot),
		RiskFreeRate:  p.float("market.risk_free_rate", c.Market.RiskFreeRate),
		DividendYield: p.float("market.dividend_yield", c.Market.DividendYield),
		Volatility:    p.float("market.volatility", c.Market.Volatility),
	}

	conf.Option = Option{
		Payoff:   strings.ToLower(c.Option.Payoff),
		Strike:   p.float("option.strike", c.Option.Strike),
		Cash:     p.float("option.cash", c.Option.Cash),
		Exercise: strings.ToLower(c.Option.Exercise),
	}
	if conf.Option.Payoff == "" {
		conf.Option.Payoff = PayoffVanilla
	}
	if conf.Option.Exercise == "" {
		conf.Option.Exercise = ExerciseEuropean
	}
	if conf.Option.Type, err = domain.ParseOptionType(c.Option.Type); err != nil {
		return Config{}, errors.Wrap(err, "option.type")
	}
	if conf.Option.Maturity, err = parseDate("option.maturity", c.Option.Maturity); err != nil {
		return Config{}, err
	}
	if c.Option.Earliest != "" {
		if conf.Option.Earliest, err = parseDate("option.earliest", c.Option.Earliest); err != nil {
			return Config{}, err
		}
	}

	if c.Heston != nil {
		conf.Heston = &process.HestonParams{
			V0:    p.float("heston.v0", c.Heston.V0),
			Kappa: p.float("heston.kappa", c.Heston.Kappa),
			Theta: p.float("heston.theta", c.Heston.Theta),
			Sigma: p.float("heston.sigma", c.Heston.Sigma),
			Rho:   p.float("heston.rho", c.Heston.Rho),
		}
	}

	conf.Engines = make([]EngineSpec, 0, len(c.Engines))
	for i, e := range c.Engines {
		field := func(name string) string { return fmt.Sprintf("engines[%d].%s", i, name) }
		conf.Engines = append(conf.Engines, EngineSpec{
			Label:             e.Label,
			Type:              strings.ToLower(e.Type),
			Scheme:            e.Scheme,
			TimeSteps:         e.TimeSteps,
			GridPoints:        e.GridPoints,
			DampingSteps:      e.DampingSteps,
			Sampling:          e.Sampling,
			RequiredSamples:   e.RequiredSamples,
			RequiredTolerance: p.float(field("required_tolerance"), e.RequiredTolerance),
			MaxSamples:        e.MaxSamples,
			MinSamples:        e.MinSamples,
			Seed:              e.Seed,
			Antithetic:        e.Antithetic,
			IntegrationPoints: e.IntegrationPoints,
			UpperLimit:        p.float(field("upper_limit"), e.UpperLimit),
			COSTruncation:     p.float(field("cos_truncation"), e.COSTruncation),
			COSTerms:          e.COSTerms,
			Points:            e.Points,
			Width:             p.float(field("width"), e.Width),
			Escalations:       e.Escalations,
		})
	}
	if p.err != nil {
		return Config{}, p.err
	}

	conf.Reference = c.Reference
	conf.Output = strings.ToLower(c.Output)
	if conf.Output == "" {
		conf.Output = OutputText
	}
	conf.JournalDir = c.JournalDir
	conf.Parallel = c.Parallel
	conf.Workers = c.Workers
	if conf.Workers == 0 {
		conf.Workers = defaultWorkers
	}
	conf.ServeAddr = c.ServeAddr
	return conf, nil
}

// ToTmp converts conf into its on-disk form.
func ToTmp(conf Config) ConfigTmp {
	c := ConfigTmp{
		EvaluationDate: conf.EvaluationDate.String(),
		SettlementDate: conf.SettlementDate.String(),
		Market: MarketTmp{
			Spot:          formatFloat(conf.Market.Spot),
			RiskFreeRate:  formatFloat(conf.Market.RiskFreeRate),
			DividendYield: formatFloat(conf.Market.DividendYield),
			Volatility:    formatFloat(conf.Market.Volatility),
		},
		Option: OptionTmp{
			Type:     strings.ToLower(conf.Option.Type.String()),
			Payoff:   conf.Option.Payoff,
			Strike:   formatFloat(conf.Option.Strike),
			Exercise: conf.Option.Exercise,
			Maturity: conf.Option.Maturity.String(),
			Earliest: conf.Option.Earliest.String(),
		},
		Reference:  conf.Reference,
		Output:     conf.Output,
		JournalDir: conf.JournalDir,
		Parallel:   conf.Parallel,
		Workers:    conf.Workers,
		ServeAddr:  conf.ServeAddr,
	}
	if conf.DayCounter != nil {
		c.DayCounter = dayCounterID(conf.DayCounter)
	}
	if conf.Option.Cash != 0 {
		c.Option.Cash = formatFloat(conf.Option.Cash)
	}
	if h := conf.Heston; h != nil {
		c.Heston = &HestonTmp{
			V0:    formatFloat(h.V0),
			Kappa: formatFloat(h.Kappa),
			Theta: formatFloat(h.Theta),
			Sigma: formatFloat(h.Sigma),
			Rho:   formatFloat(h.Rho),
		}
	}
	for _, e := range conf.Engines {
		c.Engines = append(c.Engines, EngineTmp{
			Label:             e.Label,
			Type:              e.Type,
			Scheme:            e.Scheme,
			TimeSteps:         e.TimeSteps,
			GridPoints:        e.GridPoints,
			DampingSteps:      e.DampingSteps,
			Sampling:          e.Sampling,
			RequiredSamples:   e.RequiredSamples,
			RequiredTolerance: formatOptional(e.RequiredTolerance),
			MaxSamples:        e.MaxSamples,
			MinSamples:        e.MinSamples,
			Seed:              e.Seed,
			Antithetic:        e.Antithetic,
			IntegrationPoints: e.IntegrationPoints,
			UpperLimit:        formatOptional(e.UpperLimit),
			COSTruncation:     formatOptional(e.COSTruncation),
			COSTerms:          e.COSTerms,
			Points:            e.Points,
			Width:             formatOptional(e.Width),
			Escalations:       e.Escalations,
		})
	}
	return c
}

// parser collects the first decimal conversion failure.
type parser struct {
	err error
}

func newParser() *parser { return &parser{} }

func (p *parser) float(field, s string) float64 {
	if p.err != nil || s == "" {
		return 0
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		p.err = domain.InvalidConfigf("incorrect '%s' param (must be a decimal): %v", field, err)
		return 0
	}
	return d.InexactFloat64()
}

func parseDate(field, s string) (domain.Date, error) {
	if s == "" {
		return domain.Date{}, nil
	}
	d, err := domain.ParseDate(s)
	if err != nil {
		return domain.Date{}, domain.InvalidConfigf("incorrect '%s' param (must be YYYY-MM-DD): %v", field, err)
	}
	return d, nil
}

func formatFloat(f float64) string {
	return decimal.NewFromFloat(f).String()
}

func formatOptional(f float64) string {
	if f == 0 {
		return ""
	}
	return formatFloat(f)
}

func dayCounterID(dc domain.DayCounter) string {
	switch dc.(type) {
	case domain.Actual360:
		return "actual360"
	default:
		return "actual365fixed"
	}
}
