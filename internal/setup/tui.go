// Package setup is the interactive scenario wizard.
package setup

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/pricebench/config"
	"github.com/vadiminshakov/pricebench/internal/domain"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// answers raw wizard input.
type answers struct {
	evaluationDate string
	maturity       string

	spot          string
	riskFreeRate  string
	dividendYield string
	volatility    string

	optionType string
	payoff     string
	strike     string
	cash       string
	exercise   string

	engines  []string
	output   string
	parallel bool
}

func defaultAnswers() answers {
	def := config.DefaultConfig()
	labels := make([]string, 0, len(def.Engines))
	for _, e := range def.Engines {
		labels = append(labels, e.Label)
	}
	return answers{
		evaluationDate: def.EvaluationDate.String(),
		maturity:       def.Option.Maturity.String(),
		spot:           "7",
		riskFreeRate:   "0.05",
		dividendYield:  "0.05",
		volatility:     "0.10",
		optionType:     "call",
		payoff:         config.PayoffVanilla,
		strike:         "8",
		cash:           "1",
		exercise:       config.ExerciseEuropean,
		engines:        labels,
		output:         config.OutputText,
	}
}

func step(title string) {
	fmt.Print("\033[H\033[2J") // clear screen
	fmt.Println(headerStyle.Render("PRICEBENCH SCENARIO WIZARD"))
	fmt.Println(stepStyle.Render(title))
}

// RunTUI walks through the scenario and writes it to path.
func RunTUI(path string) error {
	a := defaultAnswers()
	def := config.DefaultConfig()

	step("STEP 1: DATES")
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Settlement is two days after the evaluation date.\n"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Evaluation date").
				Description("YYYY-MM-DD").
				Value(&a.evaluationDate).
				Validate(validateDate),
			huh.NewInput().
				Title("Maturity").
				Description("YYYY-MM-DD").
				Value(&a.maturity).
				Validate(validateDate),
		),
	).Run()
	if err != nil {
		return err
	}

	step("STEP 2: MARKET")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Spot").Value(&a.spot).Validate(validatePositive),
			huh.NewInput().Title("Risk-free rate").Description("Continuously compounded, 0.05 is 5%").Value(&a.riskFreeRate).Validate(validateDecimal),
			huh.NewInput().Title("Dividend yield").Value(&a.dividendYield).Validate(validateDecimal),
			huh.NewInput().Title("Volatility").Value(&a.volatility).Validate(validateDecimal),
		),
	).Run()
	if err != nil {
		return err
	}

	step("STEP 3: OPTION")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Type").
				Options(huh.NewOption("Call", "call"), huh.NewOption("Put", "put")).
				Value(&a.optionType),
			huh.NewSelect[string]().
				Title("Payoff").
				Options(
					huh.NewOption("Plain vanilla", config.PayoffVanilla),
					huh.NewOption("Cash or nothing", config.PayoffCashOrNothing),
				).
				Value(&a.payoff),
			huh.NewInput().Title("Strike").Value(&a.strike).Validate(validatePositive),
			huh.NewSelect[string]().
				Title("Exercise").
				Options(
					huh.NewOption("European", config.ExerciseEuropean),
					huh.NewOption("American", config.ExerciseAmerican),
				).
				Value(&a.exercise),
		),
	).Run()
	if err != nil {
		return err
	}

	if a.payoff == config.PayoffCashOrNothing {
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().Title("Cash amount").Value(&a.cash).Validate(validatePositive),
			),
		).Run()
		if err != nil {
			return err
		}
	}

	step("STEP 4: ENGINES")
	options := make([]huh.Option[string], 0, len(def.Engines))
	for _, e := range def.Engines {
		options = append(options, huh.NewOption(e.Label, e.Label).Selected(true))
	}
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Engines to compare").
				Options(options...).
				Value(&a.engines).
				Validate(func(s []string) error {
					if len(s) == 0 {
						return fmt.Errorf("pick at least one engine")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Report").
				Options(huh.NewOption("Text", config.OutputText), huh.NewOption("Table", config.OutputTable)).
				Value(&a.output),
			huh.NewConfirm().
				Title("Value engines in parallel?").
				Value(&a.parallel),
		),
	).Run()
	if err != nil {
		return err
	}

	conf, err := a.config()
	if err != nil {
		return err
	}

	step("FINAL CONFIRMATION")
	summary := fmt.Sprintf(
		"Option: %s %s %s, strike %s, maturity %s\nMarket: spot %s, r %s, q %s, vol %s\nEngines: %d\n",
		a.exercise, a.payoff, a.optionType, a.strike, a.maturity,
		a.spot, a.riskFreeRate, a.dividendYield, a.volatility, len(conf.Engines),
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	var confirm bool
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save scenario?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	if err := config.Save(path, conf); err != nil {
		return fmt.Errorf("failed to save scenario: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Scenario saved to %s\nRun with -config %s", path, path)))
	return nil
}

// config turns the answers into a validated scenario. Engines keep their
// default settings.
func (a answers) config() (config.Config, error) {
	conf := config.DefaultConfig()

	var err error
	if conf.EvaluationDate, err = domain.ParseDate(a.evaluationDate); err != nil {
		return config.Config{}, err
	}
	conf.SettlementDate = conf.EvaluationDate.Add(2)
	if conf.Option.Maturity, err = domain.ParseDate(a.maturity); err != nil {
		return config.Config{}, err
	}
	if conf.Option.Type, err = domain.ParseOptionType(a.optionType); err != nil {
		return config.Config{}, err
	}

	fields := []struct {
		dst *float64
		src string
	}{
		{&conf.Market.Spot, a.spot},
		{&conf.Market.RiskFreeRate, a.riskFreeRate},
		{&conf.Market.DividendYield, a.dividendYield},
		{&conf.Market.Volatility, a.volatility},
		{&conf.Option.Strike, a.strike},
	}
	for _, f := range fields {
		d, err := decimal.NewFromString(f.src)
		if err != nil {
			return config.Config{}, fmt.Errorf("invalid number %q: %w", f.src, err)
		}
		*f.dst = d.InexactFloat64()
	}

	conf.Option.Payoff = a.payoff
	conf.Option.Exercise = a.exercise
	if a.payoff == config.PayoffCashOrNothing {
		cash, err := decimal.NewFromString(a.cash)
		if err != nil {
			return config.Config{}, fmt.Errorf("invalid cash amount %q: %w", a.cash, err)
		}
		conf.Option.Cash = cash.InexactFloat64()
	}

	selected := make(map[string]bool, len(a.engines))
	for _, l := range a.engines {
		selected[l] = true
	}
	engines := conf.Engines[:0]
	for _, e := range conf.Engines {
		if selected[e.Label] {
			engines = append(engines, e)
		}
	}
	conf.Engines = engines

	conf.Output = a.output
	conf.Parallel = a.parallel
	return conf, conf.Validate()
}

func validateDate(s string) error {
	if _, err := domain.ParseDate(s); err != nil {
		return fmt.Errorf("must be YYYY-MM-DD")
	}
	return nil
}

func validateDecimal(s string) error {
	if _, err := decimal.NewFromString(s); err != nil {
		return fmt.Errorf("must be a valid number")
	}
	return nil
}

func validatePositive(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if !d.IsPositive() {
		return fmt.Errorf("must be positive")
	}
	return nil
}
