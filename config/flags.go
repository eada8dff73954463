package config

import (
	"flag"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Get resolves the run configuration from os.Args.
func Get() (Config, error) {
	return Parse(os.Args[1:])
}

// Parse resolves the configuration in increasing precedence: the scenario
// file (or the built-in scenario), .env and PRICEBENCH_* variables, then
// explicitly set flags.
func Parse(args []string) (Config, error) {
	fs := flag.NewFlagSet("pricebench", flag.ContinueOnError)
	path := fs.String("config", "", "path to yaml or toml scenario, the built-in scenario is used when empty")
	output := fs.String("output", OutputText, "report format: text or table")
	journal := fs.String("journal", "", "directory of the valuation journal, disabled when empty")
	parallel := fs.Bool("parallel", false, "value engines concurrently")
	workers := fs.Int("workers", defaultWorkers, "concurrent valuations when -parallel is set")
	serve := fs.String("serve", "", "serve the valuation dashboard on this address, example: :8080")
	setup := fs.Bool("setup", false, "run the interactive scenario wizard")
	if err := fs.Parse(args); err != nil {
		return Config{}, errors.Wrap(err, "parse flags")
	}

	conf := DefaultConfig()
	if *setup {
		// the wizard writes the scenario, the file need not exist yet
		conf.Setup = true
		conf.Path = *path
		if conf.Path == "" {
			conf.Path = DefaultPath
		}
		return conf, nil
	}
	if *path != "" {
		var err error
		if conf, err = Load(*path); err != nil {
			return Config{}, err
		}
	}

	// .env is optional
	_ = godotenv.Load()
	applyEnvOverrides(&conf)

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "output":
			conf.Output = *output
		case "journal":
			conf.JournalDir = *journal
		case "parallel":
			conf.Parallel = *parallel
		case "workers":
			conf.Workers = *workers
		case "serve":
			conf.ServeAddr = *serve
		}
	})
	return conf, nil
}

func applyEnvOverrides(conf *Config) {
	setStr(&conf.Output, "PRICEBENCH_OUTPUT")
	setStr(&conf.JournalDir, "PRICEBENCH_JOURNAL_DIR")
	setBool(&conf.Parallel, "PRICEBENCH_PARALLEL")
	setInt(&conf.Workers, "PRICEBENCH_WORKERS")
	setStr(&conf.ServeAddr, "PRICEBENCH_SERVE_ADDR")
	setStr(&conf.Reference, "PRICEBENCH_REFERENCE")
	setFloat64(&conf.Market.Spot, "PRICEBENCH_SPOT")
	setFloat64(&conf.Market.Volatility, "PRICEBENCH_VOLATILITY")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
