// Command pricebench values one option with a set of pricing engines and
// reports how far each lands from the reference value.
//
// Usage:
//
//	pricebench                          (built-in European option scenario)
//	pricebench -config scenario.yaml    (yaml or toml)
//	pricebench -setup                   (interactive wizard)
//	pricebench -journal ./wal -serve :8080
//
// Environment overrides (also read from .env): PRICEBENCH_OUTPUT,
// PRICEBENCH_JOURNAL_DIR, PRICEBENCH_PARALLEL, PRICEBENCH_WORKERS,
// PRICEBENCH_SERVE_ADDR, PRICEBENCH_REFERENCE, PRICEBENCH_SPOT,
// PRICEBENCH_VOLATILITY.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vadiminshakov/pricebench/config"
	"github.com/vadiminshakov/pricebench/internal"
	"github.com/vadiminshakov/pricebench/internal/report"
	"github.com/vadiminshakov/pricebench/internal/setup"
	"github.com/vadiminshakov/pricebench/internal/storage/valuations"
	"github.com/vadiminshakov/pricebench/internal/web"
)

func main() {
	conf, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	if conf.Setup {
		if err := setup.RunTUI(conf.Path); err != nil {
			log.Fatal(err)
		}
		return
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sinks report.MultiSink
	switch conf.Output {
	case config.OutputTable:
		sinks = append(sinks, report.NewTableSink(os.Stdout))
	default:
		sinks = append(sinks, report.NewTextSink(os.Stdout))
	}

	// the dashboard reads the journal, so serving implies journaling
	journalDir := conf.JournalDir
	if journalDir == "" && conf.ServeAddr != "" {
		journalDir = valuations.DefaultDir
	}

	var store *valuations.WALStore
	if journalDir != "" {
		store, err = valuations.NewWALStore(journalDir)
		if err != nil {
			logger.Fatal("failed to open valuation journal", zap.Error(err))
		}
		defer store.Close()

		runID := uuid.NewString()
		sinks = append(sinks, report.NewJournalSink(store, runID))
		logger.Info("journaling valuations", zap.String("dir", journalDir), zap.String("run_id", runID))
	}

	bench, err := internal.NewBench(conf, logger, sinks)
	if err != nil {
		logger.Fatal("failed to create bench", zap.Error(err))
	}

	served := make(chan error, 1)
	if conf.ServeAddr != "" {
		srv := web.NewServer(conf.ServeAddr, store, logger)
		go func() {
			served <- srv.Start(ctx)
		}()
	}

	if _, err := bench.Run(ctx); err != nil {
		logger.Fatal("bench failed", zap.Error(err))
	}

	if conf.ServeAddr != "" {
		logger.Info("valuations done, dashboard stays up until interrupted", zap.String("addr", conf.ServeAddr))
		if err := <-served; err != nil {
			logger.Error("dashboard stopped", zap.Error(err))
		}
	}
}
