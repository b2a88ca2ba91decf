// Command batchdecode decodes archived quote files for every trading date
// with limit-up targets and persists one series per target instrument.
// Re-runs skip dates whose outputs already exist.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/jackson97010/api-holdwin/internal/batch"
	"github.com/jackson97010/api-holdwin/internal/config"
	"github.com/jackson97010/api-holdwin/internal/limitup"
	"github.com/jackson97010/api-holdwin/internal/observability"
	"github.com/jackson97010/api-holdwin/internal/storage/clickhouse"
	"github.com/jackson97010/api-holdwin/internal/storage/migrations"
	"github.com/jackson97010/api-holdwin/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	dates := flag.String("dates", "", "Comma-separated YYYYMMDD dates; empty scans the data dir")
	flag.Parse()

	if err := run(*configPath, *dates); err != nil {
		fmt.Fprintf(os.Stderr, "batchdecode: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, dateList string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.App.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Stores.PostgresDSN == "" {
		return errors.New("stores.postgres_dsn is required")
	}
	if cfg.Stores.ClickhouseDSN == "" {
		return errors.New("stores.clickhouse_dsn is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("signal received, cancelling", zap.String("signal", sig.String()))
		cancel()
	}()

	pool, err := postgres.NewPool(ctx, cfg.Stores.PostgresDSN)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return err
	}

	events, err := postgres.NewLimitUpStore(pool).GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load limit-up events: %w", err)
	}
	calendar := limitup.FromEvents(events)
	logger.Info("limit-up calendar loaded",
		zap.Int("events", len(events)),
		zap.Int("dates", len(calendar.Dates())))

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Stores.ClickhouseDSN)
	if err != nil {
		return err
	}
	defer conn.Close()

	pipeline, err := batch.New(batch.Options{
		Calendar: calendar,
		Store:    clickhouse.NewTickStore(conn),
		DataDir:  cfg.Data.Dir,
		Workers:  cfg.Batch.Workers,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	result, err := pipeline.Run(ctx, parseDates(dateList))
	if err != nil {
		return err
	}

	logger.Info("batch decode finished",
		zap.Int("processed", result.Processed),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.Int("series_written", result.Instruments))
	for _, e := range result.Errors {
		logger.Error("date failed", zap.Error(e))
	}

	if result.Failed > 0 {
		return fmt.Errorf("%d date(s) failed", result.Failed)
	}
	return nil
}

// parseDates splits a comma list into trimmed dates; nil for an empty list
// so the pipeline scans the data dir.
func parseDates(list string) []string {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	var dates []string
	for _, d := range strings.Split(list, ",") {
		if d = strings.TrimSpace(d); d != "" {
			dates = append(dates, d)
		}
	}
	return dates
}
