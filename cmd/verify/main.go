// Command verify re-decodes persisted instrument-day series from the
// source quote files and reports any field-level divergence.
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
	"github.com/jackson97010/api-holdwin/internal/verification"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	dates := flag.String("dates", "", "Comma-separated YYYYMMDD dates; empty verifies every date in the data dir")
	flag.Parse()

	if err := run(*configPath, *dates); err != nil {
		fmt.Fprintf(os.Stderr, "verify: %v\n", err)
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
		<-sigCh
		cancel()
	}()

	pool, err := postgres.NewPool(ctx, cfg.Stores.PostgresDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	events, err := postgres.NewLimitUpStore(pool).GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load limit-up events: %w", err)
	}
	calendar := limitup.FromEvents(events)

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Stores.ClickhouseDSN)
	if err != nil {
		return err
	}
	defer conn.Close()

	verifier := verification.NewVerifier(
		clickhouse.NewTickStore(conn), calendar, cfg.Data.Dir, logger)

	dateSet := parseDates(dateList)
	if dateSet == nil {
		dateSet, err = batch.DiscoverDates(cfg.Data.Dir)
		if err != nil {
			return err
		}
	}

	divergent := 0
	for _, date := range dateSet {
		report, err := verifier.VerifyDate(ctx, date)
		if err != nil {
			return err
		}
		if report.TotalSeries == 0 {
			continue
		}

		logger.Info("date verified",
			zap.String("date", date),
			zap.Int("series", report.TotalSeries),
			zap.Int("matched", report.MatchedSeries),
			zap.Int("divergent", report.DivergentSeries))
		divergent += report.DivergentSeries

		for _, r := range report.Results {
			for _, d := range r.Divergences {
				logger.Warn("divergence",
					zap.String("date", r.Date),
					zap.String("stock_id", r.StockID),
					zap.Int("row", d.Row),
					zap.String("field", d.Field),
					zap.Any("stored", d.Expected),
					zap.Any("decoded", d.Actual))
			}
		}
	}

	if divergent > 0 {
		return fmt.Errorf("%d series diverge from re-decode", divergent)
	}
	return nil
}

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
