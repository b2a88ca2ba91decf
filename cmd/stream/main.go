// Command stream subscribes to the live quote feed, classifies trades
// against the in-memory book, and tails the decoded records to a JSONL
// file. Prometheus metrics are served on -metrics-addr.
//
// With -replay it reads a recorded quote file instead of the feed, paced
// by replay.delay_ms from the config.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jackson97010/api-holdwin/internal/config"
	"github.com/jackson97010/api-holdwin/internal/dispatch"
	"github.com/jackson97010/api-holdwin/internal/domain"
	"github.com/jackson97010/api-holdwin/internal/feed"
	"github.com/jackson97010/api-holdwin/internal/observability"
	"github.com/jackson97010/api-holdwin/internal/output/jsonl"
	"github.com/jackson97010/api-holdwin/internal/protocol"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	outPath := flag.String("out", "", "JSONL output file; empty disables file output")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics listen address; empty disables")
	replayPath := flag.String("replay", "", "Replay a recorded quote file instead of the live feed")
	replayDate := flag.String("date", "", "Reference date (YYYYMMDD) for -replay; defaults to the file date of today")
	flag.Parse()

	if err := run(*configPath, *outPath, *metricsAddr, *replayPath, *replayDate); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "stream: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, outPath, metricsAddr, replayPath, replayDate string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.App.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if replayPath == "" {
		if cfg.Feed.URL == "" {
			return errors.New("feed.url is required")
		}
		if len(cfg.Feed.Channels) == 0 {
			return errors.New("feed.channels is required")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("signal received, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	metrics := observability.NewMetrics("")
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		srv := &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	// The reference date for timestamp derivation is today on the
	// exchange's clock unless a replay date overrides it.
	refDate := time.Now().In(protocol.Taipei).Format("20060102")
	if replayDate != "" {
		refDate = replayDate
	}

	var (
		src   dispatch.Source
		delay time.Duration
	)
	if replayPath != "" {
		file, err := dispatch.OpenFile(replayPath)
		if err != nil {
			return err
		}
		defer file.Close()
		src = file
		delay = cfg.ReplayDelay()
	} else {
		client, err := feed.NewClient(feed.Options{
			URL:            cfg.Feed.URL,
			Channels:       cfg.Feed.Channels,
			ReconnectDelay: cfg.ReconnectDelay(),
			OnConnect:      metrics.FeedConnects.Inc,
			OnDisconnect:   metrics.FeedDisconnects.Inc,
			Logger:         logger,
		})
		if err != nil {
			return err
		}
		go func() {
			if err := client.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("feed stopped", zap.Error(err))
			}
		}()
		defer client.Close()
		src = dispatch.ChanSource{C: client.Lines()}
	}

	d := dispatch.New(dispatch.Options{
		RefDate: refDate,
		Targets: targetsFromChannels(cfg.Feed.Channels),
		Delay:   delay,
		Counters: dispatch.Counters{
			Lines:        metrics.LinesDispatched,
			Filtered:     metrics.LinesFiltered,
			DecodeErrors: metrics.DecodeErrors,
		},
		Logger: logger,
	})

	if outPath != "" {
		writer, err := jsonl.NewWriter(outPath)
		if err != nil {
			return err
		}
		defer writer.Close()
		d.OnTrade(func(_ context.Context, t *domain.TradeRecord) error {
			if err := writer.WriteTrade(t); err != nil {
				metrics.SinkErrors.WithLabelValues("jsonl").Inc()
				return err
			}
			return nil
		})
		d.OnDepth(func(_ context.Context, dr *domain.DepthRecord) error {
			if err := writer.WriteDepth(dr); err != nil {
				metrics.SinkErrors.WithLabelValues("jsonl").Inc()
				return err
			}
			return nil
		})
	}

	d.OnTrade(func(_ context.Context, t *domain.TradeRecord) error {
		metrics.TradesDelivered.Inc()
		metrics.ClassifiedTrades.WithLabelValues(sideLabel(t.Side)).Inc()
		return nil
	})
	d.OnDepth(func(_ context.Context, _ *domain.DepthRecord) error {
		metrics.DepthsDelivered.Inc()
		metrics.BookInstruments.Set(float64(d.Cache().Len()))
		return nil
	})

	stats, err := d.Run(ctx, src)
	logger.Info("stream finished",
		zap.Int64("lines", stats.Lines),
		zap.Int64("trades", stats.Trades),
		zap.Int64("depths", stats.Depths),
		zap.Int64("decode_errors", stats.DecodeErrors))
	return err
}

// targetsFromChannels maps subscription channels to instrument ids. A
// channel is either a bare instrument id or kind:id.
func targetsFromChannels(channels []string) []string {
	seen := make(map[string]struct{})
	var targets []string
	for _, ch := range channels {
		id := ch
		if i := strings.LastIndexByte(ch, ':'); i >= 0 {
			id = ch[i+1:]
		}
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		targets = append(targets, id)
	}
	return targets
}

func sideLabel(s domain.Side) string {
	switch s {
	case domain.SideBuy:
		return "buy"
	case domain.SideSell:
		return "sell"
	default:
		return "unknown"
	}
}
