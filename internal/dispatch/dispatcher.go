// Package dispatch iterates a raw-line source, decodes and classifies
// records for a target instrument set, and fans them out to registered
// sinks in arrival order.
package dispatch

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/jackson97010/api-holdwin/internal/book"
	"github.com/jackson97010/api-holdwin/internal/domain"
	"github.com/jackson97010/api-holdwin/internal/protocol"
)

// TradeSink receives classified trade records.
type TradeSink func(ctx context.Context, t *domain.TradeRecord) error

// DepthSink receives depth snapshots after the book cache is updated.
type DepthSink func(ctx context.Context, d *domain.DepthRecord) error

// Counter is an optional incrementing hook for live stream accounting.
// Prometheus counters satisfy it.
type Counter interface {
	Inc()
}

// Counters are optional per-line counters updated as the stream runs, in
// addition to the Stats returned at the end.
type Counters struct {
	Lines        Counter
	Filtered     Counter
	DecodeErrors Counter
}

func inc(c Counter) {
	if c != nil {
		c.Inc()
	}
}

// Stats counts the outcome of one dispatch run.
type Stats struct {
	Lines        int64 // lines read from the source
	Trades       int64 // trade records delivered
	Depths       int64 // depth records delivered
	Filtered     int64 // lines dropped by the instrument filter
	DecodeErrors int64 // malformed records skipped
}

// Options configures a Dispatcher.
type Options struct {
	// RefDate is the 8-digit reference date for timestamp derivation.
	RefDate string

	// Targets limits processing to these instruments; empty means all.
	Targets []string

	// Delay is an optional pause between records to simulate live pacing
	// during file replay.
	Delay time.Duration

	Counters Counters

	Logger *zap.Logger
}

// Dispatcher owns the book cache and sink registrations for one stream.
// It is an explicit context object, not ambient state: independent
// dispatchers never share books or sinks.
type Dispatcher struct {
	refDate  string
	targets  map[string]struct{}
	delay    time.Duration
	counters Counters
	cache    *book.Cache
	logger   *zap.Logger

	tradeSinks []TradeSink
	depthSinks []DepthSink
}

// New creates a Dispatcher.
func New(opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var targets map[string]struct{}
	if len(opts.Targets) > 0 {
		targets = make(map[string]struct{}, len(opts.Targets))
		for _, id := range opts.Targets {
			targets[id] = struct{}{}
		}
	}

	return &Dispatcher{
		refDate:  opts.RefDate,
		targets:  targets,
		delay:    opts.Delay,
		counters: opts.Counters,
		cache:    book.NewCache(),
		logger:   logger,
	}
}

// Cache exposes the dispatcher's book cache (read access for callers that
// want top-of-book alongside trades).
func (d *Dispatcher) Cache() *book.Cache {
	return d.cache
}

// OnTrade registers a trade sink. Sinks run in registration order.
func (d *Dispatcher) OnTrade(s TradeSink) {
	d.tradeSinks = append(d.tradeSinks, s)
}

// OnDepth registers a depth sink.
func (d *Dispatcher) OnDepth(s DepthSink) {
	d.depthSinks = append(d.depthSinks, s)
}

// Run consumes the source until exhaustion or context cancellation.
//
// Delivery is ordered and backpressure-respecting: every sink is awaited
// before the next line is read, so a slow sink delays the stream rather
// than dropping or buffering without bound. A sink error is logged and the
// stream continues; only source errors end the run.
func (d *Dispatcher) Run(ctx context.Context, src Source) (Stats, error) {
	var stats Stats

	for {
		line, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return stats, nil
			}
			return stats, err
		}
		stats.Lines++
		inc(d.counters.Lines)

		// Cheap pre-decode filter on the raw instrument field.
		if d.targets != nil {
			if _, ok := d.targets[protocol.InstrumentID(line)]; !ok {
				stats.Filtered++
				inc(d.counters.Filtered)
				continue
			}
		}

		rec, err := protocol.DecodeLine(line, d.refDate)
		if err != nil {
			if !errors.Is(err, protocol.ErrNotARecord) {
				stats.DecodeErrors++
				inc(d.counters.DecodeErrors)
				d.logger.Debug("dropped malformed line", zap.Error(err))
			}
			continue
		}

		switch rec.Kind {
		case domain.KindDepth:
			d.cache.Update(rec.Depth)
			stats.Depths++
			for _, sink := range d.depthSinks {
				if err := sink(ctx, rec.Depth); err != nil {
					d.logger.Warn("depth sink failed",
						zap.String("stock_id", rec.Depth.StockID), zap.Error(err))
				}
			}
		case domain.KindTrade:
			rec.Trade.Side = book.ClassifyLatest(rec.Trade, d.cache)
			stats.Trades++
			for _, sink := range d.tradeSinks {
				if err := sink(ctx, rec.Trade); err != nil {
					d.logger.Warn("trade sink failed",
						zap.String("stock_id", rec.Trade.StockID), zap.Error(err))
				}
			}
		}

		if d.delay > 0 {
			timer := time.NewTimer(d.delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return stats, ctx.Err()
			}
		}
	}
}
