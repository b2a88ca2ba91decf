package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/jackson97010/api-holdwin/internal/book"
	"github.com/jackson97010/api-holdwin/internal/dispatch"
	"github.com/jackson97010/api-holdwin/internal/domain"
	"github.com/jackson97010/api-holdwin/internal/limitup"
	"github.com/jackson97010/api-holdwin/internal/protocol"
	"github.com/jackson97010/api-holdwin/internal/storage"
)

// Options configures a batch Pipeline.
type Options struct {
	Calendar limitup.Calendar
	Store    storage.TickStore
	DataDir  string

	// Workers caps date-level parallelism. Zero means min(4, GOMAXPROCS).
	Workers int

	Logger *zap.Logger
}

// Result aggregates the outcome of one Run across all dates.
type Result struct {
	Processed int // dates fully decoded and persisted
	Skipped   int // dates with no targets or already complete
	Failed    int

	Instruments int // series written

	// Errors holds the per-date failures. A failed date never stops its
	// siblings.
	Errors []error
}

// Pipeline decodes archived quote files one trading date at a time.
type Pipeline struct {
	calendar limitup.Calendar
	store    storage.TickStore
	dataDir  string
	workers  int
	logger   *zap.Logger
}

// New creates a Pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Store == nil {
		return nil, errors.New("batch: store is required")
	}
	if opts.DataDir == "" {
		return nil, errors.New("batch: data dir is required")
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pipeline{
		calendar: opts.Calendar,
		store:    opts.Store,
		dataDir:  opts.DataDir,
		workers:  workers,
		logger:   logger,
	}, nil
}

// Decoding is I/O plus light parsing; a few workers saturate it.
func defaultWorkers() int {
	if n := runtime.GOMAXPROCS(0); n < 4 {
		return n
	}
	return 4
}

// Run processes the given dates, fanning them out across the worker pool.
// With a nil dates slice, the data directory is scanned for every date that
// has quote files.
func (p *Pipeline) Run(ctx context.Context, dates []string) (*Result, error) {
	if dates == nil {
		discovered, err := DiscoverDates(p.dataDir)
		if err != nil {
			return nil, err
		}
		dates = discovered
	}

	result := &Result{}
	var mu sync.Mutex

	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for date := range jobs {
				written, err := p.processDate(ctx, date)

				mu.Lock()
				switch {
				case err != nil:
					result.Failed++
					result.Errors = append(result.Errors, fmt.Errorf("date %s: %w", date, err))
				case written < 0:
					result.Skipped++
				default:
					result.Processed++
					result.Instruments += written
				}
				mu.Unlock()
			}
		}()
	}

	for _, date := range dates {
		select {
		case jobs <- date:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return result, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	return result, nil
}

// processDate decodes one trading date. Returns the number of series
// written, or -1 when the date was skipped.
func (p *Pipeline) processDate(ctx context.Context, date string) (int, error) {
	log := p.logger.With(zap.String("date", date))

	targets := p.calendar.Targets(date)
	if len(targets) == 0 {
		log.Debug("no targets, skipping date")
		return -1, nil
	}

	// Resume check. A date whose every target already has a persisted
	// series is complete; partial coverage re-decodes the whole date.
	saved, err := p.store.SavedInstruments(ctx, date)
	if err != nil {
		return 0, fmt.Errorf("check saved instruments: %w", err)
	}
	if coversAll(saved, targets) {
		log.Info("all targets already persisted, skipping date",
			zap.Int("targets", len(targets)))
		return -1, nil
	}

	series, err := DecodeDay(ctx, p.dataDir, date, targets, log)
	if err != nil {
		return 0, err
	}

	written := 0
	for stockID, ticks := range series {
		if err := p.store.InsertDay(ctx, date, stockID, ticks); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				// A prior partial run got here first.
				log.Debug("series already persisted",
					zap.String("stock_id", stockID))
				continue
			}
			return written, fmt.Errorf("persist %s: %w", stockID, err)
		}
		written++
	}

	log.Info("date decoded",
		zap.Int("targets", len(targets)),
		zap.Int("series_written", written))
	return written, nil
}

// DecodeDay decodes all quote files for one date, keeping only the target
// instruments, and returns each target's fully labelled, datetime-sorted
// series. A market file that does not exist contributes nothing.
func DecodeDay(ctx context.Context, dataDir, date string, targets map[string]struct{}, log *zap.Logger) (map[string][]*domain.Tick, error) {
	if log == nil {
		log = zap.NewNop()
	}

	series := make(map[string][]*domain.Tick)
	var seq int64

	for _, market := range Markets {
		path := quotePath(dataDir, market, date)
		src, err := dispatch.OpenFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				log.Debug("quote file absent",
					zap.String("market", market))
				continue
			}
			return nil, err
		}

		decodeErrs := 0
		for {
			line, err := src.Next(ctx)
			if err == io.EOF {
				break
			}
			if err != nil {
				src.Close()
				return nil, err
			}

			id := protocol.InstrumentID(line)
			if _, ok := targets[id]; !ok {
				continue
			}

			dec, err := protocol.DecodeLine(line, date)
			if err != nil {
				if !errors.Is(err, protocol.ErrNotARecord) {
					decodeErrs++
					log.Debug("undecodable line",
						zap.String("market", market),
						zap.Error(err))
				}
				continue
			}

			tick := &domain.Tick{
				Date:    date,
				StockID: dec.StockID(),
				Seq:     seq,
				Kind:    dec.Kind,
				Trade:   dec.Trade,
				Depth:   dec.Depth,
			}
			seq++
			series[tick.StockID] = append(series[tick.StockID], tick)
		}
		src.Close()

		if decodeErrs > 0 {
			log.Warn("lines failed to decode",
				zap.String("market", market),
				zap.Int("count", decodeErrs))
		}
	}

	for _, ticks := range series {
		book.LabelSeries(ticks)
		sortSeries(ticks)
	}
	return series, nil
}

// sortSeries orders a series by derived datetime with records lacking one
// at the end, arrival order breaking ties.
func sortSeries(ticks []*domain.Tick) {
	sort.SliceStable(ticks, func(i, j int) bool {
		ti, tj := ticks[i].Time(), ticks[j].Time()
		switch {
		case ti.IsZero():
			return false
		case tj.IsZero():
			return true
		default:
			return ti.Before(tj)
		}
	})
}

// coversAll reports whether every wanted id is present in saved.
func coversAll(saved, wanted map[string]struct{}) bool {
	for id := range wanted {
		if _, ok := saved[id]; !ok {
			return false
		}
	}
	return true
}
