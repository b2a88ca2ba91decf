// Package jsonl writes dispatched records to a JSON Lines file, one object
// per line. The stream command uses it to tail the live feed to disk.
package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jackson97010/api-holdwin/internal/domain"
)

// Writer appends records to a JSONL file. Safe for concurrent use.
type Writer struct {
	mu  sync.Mutex
	f   *os.File
	buf *bufio.Writer
}

// NewWriter opens path for appending, creating parent directories as
// needed.
func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}

	return &Writer{f: f, buf: bufio.NewWriter(f)}, nil
}

// tradeLine is the serialized form of a trade print. Prices are decimal
// strings so downstream consumers never see binary float artifacts.
type tradeLine struct {
	Type        string `json:"type"`
	StockID     string `json:"stock_id"`
	Time        string `json:"time,omitempty"`
	Trial       bool   `json:"trial"`
	Price       string `json:"price"`
	Volume      int64  `json:"volume"`
	TotalVolume int64  `json:"total_volume"`
	Side        string `json:"side,omitempty"`
}

type levelLine struct {
	Price  string `json:"price"`
	Volume int64  `json:"volume"`
}

type depthLine struct {
	Type     string      `json:"type"`
	StockID  string      `json:"stock_id"`
	Time     string      `json:"time,omitempty"`
	BidCount int         `json:"bid_count"`
	AskCount int         `json:"ask_count"`
	Bids     []levelLine `json:"bids"`
	Asks     []levelLine `json:"asks"`
}

// WriteTrade appends one trade record.
func (w *Writer) WriteTrade(t *domain.TradeRecord) error {
	return w.writeLine(tradeLine{
		Type:        "trade",
		StockID:     t.StockID,
		Time:        formatTime(t.Time),
		Trial:       t.Trial.IsTrial(),
		Price:       t.Price.Decimal().String(),
		Volume:      t.Volume,
		TotalVolume: t.TotalVolume,
		Side:        t.Side.Code(),
	})
}

// WriteDepth appends one depth snapshot.
func (w *Writer) WriteDepth(d *domain.DepthRecord) error {
	return w.writeLine(depthLine{
		Type:     "depth",
		StockID:  d.StockID,
		Time:     formatTime(d.Time),
		BidCount: d.BidCount,
		AskCount: d.AskCount,
		Bids:     levelLines(d.Bids),
		Asks:     levelLines(d.Asks),
	})
}

func levelLines(levels [domain.MaxDepthLevels]*domain.PriceLevel) []levelLine {
	out := make([]levelLine, 0, len(levels))
	for _, lvl := range levels {
		if lvl == nil {
			continue
		}
		out = append(out, levelLine{
			Price:  lvl.Price.Decimal().String(),
			Volume: lvl.Volume,
		})
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02T15:04:05.000000-07:00")
}

func (w *Writer) writeLine(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal jsonl record: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.buf.Write(data); err != nil {
		return fmt.Errorf("write jsonl record: %w", err)
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return fmt.Errorf("write jsonl record: %w", err)
	}
	return nil
}

// Flush pushes buffered lines to the file.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Flush()
}

// Close flushes and closes the file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.buf.Flush(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}
