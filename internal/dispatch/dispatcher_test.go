package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackson97010/api-holdwin/internal/domain"
)

const refDate = "20251119"

func runLines(t *testing.T, d *Dispatcher, lines []string) Stats {
	t.Helper()

	ch := make(chan string, len(lines))
	for _, l := range lines {
		ch <- l
	}
	close(ch)

	stats, err := d.Run(context.Background(), ChanSource{C: ch})
	require.NoError(t, err)
	return stats
}

func TestDispatcher_ClassifiesAgainstLatestBook(t *testing.T) {
	d := New(Options{RefDate: refDate})

	var trades []*domain.TradeRecord
	d.OnTrade(func(_ context.Context, tr *domain.TradeRecord) error {
		trades = append(trades, tr)
		return nil
	})

	var depths int
	d.OnDepth(func(_ context.Context, _ *domain.DepthRecord) error {
		depths++
		return nil
	})

	stats := runLines(t, d, []string{
		// Trade before any depth stays unresolved.
		"Trade,2355  ,90000000000,0,492000,1,1",
		"Depth,2355  ,90000100000,BID:1,486000*10,ASK:1,492000*10",
		"Trade,2355  ,90000200000,0,492000,1,2",
		"Trade,2355  ,90000300000,0,486000,2,4",
	})

	assert.Equal(t, int64(4), stats.Lines)
	assert.Equal(t, int64(3), stats.Trades)
	assert.Equal(t, int64(1), stats.Depths)
	assert.Equal(t, 1, depths)

	require.Len(t, trades, 3)
	assert.Equal(t, domain.SideUnknown, trades[0].Side)
	assert.Equal(t, domain.SideBuy, trades[1].Side)
	assert.Equal(t, domain.SideSell, trades[2].Side)
}

func TestDispatcher_TargetFilter(t *testing.T) {
	d := New(Options{RefDate: refDate, Targets: []string{"2355"}})

	var got []string
	d.OnTrade(func(_ context.Context, tr *domain.TradeRecord) error {
		got = append(got, tr.StockID)
		return nil
	})

	stats := runLines(t, d, []string{
		"Trade,2355  ,90000000000,0,492000,1,1",
		"Trade,2330  ,90000000000,0,10000000,1,1",
		"Trade,2355  ,90000100000,0,492000,1,2",
	})

	assert.Equal(t, int64(1), stats.Filtered)
	assert.Equal(t, []string{"2355", "2355"}, got)
}

func TestDispatcher_SkipsUnknownAndMalformed(t *testing.T) {
	d := New(Options{RefDate: refDate})

	stats := runLines(t, d, []string{
		"Heartbeat,ping",
		"Trade,2355  ,90000000000,0,bad,1,1",
		"Trade,2355  ,90000100000,0,492000,1,1",
	})

	assert.Equal(t, int64(3), stats.Lines)
	assert.Equal(t, int64(1), stats.Trades)
	// Unknown tags are not decode errors; malformed records are.
	assert.Equal(t, int64(1), stats.DecodeErrors)
}

func TestDispatcher_SinkErrorDoesNotStopStream(t *testing.T) {
	d := New(Options{RefDate: refDate})

	calls := 0
	d.OnTrade(func(_ context.Context, _ *domain.TradeRecord) error {
		calls++
		return errors.New("sink broken")
	})

	stats := runLines(t, d, []string{
		"Trade,2355  ,90000000000,0,492000,1,1",
		"Trade,2355  ,90000100000,0,492000,1,2",
	})

	assert.Equal(t, int64(2), stats.Trades)
	assert.Equal(t, 2, calls)
}

func TestDispatcher_SinksRunInRegistrationOrder(t *testing.T) {
	d := New(Options{RefDate: refDate})

	var order []string
	d.OnTrade(func(_ context.Context, _ *domain.TradeRecord) error {
		order = append(order, "first")
		return nil
	})
	d.OnTrade(func(_ context.Context, _ *domain.TradeRecord) error {
		order = append(order, "second")
		return nil
	})

	runLines(t, d, []string{"Trade,2355  ,90000000000,0,492000,1,1"})
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestDispatcher_ContextCancellation(t *testing.T) {
	d := New(Options{RefDate: refDate})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := make(chan string)
	_, err := d.Run(ctx, ChanSource{C: ch})
	assert.ErrorIs(t, err, context.Canceled)
}
