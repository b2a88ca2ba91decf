package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackson97010/api-holdwin/internal/domain"
)

func tradeTick(ts int64, price int64) *domain.Tick {
	return &domain.Tick{
		Kind: domain.KindTrade,
		Trade: &domain.TradeRecord{
			StockID: "2355",
			TSRaw:   ts,
			Price:   domain.PriceFromScaled(price),
		},
	}
}

func depthTick(ts, bid, ask int64) *domain.Tick {
	d := snapshot(bid, ask)
	d.TSRaw = ts
	return &domain.Tick{Kind: domain.KindDepth, Depth: d}
}

func TestLabelSeries(t *testing.T) {
	ticks := []*domain.Tick{
		// Trade before any snapshot stays unresolved.
		tradeTick(100, 492000),
		depthTick(200, 486000, 492000),
		// At the ask of the 200 snapshot.
		tradeTick(300, 492000),
		depthTick(400, 490000, 495000),
		// At the bid of the 400 snapshot, not the 200 one.
		tradeTick(500, 490000),
	}

	LabelSeries(ticks)

	assert.Equal(t, domain.SideUnknown, ticks[0].Trade.Side)
	assert.Equal(t, domain.SideBuy, ticks[2].Trade.Side)
	assert.Equal(t, domain.SideSell, ticks[4].Trade.Side)
}

func TestLabelSeries_EqualTimestampJoins(t *testing.T) {
	// A snapshot sharing the trade's timestamp is eligible (join is <=).
	ticks := []*domain.Tick{
		depthTick(300, 486000, 492000),
		tradeTick(300, 492000),
	}

	LabelSeries(ticks)
	assert.Equal(t, domain.SideBuy, ticks[1].Trade.Side)
}

func TestLabelSeries_UnsortedInput(t *testing.T) {
	// The join sorts by raw timestamp internally; arrival order does not
	// have to be chronological.
	ticks := []*domain.Tick{
		tradeTick(500, 490000),
		depthTick(400, 490000, 495000),
		depthTick(200, 486000, 492000),
		tradeTick(300, 492000),
	}

	LabelSeries(ticks)

	assert.Equal(t, domain.SideSell, ticks[0].Trade.Side)
	assert.Equal(t, domain.SideBuy, ticks[3].Trade.Side)
}

func TestLabelSeries_NoDepths(t *testing.T) {
	ticks := []*domain.Tick{tradeTick(100, 492000), tradeTick(200, 486000)}
	LabelSeries(ticks)

	for _, tk := range ticks {
		assert.Equal(t, domain.SideUnknown, tk.Trade.Side)
	}
}

func TestLabelSeries_PreservesOrder(t *testing.T) {
	ticks := []*domain.Tick{
		tradeTick(500, 490000),
		depthTick(200, 486000, 492000),
		tradeTick(300, 492000),
	}

	LabelSeries(ticks)

	require.Equal(t, domain.KindTrade, ticks[0].Kind)
	assert.Equal(t, int64(500), ticks[0].TSRaw())
	assert.Equal(t, int64(200), ticks[1].TSRaw())
	assert.Equal(t, int64(300), ticks[2].TSRaw())
}
