package verification

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackson97010/api-holdwin/internal/batch"
	"github.com/jackson97010/api-holdwin/internal/domain"
	"github.com/jackson97010/api-holdwin/internal/limitup"
	"github.com/jackson97010/api-holdwin/internal/storage/memory"
)

func trade(ts int64, price int64, side domain.Side) *domain.Tick {
	return &domain.Tick{
		Date:    "20251119",
		StockID: "2355",
		Kind:    domain.KindTrade,
		Trade: &domain.TradeRecord{
			StockID: "2355",
			TSRaw:   ts,
			Price:   domain.PriceFromScaled(price),
			Volume:  1,
			Side:    side,
		},
	}
}

func TestCompareSeries_Match(t *testing.T) {
	a := []*domain.Tick{trade(100, 492000, domain.SideBuy)}
	b := []*domain.Tick{trade(100, 492000, domain.SideBuy)}

	result := CompareSeries(a, b)
	assert.True(t, result.Match)
	assert.Empty(t, result.Divergences)
}

func TestCompareSeries_FieldDivergence(t *testing.T) {
	a := []*domain.Tick{trade(100, 492000, domain.SideBuy)}
	b := []*domain.Tick{trade(100, 492500, domain.SideSell)}

	result := CompareSeries(a, b)
	require.False(t, result.Match)
	require.Len(t, result.Divergences, 2)

	fields := []string{result.Divergences[0].Field, result.Divergences[1].Field}
	assert.Contains(t, fields, "Price")
	assert.Contains(t, fields, "Side")
}

func TestCompareSeries_ExactPriceEquality(t *testing.T) {
	// A one-scaled-unit difference (0.0001) must diverge: comparison is
	// exact, never tolerance-based.
	a := []*domain.Tick{trade(100, 492000, domain.SideBuy)}
	b := []*domain.Tick{trade(100, 492001, domain.SideBuy)}

	assert.False(t, CompareSeries(a, b).Match)
}

func TestCompareSeries_LengthMismatch(t *testing.T) {
	a := []*domain.Tick{trade(100, 492000, domain.SideBuy), trade(200, 492000, domain.SideBuy)}
	b := []*domain.Tick{trade(100, 492000, domain.SideBuy)}

	result := CompareSeries(a, b)
	require.False(t, result.Match)
	assert.Equal(t, 2, result.StoredRows)
	assert.Equal(t, 1, result.DecodedRows)
	require.Len(t, result.Divergences, 1)
	assert.Equal(t, "len", result.Divergences[0].Field)
}

func TestCompareSeries_DepthLevels(t *testing.T) {
	mk := func(vol int64) []*domain.Tick {
		d := &domain.DepthRecord{StockID: "2355", TSRaw: 100, BidCount: 1, AskCount: 0}
		d.Bids[0] = &domain.PriceLevel{Price: domain.PriceFromScaled(486000), Volume: vol}
		return []*domain.Tick{{
			Date: "20251119", StockID: "2355", Kind: domain.KindDepth, Depth: d,
		}}
	}

	assert.True(t, CompareSeries(mk(10), mk(10)).Match)

	result := CompareSeries(mk(10), mk(11))
	require.False(t, result.Match)
	assert.Equal(t, "Bids[0]", result.Divergences[0].Field)
}

func TestVerifyDate_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	content := "Depth,2355  ,90000000000,BID:1,486000*10,ASK:1,492000*10\n" +
		"Trade,2355  ,90000100000,0,492000,1,1\n"
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "TSEQuote.20251119"), []byte(content), 0o644))

	cal := limitup.Calendar{"20251119": {"2355": {}}}
	store := memory.NewTickStore()

	// Persist through the same decode path the verifier replays.
	pipeline, err := batch.New(batch.Options{
		Calendar: cal, Store: store, DataDir: dir, Workers: 1,
	})
	require.NoError(t, err)
	_, err = pipeline.Run(context.Background(), nil)
	require.NoError(t, err)

	verifier := NewVerifier(store, cal, dir, nil)
	report, err := verifier.VerifyDate(context.Background(), "20251119")
	require.NoError(t, err)

	assert.Equal(t, 1, report.TotalSeries)
	assert.Equal(t, 1, report.MatchedSeries)
	assert.Equal(t, 0, report.DivergentSeries)
}

func TestVerifyDate_DetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	content := "Trade,2355  ,90000100000,0,492000,1,1\n"
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "TSEQuote.20251119"), []byte(content), 0o644))

	cal := limitup.Calendar{"20251119": {"2355": {}}}
	store := memory.NewTickStore()

	// Persist a tampered series.
	corrupted := trade(90000100000, 999999, domain.SideBuy)
	require.NoError(t, store.InsertDay(context.Background(), "20251119", "2355",
		[]*domain.Tick{corrupted}))

	verifier := NewVerifier(store, cal, dir, nil)
	report, err := verifier.VerifyDate(context.Background(), "20251119")
	require.NoError(t, err)

	assert.Equal(t, 1, report.DivergentSeries)
	require.Len(t, report.Results, 1)
	assert.NotEmpty(t, report.Results[0].Divergences)
}
