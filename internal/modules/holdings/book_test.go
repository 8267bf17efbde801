package holdings

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBook(t *testing.T) *Book {
	t.Helper()
	b := NewBook(zerolog.Nop())
	for _, h := range sampleHoldings() {
		require.NoError(t, b.Add(h))
	}
	return b
}

func TestBookAdd(t *testing.T) {
	b := newTestBook(t)

	snap := b.Snapshot()
	assert.Len(t, snap.Holdings, 2)
	assert.Equal(t, 6000.0, snap.Summary.TotalInvestment)
	assert.Equal(t, 6050.0, snap.Summary.TotalValue)
	assert.Len(t, snap.Sectors, 2)
}

func TestBookAddDuplicateTicker(t *testing.T) {
	b := newTestBook(t)
	before := b.Snapshot()

	err := b.Add(Holding{ID: "h9", Ticker: "AAPL", Sector: "Technology", PurchasePrice: 160, Quantity: 1, CurrentPrice: 160})
	require.ErrorIs(t, err, ErrDuplicateHolding)

	// All-or-nothing: collection and summaries unchanged
	assert.Equal(t, before, b.Snapshot())
}

func TestBookRemove(t *testing.T) {
	b := newTestBook(t)

	require.NoError(t, b.Remove("h2"))

	snap := b.Snapshot()
	assert.Len(t, snap.Holdings, 1)
	assert.Equal(t, 1500.0, snap.Summary.TotalInvestment)
	assert.Equal(t, 1, snap.Summary.SectorCount)
}

func TestBookRemoveUnknown(t *testing.T) {
	b := newTestBook(t)
	before := b.Snapshot()

	err := b.Remove("no-such-id")
	require.ErrorIs(t, err, ErrHoldingNotFound)
	assert.Equal(t, before, b.Snapshot())
}

func TestBookAddThenRemoveRestoresPriorState(t *testing.T) {
	b := newTestBook(t)
	before := b.Snapshot()

	h := Holding{ID: "h3", Ticker: "NVDA", Sector: "Technology", PurchasePrice: 400, Quantity: 2, CurrentPrice: 500}
	require.NoError(t, b.Add(h))
	require.NoError(t, b.Remove("h3"))

	assert.Equal(t, before, b.Snapshot())
}

func TestBookStageQuantity(t *testing.T) {
	b := newTestBook(t)
	before := b.Snapshot()

	require.NoError(t, b.StageQuantity("h1", 20))

	// Staged edits touch only the overlay, not committed state
	assert.Equal(t, before, b.Snapshot())

	qty, ok := b.PendingQuantity("h1")
	require.True(t, ok)
	assert.Equal(t, int64(20), qty)

	// The overlay feeds live previews through the same valuation path
	snap := b.Snapshot()
	row := Row{Kind: RowHolding, Holding: &snap.Holdings[0]}
	assert.Equal(t, int64(20), row.EffectiveQuantity(b.PendingOverlay()))
}

func TestBookCommitQuantity(t *testing.T) {
	b := newTestBook(t)

	require.NoError(t, b.StageQuantity("h1", 20))
	require.NoError(t, b.CommitQuantity("h1", 20))

	// Overlay cleared on commit
	_, ok := b.PendingQuantity("h1")
	assert.False(t, ok)

	snap := b.Snapshot()
	assert.Equal(t, int64(20), snap.Holdings[0].Quantity)
	assert.Equal(t, 7500.0, snap.Summary.TotalInvestment)

	// Technology sector reflects the committed quantity
	var tech *SectorSummary
	for i := range snap.Sectors {
		if snap.Sectors[i].Sector == "Technology" {
			tech = &snap.Sectors[i]
		}
	}
	require.NotNil(t, tech)
	assert.Equal(t, 3000.0, tech.TotalInvestment)
}

func TestBookInvalidQuantity(t *testing.T) {
	b := newTestBook(t)

	assert.ErrorIs(t, b.StageQuantity("h1", -1), ErrInvalidQuantity)
	assert.ErrorIs(t, b.CommitQuantity("h1", -5), ErrInvalidQuantity)
	assert.ErrorIs(t, b.StageQuantity("missing", 3), ErrHoldingNotFound)
	assert.ErrorIs(t, b.CommitQuantity("missing", 3), ErrHoldingNotFound)
}

func TestBookRemoveRetractsPendingEdit(t *testing.T) {
	b := newTestBook(t)

	require.NoError(t, b.StageQuantity("h1", 99))
	require.NoError(t, b.Remove("h1"))

	_, ok := b.PendingQuantity("h1")
	assert.False(t, ok)
}

func TestBookApplyQuote(t *testing.T) {
	b := newTestBook(t)

	high := 185.5
	require.NoError(t, b.ApplyQuote("AAPL", 182, MarketData{DayHigh: &high}, time.Now()))

	snap := b.Snapshot()
	assert.Equal(t, 182.0, snap.Holdings[0].CurrentPrice)
	require.NotNil(t, snap.Holdings[0].Market.DayHigh)
	assert.Equal(t, 185.5, *snap.Holdings[0].Market.DayHigh)
	// Summaries recomputed in the same transition
	assert.Equal(t, 182.0*10+850.0*5, snap.Summary.TotalValue)

	assert.ErrorIs(t, b.ApplyQuote("GONE", 1, MarketData{}, time.Now()), ErrHoldingNotFound)
}

func TestBookDegradeToFallback(t *testing.T) {
	b := newTestBook(t)

	high := 185.5
	require.NoError(t, b.ApplyQuote("AAPL", 182, MarketData{DayHigh: &high}, time.Now()))
	require.NoError(t, b.DegradeToFallback("AAPL"))

	snap := b.Snapshot()
	assert.Equal(t, snap.Holdings[0].PurchasePrice, snap.Holdings[0].CurrentPrice)
	assert.Nil(t, snap.Holdings[0].Market.DayHigh)
}

func TestBookRestoreReconciliation(t *testing.T) {
	b := newTestBook(t)

	external := []Holding{
		{ID: "x1", Ticker: "MSFT", Sector: "Technology", PurchasePrice: 300, Quantity: 3, CurrentPrice: 310},
	}

	// A snapshot saved before the last local commit loses
	stale := time.Now().Add(-time.Hour)
	assert.False(t, b.Restore(external, stale))
	assert.Len(t, b.Snapshot().Holdings, 2)

	// A snapshot saved after the last local commit wins
	fresh := time.Now().Add(time.Hour)
	assert.True(t, b.Restore(external, fresh))

	snap := b.Snapshot()
	require.Len(t, snap.Holdings, 1)
	assert.Equal(t, "MSFT", snap.Holdings[0].Ticker)
	assert.Equal(t, 900.0, snap.Summary.TotalInvestment)
}

func TestBookSnapshotIsACopy(t *testing.T) {
	b := newTestBook(t)

	snap := b.Snapshot()
	snap.Holdings[0].Quantity = 999

	reread, err := b.Get("h1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), reread.Quantity)
}
