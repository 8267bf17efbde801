package holdings

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Book owns the holding collection, the pending-quantity overlay and
// the derived summaries. Every mutation goes through the Book's lock
// and recomputes both summary sets before returning, so a caller can
// never observe holdings and summaries that disagree.
type Book struct {
	mu         sync.RWMutex
	holdings   []Holding
	pending    map[string]int64 // holding ID -> staged quantity, not yet committed
	sectors    []SectorSummary
	summary    PortfolioSummary
	lastCommit time.Time
	log        zerolog.Logger
}

// NewBook creates an empty holding book
func NewBook(log zerolog.Logger) *Book {
	return &Book{
		pending: make(map[string]int64),
		log:     log.With().Str("component", "book").Logger(),
	}
}

// recompute rebuilds both summary sets from the current collection.
// Callers must hold the write lock.
func (b *Book) recompute() {
	b.summary = Summarize(b.holdings)
	b.sectors = SectorSummaries(b.holdings, b.summary.TotalInvestment)
}

func (b *Book) indexOf(id string) int {
	for i, h := range b.holdings {
		if h.ID == id {
			return i
		}
	}
	return -1
}

// Add appends a new holding. Fails with ErrDuplicateHolding when the
// ticker is already held; the collection is left untouched on failure.
func (b *Book) Add(h Holding) error {
	if h.Quantity < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, h.Quantity)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, existing := range b.holdings {
		if existing.Ticker == h.Ticker {
			return fmt.Errorf("%w: %s", ErrDuplicateHolding, h.Ticker)
		}
	}

	b.holdings = append(b.holdings, h)
	b.lastCommit = time.Now()
	b.recompute()

	b.log.Info().
		Str("id", h.ID).
		Str("ticker", h.Ticker).
		Int64("quantity", h.Quantity).
		Msg("Holding added")

	return nil
}

// Remove deletes the holding with the given identifier and retracts any
// pending quantity edit for it. Fails with ErrHoldingNotFound.
func (b *Book) Remove(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrHoldingNotFound, id)
	}

	ticker := b.holdings[i].Ticker
	b.holdings = append(b.holdings[:i], b.holdings[i+1:]...)
	delete(b.pending, id)
	b.lastCommit = time.Now()
	b.recompute()

	b.log.Info().Str("id", id).Str("ticker", ticker).Msg("Holding removed")

	return nil
}

// StageQuantity records an uncommitted quantity edit in the overlay.
// The stored holding and the summaries are untouched; the overlay only
// feeds live previews via Row.EffectiveQuantity.
func (b *Book) StageQuantity(id string, qty int64) error {
	if qty < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, qty)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.indexOf(id) < 0 {
		return fmt.Errorf("%w: %s", ErrHoldingNotFound, id)
	}

	b.pending[id] = qty
	return nil
}

// CommitQuantity writes a quantity into the holding's stored state,
// clears the pending overlay for that identifier and recomputes.
func (b *Book) CommitQuantity(id string, qty int64) error {
	if qty < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, qty)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrHoldingNotFound, id)
	}

	b.holdings[i].Quantity = qty
	delete(b.pending, id)
	b.lastCommit = time.Now()
	b.recompute()

	b.log.Info().
		Str("id", id).
		Str("ticker", b.holdings[i].Ticker).
		Int64("quantity", qty).
		Msg("Quantity committed")

	return nil
}

// PendingQuantity returns the staged quantity for a holding, if any
func (b *Book) PendingQuantity(id string) (int64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	qty, ok := b.pending[id]
	return qty, ok
}

// PendingOverlay returns a copy of the staged-edit overlay
func (b *Book) PendingOverlay() map[string]int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	overlay := make(map[string]int64, len(b.pending))
	for id, qty := range b.pending {
		overlay[id] = qty
	}
	return overlay
}

// ApplyQuote updates a holding's price and market data from a quote.
// Fails with ErrHoldingNotFound for an unknown ticker.
func (b *Book) ApplyQuote(ticker string, price float64, md MarketData, fetchedAt time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.holdings {
		if b.holdings[i].Ticker == ticker {
			b.holdings[i].CurrentPrice = price
			b.holdings[i].Market = md
			b.holdings[i].LastUpdated = fetchedAt.Format(time.RFC3339)
			b.recompute()
			return nil
		}
	}

	return fmt.Errorf("%w: ticker %s", ErrHoldingNotFound, ticker)
}

// DegradeToFallback resets a holding to its fallback values after a
// failed quote fetch: current price falls back to the purchase price
// and market data becomes unknown.
func (b *Book) DegradeToFallback(ticker string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.holdings {
		if b.holdings[i].Ticker == ticker {
			b.holdings[i].CurrentPrice = b.holdings[i].PurchasePrice
			b.holdings[i].Market = MarketData{}
			b.recompute()
			return nil
		}
	}

	return fmt.Errorf("%w: ticker %s", ErrHoldingNotFound, ticker)
}

// Tickers returns the tickers currently held
func (b *Book) Tickers() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	tickers := make([]string, 0, len(b.holdings))
	for _, h := range b.holdings {
		tickers = append(tickers, h.Ticker)
	}
	return tickers
}

// Get returns a copy of the holding with the given identifier
func (b *Book) Get(id string) (Holding, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	i := b.indexOf(id)
	if i < 0 {
		return Holding{}, fmt.Errorf("%w: %s", ErrHoldingNotFound, id)
	}
	return b.holdings[i], nil
}

// Snapshot returns a deep copy of the collection plus both summary
// sets, consistent with each other as of the last mutation.
func (b *Book) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	hs := make([]Holding, len(b.holdings))
	copy(hs, b.holdings)

	sectors := make([]SectorSummary, len(b.sectors))
	copy(sectors, b.sectors)

	return Snapshot{
		Holdings: hs,
		Sectors:  sectors,
		Summary:  b.summary,
	}
}

// Summary returns the current portfolio summary
func (b *Book) Summary() PortfolioSummary {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.summary
}

// Restore replaces the collection with an externally-supplied snapshot
// saved at savedAt. A snapshot older than the book's last local commit
// is discarded, so a just-completed edit wins over a stale upstream
// refresh. Returns whether the snapshot was applied.
func (b *Book) Restore(hs []Holding, savedAt time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.lastCommit.IsZero() && b.lastCommit.After(savedAt) {
		b.log.Warn().
			Time("saved_at", savedAt).
			Time("last_commit", b.lastCommit).
			Msg("Discarding stale external snapshot")
		return false
	}

	b.holdings = make([]Holding, len(hs))
	copy(b.holdings, hs)
	b.pending = make(map[string]int64)
	b.recompute()

	b.log.Info().Int("holdings", len(hs)).Msg("Collection restored from snapshot")
	return true
}

// LastCommit returns the time of the last committed mutation
func (b *Book) LastCommit() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastCommit
}
