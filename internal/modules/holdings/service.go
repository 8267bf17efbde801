package holdings

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"stockboard/internal/clients/quotes"
	"stockboard/internal/events"
)

// QuoteClient fetches quote data for a ticker
type QuoteClient interface {
	GetQuote(ctx context.Context, symbol string) (*quotes.Quote, error)
}

// Service orchestrates holding mutations, quote refreshes and session
// persistence around the Book.
type Service struct {
	book       *Book
	quotes     QuoteClient
	repo       *Repository
	eventMgr   *events.Manager
	sessionID  string
	refreshing atomic.Bool
	log        zerolog.Logger
}

// NewService creates a new holdings service
func NewService(
	book *Book,
	quoteClient QuoteClient,
	repo *Repository,
	eventMgr *events.Manager,
	sessionID string,
	log zerolog.Logger,
) *Service {
	return &Service{
		book:      book,
		quotes:    quoteClient,
		repo:      repo,
		eventMgr:  eventMgr,
		sessionID: sessionID,
		log:       log.With().Str("service", "holdings").Logger(),
	}
}

// AddRequest carries the purchase terms for a new holding
type AddRequest struct {
	Name          string  `json:"name"`
	Ticker        string  `json:"ticker"`
	Sector        string  `json:"sector"`
	Exchange      string  `json:"exchange"`
	PurchasePrice float64 `json:"purchase_price"`
	Quantity      int64   `json:"quantity"`
}

// AddHolding creates a holding from purchase terms, pulling current
// price and market data from the quote client. A failed quote degrades
// the new holding to fallback values (purchase price stands in for
// current price, market data unknown) and is never fatal.
func (s *Service) AddHolding(ctx context.Context, req AddRequest) (Holding, error) {
	if req.PurchasePrice <= 0 {
		return Holding{}, fmt.Errorf("purchase price must be positive, got %v", req.PurchasePrice)
	}
	if req.Quantity < 0 {
		return Holding{}, fmt.Errorf("%w: %d", ErrInvalidQuantity, req.Quantity)
	}

	h := Holding{
		ID:            uuid.NewString(),
		Name:          req.Name,
		Ticker:        req.Ticker,
		Sector:        req.Sector,
		Exchange:      req.Exchange,
		PurchasePrice: req.PurchasePrice,
		Quantity:      req.Quantity,
		CurrentPrice:  req.PurchasePrice, // fallback until a quote arrives
	}

	q, err := s.quotes.GetQuote(ctx, req.Ticker)
	if err != nil {
		s.log.Warn().Err(err).Str("ticker", req.Ticker).Msg("Quote unavailable, using fallback values")
		s.eventMgr.Emit(events.QuoteFallback, "holdings", map[string]interface{}{
			"ticker": req.Ticker,
			"error":  fmt.Errorf("%w: %v", ErrQuoteUnavailable, err).Error(),
		})
	} else {
		h.CurrentPrice = q.Price
		h.Market = marketDataFromQuote(q)
		h.LastUpdated = q.FetchedAt.Format(time.RFC3339)
	}

	if err := s.book.Add(h); err != nil {
		return Holding{}, err
	}

	s.persist()
	s.eventMgr.Emit(events.HoldingAdded, "holdings", map[string]interface{}{
		"id":     h.ID,
		"ticker": h.Ticker,
	})

	return h, nil
}

// RemoveHolding deletes a holding by identifier
func (s *Service) RemoveHolding(id string) error {
	if err := s.book.Remove(id); err != nil {
		return err
	}

	s.persist()
	s.eventMgr.Emit(events.HoldingRemoved, "holdings", map[string]interface{}{
		"id": id,
	})

	return nil
}

// StageQuantity records an uncommitted quantity edit for live preview
func (s *Service) StageQuantity(id string, qty int64) error {
	if err := s.book.StageQuantity(id, qty); err != nil {
		return err
	}

	s.eventMgr.Emit(events.QuantityStaged, "holdings", map[string]interface{}{
		"id":       id,
		"quantity": qty,
	})

	return nil
}

// CommitQuantity writes a staged quantity into the holding
func (s *Service) CommitQuantity(id string, qty int64) error {
	if err := s.book.CommitQuantity(id, qty); err != nil {
		return err
	}

	s.persist()
	s.eventMgr.Emit(events.QuantityCommitted, "holdings", map[string]interface{}{
		"id":       id,
		"quantity": qty,
	})

	return nil
}

// RefreshAll fetches a fresh quote for every held ticker, one request
// per ticker concurrently. A per-ticker failure degrades that holding
// to fallback values and does not affect the rest of the batch. An
// already-running refresh suppresses a concurrent re-trigger. When
// every ticker fails the batch surfaces a single error so the caller
// can offer a retry.
func (s *Service) RefreshAll(ctx context.Context) error {
	if !s.refreshing.CompareAndSwap(false, true) {
		s.log.Debug().Msg("Refresh already in flight, skipping")
		return nil
	}
	defer s.refreshing.Store(false)

	tickers := s.book.Tickers()
	if len(tickers) == 0 {
		return nil
	}

	s.eventMgr.Emit(events.RefreshStart, "holdings", map[string]interface{}{
		"tickers": len(tickers),
	})

	var wg sync.WaitGroup
	var failed atomic.Int64

	for _, ticker := range tickers {
		wg.Add(1)
		go func(ticker string) {
			defer wg.Done()

			q, err := s.quotes.GetQuote(ctx, ticker)
			if err != nil {
				failed.Add(1)
				s.log.Warn().Err(err).Str("ticker", ticker).Msg("Quote failed, degrading to fallback")
				if err := s.book.DegradeToFallback(ticker); err != nil {
					// Holding was removed mid-refresh; nothing to degrade.
					s.log.Debug().Err(err).Str("ticker", ticker).Msg("Fallback skipped")
				}
				return
			}

			if err := s.book.ApplyQuote(ticker, q.Price, marketDataFromQuote(q), q.FetchedAt); err != nil {
				s.log.Debug().Err(err).Str("ticker", ticker).Msg("Quote apply skipped")
			}
		}(ticker)
	}

	wg.Wait()

	s.persist()
	s.eventMgr.Emit(events.RefreshComplete, "holdings", map[string]interface{}{
		"tickers": len(tickers),
		"failed":  failed.Load(),
	})

	if int(failed.Load()) == len(tickers) {
		return fmt.Errorf("%w: refresh failed for all %d tickers", ErrQuoteUnavailable, len(tickers))
	}

	return nil
}

// RestoreSession loads the persisted collection for the service's
// session and applies it unless a local commit is newer than the
// stored snapshot.
func (s *Service) RestoreSession() error {
	hs, savedAt, err := s.repo.Load(s.sessionID)
	if err != nil {
		return err
	}

	if len(hs) == 0 {
		return nil
	}

	if s.book.Restore(hs, savedAt) {
		s.eventMgr.Emit(events.SessionRestored, "holdings", map[string]interface{}{
			"session_id": s.sessionID,
			"holdings":   len(hs),
		})
	} else {
		s.eventMgr.Emit(events.SessionSkipped, "holdings", map[string]interface{}{
			"session_id": s.sessionID,
		})
	}

	return nil
}

// Snapshot returns the current consistent view for the rendering layer
func (s *Service) Snapshot() Snapshot {
	return s.book.Snapshot()
}

// Book exposes the underlying holding book
func (s *Service) Book() *Book {
	return s.book
}

// persist saves the current collection under the session key.
// Best effort: persistence is reload insurance, not a source of truth.
func (s *Service) persist() {
	if s.repo == nil {
		return
	}
	snap := s.book.Snapshot()
	if err := s.repo.Save(s.sessionID, snap.Holdings); err != nil {
		s.log.Error().Err(err).Msg("Failed to persist session")
	}
}

func marketDataFromQuote(q *quotes.Quote) MarketData {
	return MarketData{
		DayHigh:              q.DayHigh,
		DayLow:               q.DayLow,
		Volume:               q.Volume,
		MarketCap:            q.MarketCap,
		DayChange:            q.DayChange,
		DayChangePercent:     q.DayChangePercent,
		FiftyDayAverage:      q.FiftyDayAverage,
		TwoHundredDayAverage: q.TwoHundredDayAverage,
		FiftyTwoWeekHigh:     q.FiftyTwoWeekHigh,
		FiftyTwoWeekLow:      q.FiftyTwoWeekLow,
		PERatio:              q.PERatio,
		EPS:                  q.EPS,
	}
}
