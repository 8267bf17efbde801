package holdings

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new holdings handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "holdings").Logger(),
	}
}

// Routes registers the portfolio routes on a chi router
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.HandleGetPortfolio)
	r.Get("/summary", h.HandleGetSummary)
	r.Get("/sectors", h.HandleGetSectors)
	r.Post("/holdings", h.HandleAddHolding)
	r.Delete("/holdings/{id}", h.HandleRemoveHolding)
	r.Put("/holdings/{id}/quantity", h.HandleSetQuantity)
	r.Post("/refresh", h.HandleRefresh)
}

// HandleGetPortfolio returns the holding collection with derived
// per-holding metrics, sorted by present value descending
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	snap := h.service.Snapshot()
	overlay := h.service.Book().PendingOverlay()
	total := snap.Summary.TotalInvestment

	result := make([]map[string]interface{}, 0, len(snap.Holdings))
	for i := range snap.Holdings {
		holding := snap.Holdings[i]
		row := Row{Kind: RowHolding, Holding: &holding}
		qty := row.EffectiveQuantity(overlay)

		result = append(result, map[string]interface{}{
			"id":                 holding.ID,
			"name":               holding.Name,
			"ticker":             holding.Ticker,
			"sector":             holding.Sector,
			"exchange":           holding.Exchange,
			"purchase_price":     holding.PurchasePrice,
			"quantity":           qty,
			"current_price":      holding.CurrentPrice,
			"investment":         round(Investment(holding, &qty), 2),
			"present_value":      round(PresentValue(holding, &qty), 2),
			"gain_loss":          round(GainLoss(holding, &qty), 2),
			"gain_loss_percent":  round(GainLossPercent(holding, &qty), 2),
			"portfolio_percent":  round(PortfolioPercent(holding, total, &qty), 2),
			"market":             holding.Market,
			"last_updated":       holding.LastUpdated,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		valI := result[i]["present_value"].(float64)
		valJ := result[j]["present_value"].(float64)
		return valI > valJ
	})

	h.writeJSON(w, http.StatusOK, result)
}

// HandleGetSummary returns the portfolio summary
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	snap := h.service.Snapshot()

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_investment":        round(snap.Summary.TotalInvestment, 2),
		"total_value":             round(snap.Summary.TotalValue, 2),
		"total_gain_loss":         round(snap.Summary.TotalGainLoss, 2),
		"total_gain_loss_percent": round(snap.Summary.TotalGainLossPercent, 2),
		"sector_count":            snap.Summary.SectorCount,
		"stock_count":             snap.Summary.StockCount,
	})
}

// HandleGetSectors returns the per-sector summaries
func (h *Handler) HandleGetSectors(w http.ResponseWriter, r *http.Request) {
	snap := h.service.Snapshot()
	h.writeJSON(w, http.StatusOK, snap.Sectors)
}

// addPayload mirrors AddRequest with a raw quantity so a fractional or
// non-numeric value is rejected instead of silently truncated
type addPayload struct {
	Name          string  `json:"name"`
	Ticker        string  `json:"ticker"`
	Sector        string  `json:"sector"`
	Exchange      string  `json:"exchange"`
	PurchasePrice float64 `json:"purchase_price"`
	Quantity      float64 `json:"quantity"`
}

// HandleAddHolding creates a new holding
func (h *Handler) HandleAddHolding(w http.ResponseWriter, r *http.Request) {
	var payload addPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if payload.Ticker == "" {
		h.writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	if payload.PurchasePrice <= 0 {
		h.writeError(w, http.StatusBadRequest, "purchase price must be positive")
		return
	}

	qty, err := integerQuantity(payload.Quantity)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	holding, err := h.service.AddHolding(r.Context(), AddRequest{
		Name:          payload.Name,
		Ticker:        payload.Ticker,
		Sector:        payload.Sector,
		Exchange:      payload.Exchange,
		PurchasePrice: payload.PurchasePrice,
		Quantity:      qty,
	})
	if err != nil {
		h.writeMutationError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, holding)
}

// HandleRemoveHolding deletes a holding by identifier
func (h *Handler) HandleRemoveHolding(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.RemoveHolding(id); err != nil {
		h.writeMutationError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "removed",
		"id":     id,
	})
}

// HandleSetQuantity stages or commits a quantity edit. With "commit"
// false the edit only feeds the live preview overlay; with "commit"
// true it is written into the holding's stored quantity.
func (h *Handler) HandleSetQuantity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var payload struct {
		Quantity float64 `json:"quantity"`
		Commit   bool    `json:"commit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	qty, err := integerQuantity(payload.Quantity)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if payload.Commit {
		err = h.service.CommitQuantity(id, qty)
	} else {
		err = h.service.StageQuantity(id, qty)
	}
	if err != nil {
		h.writeMutationError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"id":       id,
		"quantity": qty,
		"commit":   payload.Commit,
	})
}

// HandleRefresh triggers a refresh of every held ticker
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RefreshAll(r.Context()); err != nil {
		// Whole batch failed; the client may retry.
		h.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, h.service.Snapshot())
}

func integerQuantity(raw float64) (int64, error) {
	if raw < 0 || raw != math.Trunc(raw) || math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, ErrInvalidQuantity
	}
	return int64(raw), nil
}

func (h *Handler) writeMutationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrDuplicateHolding):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrHoldingNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidQuantity):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
