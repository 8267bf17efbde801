package holdings

// MarketData holds the optional provider-supplied fields for a holding.
// A nil pointer means "no quote available for this field", which the
// rendering layer shows as unknown rather than zero.
type MarketData struct {
	DayHigh              *float64 `json:"day_high,omitempty"`
	DayLow               *float64 `json:"day_low,omitempty"`
	Volume               *int64   `json:"volume,omitempty"`
	MarketCap            *int64   `json:"market_cap,omitempty"`
	DayChange            *float64 `json:"day_change,omitempty"`
	DayChangePercent     *float64 `json:"day_change_percent,omitempty"`
	FiftyDayAverage      *float64 `json:"fifty_day_average,omitempty"`
	TwoHundredDayAverage *float64 `json:"two_hundred_day_average,omitempty"`
	FiftyTwoWeekHigh     *float64 `json:"fifty_two_week_high,omitempty"`
	FiftyTwoWeekLow      *float64 `json:"fifty_two_week_low,omitempty"`
	PERatio              *float64 `json:"pe_ratio,omitempty"`
	EPS                  *float64 `json:"eps,omitempty"`
}

// Holding represents one portfolio position
type Holding struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Ticker        string     `json:"ticker"`
	Sector        string     `json:"sector"`
	Exchange      string     `json:"exchange,omitempty"`
	PurchasePrice float64    `json:"purchase_price"`
	Quantity      int64      `json:"quantity"`
	CurrentPrice  float64    `json:"current_price"`
	Market        MarketData `json:"market"`
	LastUpdated   string     `json:"last_updated,omitempty"` // ISO datetime
}

// SectorSummary is the aggregate view of one sector label
type SectorSummary struct {
	Sector           string  `json:"sector"`
	TotalInvestment  float64 `json:"total_investment"`
	PresentValue     float64 `json:"present_value"`
	GainLoss         float64 `json:"gain_loss"`
	PortfolioPercent float64 `json:"portfolio_percent"`
	HoldingCount     int     `json:"holding_count"`
	TotalQuantity    int64   `json:"total_quantity"`
}

// PortfolioSummary is the portfolio-wide aggregate, derived on demand
type PortfolioSummary struct {
	TotalInvestment      float64 `json:"total_investment"`
	TotalValue           float64 `json:"total_value"`
	TotalGainLoss        float64 `json:"total_gain_loss"`
	TotalGainLossPercent float64 `json:"total_gain_loss_percent"`
	SectorCount          int     `json:"sector_count"`
	StockCount           int     `json:"stock_count"`
}

// Snapshot is what the rendering layer consumes after every recompute:
// the holding collection plus both derived summary sets, mutually consistent.
type Snapshot struct {
	Holdings []Holding        `json:"holdings"`
	Sectors  []SectorSummary  `json:"sectors"`
	Summary  PortfolioSummary `json:"summary"`
}

// RowKind discriminates table rows that carry either a holding or a
// sector summary. Replaces field-probing on a loose union.
type RowKind string

const (
	RowHolding RowKind = "holding"
	RowSector  RowKind = "sector"
)

// Row is a tagged variant of Holding | SectorSummary
type Row struct {
	Kind    RowKind        `json:"kind"`
	Holding *Holding       `json:"holding,omitempty"`
	Sector  *SectorSummary `json:"sector,omitempty"`
}

// EffectiveQuantity returns the quantity a row should be valued with:
// a pending uncommitted edit for a holding row when one exists, the
// stored quantity otherwise, and the aggregate quantity for sector rows.
func (r Row) EffectiveQuantity(pending map[string]int64) int64 {
	switch r.Kind {
	case RowHolding:
		if r.Holding == nil {
			return 0
		}
		if q, ok := pending[r.Holding.ID]; ok {
			return q
		}
		return r.Holding.Quantity
	case RowSector:
		if r.Sector == nil {
			return 0
		}
		return r.Sector.TotalQuantity
	}
	return 0
}
