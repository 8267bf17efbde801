package quotes

import "time"

// Quote holds current price plus whatever market data the provider returned.
// Every field other than Symbol and Price may be absent: a nil pointer means
// the provider had no value for it, which is distinct from zero.
type Quote struct {
	Symbol               string
	Price                float64
	DayHigh              *float64
	DayLow               *float64
	Volume               *int64
	MarketCap            *int64
	DayChange            *float64
	DayChangePercent     *float64
	FiftyDayAverage      *float64
	TwoHundredDayAverage *float64
	FiftyTwoWeekHigh     *float64
	FiftyTwoWeekLow      *float64
	PERatio              *float64
	EPS                  *float64
	FetchedAt            time.Time
}

// HistoricalPrice is one daily bar from the chart endpoint
type HistoricalPrice struct {
	Date     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   int64
	AdjClose float64
}
