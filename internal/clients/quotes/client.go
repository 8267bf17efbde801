package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"
)

// Client fetches quote data from a Yahoo-style finance API
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new quote client
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("client", "quotes").Logger(),
	}
}

// quoteResponse represents the response from the quote API
type quoteResponse struct {
	QuoteResponse struct {
		Result []map[string]interface{} `json:"result"`
		Error  interface{}              `json:"error"`
	} `json:"quoteResponse"`
}

// GetQuote fetches the current quote for a symbol with retry logic.
// The returned quote always has a positive Price; optional market-data
// fields are nil when the provider omitted them.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	const maxRetries = 3

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		info, err := c.getQuoteInfo(ctx, symbol)
		if err != nil {
			lastErr = err
			if attempt < maxRetries-1 {
				waitTime := time.Duration(1<<uint(attempt)) * time.Second // exponential backoff
				c.log.Warn().Err(err).
					Str("symbol", symbol).
					Int("attempt", attempt+1).
					Dur("wait", waitTime).
					Msg("Failed to get quote, retrying")
				select {
				case <-time.After(waitTime):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				continue
			}
			break
		}

		price := getFloat64OrZero(info, "regularMarketPrice")
		if price <= 0 {
			price = getFloat64OrZero(info, "currentPrice")
		}
		if price <= 0 {
			lastErr = fmt.Errorf("no valid price for symbol %s", symbol)
			continue
		}

		q := &Quote{
			Symbol:               symbol,
			Price:                price,
			DayHigh:              getFloat64(info, "regularMarketDayHigh"),
			DayLow:               getFloat64(info, "regularMarketDayLow"),
			Volume:               getInt64(info, "regularMarketVolume"),
			MarketCap:            getInt64(info, "marketCap"),
			DayChange:            getFloat64(info, "regularMarketChange"),
			DayChangePercent:     getFloat64(info, "regularMarketChangePercent"),
			FiftyDayAverage:      getFloat64(info, "fiftyDayAverage"),
			TwoHundredDayAverage: getFloat64(info, "twoHundredDayAverage"),
			FiftyTwoWeekHigh:     getFloat64(info, "fiftyTwoWeekHigh"),
			FiftyTwoWeekLow:      getFloat64(info, "fiftyTwoWeekLow"),
			PERatio:              getFloat64(info, "trailingPE"),
			EPS:                  getFloat64(info, "epsTrailingTwelveMonths"),
			FetchedAt:            time.Now(),
		}

		// Some symbols come back without moving averages; derive them from
		// a year of daily closes when that happens.
		if q.FiftyDayAverage == nil || q.TwoHundredDayAverage == nil {
			c.fillMovingAverages(ctx, q)
		}

		return q, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
	}

	return nil, fmt.Errorf("failed to get valid quote after %d attempts", maxRetries)
}

// fillMovingAverages computes SMA50/SMA200 from historical closes.
// Best effort: a failed history fetch leaves the fields nil.
func (c *Client) fillMovingAverages(ctx context.Context, q *Quote) {
	prices, err := c.GetHistoricalPrices(ctx, q.Symbol, "1y")
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", q.Symbol).Msg("Failed to fetch history for moving averages")
		return
	}

	closes := make([]float64, 0, len(prices))
	for _, p := range prices {
		closes = append(closes, p.Close)
	}

	if q.FiftyDayAverage == nil && len(closes) >= 50 {
		sma := talib.Sma(closes, 50)
		v := sma[len(sma)-1]
		q.FiftyDayAverage = &v
	}

	if q.TwoHundredDayAverage == nil && len(closes) >= 200 {
		sma := talib.Sma(closes, 200)
		v := sma[len(sma)-1]
		q.TwoHundredDayAverage = &v
	}
}

// getQuoteInfo fetches quote information from the quote API
func (c *Client) getQuoteInfo(ctx context.Context, symbol string) (map[string]interface{}, error) {
	params := url.Values{}
	params.Add("symbols", symbol)
	params.Add("fields", "symbol,regularMarketPrice,currentPrice,regularMarketDayHigh,regularMarketDayLow,"+
		"regularMarketVolume,marketCap,regularMarketChange,regularMarketChangePercent,"+
		"fiftyDayAverage,twoHundredDayAverage,fiftyTwoWeekHigh,fiftyTwoWeekLow,"+
		"trailingPE,epsTrailingTwelveMonths,longName,shortName")

	reqURL := c.baseURL + "/v7/finance/quote?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers to mimic browser
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("quote API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var result quoteResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if result.QuoteResponse.Error != nil {
		return nil, fmt.Errorf("quote API error: %v", result.QuoteResponse.Error)
	}

	if len(result.QuoteResponse.Result) == 0 {
		return nil, fmt.Errorf("no quote data returned for symbol %s", symbol)
	}

	return result.QuoteResponse.Result[0], nil
}

// GetHistoricalPrices fetches historical OHLCV data from the chart endpoint
//
// Supports periods: 1d, 5d, 1mo, 3mo, 6mo, 1y, 2y, 5y, 10y, ytd, max
func (c *Client) GetHistoricalPrices(ctx context.Context, symbol string, period string) ([]HistoricalPrice, error) {
	params := url.Values{}
	params.Add("interval", "1d")
	params.Add("range", period)

	reqURL := c.baseURL + "/v8/finance/chart/" + url.QueryEscape(symbol) + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch historical data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("chart API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var result struct {
		Chart struct {
			Result []struct {
				Timestamp  []int64 `json:"timestamp"`
				Indicators struct {
					Quote []struct {
						Open   []float64 `json:"open"`
						High   []float64 `json:"high"`
						Low    []float64 `json:"low"`
						Close  []float64 `json:"close"`
						Volume []int64   `json:"volume"`
					} `json:"quote"`
					AdjClose []struct {
						AdjClose []float64 `json:"adjclose"`
					} `json:"adjclose"`
				} `json:"indicators"`
			} `json:"result"`
			Error interface{} `json:"error"`
		} `json:"chart"`
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if result.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error: %v", result.Chart.Error)
	}

	if len(result.Chart.Result) == 0 {
		c.log.Warn().Str("symbol", symbol).Msg("No historical data returned")
		return []HistoricalPrice{}, nil
	}

	chartData := result.Chart.Result[0]
	timestamps := chartData.Timestamp
	if len(chartData.Indicators.Quote) == 0 {
		c.log.Warn().Str("symbol", symbol).Msg("No quote data in response")
		return []HistoricalPrice{}, nil
	}

	quote := chartData.Indicators.Quote[0]

	var adjCloseData []float64
	if len(chartData.Indicators.AdjClose) > 0 {
		adjCloseData = chartData.Indicators.AdjClose[0].AdjClose
	}

	var prices []HistoricalPrice
	for i := range timestamps {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) || i >= len(quote.Close) {
			continue
		}

		// The provider sometimes returns null bars
		if quote.Open[i] == 0 && quote.High[i] == 0 && quote.Low[i] == 0 && quote.Close[i] == 0 {
			continue
		}

		adjClose := quote.Close[i]
		if i < len(adjCloseData) && adjCloseData[i] != 0 {
			adjClose = adjCloseData[i]
		}

		volume := int64(0)
		if i < len(quote.Volume) {
			volume = quote.Volume[i]
		}

		prices = append(prices, HistoricalPrice{
			Date:     time.Unix(timestamps[i], 0),
			Open:     quote.Open[i],
			High:     quote.High[i],
			Low:      quote.Low[i],
			Close:    quote.Close[i],
			Volume:   volume,
			AdjClose: adjClose,
		})
	}

	c.log.Debug().
		Str("symbol", symbol).
		Str("period", period).
		Int("count", len(prices)).
		Msg("Fetched historical prices")

	return prices, nil
}

// Helper functions to safely extract values from map

func getFloat64(m map[string]interface{}, key string) *float64 {
	if val, ok := m[key]; ok && val != nil {
		switch v := val.(type) {
		case float64:
			return &v
		case int:
			f := float64(v)
			return &f
		case int64:
			f := float64(v)
			return &f
		}
	}
	return nil
}

func getFloat64OrZero(m map[string]interface{}, key string) float64 {
	if val := getFloat64(m, key); val != nil {
		return *val
	}
	return 0
}

func getInt64(m map[string]interface{}, key string) *int64 {
	if val, ok := m[key]; ok && val != nil {
		switch v := val.(type) {
		case float64:
			i := int64(v)
			return &i
		case int:
			i := int64(v)
			return &i
		case int64:
			return &v
		}
	}
	return nil
}
