package holdings

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, client *mockQuoteClient) (*chi.Mux, *Service) {
	t.Helper()

	service := newTestService(t, client)
	handler := NewHandler(service, zerolog.Nop())

	r := chi.NewRouter()
	r.Route("/api/portfolio", func(r chi.Router) {
		handler.Routes(r)
	})

	return r, service
}

func addViaAPI(t *testing.T, router *chi.Mux, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest("POST", "/api/portfolio/holdings", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleAddHolding(t *testing.T) {
	client := &mockQuoteClient{prices: map[string]float64{"AAPL": 180}}
	router, _ := newTestRouter(t, client)

	w := addViaAPI(t, router, `{"name":"Apple Inc.","ticker":"AAPL","sector":"Technology","purchase_price":150,"quantity":10}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var h Holding
	require.NoError(t, json.NewDecoder(w.Body).Decode(&h))
	assert.NotEmpty(t, h.ID)
	assert.Equal(t, 180.0, h.CurrentPrice)
}

func TestHandleAddHoldingDuplicate(t *testing.T) {
	client := &mockQuoteClient{prices: map[string]float64{"AAPL": 180}}
	router, service := newTestRouter(t, client)

	w := addViaAPI(t, router, `{"ticker":"AAPL","sector":"Technology","purchase_price":150,"quantity":10}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = addViaAPI(t, router, `{"ticker":"AAPL","sector":"Technology","purchase_price":160,"quantity":1}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 1, service.Snapshot().Summary.StockCount)
}

func TestHandleAddHoldingInvalidQuantity(t *testing.T) {
	client := &mockQuoteClient{prices: map[string]float64{"AAPL": 180}}
	router, _ := newTestRouter(t, client)

	for _, body := range []string{
		`{"ticker":"AAPL","purchase_price":150,"quantity":-3}`,
		`{"ticker":"AAPL","purchase_price":150,"quantity":2.5}`,
		`{"ticker":"AAPL","purchase_price":150,"quantity":"ten"}`,
	} {
		w := addViaAPI(t, router, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body: %s", body)
	}
}

func TestHandleRemoveHolding(t *testing.T) {
	client := &mockQuoteClient{prices: map[string]float64{"AAPL": 180}}
	router, service := newTestRouter(t, client)

	w := addViaAPI(t, router, `{"ticker":"AAPL","sector":"Technology","purchase_price":150,"quantity":10}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var h Holding
	require.NoError(t, json.NewDecoder(w.Body).Decode(&h))

	req := httptest.NewRequest("DELETE", "/api/portfolio/holdings/"+h.ID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, service.Snapshot().Summary.StockCount)
}

func TestHandleRemoveHoldingUnknown(t *testing.T) {
	client := &mockQuoteClient{}
	router, _ := newTestRouter(t, client)

	req := httptest.NewRequest("DELETE", "/api/portfolio/holdings/no-such-id", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleSetQuantityCommit(t *testing.T) {
	client := &mockQuoteClient{prices: map[string]float64{"AAPL": 180}}
	router, service := newTestRouter(t, client)

	w := addViaAPI(t, router, `{"ticker":"AAPL","sector":"Technology","purchase_price":150,"quantity":10}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var h Holding
	require.NoError(t, json.NewDecoder(w.Body).Decode(&h))

	req := httptest.NewRequest("PUT", "/api/portfolio/holdings/"+h.ID+"/quantity",
		strings.NewReader(`{"quantity":20,"commit":true}`))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	snap := service.Snapshot()
	assert.Equal(t, int64(20), snap.Holdings[0].Quantity)
	assert.Equal(t, 3000.0, snap.Summary.TotalInvestment)
}

func TestHandleSetQuantityStagedPreview(t *testing.T) {
	client := &mockQuoteClient{prices: map[string]float64{"AAPL": 180}}
	router, service := newTestRouter(t, client)

	w := addViaAPI(t, router, `{"ticker":"AAPL","sector":"Technology","purchase_price":150,"quantity":10}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var h Holding
	require.NoError(t, json.NewDecoder(w.Body).Decode(&h))

	req := httptest.NewRequest("PUT", "/api/portfolio/holdings/"+h.ID+"/quantity",
		strings.NewReader(`{"quantity":20,"commit":false}`))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// Committed state unchanged; the list endpoint previews the edit
	assert.Equal(t, 1500.0, service.Snapshot().Summary.TotalInvestment)

	req = httptest.NewRequest("GET", "/api/portfolio", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var rows []map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&rows))
	require.Len(t, rows, 1)
	assert.Equal(t, 20.0, rows[0]["quantity"])
	assert.Equal(t, 3000.0, rows[0]["investment"])
}

func TestHandleSetQuantityInvalid(t *testing.T) {
	client := &mockQuoteClient{prices: map[string]float64{"AAPL": 180}}
	router, _ := newTestRouter(t, client)

	w := addViaAPI(t, router, `{"ticker":"AAPL","sector":"Technology","purchase_price":150,"quantity":10}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var h Holding
	require.NoError(t, json.NewDecoder(w.Body).Decode(&h))

	req := httptest.NewRequest("PUT", "/api/portfolio/holdings/"+h.ID+"/quantity",
		strings.NewReader(`{"quantity":1.5,"commit":true}`))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGetSummaryAndSectors(t *testing.T) {
	client := &mockQuoteClient{prices: map[string]float64{"AAPL": 180, "TSLA": 850}}
	router, _ := newTestRouter(t, client)

	require.Equal(t, http.StatusCreated,
		addViaAPI(t, router, `{"ticker":"AAPL","sector":"Technology","purchase_price":150,"quantity":10}`).Code)
	require.Equal(t, http.StatusCreated,
		addViaAPI(t, router, `{"ticker":"TSLA","sector":"Automotive","purchase_price":900,"quantity":5}`).Code)

	req := httptest.NewRequest("GET", "/api/portfolio/summary", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var summary map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&summary))
	assert.Equal(t, 6000.0, summary["total_investment"])
	assert.Equal(t, 6050.0, summary["total_value"])
	assert.Equal(t, 50.0, summary["total_gain_loss"])
	assert.Equal(t, 0.83, summary["total_gain_loss_percent"])
	assert.Equal(t, 2.0, summary["sector_count"])
	assert.Equal(t, 2.0, summary["stock_count"])

	req = httptest.NewRequest("GET", "/api/portfolio/sectors", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var sectors []SectorSummary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&sectors))
	require.Len(t, sectors, 2)
	assert.Equal(t, "Automotive", sectors[0].Sector)
	assert.Equal(t, "Technology", sectors[1].Sector)
}

func TestHandleRefreshAllFailed(t *testing.T) {
	client := &mockQuoteClient{prices: map[string]float64{"AAPL": 180}}
	router, service := newTestRouter(t, client)

	require.Equal(t, http.StatusCreated,
		addViaAPI(t, router, `{"ticker":"AAPL","sector":"Technology","purchase_price":150,"quantity":10}`).Code)

	// Provider goes dark
	client.mu.Lock()
	client.failing = map[string]bool{"AAPL": true}
	client.mu.Unlock()

	req := httptest.NewRequest("POST", "/api/portfolio/refresh", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	// The holding degraded to fallback rather than vanishing
	assert.Equal(t, 1, service.Snapshot().Summary.StockCount)
}
