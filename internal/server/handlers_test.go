package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/bolsa/internal/app"
	"github.com/bobmcallan/bolsa/internal/models"
)

const testDat = "R|BANCO NACIONAL DE CREDITO|BNC|2,50|2,75|0|0|0|0|0|0|1.200|3.300,00\n" +
	"R|MERCANTIL SERVICIOS FINANCIEROS|MVZ.A|100,00|95,00|0|0|0|0|0|0|50|4.750,00\n" +
	"IG|INDICE GENERAL|84.215,33|0|1,25\n"

// newTestServer builds an App on a temp badger store with the remote source
// disabled. datFiles are written into the archive directory first.
func newTestServer(t *testing.T, datFiles map[string]string) (*Server, *app.App) {
	t.Helper()
	dir := t.TempDir()
	archiveDir := filepath.Join(dir, "data_cache")
	require.NoError(t, os.MkdirAll(archiveDir, 0755))
	for name, content := range datFiles {
		require.NoError(t, os.WriteFile(filepath.Join(archiveDir, name), []byte(content), 0644))
	}

	config := `
[storage]
backend = "badger"
path = "` + filepath.Join(dir, "store") + `"

[archive]
dir = "` + archiveDir + `"
save_remote = false

[clients.bvc]
disabled = true

[locator]
max_lookback = 10

[scheduler]
warm_cache = false

[logging]
level = "error"
outputs = ["console"]
`
	configPath := filepath.Join(dir, "bolsa.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0644))

	a, err := app.NewApp(configPath)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	return NewServer(a), a
}

func doRequest(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rr := doRequest(t, s, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = doRequest(t, s, http.MethodPost, "/api/health", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHandleVersion(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rr := doRequest(t, s, http.MethodGet, "/api/version", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]string
	decodeBody(t, rr, &body)
	assert.Contains(t, body, "version")
	assert.Contains(t, body, "commit")
}

func TestHandleConfig_OmitsCredentials(t *testing.T) {
	s, a := newTestServer(t, nil)
	a.Config.Storage.Password = "hunter2"

	rr := doRequest(t, s, http.MethodGet, "/api/config", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "hunter2")
	assert.Contains(t, rr.Body.String(), `"backend":"badger"`)
}

func TestHandleSnapshot_FromArchive(t *testing.T) {
	s, _ := newTestServer(t, map[string]string{"20250115.dat": testDat})

	rr := doRequest(t, s, http.MethodGet, "/api/market/2025-01-15", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var day models.Day
	decodeBody(t, rr, &day)
	assert.Equal(t, models.Date("20250115"), day.Date)
	require.Len(t, day.Records, 2)
	require.NotNil(t, day.Index)
	assert.InDelta(t, 84215.33, day.Index.Value, 0.001)
	for _, r := range day.Records {
		assert.Equal(t, models.SourceArchived, r.Source)
	}
}

func TestHandleSnapshot_NoData(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rr := doRequest(t, s, http.MethodGet, "/api/market/20251225", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"no data","date":"20251225"}`, rr.Body.String())
}

func TestHandleSnapshot_InvalidDate(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rr := doRequest(t, s, http.MethodGet, "/api/market/15-01-2025", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, s, http.MethodGet, "/api/market/20250115/extra", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleMarketLatest(t *testing.T) {
	s, _ := newTestServer(t, map[string]string{"20250117.dat": testDat})

	// Sunday anchor resolves to the Friday session.
	rr := doRequest(t, s, http.MethodGet, "/api/market/latest?anchor=20250119", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var latest models.PopulatedDay
	decodeBody(t, rr, &latest)
	assert.True(t, latest.Found)
	require.NotNil(t, latest.Day)
	assert.Equal(t, models.Date("20250117"), latest.Day.Date)
}

func TestHandleMarketLatest_NotFound(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rr := doRequest(t, s, http.MethodGet, "/api/market/latest?anchor=20250119", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	var latest models.PopulatedDay
	decodeBody(t, rr, &latest)
	assert.False(t, latest.Found)
}

func TestHandleSymbolHistory(t *testing.T) {
	s, a := newTestServer(t, map[string]string{
		"20250115.dat": testDat,
		"20250116.dat": testDat,
	})
	_, err := a.MarketService.LoadArchive(context.Background(), 0)
	require.NoError(t, err)

	rr := doRequest(t, s, http.MethodGet, "/api/history?symbol=bnc&from=20250101&to=20250131", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var h struct {
		Symbol    string `json:"symbol"`
		FromCache bool   `json:"from_cache"`
		Series    struct {
			Records []models.MarketRecord `json:"records"`
		} `json:"series"`
	}
	decodeBody(t, rr, &h)
	assert.Equal(t, "BNC", h.Symbol)
	assert.False(t, h.FromCache)
	assert.Len(t, h.Series.Records, 2)

	rr = doRequest(t, s, http.MethodGet, "/api/history?symbol=BNC&from=20250101&to=20250131", "")
	decodeBody(t, rr, &h)
	assert.True(t, h.FromCache)
}

func TestHandleSymbolHistory_Validation(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rr := doRequest(t, s, http.MethodGet, "/api/history?from=20250101&to=20250131", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, s, http.MethodGet, "/api/history?symbol=BNC&from=20250101", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, s, http.MethodGet, "/api/history?symbol=BNC&from=20250101&to=20250131", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleSymbolHistory_WithDollar(t *testing.T) {
	s, a := newTestServer(t, map[string]string{"20250115.dat": testDat})
	_, err := a.MarketService.LoadArchive(context.Background(), 0)
	require.NoError(t, err)
	require.NoError(t, a.Storage.RateStore().SaveRates(context.Background(), []models.ExchangeRate{
		{Date: "20250114", Rate: 50, Change: 0.02},
	}))

	rr := doRequest(t, s, http.MethodGet, "/api/history?symbol=BNC&from=20250115&to=20250115&usd=true", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var body struct {
		Dollar []models.DollarPoint `json:"dollar"`
	}
	decodeBody(t, rr, &body)
	require.Len(t, body.Dollar, 1)
	p := body.Dollar[0]
	assert.Equal(t, models.Date("20250114"), p.RateDate)
	assert.False(t, p.ExactRate)
	assert.InDelta(t, 0.055, p.PriceUSD, 0.0001)
	assert.InDelta(t, 2.0, p.RateChangePercent, 0.001)
	assert.InDelta(t, 8.0, p.VersusDollar, 0.001)
}

func TestHandleIndexHistoryAndChart(t *testing.T) {
	s, a := newTestServer(t, map[string]string{
		"20250115.dat": testDat,
		"20250116.dat": strings.Replace(testDat, "84.215,33", "85.000,00", 1),
	})
	_, err := a.MarketService.LoadArchive(context.Background(), 0)
	require.NoError(t, err)

	rr := doRequest(t, s, http.MethodGet, "/api/index?from=20250101&to=20250131", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var h models.IndexHistory
	decodeBody(t, rr, &h)
	require.Len(t, h.Points, 2)
	assert.Equal(t, 2, h.Stats.AutomaticCount)

	rr = doRequest(t, s, http.MethodGet, "/api/index/chart?from=20250101&to=20250131", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rr.Body.String(), "\x89PNG"))

	rr = doRequest(t, s, http.MethodGet, "/api/index?from=20240101&to=20240131", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleManual_Lifecycle(t *testing.T) {
	s, _ := newTestServer(t, map[string]string{"20250115.dat": testDat})

	// Snapshot first so the automatic partition holds the BNC name.
	rr := doRequest(t, s, http.MethodGet, "/api/market/20250115", "")
	require.Equal(t, http.StatusOK, rr.Code)

	body := `{"records":[{"symbol":"bnc","previous_price":2.75,"current_price":3.00,"quantity":10,"amount":30}],
		"index":{"value":86000,"percent_change":2.1}}`
	rr = doRequest(t, s, http.MethodPost, "/api/manual/20250115", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), "BANCO NACIONAL DE CREDITO")

	rr = doRequest(t, s, http.MethodGet, "/api/manual/20250115", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var day models.Day
	decodeBody(t, rr, &day)
	require.Len(t, day.Records, 1)
	assert.Equal(t, models.SourceManual, day.Records[0].Source)
	require.NotNil(t, day.Index)

	rr = doRequest(t, s, http.MethodGet, "/api/manual/20250115/verify", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var v models.DateVerification
	decodeBody(t, rr, &v)
	assert.Equal(t, 2, v.AutomaticRecords)
	assert.Equal(t, 1, v.ManualRecords)
	assert.True(t, v.AutomaticIndex)
	assert.True(t, v.ManualIndex)

	rr = doRequest(t, s, http.MethodGet, "/api/manual", "")
	assert.JSONEq(t, `{"dates":["20250115"]}`, rr.Body.String())

	rr = doRequest(t, s, http.MethodGet, "/api/manual?symbol=BNC", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"current_price":3`)

	rr = doRequest(t, s, http.MethodDelete, "/api/manual/20250115", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"removed":1}`, rr.Body.String())

	rr = doRequest(t, s, http.MethodGet, "/api/manual/20250115", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleManual_RejectsInvalidRecord(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rr := doRequest(t, s, http.MethodPost, "/api/manual/20250115",
		`{"records":[{"symbol":"BNC","previous_price":1,"current_price":-2}]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, s, http.MethodPost, "/api/manual/20250115", `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, s, http.MethodPut, "/api/manual/20250115", `{}`)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHandleManual_MixedBatchStoresNothing(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rr := doRequest(t, s, http.MethodPost, "/api/manual/20250115",
		`{"records":[{"symbol":"AAA","previous_price":1,"current_price":2},{"symbol":"BBB","previous_price":-1,"current_price":2}]}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, s, http.MethodPost, "/api/manual/20250115",
		`{"records":[{"symbol":"AAA","previous_price":1,"current_price":2}],"index":{"value":-5,"percent_change":1}}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, s, http.MethodGet, "/api/manual/20250115", "")
	assert.Equal(t, http.StatusNotFound, rr.Code, rr.Body.String())

	rr = doRequest(t, s, http.MethodGet, "/api/manual", "")
	assert.JSONEq(t, `{"dates":[]}`, rr.Body.String())
}

func TestHandleManual_DeleteRecord(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rr := doRequest(t, s, http.MethodPost, "/api/manual/20250115",
		`{"records":[{"symbol":"BNC","previous_price":1,"current_price":2},{"symbol":"ABC","previous_price":1,"current_price":2}]}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = doRequest(t, s, http.MethodDelete, "/api/manual/20250115/BNC", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = doRequest(t, s, http.MethodGet, "/api/manual/20250115", "")
	var day models.Day
	decodeBody(t, rr, &day)
	require.Len(t, day.Records, 1)
	assert.Equal(t, "ABC", day.Records[0].Symbol)
}

func TestHandleCacheAndStats(t *testing.T) {
	s, _ := newTestServer(t, map[string]string{"20250115.dat": testDat})

	rr := doRequest(t, s, http.MethodGet, "/api/market/20250115", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, s, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var stats models.ServiceStats
	decodeBody(t, rr, &stats)
	assert.Equal(t, 2, stats.Store.Records)
	assert.Equal(t, 1, stats.RecordCacheEntries)

	rr = doRequest(t, s, http.MethodDelete, "/api/cache?scope=query", "")
	require.Equal(t, http.StatusOK, rr.Code)
	rr = doRequest(t, s, http.MethodGet, "/api/cache", "")
	assert.Contains(t, rr.Body.String(), `"record_cache_entries":1`)

	rr = doRequest(t, s, http.MethodDelete, "/api/cache", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"cleared":"all"}`, rr.Body.String())
	rr = doRequest(t, s, http.MethodGet, "/api/cache", "")
	assert.Contains(t, rr.Body.String(), `"record_cache_entries":0`)

	rr = doRequest(t, s, http.MethodDelete, "/api/cache?scope=disk", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleRates(t *testing.T) {
	s, a := newTestServer(t, nil)
	require.NoError(t, a.Storage.RateStore().SaveRates(context.Background(), []models.ExchangeRate{
		{Date: "20250113", Rate: 49.5, Change: 0.01},
		{Date: "20250114", Rate: 50, Change: 0.02},
	}))

	rr := doRequest(t, s, http.MethodGet, "/api/fx/20250115", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var one struct {
		Exact bool                `json:"exact"`
		Rate  models.ExchangeRate `json:"rate"`
	}
	decodeBody(t, rr, &one)
	assert.False(t, one.Exact)
	assert.Equal(t, models.Date("20250114"), one.Rate.Date)

	rr = doRequest(t, s, http.MethodGet, "/api/fx?from=20250131&to=20250101", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Rates []models.ExchangeRate `json:"rates"`
	}
	decodeBody(t, rr, &list)
	assert.Len(t, list.Rates, 2)

	rr = doRequest(t, s, http.MethodGet, "/api/fx/20250101", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, map[string]string{"20250115.dat": testDat})

	doRequest(t, s, http.MethodGet, "/api/market/20250115", "")

	rr := doRequest(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "bolsa_")
}
