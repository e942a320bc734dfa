package fx

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/bobmcallan/bolsa/internal/common"
	"github.com/bobmcallan/bolsa/internal/models"
	"github.com/bobmcallan/bolsa/internal/storage/badger"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	logger := common.NewSilentLogger()
	m, err := badger.NewManager(logger, filepath.Join(t.TempDir(), "store"))
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return NewService(m.RateStore(), logger)
}

func writeWorkbook(t *testing.T, rows ...[]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", axis, &row))
	}
	path := filepath.Join(t.TempDir(), "dolar_bcv.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestImportWorkbook_DateFormats(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	path := writeWorkbook(t,
		[]interface{}{"Tipo de cambio oficial"},
		[]interface{}{"Fecha", "Tasa", "Variación"},
		[]interface{}{20250113, 52.10, 0.001},
		[]interface{}{"2025-01-14", 52.35, 0.0048},
		[]interface{}{"15/01/2025", "52,60", 0.0048},
		[]interface{}{45673, 53.00, 0.0076},
		[]interface{}{"no es fecha", 1, 0},
		[]interface{}{"20250117", 0, 0},
	)

	n, err := svc.ImportWorkbook(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	rates, err := svc.Rates(ctx, "20250131", "20250101")
	require.NoError(t, err)
	require.Len(t, rates, 4)
	assert.Equal(t, models.Date("20250113"), rates[0].Date)
	assert.Equal(t, models.Date("20250114"), rates[1].Date)
	assert.Equal(t, models.Date("20250115"), rates[2].Date)
	assert.InDelta(t, 52.60, rates[2].Rate, 1e-9)
	assert.Equal(t, models.Date("20250116"), rates[3].Date)
	assert.InDelta(t, 0.0076, rates[3].Change, 1e-9)
}

func TestImportWorkbook_OverwritesExistingDates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.ImportWorkbook(ctx, writeWorkbook(t,
		[]interface{}{"Fecha", "Tasa"},
		[]interface{}{"20250113", 50},
	))
	require.NoError(t, err)
	_, err = svc.ImportWorkbook(ctx, writeWorkbook(t,
		[]interface{}{"Fecha", "Tasa"},
		[]interface{}{"20250113", 51},
	))
	require.NoError(t, err)

	rate, err := svc.RateFor(ctx, "20250113")
	require.NoError(t, err)
	assert.Equal(t, 51.0, rate.Rate)
}

func TestImportWorkbook_NoHeader(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ImportWorkbook(context.Background(), writeWorkbook(t,
		[]interface{}{"Dia", "Valor"},
		[]interface{}{"20250113", 50},
	))
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestImportWorkbook_MissingFile(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ImportWorkbook(context.Background(), filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Error(t, err)
}

func TestRateFor_FallsBackToEarlierDate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.rates.SaveRates(ctx, []models.ExchangeRate{
		{Date: "20250110", Rate: 51.5},
		{Date: "20250113", Rate: 52.1},
	}))

	rate, err := svc.RateFor(ctx, "20250113")
	require.NoError(t, err)
	assert.Equal(t, models.Date("20250113"), rate.Date)

	rate, err = svc.RateFor(ctx, "20250112")
	require.NoError(t, err)
	assert.Equal(t, models.Date("20250110"), rate.Date)

	_, err = svc.RateFor(ctx, "20250101")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.RateFor(ctx, "2025-13-01")
	assert.ErrorIs(t, err, models.ErrInvalidDate)
}

func TestDollarComparison(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.rates.SaveRates(ctx, []models.ExchangeRate{
		{Date: "20250113", Rate: 50, Change: 0.01},
	}))

	early, err := models.NewMarketRecord("20250110", "BNC", "", 10, 11, 1, 11, models.SourceAutomatic)
	require.NoError(t, err)
	exact, err := models.NewMarketRecord("20250113", "BNC", "", 100, 110, 1, 110, models.SourceAutomatic)
	require.NoError(t, err)
	later, err := models.NewMarketRecord("20250114", "BNC", "", 110, 99, 1, 99, models.SourceAutomatic)
	require.NoError(t, err)

	points, err := svc.DollarComparison(ctx, []models.MarketRecord{early, exact, later})
	require.NoError(t, err)
	require.Len(t, points, 3)

	assert.Zero(t, points[0].Rate)
	assert.Zero(t, points[0].PriceUSD)
	assert.Equal(t, 10.0, points[0].VersusDollar)

	assert.True(t, points[1].ExactRate)
	assert.Equal(t, 2.2, points[1].PriceUSD)
	assert.Equal(t, 2.0, points[1].PreviousUSD)
	assert.Equal(t, 10.0, points[1].ChangeUSDPercent)
	assert.Equal(t, 1.0, points[1].RateChangePercent)
	assert.Equal(t, 9.0, points[1].VersusDollar)

	assert.False(t, points[2].ExactRate)
	assert.Equal(t, models.Date("20250113"), points[2].RateDate)
	assert.Equal(t, -11.0, points[2].VersusDollar)
}
