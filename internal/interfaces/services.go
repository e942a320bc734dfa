package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/bolsa/internal/models"
)

// MarketService is the façade used by the HTTP, MCP and CLI surfaces
type MarketService interface {
	Snapshot(ctx context.Context, date models.Date) (*models.Day, error)
	LatestSnapshot(ctx context.Context, anchor models.Date) (*models.PopulatedDay, error)
	SymbolHistory(ctx context.Context, symbol string, from, to models.Date) (*models.SymbolHistory, error)
	IndexHistory(ctx context.Context, from, to models.Date) (*models.IndexHistory, error)

	AddManualRecord(ctx context.Context, input models.ManualRecordInput) (*models.MarketRecord, error)
	SaveManualIndex(ctx context.Context, date models.Date, value, percentChange float64) (*models.IndexRecord, error)
	SaveManualDay(ctx context.Context, day *models.Day) (*models.Day, error)
	GetManualDay(ctx context.Context, date models.Date) (*models.Day, error)
	DeleteManualDay(ctx context.Context, date models.Date) (int, error)
	DeleteManualRecord(ctx context.Context, date models.Date, symbol string) error
	ListManualDates(ctx context.Context) ([]models.Date, error)
	VerifyDate(ctx context.Context, date models.Date) (*models.DateVerification, error)
	ManualSymbolRecords(ctx context.Context, symbol string, from, to models.Date) ([]models.MarketRecord, error)

	LoadArchive(ctx context.Context, limit int) (*models.LoadResult, error)
	Preload(ctx context.Context, days int, now time.Time) (*models.LoadResult, error)
	Stats(ctx context.Context) (*models.ServiceStats, error)
	ClearCaches(queryOnly bool)
}

// FXService manages the official dollar exchange rates
type FXService interface {
	ImportWorkbook(ctx context.Context, path string) (int, error)
	RateFor(ctx context.Context, date models.Date) (*models.ExchangeRate, error)
	Rates(ctx context.Context, from, to models.Date) ([]models.ExchangeRate, error)
	DollarComparison(ctx context.Context, records []models.MarketRecord) ([]models.DollarPoint, error)
}
