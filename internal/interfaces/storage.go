// Package interfaces defines service contracts for Bolsa
package interfaces

import (
	"context"

	"github.com/bobmcallan/bolsa/internal/models"
)

// StorageManager coordinates the Record Store partitions of one backend
type StorageManager interface {
	RecordStore() RecordStore
	ManualStore() ManualStore
	RateStore() RateStore

	// Counts summarises every partition.
	Counts(ctx context.Context) (models.StoreCounts, error)

	// Lifecycle
	Close() error
}

// RecordStore is the automatic partition: records keyed by (date, symbol),
// index values keyed by date. Upserts are last-write-wins per key.
type RecordStore interface {
	// GetDay returns the stored day; an absent day is an empty Day, not an error.
	GetDay(ctx context.Context, date models.Date) (*models.Day, error)
	SaveDay(ctx context.Context, day *models.Day) error
	HasDay(ctx context.Context, date models.Date) (bool, error)
	ListDates(ctx context.Context) ([]models.Date, error)

	ListSymbolRecords(ctx context.Context, symbol string, from, to models.Date) ([]models.MarketRecord, error)
	ListIndexRange(ctx context.Context, from, to models.Date) ([]models.IndexRecord, error)

	// SymbolName returns the most recent display name stored for symbol, or "".
	SymbolName(ctx context.Context, symbol string) (string, error)
}

// ManualStore is the manual-override partition with the same key shapes.
// Its contents are never copied into the automatic partition.
type ManualStore interface {
	GetManualDay(ctx context.Context, date models.Date) (*models.Day, error)
	SaveManualDay(ctx context.Context, day *models.Day) error
	SaveManualRecord(ctx context.Context, record models.MarketRecord) error
	SaveManualIndex(ctx context.Context, index models.IndexRecord) error

	// DeleteManualDay removes every manual record and index for date,
	// returning the number of records removed.
	DeleteManualDay(ctx context.Context, date models.Date) (int, error)
	DeleteManualRecord(ctx context.Context, date models.Date, symbol string) error

	ListManualDates(ctx context.Context) ([]models.Date, error)
	ListManualSymbolRecords(ctx context.Context, symbol string, from, to models.Date) ([]models.MarketRecord, error)
	ListManualIndexRange(ctx context.Context, from, to models.Date) ([]models.IndexRecord, error)
}

// RateStore holds the official dollar exchange rates
type RateStore interface {
	SaveRates(ctx context.Context, rates []models.ExchangeRate) error
	// RateOnOrBefore returns the rate for date or the closest earlier one.
	RateOnOrBefore(ctx context.Context, date models.Date) (*models.ExchangeRate, error)
	ListRates(ctx context.Context, from, to models.Date) ([]models.ExchangeRate, error)
}
