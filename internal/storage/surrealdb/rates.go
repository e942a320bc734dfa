package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"

	"github.com/bobmcallan/bolsa/internal/common"
	"github.com/bobmcallan/bolsa/internal/interfaces"
	"github.com/bobmcallan/bolsa/internal/models"
)

// RateStore holds BCV exchange rates on SurrealDB.
type RateStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewRateStore creates a new RateStore.
func NewRateStore(db *surrealdb.DB, logger *common.Logger) *RateStore {
	return &RateStore{db: db, logger: logger}
}

func (s *RateStore) SaveRates(ctx context.Context, rates []models.ExchangeRate) error {
	for _, r := range rates {
		if !r.Date.Valid() {
			return fmt.Errorf("%w: rate date %q", models.ErrInvalidDate, r.Date)
		}
		if r.Rate <= 0 {
			return fmt.Errorf("%w: non-positive rate on %s", models.ErrInvalidRecord, r.Date)
		}
	}
	for _, r := range rates {
		if err := upsert(ctx, s.db, dateID(tableRates, r.Date), r); err != nil {
			return fmt.Errorf("failed to save rate %s: %w", r.Date, err)
		}
	}
	s.logger.Debug().Int("rates", len(rates)).Msg("Exchange rates saved")
	return nil
}

func (s *RateStore) RateOnOrBefore(ctx context.Context, date models.Date) (*models.ExchangeRate, error) {
	rows, err := selectRows[models.ExchangeRate](ctx, s.db,
		"SELECT * FROM "+tableRates+" WHERE date <= $date ORDER BY date DESC LIMIT 1",
		map[string]any{"date": string(date)})
	if err != nil {
		return nil, fmt.Errorf("failed to look up rate for %s: %w", date, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *RateStore) ListRates(ctx context.Context, from, to models.Date) ([]models.ExchangeRate, error) {
	rows, err := selectRows[models.ExchangeRate](ctx, s.db,
		"SELECT * FROM "+tableRates+" WHERE date >= $from AND date <= $to ORDER BY date",
		rangeVars(from, to))
	if err != nil {
		return nil, fmt.Errorf("failed to list rates %s..%s: %w", from, to, err)
	}
	return rows, nil
}

// Ensure RateStore implements interfaces.RateStore
var _ interfaces.RateStore = (*RateStore)(nil)
