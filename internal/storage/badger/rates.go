package badger

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/bolsa/internal/common"
	"github.com/bobmcallan/bolsa/internal/interfaces"
	"github.com/bobmcallan/bolsa/internal/models"
)

type rateStorage struct {
	store  *Store
	logger *common.Logger
}

// NewRateStorage creates the exchange-rate table backed by BadgerHold.
func NewRateStorage(store *Store, logger *common.Logger) *rateStorage {
	return &rateStorage{store: store, logger: logger}
}

func (s *rateStorage) SaveRates(_ context.Context, rates []models.ExchangeRate) error {
	for _, r := range rates {
		if !r.Date.Valid() {
			return fmt.Errorf("%w: rate date %q", models.ErrInvalidDate, r.Date)
		}
		if r.Rate <= 0 {
			return fmt.Errorf("%w: non-positive rate on %s", models.ErrInvalidRecord, r.Date)
		}
	}

	err := s.store.update(func(tx *badger.Txn) error {
		for _, r := range rates {
			row := rateRow{Date: string(r.Date), Rate: r.Rate, Change: r.Change}
			if err := s.store.db.TxUpsert(tx, row.Date, row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save exchange rates: %w", err)
	}
	s.logger.Debug().Int("rates", len(rates)).Msg("Exchange rates saved")
	return nil
}

// RateOnOrBefore returns nil when no rate exists on or before date.
func (s *rateStorage) RateOnOrBefore(_ context.Context, date models.Date) (*models.ExchangeRate, error) {
	var rows []rateRow
	q := badgerhold.Where("Date").Le(string(date)).SortBy("Date").Reverse().Limit(1)
	if err := s.store.db.Find(&rows, q); err != nil {
		return nil, fmt.Errorf("failed to look up rate for %s: %w", date, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rateModel(rows[0]), nil
}

func (s *rateStorage) ListRates(_ context.Context, from, to models.Date) ([]models.ExchangeRate, error) {
	var rows []rateRow
	if err := s.store.db.Find(&rows, dateRange(from, to)); err != nil {
		return nil, fmt.Errorf("failed to list rates %s..%s: %w", from, to, err)
	}
	out := make([]models.ExchangeRate, len(rows))
	for i, r := range rows {
		out[i] = *rateModel(r)
	}
	return out, nil
}

func rateModel(r rateRow) *models.ExchangeRate {
	return &models.ExchangeRate{Date: models.Date(r.Date), Rate: r.Rate, Change: r.Change}
}

// Ensure rateStorage implements RateStore
var _ interfaces.RateStore = (*rateStorage)(nil)
