package badger

import (
	"context"
	"fmt"

	"github.com/bobmcallan/bolsa/internal/common"
	"github.com/bobmcallan/bolsa/internal/interfaces"
	"github.com/bobmcallan/bolsa/internal/models"
)

// Manager implements interfaces.StorageManager on one BadgerHold database.
type Manager struct {
	store   *Store
	records *recordStorage
	manual  *manualStorage
	rates   *rateStorage
	logger  *common.Logger
}

// NewManager opens the database at path and wires every partition.
func NewManager(logger *common.Logger, path string) (*Manager, error) {
	store, err := NewStore(logger, path)
	if err != nil {
		return nil, err
	}

	logger.Info().Str("path", path).Msg("Badger record store initialized")

	return &Manager{
		store:   store,
		records: NewRecordStorage(store, logger),
		manual:  NewManualStorage(store, logger),
		rates:   NewRateStorage(store, logger),
		logger:  logger,
	}, nil
}

func (m *Manager) RecordStore() interfaces.RecordStore {
	return m.records
}

func (m *Manager) ManualStore() interfaces.ManualStore {
	return m.manual
}

func (m *Manager) RateStore() interfaces.RateStore {
	return m.rates
}

func (m *Manager) Counts(ctx context.Context) (models.StoreCounts, error) {
	var counts models.StoreCounts
	db := m.store.db

	for _, c := range []struct {
		dst      *int
		dataType interface{}
	}{
		{&counts.Records, autoRecord{}},
		{&counts.Indices, autoIndex{}},
		{&counts.ManualRecords, manualRecord{}},
		{&counts.ManualIndices, manualIndex{}},
		{&counts.ExchangeRates, rateRow{}},
	} {
		n, err := db.Count(c.dataType, nil)
		if err != nil {
			return counts, fmt.Errorf("failed to count store rows: %w", err)
		}
		*c.dst = int(n)
	}

	dates, err := m.records.ListDates(ctx)
	if err != nil {
		return counts, err
	}
	counts.DistinctDates = len(dates)
	return counts, nil
}

func (m *Manager) Close() error {
	return m.store.Close()
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
