// Package surrealdb provides the SurrealDB-backed Record Store.
package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"

	"github.com/bobmcallan/bolsa/internal/common"
	"github.com/bobmcallan/bolsa/internal/interfaces"
	"github.com/bobmcallan/bolsa/internal/models"
)

// Table names
const (
	tableRecords       = "market_record"
	tableIndices       = "index_record"
	tableManualRecords = "manual_record"
	tableManualIndices = "manual_index"
	tableRates         = "exchange_rate"
)

var tables = []string{tableRecords, tableIndices, tableManualRecords, tableManualIndices, tableRates}

// Manager implements interfaces.StorageManager using SurrealDB.
type Manager struct {
	db     *surrealdb.DB
	logger *common.Logger

	records *RecordStore
	manual  *ManualStore
	rates   *RateStore
}

// NewManager creates a new StorageManager connected to SurrealDB.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	ctx := context.Background()

	// Connect to SurrealDB
	db, err := surrealdb.New(config.Storage.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	// Sign in
	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": config.Storage.Username,
		"pass": config.Storage.Password,
	}); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	// Select namespace and database
	if err := db.Use(ctx, config.Storage.Namespace, config.Storage.Database); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	m, err := newManager(ctx, db, logger)
	if err != nil {
		db.Close(ctx)
		return nil, err
	}

	logger.Info().
		Str("address", config.Storage.Address).
		Str("namespace", config.Storage.Namespace).
		Str("database", config.Storage.Database).
		Msg("SurrealDB record store initialized")

	return m, nil
}

// newManager wires the stores on an authenticated connection.
func newManager(ctx context.Context, db *surrealdb.DB, logger *common.Logger) (*Manager, error) {
	// SurrealDB v3 errors on querying non-existent tables
	for _, table := range tables {
		sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", table)
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return nil, fmt.Errorf("failed to define table %s: %w", table, err)
		}
	}

	return &Manager{
		db:      db,
		logger:  logger,
		records: NewRecordStore(db, logger),
		manual:  NewManualStore(db, logger),
		rates:   NewRateStore(db, logger),
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

	for _, c := range []struct {
		dst   *int
		table string
	}{
		{&counts.Records, tableRecords},
		{&counts.Indices, tableIndices},
		{&counts.ManualRecords, tableManualRecords},
		{&counts.ManualIndices, tableManualIndices},
		{&counts.ExchangeRates, tableRates},
	} {
		n, err := count(ctx, m.db, "SELECT count() AS cnt FROM "+c.table+" GROUP ALL", nil)
		if err != nil {
			return counts, fmt.Errorf("failed to count %s: %w", c.table, err)
		}
		*c.dst = n
	}

	dates, err := m.records.ListDates(ctx)
	if err != nil {
		return counts, err
	}
	counts.DistinctDates = len(dates)
	return counts, nil
}

func (m *Manager) Close() error {
	m.db.Close(context.Background())
	return nil
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
