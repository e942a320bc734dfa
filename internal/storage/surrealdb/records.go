package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"

	"github.com/bobmcallan/bolsa/internal/common"
	"github.com/bobmcallan/bolsa/internal/interfaces"
	"github.com/bobmcallan/bolsa/internal/models"
)

// RecordStore is the automatic partition on SurrealDB.
type RecordStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewRecordStore creates a new RecordStore.
func NewRecordStore(db *surrealdb.DB, logger *common.Logger) *RecordStore {
	return &RecordStore{db: db, logger: logger}
}

func (s *RecordStore) GetDay(ctx context.Context, date models.Date) (*models.Day, error) {
	return getDay(ctx, s.db, tableRecords, tableIndices, date)
}

// SaveDay upserts every record and the index. Each row is its own write.
func (s *RecordStore) SaveDay(ctx context.Context, day *models.Day) error {
	if err := day.Validate(); err != nil {
		return err
	}
	for _, r := range day.Records {
		if r.Source.IsManual() {
			return fmt.Errorf("%w: manual record %s in automatic partition", models.ErrInvalidRecord, r.Key())
		}
	}

	if err := saveDay(ctx, s.db, tableRecords, tableIndices, day); err != nil {
		return fmt.Errorf("failed to save day %s: %w", day.Date, err)
	}
	s.logger.Debug().Str("date", day.Date.String()).Int("records", len(day.Records)).Msg("Day saved")
	return nil
}

func (s *RecordStore) HasDay(ctx context.Context, date models.Date) (bool, error) {
	n, err := count(ctx, s.db, "SELECT count() AS cnt FROM "+tableRecords+" WHERE date = $date GROUP ALL",
		map[string]any{"date": string(date)})
	if err != nil {
		return false, fmt.Errorf("failed to count records for %s: %w", date, err)
	}
	return n > 0, nil
}

func (s *RecordStore) ListDates(ctx context.Context) ([]models.Date, error) {
	return distinctDates(ctx, s.db, tableRecords)
}

func (s *RecordStore) ListSymbolRecords(ctx context.Context, symbol string, from, to models.Date) ([]models.MarketRecord, error) {
	rows, err := listSymbol(ctx, s.db, tableRecords, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list records for %s: %w", symbol, err)
	}
	return rows, nil
}

func (s *RecordStore) ListIndexRange(ctx context.Context, from, to models.Date) ([]models.IndexRecord, error) {
	rows, err := listIndex(ctx, s.db, tableIndices, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list index %s..%s: %w", from, to, err)
	}
	return rows, nil
}

func (s *RecordStore) SymbolName(ctx context.Context, symbol string) (string, error) {
	type nameResult struct {
		DisplayName string `json:"display_name"`
		Date        string `json:"date"`
	}
	sql := "SELECT display_name, date FROM " + tableRecords +
		" WHERE symbol = $symbol AND display_name != '' ORDER BY date DESC LIMIT 1"
	rows, err := selectRows[nameResult](ctx, s.db, sql, map[string]any{"symbol": models.NormalizeSymbol(symbol)})
	if err != nil {
		return "", fmt.Errorf("failed to look up name for %s: %w", symbol, err)
	}
	if len(rows) == 0 {
		return "", nil
	}
	return rows[0].DisplayName, nil
}

// --- shared by both partitions ---

func getDay(ctx context.Context, db *surrealdb.DB, recordTable, indexTable string, date models.Date) (*models.Day, error) {
	records, err := selectRows[models.MarketRecord](ctx, db,
		"SELECT * FROM "+recordTable+" WHERE date = $date ORDER BY symbol",
		map[string]any{"date": string(date)})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s for %s: %w", recordTable, date, err)
	}

	day := &models.Day{Date: date, Records: records}

	idx, err := surrealdb.Select[models.IndexRecord](ctx, db, dateID(indexTable, date))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s for %s: %w", indexTable, date, err)
	}
	if idx != nil && idx.Date == date {
		day.Index = idx
	}
	return day, nil
}

func saveDay(ctx context.Context, db *surrealdb.DB, recordTable, indexTable string, day *models.Day) error {
	for _, r := range day.Records {
		if err := upsert(ctx, db, recordID(recordTable, r.Date, r.Symbol), r); err != nil {
			return err
		}
	}
	if day.Index != nil {
		return upsert(ctx, db, dateID(indexTable, day.Date), *day.Index)
	}
	return nil
}

func listSymbol(ctx context.Context, db *surrealdb.DB, table, symbol string, from, to models.Date) ([]models.MarketRecord, error) {
	vars := rangeVars(from, to)
	vars["symbol"] = models.NormalizeSymbol(symbol)
	return selectRows[models.MarketRecord](ctx, db,
		"SELECT * FROM "+table+" WHERE symbol = $symbol AND date >= $from AND date <= $to ORDER BY date",
		vars)
}

func listIndex(ctx context.Context, db *surrealdb.DB, table string, from, to models.Date) ([]models.IndexRecord, error) {
	return selectRows[models.IndexRecord](ctx, db,
		"SELECT * FROM "+table+" WHERE date >= $from AND date <= $to ORDER BY date",
		rangeVars(from, to))
}

// Ensure RecordStore implements interfaces.RecordStore
var _ interfaces.RecordStore = (*RecordStore)(nil)
