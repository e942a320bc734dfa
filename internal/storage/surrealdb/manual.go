package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"

	"github.com/bobmcallan/bolsa/internal/common"
	"github.com/bobmcallan/bolsa/internal/interfaces"
	"github.com/bobmcallan/bolsa/internal/models"
)

// ManualStore is the manual-override partition on SurrealDB.
type ManualStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewManualStore creates a new ManualStore.
func NewManualStore(db *surrealdb.DB, logger *common.Logger) *ManualStore {
	return &ManualStore{db: db, logger: logger}
}

func (s *ManualStore) GetManualDay(ctx context.Context, date models.Date) (*models.Day, error) {
	return getDay(ctx, s.db, tableManualRecords, tableManualIndices, date)
}

func (s *ManualStore) SaveManualDay(ctx context.Context, day *models.Day) error {
	if err := day.Validate(); err != nil {
		return err
	}
	if err := saveDay(ctx, s.db, tableManualRecords, tableManualIndices, day.WithSource(models.SourceManual)); err != nil {
		return fmt.Errorf("failed to save manual day %s: %w", day.Date, err)
	}
	s.logger.Debug().Str("date", day.Date.String()).Int("records", len(day.Records)).Msg("Manual day saved")
	return nil
}

func (s *ManualStore) SaveManualRecord(ctx context.Context, record models.MarketRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	record.Source = models.SourceManual
	if err := upsert(ctx, s.db, recordID(tableManualRecords, record.Date, record.Symbol), record); err != nil {
		return fmt.Errorf("failed to save manual record %s: %w", record.Key(), err)
	}
	return nil
}

func (s *ManualStore) SaveManualIndex(ctx context.Context, index models.IndexRecord) error {
	if !index.Date.Valid() {
		return fmt.Errorf("%w: %q", models.ErrInvalidDate, index.Date)
	}
	index.Source = models.SourceManual
	if err := upsert(ctx, s.db, dateID(tableManualIndices, index.Date), index); err != nil {
		return fmt.Errorf("failed to save manual index %s: %w", index.Date, err)
	}
	return nil
}

func (s *ManualStore) DeleteManualDay(ctx context.Context, date models.Date) (int, error) {
	deleted, err := selectRows[models.MarketRecord](ctx, s.db,
		"DELETE "+tableManualRecords+" WHERE date = $date RETURN BEFORE",
		map[string]any{"date": string(date)})
	if err != nil {
		return 0, fmt.Errorf("failed to delete manual records for %s: %w", date, err)
	}
	if _, err := surrealdb.Delete[models.IndexRecord](ctx, s.db, dateID(tableManualIndices, date)); err != nil {
		return 0, fmt.Errorf("failed to delete manual index for %s: %w", date, err)
	}

	s.logger.Debug().Str("date", date.String()).Int("removed", len(deleted)).Msg("Manual day deleted")
	return len(deleted), nil
}

func (s *ManualStore) DeleteManualRecord(ctx context.Context, date models.Date, symbol string) error {
	if _, err := surrealdb.Delete[models.MarketRecord](ctx, s.db, recordID(tableManualRecords, date, symbol)); err != nil {
		return fmt.Errorf("failed to delete manual record %s: %w", models.RecordKey(date, symbol), err)
	}
	return nil
}

func (s *ManualStore) ListManualDates(ctx context.Context) ([]models.Date, error) {
	recordDates, err := distinctDates(ctx, s.db, tableManualRecords)
	if err != nil {
		return nil, err
	}
	indexDates, err := distinctDates(ctx, s.db, tableManualIndices)
	if err != nil {
		return nil, err
	}

	seen := make(map[models.Date]bool, len(recordDates)+len(indexDates))
	var out []models.Date
	for _, d := range append(recordDates, indexDates...) {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sortDates(out)
	return out, nil
}

func (s *ManualStore) ListManualSymbolRecords(ctx context.Context, symbol string, from, to models.Date) ([]models.MarketRecord, error) {
	rows, err := listSymbol(ctx, s.db, tableManualRecords, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list manual records for %s: %w", symbol, err)
	}
	return rows, nil
}

func (s *ManualStore) ListManualIndexRange(ctx context.Context, from, to models.Date) ([]models.IndexRecord, error) {
	rows, err := listIndex(ctx, s.db, tableManualIndices, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list manual index %s..%s: %w", from, to, err)
	}
	return rows, nil
}

// Ensure ManualStore implements interfaces.ManualStore
var _ interfaces.ManualStore = (*ManualStore)(nil)
