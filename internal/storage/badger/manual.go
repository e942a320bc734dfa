package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/bolsa/internal/common"
	"github.com/bobmcallan/bolsa/internal/interfaces"
	"github.com/bobmcallan/bolsa/internal/models"
)

type manualStorage struct {
	store  *Store
	logger *common.Logger
}

// NewManualStorage creates the manual partition backed by BadgerHold.
func NewManualStorage(store *Store, logger *common.Logger) *manualStorage {
	return &manualStorage{store: store, logger: logger}
}

func (s *manualStorage) GetManualDay(_ context.Context, date models.Date) (*models.Day, error) {
	var rows []manualRecord
	q := badgerhold.Where("Date").Eq(string(date)).SortBy("Symbol")
	if err := s.store.db.Find(&rows, q); err != nil {
		return nil, fmt.Errorf("failed to read manual records for %s: %w", date, err)
	}

	day := &models.Day{Date: date, Records: recordModels(rows)}

	var idx manualIndex
	err := s.store.db.Get(indexKey(date), &idx)
	switch {
	case err == nil:
		m := indexRow(idx).model()
		day.Index = &m
	case !errors.Is(err, badgerhold.ErrNotFound):
		return nil, fmt.Errorf("failed to read manual index for %s: %w", date, err)
	}
	return day, nil
}

// SaveManualDay upserts the day into the manual partition, retagging every
// row as manual. Existing manual rows for other symbols are kept.
func (s *manualStorage) SaveManualDay(_ context.Context, day *models.Day) error {
	if err := day.Validate(); err != nil {
		return err
	}
	day = day.WithSource(models.SourceManual)

	now := time.Now()
	err := s.store.update(func(tx *badger.Txn) error {
		for _, r := range day.Records {
			if err := s.store.db.TxUpsert(tx, r.Key(), manualRecord(newRecordRow(r, now))); err != nil {
				return err
			}
		}
		if day.Index != nil {
			return s.store.db.TxUpsert(tx, indexKey(day.Date), manualIndex(newIndexRow(*day.Index, now)))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save manual day %s: %w", day.Date, err)
	}

	s.logger.Debug().Str("date", day.Date.String()).Int("records", len(day.Records)).Msg("Manual day saved")
	return nil
}

func (s *manualStorage) SaveManualRecord(_ context.Context, record models.MarketRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	record.Source = models.SourceManual
	if err := s.store.db.Upsert(record.Key(), manualRecord(newRecordRow(record, time.Now()))); err != nil {
		return fmt.Errorf("failed to save manual record %s: %w", record.Key(), err)
	}
	return nil
}

func (s *manualStorage) SaveManualIndex(_ context.Context, index models.IndexRecord) error {
	if !index.Date.Valid() {
		return fmt.Errorf("%w: %q", models.ErrInvalidDate, index.Date)
	}
	index.Source = models.SourceManual
	if err := s.store.db.Upsert(indexKey(index.Date), manualIndex(newIndexRow(index, time.Now()))); err != nil {
		return fmt.Errorf("failed to save manual index %s: %w", index.Date, err)
	}
	return nil
}

// DeleteManualDay removes the date's manual records and index in one transaction.
func (s *manualStorage) DeleteManualDay(_ context.Context, date models.Date) (int, error) {
	q := badgerhold.Where("Date").Eq(string(date))

	var removed int
	err := s.store.update(func(tx *badger.Txn) error {
		n, err := s.store.db.TxCount(tx, manualRecord{}, q)
		if err != nil {
			return err
		}
		removed = int(n)
		if err := s.store.db.TxDeleteMatching(tx, manualRecord{}, q); err != nil {
			return err
		}
		err = s.store.db.TxDelete(tx, indexKey(date), manualIndex{})
		if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete manual day %s: %w", date, err)
	}

	s.logger.Debug().Str("date", date.String()).Int("removed", removed).Msg("Manual day deleted")
	return removed, nil
}

func (s *manualStorage) DeleteManualRecord(_ context.Context, date models.Date, symbol string) error {
	err := s.store.db.Delete(models.RecordKey(date, symbol), manualRecord{})
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to delete manual record %s: %w", models.RecordKey(date, symbol), err)
	}
	return nil
}

// ListManualDates returns every date holding manual records or a manual index, ascending.
func (s *manualStorage) ListManualDates(_ context.Context) ([]models.Date, error) {
	recordDates, err := distinctDates(s.store.db, manualRecord{})
	if err != nil {
		return nil, err
	}
	indexDates, err := distinctDates(s.store.db, manualIndex{})
	if err != nil {
		return nil, err
	}
	return mergeDates(recordDates, indexDates), nil
}

func (s *manualStorage) ListManualSymbolRecords(_ context.Context, symbol string, from, to models.Date) ([]models.MarketRecord, error) {
	var rows []manualRecord
	if err := s.store.db.Find(&rows, symbolRange(symbol, from, to)); err != nil {
		return nil, fmt.Errorf("failed to list manual records for %s: %w", symbol, err)
	}
	return recordModels(rows), nil
}

func (s *manualStorage) ListManualIndexRange(_ context.Context, from, to models.Date) ([]models.IndexRecord, error) {
	var rows []manualIndex
	if err := s.store.db.Find(&rows, dateRange(from, to)); err != nil {
		return nil, fmt.Errorf("failed to list manual index %s..%s: %w", from, to, err)
	}
	return indexModels(rows), nil
}

// mergeDates unions two ascending date lists.
func mergeDates(a, b []models.Date) []models.Date {
	out := make([]models.Date, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case j >= len(b) || (i < len(a) && a[i] < b[j]):
			out = append(out, a[i])
			i++
		case i >= len(a) || b[j] < a[i]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

// Ensure manualStorage implements ManualStore
var _ interfaces.ManualStore = (*manualStorage)(nil)
