package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/bolsa/internal/common"
	"github.com/bobmcallan/bolsa/internal/interfaces"
	"github.com/bobmcallan/bolsa/internal/models"
)

type recordStorage struct {
	store  *Store
	logger *common.Logger
}

// NewRecordStorage creates the automatic partition backed by BadgerHold.
func NewRecordStorage(store *Store, logger *common.Logger) *recordStorage {
	return &recordStorage{store: store, logger: logger}
}

func (s *recordStorage) GetDay(_ context.Context, date models.Date) (*models.Day, error) {
	var rows []autoRecord
	q := badgerhold.Where("Date").Eq(string(date)).SortBy("Symbol")
	if err := s.store.db.Find(&rows, q); err != nil {
		return nil, fmt.Errorf("failed to read records for %s: %w", date, err)
	}

	day := &models.Day{Date: date, Records: recordModels(rows)}

	var idx autoIndex
	err := s.store.db.Get(indexKey(date), &idx)
	switch {
	case err == nil:
		m := indexRow(idx).model()
		day.Index = &m
	case !errors.Is(err, badgerhold.ErrNotFound):
		return nil, fmt.Errorf("failed to read index for %s: %w", date, err)
	}
	return day, nil
}

// SaveDay upserts the day's records and index in one transaction.
func (s *recordStorage) SaveDay(_ context.Context, day *models.Day) error {
	if err := day.Validate(); err != nil {
		return err
	}
	for _, r := range day.Records {
		if r.Source.IsManual() {
			return fmt.Errorf("%w: manual record %s in automatic partition", models.ErrInvalidRecord, r.Key())
		}
	}

	now := time.Now()
	err := s.store.update(func(tx *badger.Txn) error {
		for _, r := range day.Records {
			if err := s.store.db.TxUpsert(tx, r.Key(), autoRecord(newRecordRow(r, now))); err != nil {
				return err
			}
		}
		if day.Index != nil {
			return s.store.db.TxUpsert(tx, indexKey(day.Date), autoIndex(newIndexRow(*day.Index, now)))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save day %s: %w", day.Date, err)
	}

	s.logger.Debug().Str("date", day.Date.String()).Int("records", len(day.Records)).Bool("index", day.Index != nil).Msg("Day saved")
	return nil
}

func (s *recordStorage) HasDay(_ context.Context, date models.Date) (bool, error) {
	n, err := s.store.db.Count(autoRecord{}, badgerhold.Where("Date").Eq(string(date)))
	if err != nil {
		return false, fmt.Errorf("failed to count records for %s: %w", date, err)
	}
	return n > 0, nil
}

// ListDates returns every date with automatic records, ascending.
func (s *recordStorage) ListDates(_ context.Context) ([]models.Date, error) {
	return distinctDates(s.store.db, autoRecord{})
}

func (s *recordStorage) ListSymbolRecords(_ context.Context, symbol string, from, to models.Date) ([]models.MarketRecord, error) {
	var rows []autoRecord
	if err := s.store.db.Find(&rows, symbolRange(symbol, from, to)); err != nil {
		return nil, fmt.Errorf("failed to list records for %s: %w", symbol, err)
	}
	return recordModels(rows), nil
}

func (s *recordStorage) ListIndexRange(_ context.Context, from, to models.Date) ([]models.IndexRecord, error) {
	var rows []autoIndex
	if err := s.store.db.Find(&rows, dateRange(from, to)); err != nil {
		return nil, fmt.Errorf("failed to list index %s..%s: %w", from, to, err)
	}
	return indexModels(rows), nil
}

func (s *recordStorage) SymbolName(_ context.Context, symbol string) (string, error) {
	var rows []autoRecord
	q := badgerhold.Where("Symbol").Eq(models.NormalizeSymbol(symbol)).
		And("DisplayName").Ne("").
		SortBy("Date").Reverse().Limit(1)
	if err := s.store.db.Find(&rows, q); err != nil {
		return "", fmt.Errorf("failed to look up name for %s: %w", symbol, err)
	}
	if len(rows) == 0 {
		return "", nil
	}
	return rows[0].DisplayName, nil
}

func symbolRange(symbol string, from, to models.Date) *badgerhold.Query {
	from, to = models.OrderRange(from, to)
	return badgerhold.Where("Symbol").Eq(models.NormalizeSymbol(symbol)).
		And("Date").Ge(string(from)).
		And("Date").Le(string(to)).
		SortBy("Date")
}

func dateRange(from, to models.Date) *badgerhold.Query {
	from, to = models.OrderRange(from, to)
	return badgerhold.Where("Date").Ge(string(from)).
		And("Date").Le(string(to)).
		SortBy("Date")
}

func distinctDates(db *badgerhold.Store, dataType interface{}) ([]models.Date, error) {
	groups, err := db.FindAggregate(dataType, nil, "Date")
	if err != nil {
		return nil, fmt.Errorf("failed to list dates: %w", err)
	}
	dates := make([]models.Date, 0, len(groups))
	for _, g := range groups {
		var d string
		g.Group(&d)
		dates = append(dates, models.Date(d))
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i] < dates[j] })
	return dates, nil
}

// Ensure recordStorage implements RecordStore
var _ interfaces.RecordStore = (*recordStorage)(nil)
