package market

import (
	"context"
	"fmt"

	"github.com/bobmcallan/bolsa/internal/models"
)

// AddManualRecord stores one administrative entry. When no name is given it
// is taken from the automatic records, falling back to the symbol.
func (s *Service) AddManualRecord(ctx context.Context, input models.ManualRecordInput) (*models.MarketRecord, error) {
	name := input.Name
	if name == "" {
		name = s.displayName(ctx, input.Symbol)
	}

	record, err := models.NewMarketRecord(input.Date, input.Symbol, name,
		input.PreviousPrice, input.CurrentPrice, input.Quantity, input.Amount, models.SourceManual)
	if err != nil {
		return nil, err
	}
	if err := s.storage.ManualStore().SaveManualRecord(ctx, record); err != nil {
		return nil, err
	}
	s.invalidate(record.Date)

	s.logger.Info().Str("date", record.Date.String()).Str("symbol", record.Symbol).Msg("Manual record saved")
	return &record, nil
}

// SaveManualIndex stores the manual index value for date.
func (s *Service) SaveManualIndex(ctx context.Context, date models.Date, value, percentChange float64) (*models.IndexRecord, error) {
	index, err := models.NewIndexRecord(date, value, percentChange, models.SourceManual)
	if err != nil {
		return nil, err
	}
	if err := s.storage.ManualStore().SaveManualIndex(ctx, index); err != nil {
		return nil, err
	}
	s.invalidate(date)
	return &index, nil
}

// SaveManualDay upserts a whole manual day in one write. Every record is
// rebuilt from its prices so the derived change fields are recomputed, and
// records without a proper name get one from the automatic partition.
// Nothing is stored when any record or the index is invalid.
func (s *Service) SaveManualDay(ctx context.Context, day *models.Day) (*models.Day, error) {
	if day == nil {
		return nil, fmt.Errorf("%w: nil day", models.ErrInvalidRecord)
	}
	if !day.Date.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidDate, day.Date)
	}

	built := &models.Day{Date: day.Date, Records: make([]models.MarketRecord, 0, len(day.Records))}
	for _, r := range day.Records {
		if r.Date != "" && r.Date != day.Date {
			return nil, fmt.Errorf("%w: %s dated %s inside day %s", models.ErrInvalidRecord, r.Symbol, r.Date, day.Date)
		}
		name := r.DisplayName
		if name == "" || models.NormalizeSymbol(name) == models.NormalizeSymbol(r.Symbol) {
			name = s.displayName(ctx, r.Symbol)
		}
		rec, err := models.NewMarketRecord(day.Date, r.Symbol, name,
			r.PreviousPrice, r.CurrentPrice, r.TradedQuantity, r.TradedAmount, models.SourceManual)
		if err != nil {
			return nil, err
		}
		built.Records = append(built.Records, rec)
	}
	if day.Index != nil {
		idx, err := models.NewIndexRecord(day.Date, day.Index.Value, day.Index.PercentChange, models.SourceManual)
		if err != nil {
			return nil, err
		}
		built.Index = &idx
	}

	if err := s.storage.ManualStore().SaveManualDay(ctx, built); err != nil {
		return nil, err
	}
	s.invalidate(day.Date)

	s.logger.Info().Str("date", day.Date.String()).Int("records", len(built.Records)).Msg("Manual day saved")
	return built, nil
}

// GetManualDay returns the manual partition for date.
func (s *Service) GetManualDay(ctx context.Context, date models.Date) (*models.Day, error) {
	if !date.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidDate, date)
	}
	return s.storage.ManualStore().GetManualDay(ctx, date)
}

// DeleteManualDay removes every manual row for date.
func (s *Service) DeleteManualDay(ctx context.Context, date models.Date) (int, error) {
	if !date.Valid() {
		return 0, fmt.Errorf("%w: %q", models.ErrInvalidDate, date)
	}
	n, err := s.storage.ManualStore().DeleteManualDay(ctx, date)
	if err != nil {
		return 0, err
	}
	s.invalidate(date)

	s.logger.Info().Str("date", date.String()).Int("removed", n).Msg("Manual day deleted")
	return n, nil
}

// DeleteManualRecord removes one manual row.
func (s *Service) DeleteManualRecord(ctx context.Context, date models.Date, symbol string) error {
	if !date.Valid() {
		return fmt.Errorf("%w: %q", models.ErrInvalidDate, date)
	}
	if err := s.storage.ManualStore().DeleteManualRecord(ctx, date, symbol); err != nil {
		return err
	}
	s.invalidate(date)
	return nil
}

// ListManualDates returns dates with manual data, most recent first.
func (s *Service) ListManualDates(ctx context.Context) ([]models.Date, error) {
	dates, err := s.storage.ManualStore().ListManualDates(ctx)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(dates)-1; i < j; i, j = i+1, j-1 {
		dates[i], dates[j] = dates[j], dates[i]
	}
	return dates, nil
}

// VerifyDate reports what each partition holds for date. Only the store is
// consulted; no source is fetched.
func (s *Service) VerifyDate(ctx context.Context, date models.Date) (*models.DateVerification, error) {
	if !date.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidDate, date)
	}
	auto, err := s.storage.RecordStore().GetDay(ctx, date)
	if err != nil {
		return nil, err
	}
	manual, err := s.storage.ManualStore().GetManualDay(ctx, date)
	if err != nil {
		return nil, err
	}
	return &models.DateVerification{
		Date:             date,
		AutomaticRecords: len(auto.Records),
		ManualRecords:    len(manual.Records),
		AutomaticIndex:   auto.Index != nil,
		ManualIndex:      manual.Index != nil,
	}, nil
}

// ManualSymbolRecords lists manual rows for symbol over [from, to].
func (s *Service) ManualSymbolRecords(ctx context.Context, symbol string, from, to models.Date) ([]models.MarketRecord, error) {
	if !from.Valid() || !to.Valid() {
		return nil, fmt.Errorf("%w: range %q..%q", models.ErrInvalidDate, from, to)
	}
	return s.storage.ManualStore().ListManualSymbolRecords(ctx, symbol, from, to)
}

// displayName looks up the stored name for symbol, falling back to the
// upper-cased symbol.
func (s *Service) displayName(ctx context.Context, symbol string) string {
	symbol = models.NormalizeSymbol(symbol)
	name, err := s.storage.RecordStore().SymbolName(ctx, symbol)
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Name lookup failed, using symbol")
	}
	if name == "" {
		return symbol
	}
	return name
}
