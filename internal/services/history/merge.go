package history

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/bolsa/internal/common"
	"github.com/bobmcallan/bolsa/internal/interfaces"
	"github.com/bobmcallan/bolsa/internal/models"
)

// Merger reads both Record Store partitions over a range.
type Merger struct {
	store  interfaces.RecordStore
	manual interfaces.ManualStore
	rule   Redenomination
	logger *common.Logger
}

// NewMerger creates a merger applying rule to index values.
func NewMerger(store interfaces.RecordStore, manual interfaces.ManualStore, rule Redenomination, logger *common.Logger) *Merger {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Merger{store: store, manual: manual, rule: rule, logger: logger}
}

// Rule returns the redenomination rule in use.
func (m *Merger) Rule() Redenomination {
	return m.rule
}

// MergeIndexRange merges automatic and manual index values over [from, to].
// A manual value replaces the automatic one for the same date. Points are
// ascending by date and carry both adjusted and raw values.
func (m *Merger) MergeIndexRange(ctx context.Context, from, to models.Date) (*models.IndexHistory, error) {
	if !from.Valid() || !to.Valid() {
		return nil, fmt.Errorf("%w: range %q..%q", models.ErrInvalidDate, from, to)
	}
	from, to = models.OrderRange(from, to)

	auto, err := m.store.ListIndexRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list automatic index %s..%s: %w", from, to, err)
	}
	manual, err := m.manual.ListManualIndexRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list manual index %s..%s: %w", from, to, err)
	}

	byDate := make(map[models.Date]models.IndexRecord, len(auto)+len(manual))
	for _, idx := range auto {
		if idx.Source.IsManual() {
			idx.Source = models.SourceAutomatic
		}
		byDate[idx.Date] = idx
	}
	for _, idx := range manual {
		idx.Source = models.SourceManual
		byDate[idx.Date] = idx
	}

	points := make([]models.IndexPoint, 0, len(byDate))
	for _, idx := range byDate {
		value, adjusted := m.rule.Apply(idx.Date, idx.Value)
		points = append(points, models.IndexPoint{
			Date:          idx.Date,
			Value:         value,
			RawValue:      idx.Value,
			PercentChange: idx.PercentChange,
			Source:        idx.Source,
			Adjusted:      adjusted,
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })

	return &models.IndexHistory{
		From:   from,
		To:     to,
		Points: points,
		Stats:  IndexStatistics(points),
	}, nil
}

// IndexStatistics summarises ascending points over their adjusted values.
func IndexStatistics(points []models.IndexPoint) models.IndexStats {
	var stats models.IndexStats
	if len(points) == 0 {
		return stats
	}

	stats.Count = len(points)
	stats.Min = points[0].Value
	stats.Max = points[0].Value
	stats.StartDate = points[0].Date
	stats.EndDate = points[len(points)-1].Date

	var sum float64
	for _, p := range points {
		sum += p.Value
		if p.Value < stats.Min {
			stats.Min = p.Value
		}
		if p.Value > stats.Max {
			stats.Max = p.Value
		}
		if p.Source.IsManual() {
			stats.ManualCount++
		} else {
			stats.AutomaticCount++
		}
		if p.Adjusted {
			stats.AdjustedCount++
		} else {
			stats.UnadjustedCount++
		}
	}
	stats.Mean = sum / float64(len(points))

	first, last := points[0].Value, points[len(points)-1].Value
	if first > 0 {
		stats.HistoricChange = percentOf(last-first, first)
	}
	return stats
}

// MergeSymbolRange returns every automatic and manual record for symbol in
// [from, to]. Rows for the same date are additive: both are kept.
func (m *Merger) MergeSymbolRange(ctx context.Context, symbol string, from, to models.Date) (*models.SymbolSeries, error) {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", models.ErrInvalidRecord)
	}
	if !from.Valid() || !to.Valid() {
		return nil, fmt.Errorf("%w: range %q..%q", models.ErrInvalidDate, from, to)
	}
	from, to = models.OrderRange(from, to)

	auto, err := m.store.ListSymbolRecords(ctx, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("list %s records %s..%s: %w", symbol, from, to, err)
	}
	manual, err := m.manual.ListManualSymbolRecords(ctx, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("list manual %s records %s..%s: %w", symbol, from, to, err)
	}

	records := make([]models.MarketRecord, 0, len(auto)+len(manual))
	records = append(records, auto...)
	for _, r := range manual {
		r.Source = models.SourceManual
		records = append(records, r)
	}

	m.logger.Debug().
		Str("symbol", symbol).
		Str("from", from.String()).
		Str("to", to.String()).
		Int("automatic", len(auto)).
		Int("manual", len(manual)).
		Msg("Merged symbol range")

	return models.NewSymbolSeries(symbol, from, to, records), nil
}

// percentOf returns part/whole*100 rounded to two places.
func percentOf(part, whole float64) float64 {
	v, _ := decimal.NewFromFloat(part).
		Div(decimal.NewFromFloat(whole)).
		Mul(decimal.NewFromInt(100)).
		Round(2).
		Float64()
	return v
}
