package badger

import (
	"time"

	"github.com/bobmcallan/bolsa/internal/models"
)

// BadgerHold namespaces keys by type name, so each partition gets its own
// named row type over a shared layout. Dates are kept as plain strings so
// range criteria compare lexicographically.

type recordRow struct {
	Date           string
	Symbol         string
	DisplayName    string
	PreviousPrice  float64
	CurrentPrice   float64
	AbsoluteChange float64
	PercentChange  float64
	TradedQuantity int64
	TradedAmount   float64
	Source         string
	UpdatedAt      time.Time
}

type (
	autoRecord   recordRow
	manualRecord recordRow
)

type indexRow struct {
	Date          string
	Value         float64
	PercentChange float64
	Source        string
	UpdatedAt     time.Time
}

type (
	autoIndex   indexRow
	manualIndex indexRow
)

type rateRow struct {
	Date   string
	Rate   float64
	Change float64
}

func newRecordRow(r models.MarketRecord, now time.Time) recordRow {
	return recordRow{
		Date:           string(r.Date),
		Symbol:         r.Symbol,
		DisplayName:    r.DisplayName,
		PreviousPrice:  r.PreviousPrice,
		CurrentPrice:   r.CurrentPrice,
		AbsoluteChange: r.AbsoluteChange,
		PercentChange:  r.PercentChange,
		TradedQuantity: r.TradedQuantity,
		TradedAmount:   r.TradedAmount,
		Source:         string(r.Source),
		UpdatedAt:      now,
	}
}

func (r recordRow) model() models.MarketRecord {
	return models.MarketRecord{
		Date:           models.Date(r.Date),
		Symbol:         r.Symbol,
		DisplayName:    r.DisplayName,
		PreviousPrice:  r.PreviousPrice,
		CurrentPrice:   r.CurrentPrice,
		AbsoluteChange: r.AbsoluteChange,
		PercentChange:  r.PercentChange,
		TradedQuantity: r.TradedQuantity,
		TradedAmount:   r.TradedAmount,
		Source:         models.Source(r.Source),
	}
}

func newIndexRow(idx models.IndexRecord, now time.Time) indexRow {
	return indexRow{
		Date:          string(idx.Date),
		Value:         idx.Value,
		PercentChange: idx.PercentChange,
		Source:        string(idx.Source),
		UpdatedAt:     now,
	}
}

func (r indexRow) model() models.IndexRecord {
	return models.IndexRecord{
		Date:          models.Date(r.Date),
		Value:         r.Value,
		PercentChange: r.PercentChange,
		Source:        models.Source(r.Source),
	}
}

func recordModels[T autoRecord | manualRecord](rows []T) []models.MarketRecord {
	out := make([]models.MarketRecord, len(rows))
	for i, r := range rows {
		out[i] = recordRow(r).model()
	}
	return out
}

func indexModels[T autoIndex | manualIndex](rows []T) []models.IndexRecord {
	out := make([]models.IndexRecord, len(rows))
	for i, r := range rows {
		out[i] = indexRow(r).model()
	}
	return out
}

func indexKey(date models.Date) string {
	return string(date)
}
