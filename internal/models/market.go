package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Source identifies where a record came from. Values match the legacy data set.
type Source string

const (
	SourceAutomatic Source = "automatico"
	SourceArchived  Source = "archivo_dat"
	SourceManual    Source = "manual"
	SourceDerived   Source = "derivado"
)

// IsManual reports whether s is the manual partition.
func (s Source) IsManual() bool {
	return s == SourceManual
}

// MarketRecord is one symbol's trading result for a day.
type MarketRecord struct {
	Date           Date    `json:"date"`
	Symbol         string  `json:"symbol"`
	DisplayName    string  `json:"display_name"`
	PreviousPrice  float64 `json:"previous_price"`
	CurrentPrice   float64 `json:"current_price"`
	AbsoluteChange float64 `json:"absolute_change"`
	PercentChange  float64 `json:"percent_change"`
	TradedQuantity int64   `json:"traded_quantity"`
	TradedAmount   float64 `json:"traded_amount"`
	Source         Source  `json:"source"`
}

// Key returns the (date, symbol) storage key.
func (r MarketRecord) Key() string {
	return RecordKey(r.Date, r.Symbol)
}

// RecordKey builds the storage key for a (date, symbol) pair.
func RecordKey(date Date, symbol string) string {
	return string(date) + ":" + NormalizeSymbol(symbol)
}

// NormalizeSymbol returns the canonical upper-case form of a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// NewMarketRecord validates its inputs and derives the change fields.
// Changes are only computed when both prices are positive.
func NewMarketRecord(date Date, symbol, name string, previous, current float64, quantity int64, amount float64, source Source) (MarketRecord, error) {
	if !date.Valid() {
		return MarketRecord{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return MarketRecord{}, fmt.Errorf("%w: empty symbol", ErrInvalidRecord)
	}
	if previous < 0 || current < 0 {
		return MarketRecord{}, fmt.Errorf("%w: negative price for %s", ErrInvalidRecord, symbol)
	}
	if quantity < 0 || amount < 0 {
		return MarketRecord{}, fmt.Errorf("%w: negative volume for %s", ErrInvalidRecord, symbol)
	}

	change, pct := PriceChange(previous, current)
	name = strings.TrimSpace(name)
	if name == "" {
		name = symbol
	}

	return MarketRecord{
		Date:           date,
		Symbol:         symbol,
		DisplayName:    name,
		PreviousPrice:  previous,
		CurrentPrice:   current,
		AbsoluteChange: change,
		PercentChange:  pct,
		TradedQuantity: quantity,
		TradedAmount:   amount,
		Source:         source,
	}, nil
}

// PriceChange returns (current - previous) rounded to 4 places and the
// percent change rounded to 2 places. Both are 0 unless both prices are positive.
func PriceChange(previous, current float64) (float64, float64) {
	if previous <= 0 || current <= 0 {
		return 0, 0
	}
	prev := decimal.NewFromFloat(previous)
	diff := decimal.NewFromFloat(current).Sub(prev)
	pct := diff.Div(prev).Mul(decimal.NewFromInt(100))
	return diff.Round(4).InexactFloat64(), pct.Round(2).InexactFloat64()
}

// Validate checks a record read back from storage or a cache.
func (r MarketRecord) Validate() error {
	if !r.Date.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidDate, r.Date)
	}
	if r.Symbol == "" || r.Symbol != NormalizeSymbol(r.Symbol) {
		return fmt.Errorf("%w: symbol %q", ErrInvalidRecord, r.Symbol)
	}
	if r.PreviousPrice < 0 || r.CurrentPrice < 0 || r.TradedQuantity < 0 || r.TradedAmount < 0 {
		return fmt.Errorf("%w: negative value for %s", ErrInvalidRecord, r.Symbol)
	}
	return nil
}

// IndexRecord is the general index value for a day.
type IndexRecord struct {
	Date          Date    `json:"date"`
	Value         float64 `json:"value"`
	PercentChange float64 `json:"percent_change"`
	Source        Source  `json:"source"`
}

// NewIndexRecord validates an index value.
func NewIndexRecord(date Date, value, percentChange float64, source Source) (IndexRecord, error) {
	if !date.Valid() {
		return IndexRecord{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	if value < 0 {
		return IndexRecord{}, fmt.Errorf("%w: negative index value", ErrInvalidRecord)
	}
	return IndexRecord{
		Date:          date,
		Value:         value,
		PercentChange: percentChange,
		Source:        source,
	}, nil
}

// Day bundles everything known about one trading date.
type Day struct {
	Date    Date           `json:"date"`
	Records []MarketRecord `json:"records"`
	Index   *IndexRecord   `json:"index,omitempty"`
}

// Empty reports whether the day carries no records.
func (d *Day) Empty() bool {
	return d == nil || len(d.Records) == 0
}

// Validate checks that every record and the index belong to the day's date.
func (d *Day) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil day", ErrInvalidRecord)
	}
	if !d.Date.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidDate, d.Date)
	}
	for _, r := range d.Records {
		if err := r.Validate(); err != nil {
			return err
		}
		if r.Date != d.Date {
			return fmt.Errorf("%w: %s record dated %s in day %s", ErrInvalidRecord, r.Symbol, r.Date, d.Date)
		}
	}
	if d.Index != nil && d.Index.Date != d.Date {
		return fmt.Errorf("%w: index dated %s in day %s", ErrInvalidRecord, d.Index.Date, d.Date)
	}
	return nil
}

// WithSource returns a copy of the day with every record retagged. The index
// has no archived variant, so it is tagged manual or automatic.
func (d *Day) WithSource(source Source) *Day {
	if d == nil {
		return nil
	}
	out := &Day{Date: d.Date, Records: make([]MarketRecord, len(d.Records))}
	for i, r := range d.Records {
		r.Source = source
		out.Records[i] = r
	}
	if d.Index != nil {
		idx := *d.Index
		idx.Source = SourceAutomatic
		if source.IsManual() {
			idx.Source = SourceManual
		}
		out.Index = &idx
	}
	return out
}

// ExchangeRate is the official dollar rate published for a date.
type ExchangeRate struct {
	Date   Date    `json:"date"`
	Rate   float64 `json:"rate"`
	Change float64 `json:"change"`
}

// StoreCounts summarises the persistent store.
type StoreCounts struct {
	Records       int `json:"records"`
	Indices       int `json:"indices"`
	ManualRecords int `json:"manual_records"`
	ManualIndices int `json:"manual_indices"`
	DistinctDates int `json:"distinct_dates"`
	ExchangeRates int `json:"exchange_rates"`
}

// DollarPoint is a symbol's closing price restated in dollars at the
// official rate in force on its date.
type DollarPoint struct {
	Date              Date    `json:"date"`
	Symbol            string  `json:"symbol"`
	Price             float64 `json:"price"`
	PreviousPrice     float64 `json:"previous_price"`
	Rate              float64 `json:"rate"`
	RateDate          Date    `json:"rate_date,omitempty"`
	ExactRate         bool    `json:"exact_rate"`
	PriceUSD          float64 `json:"price_usd"`
	PreviousUSD       float64 `json:"previous_usd"`
	ChangeUSDPercent  float64 `json:"change_usd_percent"`
	RateChangePercent float64 `json:"rate_change_percent"`
	VersusDollar      float64 `json:"versus_dollar"`
}
