package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// SymbolSeries is one symbol's records over a date range. Automatic and manual
// rows for the same date are both kept. Callers pick an order explicitly:
// Descending for presentation, Ascending for statistics.
type SymbolSeries struct {
	symbol string
	from   Date
	to     Date
	asc    []MarketRecord
}

// NewSymbolSeries sorts records ascending by date; rows sharing a date keep
// non-manual rows first.
func NewSymbolSeries(symbol string, from, to Date, records []MarketRecord) *SymbolSeries {
	asc := make([]MarketRecord, len(records))
	copy(asc, records)
	sort.SliceStable(asc, func(i, j int) bool {
		if asc[i].Date != asc[j].Date {
			return asc[i].Date < asc[j].Date
		}
		return !asc[i].Source.IsManual() && asc[j].Source.IsManual()
	})
	return &SymbolSeries{
		symbol: NormalizeSymbol(symbol),
		from:   from,
		to:     to,
		asc:    asc,
	}
}

func (s *SymbolSeries) Symbol() string { return s.symbol }
func (s *SymbolSeries) From() Date     { return s.from }
func (s *SymbolSeries) To() Date       { return s.to }
func (s *SymbolSeries) Len() int       { return len(s.asc) }

// Ascending returns a copy ordered oldest first.
func (s *SymbolSeries) Ascending() []MarketRecord {
	out := make([]MarketRecord, len(s.asc))
	copy(out, s.asc)
	return out
}

// Descending returns a copy ordered most recent first.
func (s *SymbolSeries) Descending() []MarketRecord {
	out := make([]MarketRecord, len(s.asc))
	for i, r := range s.asc {
		out[len(s.asc)-1-i] = r
	}
	return out
}

// Validate checks the shape of a series held in a cache.
func (s *SymbolSeries) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil series", ErrInvalidRecord)
	}
	for i, r := range s.asc {
		if r.Symbol != s.symbol {
			return fmt.Errorf("%w: series %s holds %s", ErrInvalidRecord, s.symbol, r.Symbol)
		}
		if r.Date < s.from || r.Date > s.to {
			return fmt.Errorf("%w: %s outside %s..%s", ErrInvalidRecord, r.Date, s.from, s.to)
		}
		if i > 0 && r.Date < s.asc[i-1].Date {
			return fmt.Errorf("%w: series out of order at %s", ErrInvalidRecord, r.Date)
		}
	}
	return nil
}

// MarshalJSON renders the presentation order.
func (s *SymbolSeries) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Symbol  string         `json:"symbol"`
		From    Date           `json:"from"`
		To      Date           `json:"to"`
		Records []MarketRecord `json:"records"`
	}{s.symbol, s.from, s.to, s.Descending()})
}

// SymbolSummary describes a symbol's price path over a range.
type SymbolSummary struct {
	FirstPrice    float64 `json:"first_price"`
	LastPrice     float64 `json:"last_price"`
	Change        float64 `json:"change"`
	ReturnPercent float64 `json:"return_percent"`
	MaxPrice      float64 `json:"max_price"`
	MinPrice      float64 `json:"min_price"`
	MeanPrice     float64 `json:"mean_price"`
	Volatility    float64 `json:"volatility"`
	UpDays        int     `json:"up_days"`
	DownDays      int     `json:"down_days"`
	FlatDays      int     `json:"flat_days"`
	TotalDays     int     `json:"total_days"`
	MaxDailyGain  float64 `json:"max_daily_gain"`
	MaxDailyLoss  float64 `json:"max_daily_loss"`
	FirstDate     Date    `json:"first_date,omitempty"`
	LastDate      Date    `json:"last_date,omitempty"`
}

// SymbolHistory is the answer to a symbol range query.
type SymbolHistory struct {
	Symbol    string        `json:"symbol"`
	From      Date          `json:"from"`
	To        Date          `json:"to"`
	FromCache bool          `json:"from_cache"`
	Series    *SymbolSeries `json:"series"`
	Summary   SymbolSummary `json:"summary"`
}

// IndexPoint is a merged, adjusted index value.
type IndexPoint struct {
	Date          Date    `json:"date"`
	Value         float64 `json:"value"`
	RawValue      float64 `json:"raw_value"`
	PercentChange float64 `json:"percent_change"`
	Source        Source  `json:"source"`
	Adjusted      bool    `json:"adjusted"`
}

// IndexStats summarises adjusted index values.
type IndexStats struct {
	Count           int     `json:"count"`
	Min             float64 `json:"min"`
	Max             float64 `json:"max"`
	Mean            float64 `json:"mean"`
	StartDate       Date    `json:"start_date,omitempty"`
	EndDate         Date    `json:"end_date,omitempty"`
	HistoricChange  float64 `json:"historic_change"`
	AutomaticCount  int     `json:"automatic_count"`
	ManualCount     int     `json:"manual_count"`
	AdjustedCount   int     `json:"adjusted_count"`
	UnadjustedCount int     `json:"unadjusted_count"`
}

// IndexHistory is the answer to an index range query, ascending by date.
type IndexHistory struct {
	From   Date         `json:"from"`
	To     Date         `json:"to"`
	Points []IndexPoint `json:"points"`
	Stats  IndexStats   `json:"stats"`
}

// PopulatedDay is the result of a backward search for a date with data.
type PopulatedDay struct {
	Anchor     Date `json:"anchor"`
	Found      bool `json:"found"`
	Day        *Day `json:"day,omitempty"`
	WasWeekend bool `json:"was_weekend"`
	Inspected  int  `json:"inspected"`
}

// ManualRecordInput is an administrative single-symbol entry.
type ManualRecordInput struct {
	Date          Date    `json:"date"`
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name,omitempty"`
	PreviousPrice float64 `json:"previous_price"`
	CurrentPrice  float64 `json:"current_price"`
	Quantity      int64   `json:"quantity"`
	Amount        float64 `json:"amount"`
}

// DateVerification compares both partitions for a date.
type DateVerification struct {
	Date             Date `json:"date"`
	AutomaticRecords int  `json:"automatic_records"`
	ManualRecords    int  `json:"manual_records"`
	AutomaticIndex   bool `json:"automatic_index"`
	ManualIndex      bool `json:"manual_index"`
}

// LoadResult reports a bulk archive load.
type LoadResult struct {
	Loaded  int    `json:"loaded"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
	Dates   []Date `json:"dates,omitempty"`
}

// QueryCacheEntryInfo describes one query cache entry.
type QueryCacheEntryInfo struct {
	Symbol       string    `json:"symbol"`
	From         Date      `json:"from"`
	To           Date      `json:"to"`
	HitCount     int       `json:"hit_count"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
}

// QueryCacheStats reports query cache accounting.
type QueryCacheStats struct {
	Entries      int                   `json:"entries"`
	Capacity     int                   `json:"capacity"`
	Hits         uint64                `json:"hits"`
	Misses       uint64                `json:"misses"`
	HitRate      float64               `json:"hit_rate"`
	MostFrequent []QueryCacheEntryInfo `json:"most_frequent"`
	Recent       []QueryCacheEntryInfo `json:"recent"`
}

// ServiceStats reports store and cache state.
type ServiceStats struct {
	Store               StoreCounts     `json:"store"`
	RecordCacheEntries  int             `json:"record_cache_entries"`
	RecordCacheCapacity int             `json:"record_cache_capacity"`
	QueryCache          QueryCacheStats `json:"query_cache"`
}
