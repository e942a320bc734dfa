package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seriesRecord(t *testing.T, date Date, price float64, source Source) MarketRecord {
	t.Helper()
	r, err := NewMarketRecord(date, "XYZ", "Xyz Holdings", price, price, 10, 100, source)
	require.NoError(t, err)
	return r
}

func TestSymbolSeries_Orderings(t *testing.T) {
	records := []MarketRecord{
		seriesRecord(t, "20250110", 3, SourceAutomatic),
		seriesRecord(t, "20250102", 1, SourceAutomatic),
		seriesRecord(t, "20250131", 5, SourceAutomatic),
		seriesRecord(t, "20250106", 2, SourceAutomatic),
		seriesRecord(t, "20250120", 4, SourceAutomatic),
	}
	s := NewSymbolSeries("xyz", "20250101", "20250131", records)

	require.Equal(t, 5, s.Len())
	asc := s.Ascending()
	desc := s.Descending()
	assert.Equal(t, Date("20250102"), asc[0].Date)
	assert.Equal(t, Date("20250131"), asc[4].Date)
	assert.Equal(t, Date("20250131"), desc[0].Date)
	assert.Equal(t, Date("20250102"), desc[4].Date)
	assert.NoError(t, s.Validate())

	// accessors hand out copies
	asc[0].Symbol = "MUTATED"
	assert.Equal(t, "XYZ", s.Ascending()[0].Symbol)
}

func TestSymbolSeries_SameDateKeepsBoth(t *testing.T) {
	s := NewSymbolSeries("XYZ", "20250101", "20250131", []MarketRecord{
		seriesRecord(t, "20250110", 3, SourceManual),
		seriesRecord(t, "20250110", 3, SourceAutomatic),
	})

	asc := s.Ascending()
	require.Len(t, asc, 2)
	assert.Equal(t, SourceAutomatic, asc[0].Source)
	assert.Equal(t, SourceManual, asc[1].Source)
}

func TestSymbolSeries_ValidateRejectsForeignRows(t *testing.T) {
	other, err := NewMarketRecord("20250110", "ABC", "", 1, 1, 0, 0, SourceAutomatic)
	require.NoError(t, err)

	s := NewSymbolSeries("XYZ", "20250101", "20250131", []MarketRecord{other})
	assert.ErrorIs(t, s.Validate(), ErrInvalidRecord)

	outside := NewSymbolSeries("XYZ", "20250101", "20250105", []MarketRecord{seriesRecord(t, "20250110", 1, SourceAutomatic)})
	assert.Error(t, outside.Validate())

	var nilSeries *SymbolSeries
	assert.Error(t, nilSeries.Validate())
}

func TestSymbolSeries_MarshalJSONDescending(t *testing.T) {
	s := NewSymbolSeries("XYZ", "20250101", "20250131", []MarketRecord{
		seriesRecord(t, "20250102", 1, SourceAutomatic),
		seriesRecord(t, "20250103", 2, SourceAutomatic),
	})

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded struct {
		Symbol  string         `json:"symbol"`
		Records []MarketRecord `json:"records"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "XYZ", decoded.Symbol)
	require.Len(t, decoded.Records, 2)
	assert.Equal(t, Date("20250103"), decoded.Records[0].Date)
}
