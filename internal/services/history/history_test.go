package history

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/bolsa/internal/interfaces"
	"github.com/bobmcallan/bolsa/internal/models"
)

// rangeStore serves fixed slices filtered by range; only the list methods
// are exercised by the merger.
type rangeStore struct {
	interfaces.RecordStore
	records []models.MarketRecord
	indices []models.IndexRecord
}

func (s *rangeStore) ListSymbolRecords(_ context.Context, symbol string, from, to models.Date) ([]models.MarketRecord, error) {
	var out []models.MarketRecord
	for _, r := range s.records {
		if r.Symbol == symbol && r.Date >= from && r.Date <= to {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *rangeStore) ListIndexRange(_ context.Context, from, to models.Date) ([]models.IndexRecord, error) {
	var out []models.IndexRecord
	for _, idx := range s.indices {
		if idx.Date >= from && idx.Date <= to {
			out = append(out, idx)
		}
	}
	return out, nil
}

type rangeManual struct {
	interfaces.ManualStore
	records []models.MarketRecord
	indices []models.IndexRecord
}

func (m *rangeManual) ListManualSymbolRecords(_ context.Context, symbol string, from, to models.Date) ([]models.MarketRecord, error) {
	var out []models.MarketRecord
	for _, r := range m.records {
		if r.Symbol == symbol && r.Date >= from && r.Date <= to {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *rangeManual) ListManualIndexRange(_ context.Context, from, to models.Date) ([]models.IndexRecord, error) {
	var out []models.IndexRecord
	for _, idx := range m.indices {
		if idx.Date >= from && idx.Date <= to {
			out = append(out, idx)
		}
	}
	return out, nil
}

func index(t *testing.T, date models.Date, value float64, source models.Source) models.IndexRecord {
	t.Helper()
	idx, err := models.NewIndexRecord(date, value, 0.5, source)
	require.NoError(t, err)
	return idx
}

func record(t *testing.T, date models.Date, symbol string, prev, cur float64, source models.Source) models.MarketRecord {
	t.Helper()
	r, err := models.NewMarketRecord(date, symbol, "", prev, cur, 100, cur*100, source)
	require.NoError(t, err)
	return r
}

func TestRedenomination_Boundary(t *testing.T) {
	rule := DefaultRedenomination()

	v, adjusted := rule.Apply(rule.Cutover.AddDays(-1), 150000)
	assert.True(t, adjusted)
	assert.Equal(t, 150000/DefaultDivisor, v)

	v, adjusted = rule.Apply(rule.Cutover, 150)
	assert.False(t, adjusted)
	assert.Equal(t, 150.0, v)

	v, adjusted = rule.Apply(rule.Cutover.AddDays(30), 160)
	assert.False(t, adjusted)
	assert.Equal(t, 160.0, v)
}

func TestRedenomination_ZeroRuleNeverFires(t *testing.T) {
	v, adjusted := Redenomination{}.Apply("20200101", 42)
	assert.False(t, adjusted)
	assert.Equal(t, 42.0, v)

	v, adjusted = Redenomination{Cutover: "20250727", Divisor: 0}.Apply("20200101", 42)
	assert.False(t, adjusted)
	assert.Equal(t, 42.0, v)
}

func TestMergeIndexRange_ManualWins(t *testing.T) {
	store := &rangeStore{indices: []models.IndexRecord{
		index(t, "20250801", 150, models.SourceAutomatic),
		index(t, "20250802", 151, models.SourceAutomatic),
	}}
	manual := &rangeManual{indices: []models.IndexRecord{
		index(t, "20250802", 149, models.SourceManual),
	}}
	m := NewMerger(store, manual, DefaultRedenomination(), nil)

	got, err := m.MergeIndexRange(context.Background(), "20250801", "20250831")
	require.NoError(t, err)

	require.Len(t, got.Points, 2)
	assert.Equal(t, models.Date("20250802"), got.Points[1].Date)
	assert.Equal(t, 149.0, got.Points[1].Value)
	assert.Equal(t, models.SourceManual, got.Points[1].Source)
	assert.Equal(t, 1, got.Stats.ManualCount)
	assert.Equal(t, 1, got.Stats.AutomaticCount)
}

func TestMergeIndexRange_AdjustsAcrossCutover(t *testing.T) {
	store := &rangeStore{indices: []models.IndexRecord{
		index(t, "20250727", 152, models.SourceAutomatic),
		index(t, "20250725", 150000, models.SourceAutomatic),
		index(t, "20250726", 151000, models.SourceAutomatic),
	}}
	m := NewMerger(store, &rangeManual{}, DefaultRedenomination(), nil)

	got, err := m.MergeIndexRange(context.Background(), "20250727", "20250720")
	require.NoError(t, err)

	assert.Equal(t, models.Date("20250720"), got.From, "bounds swapped")
	require.Len(t, got.Points, 3)
	assert.Equal(t, []models.Date{"20250725", "20250726", "20250727"},
		[]models.Date{got.Points[0].Date, got.Points[1].Date, got.Points[2].Date})

	assert.Equal(t, 150.0, got.Points[0].Value)
	assert.Equal(t, 150000.0, got.Points[0].RawValue)
	assert.True(t, got.Points[0].Adjusted)
	assert.Equal(t, 152.0, got.Points[2].Value)
	assert.False(t, got.Points[2].Adjusted)

	s := got.Stats
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 150.0, s.Min)
	assert.Equal(t, 152.0, s.Max)
	assert.InDelta(t, 151.0, s.Mean, 1e-9)
	assert.Equal(t, models.Date("20250725"), s.StartDate)
	assert.Equal(t, models.Date("20250727"), s.EndDate)
	assert.Equal(t, 1.33, s.HistoricChange)
	assert.Equal(t, 2, s.AdjustedCount)
	assert.Equal(t, 1, s.UnadjustedCount)
}

func TestMergeIndexRange_Empty(t *testing.T) {
	m := NewMerger(&rangeStore{}, &rangeManual{}, DefaultRedenomination(), nil)

	got, err := m.MergeIndexRange(context.Background(), "20250101", "20250131")
	require.NoError(t, err)

	assert.Empty(t, got.Points)
	assert.Equal(t, 0, got.Stats.Count)
	assert.Equal(t, 0.0, got.Stats.HistoricChange)
}

func TestMergeIndexRange_InvalidDate(t *testing.T) {
	m := NewMerger(&rangeStore{}, &rangeManual{}, DefaultRedenomination(), nil)

	_, err := m.MergeIndexRange(context.Background(), "2025-01", "20250131")
	assert.ErrorIs(t, err, models.ErrInvalidDate)
}

func TestMergeSymbolRange_FiveAutomaticRecords(t *testing.T) {
	store := &rangeStore{records: []models.MarketRecord{
		record(t, "20250110", "XYZ", 10, 11, models.SourceAutomatic),
		record(t, "20250102", "XYZ", 9, 10, models.SourceAutomatic),
		record(t, "20250131", "XYZ", 12, 12.5, models.SourceAutomatic),
		record(t, "20250115", "XYZ", 11, 12, models.SourceArchived),
		record(t, "20250103", "XYZ", 10, 9.5, models.SourceAutomatic),
		record(t, "20250201", "XYZ", 12.5, 13, models.SourceAutomatic),
		record(t, "20250115", "ABC", 1, 2, models.SourceAutomatic),
	}}
	m := NewMerger(store, &rangeManual{}, DefaultRedenomination(), nil)

	series, err := m.MergeSymbolRange(context.Background(), "xyz", "20250101", "20250131")
	require.NoError(t, err)

	require.Equal(t, 5, series.Len())
	asc := series.Ascending()
	desc := series.Descending()
	require.Len(t, asc, 5)
	require.Len(t, desc, 5)

	for i := 1; i < 5; i++ {
		assert.Less(t, string(asc[i-1].Date), string(asc[i].Date))
		assert.Greater(t, string(desc[i-1].Date), string(desc[i].Date))
	}
	assert.Equal(t, models.Date("20250131"), desc[0].Date)
	assert.Equal(t, models.Date("20250102"), asc[0].Date)
	assert.Equal(t, "XYZ", series.Symbol())
}

func TestMergeSymbolRange_CollisionsAreAdditive(t *testing.T) {
	store := &rangeStore{records: []models.MarketRecord{
		record(t, "20250110", "XYZ", 10, 11, models.SourceAutomatic),
	}}
	manual := &rangeManual{records: []models.MarketRecord{
		record(t, "20250110", "XYZ", 10, 10.8, models.SourceManual),
		record(t, "20250111", "XYZ", 10.8, 10.9, models.SourceManual),
	}}
	m := NewMerger(store, manual, DefaultRedenomination(), nil)

	series, err := m.MergeSymbolRange(context.Background(), "XYZ", "20250101", "20250131")
	require.NoError(t, err)

	asc := series.Ascending()
	require.Len(t, asc, 3)
	assert.Equal(t, models.SourceAutomatic, asc[0].Source)
	assert.Equal(t, models.SourceManual, asc[1].Source)
	assert.Equal(t, asc[0].Date, asc[1].Date)
}

func TestMergeSymbolRange_EmptySymbol(t *testing.T) {
	m := NewMerger(&rangeStore{}, &rangeManual{}, DefaultRedenomination(), nil)

	_, err := m.MergeSymbolRange(context.Background(), "  ", "20250101", "20250131")
	assert.ErrorIs(t, err, models.ErrInvalidRecord)
}

func TestSummarizeSymbol(t *testing.T) {
	asc := []models.MarketRecord{
		record(t, "20250102", "XYZ", 10, 10, models.SourceAutomatic),  // 0%
		record(t, "20250103", "XYZ", 10, 11, models.SourceAutomatic),  // +10%
		record(t, "20250106", "XYZ", 11, 9.9, models.SourceAutomatic), // -10%
		record(t, "20250107", "XYZ", 9.9, 12, models.SourceAutomatic), // +21.21%
	}

	s := SummarizeSymbol(asc)

	assert.Equal(t, 10.0, s.FirstPrice)
	assert.Equal(t, 12.0, s.LastPrice)
	assert.InDelta(t, 2.0, s.Change, 1e-9)
	assert.Equal(t, 20.0, s.ReturnPercent)
	assert.Equal(t, 12.0, s.MaxPrice)
	assert.Equal(t, 9.9, s.MinPrice)
	assert.InDelta(t, 10.725, s.MeanPrice, 1e-9)
	assert.Equal(t, 2, s.UpDays)
	assert.Equal(t, 1, s.DownDays)
	assert.Equal(t, 1, s.FlatDays)
	assert.Equal(t, 4, s.TotalDays)
	assert.Equal(t, 21.21, s.MaxDailyGain)
	assert.Equal(t, 10.0, s.MaxDailyLoss)
	assert.Equal(t, models.Date("20250102"), s.FirstDate)
	assert.Equal(t, models.Date("20250107"), s.LastDate)
	assert.Greater(t, s.Volatility, 0.0)
}

func TestSummarizeSymbol_SingleAndEmpty(t *testing.T) {
	assert.Equal(t, models.SymbolSummary{}, SummarizeSymbol(nil))

	s := SummarizeSymbol([]models.MarketRecord{record(t, "20250102", "XYZ", 10, 11, models.SourceAutomatic)})
	assert.Equal(t, 1, s.TotalDays)
	assert.Equal(t, 0.0, s.Volatility)
	assert.Equal(t, 10.0, s.MaxDailyGain)
}

func TestRenderIndexChart(t *testing.T) {
	points := []models.IndexPoint{
		{Date: "20250113", Value: 150, Source: models.SourceAutomatic},
		{Date: "20250114", Value: 151.5, Source: models.SourceManual},
		{Date: "20250115", Value: 149, Source: models.SourceAutomatic},
	}

	png, err := RenderIndexChart(points)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	_, err = RenderIndexChart(points[:1])
	assert.Error(t, err)
}
