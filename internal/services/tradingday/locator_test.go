package tradingday

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/bolsa/internal/models"
)

type countingResolver struct {
	days  map[models.Date]*models.Day
	calls []models.Date
	err   error
}

func (r *countingResolver) Resolve(_ context.Context, date models.Date) (*models.Day, error) {
	r.calls = append(r.calls, date)
	if r.err != nil {
		return nil, r.err
	}
	if d, ok := r.days[date]; ok {
		return d, nil
	}
	return &models.Day{Date: date}, nil
}

func populated(t *testing.T, date models.Date) *models.Day {
	t.Helper()
	r, err := models.NewMarketRecord(date, "BNC", "Banco Nacional de Credito", 1, 1.1, 10, 11, models.SourceAutomatic)
	require.NoError(t, err)
	return &models.Day{Date: date, Records: []models.MarketRecord{r}}
}

func TestResolveTradingDay_Weekends(t *testing.T) {
	// 2025-01-04 is a Saturday
	assert.Equal(t, models.Date("20250103"), ResolveTradingDay("20250104"))
	assert.Equal(t, models.Date("20250103"), ResolveTradingDay("20250105"))
	assert.Equal(t, models.Date("20250106"), ResolveTradingDay("20250106"))
	assert.Equal(t, models.Date("20250103"), ResolveTradingDay("20250103"))
}

func TestResolveTradingDay_AnyWeekendWithinTwoSteps(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 730; i++ {
		d := models.DateOf(start.AddDate(0, 0, i))
		got := ResolveTradingDay(d)

		assert.False(t, got.IsWeekend(), "%s -> %s", d, got)
		assert.LessOrEqual(t, string(got), string(d))
		steps := int(d.Time().Sub(got.Time()).Hours() / 24)
		assert.LessOrEqual(t, steps, 2, "%s took %d steps", d, steps)
		if !d.IsWeekend() {
			assert.Equal(t, d, got)
		}
	}
}

func TestFindPopulatedDay_SaturdayAnchorStartsAtFriday(t *testing.T) {
	res := &countingResolver{days: map[models.Date]*models.Day{
		"20250103": populated(t, "20250103"),
	}}

	got, err := FindPopulatedDay(context.Background(), res, "20250104", 10)
	require.NoError(t, err)

	require.True(t, got.Found)
	assert.Equal(t, models.Date("20250103"), got.Day.Date)
	assert.Equal(t, models.Date("20250104"), got.Anchor)
	assert.False(t, got.WasWeekend)
	assert.Equal(t, []models.Date{"20250103"}, res.calls, "Saturday is never looked up")
}

func TestFindPopulatedDay_SkipsWeekendsAndEmptyDays(t *testing.T) {
	// Monday 2025-01-06 and Friday 2025-01-03 are empty; Thursday has data
	res := &countingResolver{days: map[models.Date]*models.Day{
		"20250102": populated(t, "20250102"),
	}}

	got, err := FindPopulatedDay(context.Background(), res, "20250106", 10)
	require.NoError(t, err)

	require.True(t, got.Found)
	assert.Equal(t, models.Date("20250102"), got.Day.Date)
	assert.Equal(t, []models.Date{"20250106", "20250103", "20250102"}, res.calls)
	assert.Equal(t, 3, got.Inspected)
}

func TestFindPopulatedDay_SecondPassFindsWeekendEntry(t *testing.T) {
	// only a manual Sunday entry exists inside the window
	res := &countingResolver{days: map[models.Date]*models.Day{
		"20250105": populated(t, "20250105"),
	}}

	got, err := FindPopulatedDay(context.Background(), res, "20250107", 5)
	require.NoError(t, err)

	require.True(t, got.Found)
	assert.Equal(t, models.Date("20250105"), got.Day.Date)
	assert.True(t, got.WasWeekend)
}

func TestFindPopulatedDay_ExhaustedIsNotAnError(t *testing.T) {
	for _, lookback := range []int{1, 3, 7, 10, 14} {
		res := &countingResolver{}

		got, err := FindPopulatedDay(context.Background(), res, "20250104", lookback)
		require.NoError(t, err)

		assert.False(t, got.Found)
		assert.Nil(t, got.Day)
		assert.LessOrEqual(t, len(res.calls), 2*lookback)
		assert.Equal(t, len(res.calls), got.Inspected)

		seen := make(map[models.Date]bool)
		for _, d := range res.calls {
			assert.False(t, seen[d], "%s inspected twice", d)
			seen[d] = true
		}
	}
}

func TestFindPopulatedDay_DefaultLookback(t *testing.T) {
	res := &countingResolver{}

	got, err := FindPopulatedDay(context.Background(), res, "20250110", 0)
	require.NoError(t, err)

	assert.False(t, got.Found)
	assert.LessOrEqual(t, got.Inspected, 2*DefaultMaxLookback)
}

func TestFindPopulatedDay_InvalidAnchor(t *testing.T) {
	_, err := FindPopulatedDay(context.Background(), &countingResolver{}, "2025-13-01", 10)
	assert.ErrorIs(t, err, models.ErrInvalidDate)
}

func TestFindPopulatedDay_ResolverError(t *testing.T) {
	res := &countingResolver{err: errors.New("store closed")}

	_, err := FindPopulatedDay(context.Background(), res, "20250106", 10)
	assert.Error(t, err)
	assert.Len(t, res.calls, 1)
}

func TestFindPopulatedDay_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FindPopulatedDay(ctx, &countingResolver{}, "20250106", 10)
	assert.ErrorIs(t, err, context.Canceled)
}
