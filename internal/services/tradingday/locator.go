// Package tradingday picks trading dates: the default anchor for a calendar
// date and the nearest earlier date that actually carries records.
package tradingday

import (
	"context"
	"fmt"

	"github.com/bobmcallan/bolsa/internal/interfaces"
	"github.com/bobmcallan/bolsa/internal/models"
)

// DefaultMaxLookback is the calendar window searched per pass.
const DefaultMaxLookback = 10

// maxWeekendSteps bounds the walk off a weekend (Sunday -> Saturday -> Friday).
const maxWeekendSteps = 2

// ResolveTradingDay returns date itself, or the Friday before it when date is
// a weekend day. No source is consulted; data may still be absent.
func ResolveTradingDay(date models.Date) models.Date {
	d := date
	for i := 0; i < maxWeekendSteps && d.IsWeekend(); i++ {
		d = d.AddDays(-1)
	}
	return d
}

// FindPopulatedDay walks backward from anchor until the resolver yields a day
// with at least one record.
//
// The first pass starts at the weekend-adjusted anchor and skips weekend days.
// When it finds nothing, a second pass walks the window from the original
// anchor including weekends, which picks up manual weekend entries. Dates
// already inspected by the first pass are not resolved again. Each pass spans
// at most maxLookback calendar days, so no more than 2*maxLookback candidates
// are inspected.
//
// Exhausting both passes is not an error: the result has Found == false.
func FindPopulatedDay(ctx context.Context, resolver interfaces.DayResolver, anchor models.Date, maxLookback int) (*models.PopulatedDay, error) {
	if !anchor.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidDate, anchor)
	}
	if maxLookback <= 0 {
		maxLookback = DefaultMaxLookback
	}

	result := &models.PopulatedDay{Anchor: anchor}
	seen := make(map[models.Date]bool, maxLookback)

	populated := func(d models.Date) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		seen[d] = true
		result.Inspected++

		day, err := resolver.Resolve(ctx, d)
		if err != nil {
			return false, fmt.Errorf("resolve %s: %w", d, err)
		}
		if day == nil || day.Empty() {
			return false, nil
		}
		result.Found = true
		result.Day = day
		result.WasWeekend = d.IsWeekend()
		return true, nil
	}

	start := ResolveTradingDay(anchor)
	for i := 0; i < maxLookback; i++ {
		d := start.AddDays(-i)
		if d.IsWeekend() {
			continue
		}
		found, err := populated(d)
		if err != nil {
			return nil, err
		}
		if found {
			return result, nil
		}
	}

	for i := 0; i < maxLookback; i++ {
		d := anchor.AddDays(-i)
		if seen[d] {
			continue
		}
		found, err := populated(d)
		if err != nil {
			return nil, err
		}
		if found {
			return result, nil
		}
	}

	return result, nil
}
