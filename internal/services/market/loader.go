package market

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/bolsa/internal/models"
)

// ErrNoArchive is returned by archive operations when no archive is configured.
var ErrNoArchive = errors.New("archive not configured")

// LoadArchive copies archived days missing from the Record Store into it.
// With limit > 0 only the most recent limit missing dates are loaded.
// Files are parsed concurrently; a failing file is counted, not fatal.
func (s *Service) LoadArchive(ctx context.Context, limit int) (*models.LoadResult, error) {
	if s.archive == nil {
		return nil, ErrNoArchive
	}

	archived, err := s.archive.ListDates()
	if err != nil {
		return nil, fmt.Errorf("failed to list archive: %w", err)
	}

	store := s.storage.RecordStore()
	result := &models.LoadResult{}

	var missing []models.Date
	for _, d := range archived {
		has, err := store.HasDay(ctx, d)
		if err != nil {
			return nil, err
		}
		if has {
			result.Skipped++
			continue
		}
		missing = append(missing, d)
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] > missing[j] })
	if limit > 0 && len(missing) > limit {
		result.Skipped += len(missing) - limit
		missing = missing[:limit]
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.loadWorkers)

	for _, date := range missing {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			loaded, err := s.loadDate(gctx, date)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Failed++
				s.logger.Warn().Err(err).Str("date", date.String()).Msg("Archive load failed")
			case loaded:
				result.Loaded++
				result.Dates = append(result.Dates, date)
			default:
				result.Skipped++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(result.Dates, func(i, j int) bool { return result.Dates[i] < result.Dates[j] })
	s.logger.Info().
		Int("loaded", result.Loaded).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("Archive load complete")
	return result, nil
}

func (s *Service) loadDate(ctx context.Context, date models.Date) (bool, error) {
	day, err := s.archive.FetchDay(ctx, date)
	if err != nil {
		return false, err
	}
	if day.Empty() {
		return false, nil
	}
	if err := s.storage.RecordStore().SaveDay(ctx, day); err != nil {
		return false, err
	}
	s.invalidate(date)
	return true, nil
}

// Preload loads the most recent missing archives, then warms the record cache
// with stored days from the last `days` calendar days ending at now.
func (s *Service) Preload(ctx context.Context, days int, now time.Time) (*models.LoadResult, error) {
	if days <= 0 {
		days = 30
	}

	result := &models.LoadResult{}
	if s.archive != nil {
		loaded, err := s.LoadArchive(ctx, days)
		if err != nil {
			return nil, err
		}
		result = loaded
	}

	store := s.storage.RecordStore()
	end := models.DateOf(now)
	warmed := 0
	for i := days - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		d := end.AddDays(-i)
		day, err := store.GetDay(ctx, d)
		if err != nil {
			return result, err
		}
		if day.Empty() {
			continue
		}
		s.records.Put(day)
		warmed++
	}

	s.logger.Info().Int("days", days).Int("warmed", warmed).Int("loaded", result.Loaded).Msg("Preload complete")
	return result, nil
}
