package app

import (
	"context"
	"time"

	"github.com/bobmcallan/bolsa/internal/common"
	"github.com/bobmcallan/bolsa/internal/interfaces"
)

// startScheduler resolves the latest trading day on a fixed interval so a
// newly published session reaches the store without a user request.
func startScheduler(ctx context.Context, marketService interfaces.MarketService, logger *common.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Scheduler: stopped")
			return
		case <-ticker.C:
			refreshLatest(ctx, marketService, logger)
		}
	}
}

func refreshLatest(ctx context.Context, marketService interfaces.MarketService, logger *common.Logger) {
	start := time.Now()

	latest, err := marketService.LatestSnapshot(ctx, "")
	if err != nil {
		logger.Warn().Err(err).Msg("Scheduler: latest day refresh failed")
		return
	}
	if !latest.Found {
		logger.Info().
			Str("anchor", latest.Anchor.String()).
			Int("inspected", latest.Inspected).
			Msg("Scheduler: no populated day in lookback window")
		return
	}

	logger.Info().
		Str("date", latest.Day.Date.String()).
		Int("records", len(latest.Day.Records)).
		Dur("elapsed", time.Since(start)).
		Msg("Scheduler: latest day refreshed")
}
