package app

import (
	"context"
	"os"
	"time"

	"github.com/bobmcallan/bolsa/internal/common"
	"github.com/bobmcallan/bolsa/internal/interfaces"
)

// warmCache loads recent archives and fills the record cache on startup so
// the first user query is fast.
func warmCache(ctx context.Context, marketService interfaces.MarketService, days int, logger *common.Logger) {
	// Check env var override
	if os.Getenv("BOLSA_WARM_CACHE") == "off" {
		logger.Info().Msg("Warm cache: disabled via BOLSA_WARM_CACHE=off")
		return
	}

	start := time.Now()
	logger.Info().Int("days", days).Msg("Warm cache: starting")

	result, err := marketService.Preload(ctx, days, time.Now())
	if err != nil {
		logger.Warn().Err(err).Msg("Warm cache: preload failed")
		return
	}

	logger.Info().
		Int("loaded", result.Loaded).
		Int("failed", result.Failed).
		Dur("elapsed", time.Since(start)).
		Msg("Warm cache: complete")
}
