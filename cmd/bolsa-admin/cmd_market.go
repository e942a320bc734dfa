package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/bolsa/internal/models"
	"github.com/bobmcallan/bolsa/internal/services/tradingday"
)

// runLoadArchive is the handler for "bolsa-admin load-archive".
func runLoadArchive(cmd *cobra.Command, args []string) error {
	result, err := bolsa.MarketService.LoadArchive(cmd.Context(), loadLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, result)
	}
	fmt.Fprintf(out, "Loaded %d, skipped %d, failed %d\n", result.Loaded, result.Skipped, result.Failed)
	return nil
}

// runStats is the handler for "bolsa-admin stats".
func runStats(cmd *cobra.Command, args []string) error {
	stats, err := bolsa.MarketService.Stats(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, stats)
	}
	s := stats.Store
	fmt.Fprintf(out, "Records:        %d (%d dates)\n", s.Records, s.DistinctDates)
	fmt.Fprintf(out, "Index values:   %d\n", s.Indices)
	fmt.Fprintf(out, "Manual records: %d\n", s.ManualRecords)
	fmt.Fprintf(out, "Manual index:   %d\n", s.ManualIndices)
	fmt.Fprintf(out, "Exchange rates: %d\n", s.ExchangeRates)
	fmt.Fprintf(out, "Record cache:   %d / %d days\n", stats.RecordCacheEntries, stats.RecordCacheCapacity)
	fmt.Fprintf(out, "Query cache:    %d / %d entries, hit rate %.1f%%\n",
		stats.QueryCache.Entries, stats.QueryCache.Capacity, stats.QueryCache.HitRate*100)
	return nil
}

// runResolve is the handler for "bolsa-admin resolve [date]". Weekend dates
// are reported against the trading day they roll back to.
func runResolve(cmd *cobra.Command, args []string) error {
	date, err := models.ParseDate(args[0])
	if err != nil {
		return err
	}

	day, err := bolsa.MarketService.Snapshot(cmd.Context(), date)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, day)
	}
	if trading := tradingday.ResolveTradingDay(date); trading != date {
		fmt.Fprintf(out, "%s is a %s; trading day is %s\n", date.Display(), date.Weekday(), trading.Display())
	}
	if day.Empty() {
		fmt.Fprintf(out, "No data for %s\n", date.Display())
		return nil
	}
	fmt.Fprintf(out, "%s: %d records from %s\n", day.Date.Display(), len(day.Records), day.Records[0].Source)
	if day.Index != nil {
		fmt.Fprintf(out, "Index: %.2f (%+.2f%%)\n", day.Index.Value, day.Index.PercentChange)
	}
	return nil
}
