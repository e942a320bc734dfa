package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/bolsa/internal/models"
)

// runManualAdd is the handler for "bolsa-admin manual add".
func runManualAdd(cmd *cobra.Command, args []string) error {
	date, err := models.ParseDate(manualDate)
	if err != nil {
		return err
	}

	rec, err := bolsa.MarketService.AddManualRecord(cmd.Context(), models.ManualRecordInput{
		Date:          date,
		Symbol:        manualSymbol,
		Name:          manualName,
		PreviousPrice: manualPrev,
		CurrentPrice:  manualPrice,
		Quantity:      manualQty,
		Amount:        manualAmount,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, rec)
	}
	fmt.Fprintf(out, "Saved %s (%s) on %s: %.2f -> %.2f (%+.2f%%)\n",
		rec.Symbol, rec.DisplayName, rec.Date.Display(), rec.PreviousPrice, rec.CurrentPrice, rec.PercentChange)
	return nil
}

// runManualList is the handler for "bolsa-admin manual list".
func runManualList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if listSymbol == "" {
		dates, err := bolsa.MarketService.ListManualDates(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(out, dates)
		}
		if len(dates) == 0 {
			fmt.Fprintln(out, "No manual data")
			return nil
		}
		for _, d := range dates {
			fmt.Fprintln(out, d.Display())
		}
		return nil
	}

	from, err := models.ParseDate(listFrom)
	if err != nil {
		return err
	}
	to, err := models.ParseDate(listTo)
	if err != nil {
		return err
	}
	records, err := bolsa.MarketService.ManualSymbolRecords(cmd.Context(), listSymbol, from, to)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(out, records)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tSYMBOL\tPREVIOUS\tCURRENT\tCHANGE")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.2f\t%+.2f%%\n", r.Date.Display(), r.Symbol, r.PreviousPrice, r.CurrentPrice, r.PercentChange)
	}
	return tw.Flush()
}

// runManualVerify is the handler for "bolsa-admin manual verify [date]".
func runManualVerify(cmd *cobra.Command, args []string) error {
	date, err := models.ParseDate(args[0])
	if err != nil {
		return err
	}
	v, err := bolsa.MarketService.VerifyDate(cmd.Context(), date)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, v)
	}
	fmt.Fprintf(out, "%s\n", v.Date.Display())
	fmt.Fprintf(out, "  automatic: %d records, index %t\n", v.AutomaticRecords, v.AutomaticIndex)
	fmt.Fprintf(out, "  manual:    %d records, index %t\n", v.ManualRecords, v.ManualIndex)
	return nil
}

// runManualDelete is the handler for "bolsa-admin manual delete [date] [symbol]".
func runManualDelete(cmd *cobra.Command, args []string) error {
	date, err := models.ParseDate(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if len(args) == 2 {
		if err := bolsa.MarketService.DeleteManualRecord(cmd.Context(), date, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted %s on %s\n", models.NormalizeSymbol(args[1]), date.Display())
		return nil
	}

	n, err := bolsa.MarketService.DeleteManualDay(cmd.Context(), date)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted %d manual records on %s\n", n, date.Display())
	return nil
}
