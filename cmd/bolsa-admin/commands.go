package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/bolsa/internal/app"
	"github.com/bobmcallan/bolsa/internal/common"
)

// --- Global Command Variables ---
var (
	configPath string
	jsonOutput bool

	// bolsa is the App opened for the running command.
	bolsa *app.App

	rootCmd = &cobra.Command{
		Use:           "bolsa-admin",
		Version:       common.GetFullVersion(),
		Short:         "Administer the Bolsa market data store",
		Long:          `bolsa-admin loads archived sessions, manages manual overrides and imports exchange rates against the configured store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				path = os.Getenv("BOLSA_CONFIG")
			}
			if bolsa != nil {
				bolsa.Close()
			}
			a, err := app.NewApp(path)
			if err != nil {
				return fmt.Errorf("failed to open bolsa: %w", err)
			}
			bolsa = a
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if bolsa != nil {
				bolsa.Close()
				bolsa = nil
			}
		},
	}

	// --- Store ---
	loadArchiveCmd = &cobra.Command{
		Use:   "load-archive",
		Short: "Load archived .dat sessions missing from the store",
		Args:  cobra.NoArgs,
		RunE:  runLoadArchive, // Defined in cmd_market.go
	}
	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show store counts and cache state",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}
	resolveCmd = &cobra.Command{
		Use:   "resolve [date]",
		Short: "Resolve one session through store, archive and remote",
		Args:  cobra.ExactArgs(1),
		RunE:  runResolve,
	}

	// --- Manual overrides ---
	manualCmd = &cobra.Command{
		Use:   "manual",
		Short: "Manage manually entered records",
	}
	manualAddCmd = &cobra.Command{
		Use:   "add",
		Short: "Add or replace one manual record",
		Args:  cobra.NoArgs,
		RunE:  runManualAdd, // Defined in cmd_manual.go
	}
	manualListCmd = &cobra.Command{
		Use:   "list",
		Short: "List dates with manual data, or one symbol's manual records",
		Args:  cobra.NoArgs,
		RunE:  runManualList,
	}
	manualVerifyCmd = &cobra.Command{
		Use:   "verify [date]",
		Short: "Show what the automatic and manual partitions hold for a date",
		Args:  cobra.ExactArgs(1),
		RunE:  runManualVerify,
	}
	manualDeleteCmd = &cobra.Command{
		Use:   "delete [date] [symbol]",
		Short: "Delete a manual day, or one symbol within it",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runManualDelete,
	}

	// --- Exchange rates ---
	fxCmd = &cobra.Command{
		Use:   "fx",
		Short: "Manage official exchange rates",
	}
	fxImportCmd = &cobra.Command{
		Use:   "import [xlsx]",
		Short: "Import exchange rates from a workbook",
		Args:  cobra.ExactArgs(1),
		RunE:  runFXImport, // Defined in cmd_fx.go
	}
)

var (
	loadLimit int

	manualDate   string
	manualSymbol string
	manualName   string
	manualPrev   float64
	manualPrice  float64
	manualQty    int64
	manualAmount float64

	listSymbol string
	listFrom   string
	listTo     string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to bolsa.toml (defaults to BOLSA_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")

	rootCmd.AddCommand(loadArchiveCmd)
	loadArchiveCmd.Flags().IntVar(&loadLimit, "limit", 0, "Load only the N most recent missing dates (0 loads all)")

	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(resolveCmd)

	rootCmd.AddCommand(manualCmd)
	manualCmd.AddCommand(manualAddCmd)
	manualCmd.AddCommand(manualListCmd)
	manualCmd.AddCommand(manualVerifyCmd)
	manualCmd.AddCommand(manualDeleteCmd)

	manualAddCmd.Flags().StringVar(&manualDate, "date", "", "Session date (YYYYMMDD or YYYY-MM-DD)")
	manualAddCmd.Flags().StringVar(&manualSymbol, "symbol", "", "Ticker symbol")
	manualAddCmd.Flags().StringVar(&manualName, "name", "", "Display name (defaults to the stored name)")
	manualAddCmd.Flags().Float64Var(&manualPrev, "prev", 0, "Previous closing price")
	manualAddCmd.Flags().Float64Var(&manualPrice, "price", 0, "Current price")
	manualAddCmd.Flags().Int64Var(&manualQty, "qty", 0, "Traded quantity")
	manualAddCmd.Flags().Float64Var(&manualAmount, "amount", 0, "Traded amount")
	manualAddCmd.MarkFlagRequired("date")
	manualAddCmd.MarkFlagRequired("symbol")
	manualAddCmd.MarkFlagRequired("price")

	manualListCmd.Flags().StringVar(&listSymbol, "symbol", "", "List this symbol's manual records")
	manualListCmd.Flags().StringVar(&listFrom, "from", "19000101", "Range start for --symbol")
	manualListCmd.Flags().StringVar(&listTo, "to", "29991231", "Range end for --symbol")

	rootCmd.AddCommand(fxCmd)
	fxCmd.AddCommand(fxImportCmd)
}

// printJSON writes v indented to w.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
