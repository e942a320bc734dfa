package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// runFXImport is the handler for "bolsa-admin fx import [xlsx]".
func runFXImport(cmd *cobra.Command, args []string) error {
	n, err := bolsa.FXService.ImportWorkbook(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d exchange rates from %s\n", n, args[0])
	return nil
}
