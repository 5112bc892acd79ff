package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/spektr-org/tally/helpers"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump the stats history as CSV or JSON",
	Long: `Export reads the history the engine would answer from (store, cache
or --file) and writes it out. Text and csv formats both produce CSV.`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	format, err := parseFormat(formatFlag)
	if err != nil {
		return err
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), a.requestTimeout())
	defer cancel()

	rows, err := a.source.Rows(ctx)
	if err != nil {
		return err
	}
	a.logger.Debug("exporting", "rows", len(rows))

	switch format {
	case "json", "pretty":
		return writeJSON(cmd.OutOrStdout(), rows, format)
	}
	return helpers.WriteRowsCSV(cmd.OutOrStdout(), rows)
}
