package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spektr-org/tally/engine"
)

var (
	askLocation string
	askRole     string
)

var askCmd = &cobra.Command{
	Use:   "ask <text>",
	Short: "Ask a question or log stats in plain language",
	Long: `Ask runs one utterance through the engine. Questions are answered from
the stats history; sentences with numbers are logged.

Examples:
  tally ask "south campus had 145 people, 8 new visitors"
  tally ask "average attendance at barker this quarter"
  tally ask "compare south vs barker this year" --format pretty`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askLocation, "location", "", "Location hint when the text names none")
	askCmd.Flags().StringVar(&askRole, "role", "", "Caller role, mapped to a default location by config")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
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

	req := engine.Request{
		Text:         strings.Join(args, " "),
		LocationHint: askLocation,
		CallerRole:   askRole,
	}
	resp := a.engine.Handle(ctx, req, a.source)
	return writeResponse(cmd.OutOrStdout(), resp, format)
}
