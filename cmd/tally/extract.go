package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/spektr-org/tally/engine"
)

var extractCmd = &cobra.Command{
	Use:   "extract <text>",
	Short: "Show the stats a sentence contains without recording them",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

// extractOutput is the json shape of tally extract.
type extractOutput struct {
	Text      string         `json:"text"`
	Location  string         `json:"location,omitempty"`
	Extracted map[string]int `json:"extracted"`
	Missing   []string       `json:"missing_suggestions,omitempty"`
}

func runExtract(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(formatFlag)
	if err != nil {
		return err
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	text := strings.Join(args, " ")
	extracted := a.engine.Extract(text)
	out := extractOutput{
		Text:      text,
		Extracted: extracted,
		Missing:   engine.MissingSuggestions(extracted, a.engine.Metrics()),
	}
	if m := a.engine.ResolveLocation(text); m.Found() {
		out.Location = a.engine.Locations().DisplayName(m.ID)
	}
	return writeExtract(cmd.OutOrStdout(), out, a.engine.Metrics(), format)
}
