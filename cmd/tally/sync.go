package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push pending logged stats and refresh the local cache",
	RunE:  runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if a.fallback == nil {
		return fmt.Errorf("sync needs store.url and store.cache_path in config")
	}
	res, err := a.fallback.Sync(cmd.Context())
	if err != nil {
		return err
	}

	switch formatFlag {
	case "json", "pretty":
		return writeJSON(cmd.OutOrStdout(), res, formatFlag)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "pushed %d, still pending %d, pulled %d rows\n", res.Pushed, res.Pending, res.Pulled)
	return nil
}
