package main

import (
	"os"

	"github.com/charmbracelet/log"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error("command failed", "err", err)
		os.Exit(1)
	}
}
