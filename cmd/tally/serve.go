package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spektr-org/tally/server"
)

var (
	serveAddr    string
	serveOrigins []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the engine over HTTP",
	Long: `Serve exposes:
  POST /v1/ask      {"text": "...", "location_hint": "...", "caller_role": "..."}
  POST /v1/extract  {"text": "..."}
  GET  /health`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, :8080)")
	serveCmd.Flags().StringSliceVar(&serveOrigins, "cors-origin", nil, "Allowed CORS origin (repeatable)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv := server.New(a.engine, a.source,
		server.WithLogger(a.logger),
		server.WithAllowedOrigins(serveOrigins...),
		server.WithRequestTimeout(a.requestTimeout()),
		server.WithVersion(Version),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx, addr)
}
