package main

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/spektr-org/tally/catalog"
	"github.com/spektr-org/tally/config"
	"github.com/spektr-org/tally/engine"
	"github.com/spektr-org/tally/logging"
	"github.com/spektr-org/tally/narrator"
	"github.com/spektr-org/tally/store"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

var (
	configPath string
	formatFlag string
	fileFlag   string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "tally",
	Short: "Tally - church attendance stats from plain sentences",
	Long: `Tally extracts weekly ministry stats from sentences like
"south campus had 145 people, 8 new visitors" and answers questions
such as "average attendance at barker this quarter" from the stats history.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("tally version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to tally.yaml (default: ./tally.yaml or $HOME/.tally/tally.yaml)")
	rootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "text", "Output format: json, pretty, text, csv")
	rootCmd.PersistentFlags().StringVar(&fileFlag, "file", "", "Read history from a CSV or JSON export instead of the store")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
}

// app is everything a command needs, built from config.
type app struct {
	cfg      *config.Config
	logger   *log.Logger
	engine   *engine.Engine
	source   engine.RowSource
	fallback *store.Fallback
	closers  []io.Closer
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i].Close()
	}
}

// loadApp reads config, sets up logging, and wires the engine to its
// history source, recorder and narrator.
func loadApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if fileFlag != "" {
		cfg.Store.File = fileFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, logCloser, err := logging.Init(cfg.Logging)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, closers: []io.Closer{logCloser}}

	locations, err := cfg.LocationCatalog()
	if err != nil {
		a.Close()
		return nil, err
	}
	policy, _ := cfg.UndatedPolicy()

	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithRoleDefaults(cfg.Roles),
		engine.WithUndatedPolicy(policy),
	}

	if err := a.wireStore(); err != nil {
		a.Close()
		return nil, err
	}
	if a.fallback != nil {
		opts = append(opts, engine.WithRecorder(a.fallback))
	}

	if cfg.Narrator.Enabled() {
		ncfg := cfg.Narrator
		if ncfg.Church == "" {
			ncfg.Church = cfg.Church
		}
		opts = append(opts, engine.WithNarrator(narrator.NewGemini(ncfg, narrator.WithLogger(logger))))
	}

	a.engine = engine.New(catalog.DefaultMetrics(), locations, opts...)
	return a, nil
}

// wireStore picks the history source: an export file when one is named,
// otherwise the remote store backed by the local cache.
func (a *app) wireStore() error {
	sc := a.cfg.Store
	if sc.File != "" {
		a.source = store.File{Path: sc.File}
		return nil
	}

	var cache *store.Cache
	if sc.CachePath != "" {
		c, err := store.OpenCache(sc.CachePath)
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		cache = c
		a.closers = append(a.closers, c)
	}

	var remote *store.Remote
	if sc.URL != "" {
		remote = store.NewRemote(sc.URL, sc.Token, store.WithHTTPClient(&http.Client{Timeout: sc.Timeout}))
	}

	if cache == nil && remote == nil {
		a.logger.Warn("no store configured, answering from empty history")
		a.source = engine.StaticRows(nil)
		return nil
	}
	a.fallback = store.NewFallback(remote, cache, a.logger)
	a.source = a.fallback
	return nil
}

// requestTimeout bounds one request: a remote read plus a write-back.
func (a *app) requestTimeout() time.Duration {
	if a.cfg.Store.Timeout <= 0 {
		return time.Minute
	}
	return 2 * a.cfg.Store.Timeout
}
