package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"lmp-scraper/internal/config"
	"lmp-scraper/internal/logger"
	"lmp-scraper/internal/metrics"
	"lmp-scraper/internal/oasis"
	"lmp-scraper/internal/scrape"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// app carries what the subcommands share once flags are parsed.
type app struct {
	configPath string
	logLevel   string

	cfg *config.Config
	log logger.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "lmp",
		Short:        "Download CAISO OASIS locational marginal prices over a date range",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", os.Getenv("LMP_CONFIG"), "Path to YAML config")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")

	root.AddCommand(
		newFetchCommand(a),
		newPlanCommand(a),
		newMarketsCommand(),
		newNodesCommand(a),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	log, err := logger.New(cfg.Logging)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	return nil
}

// newScraper wires the OASIS client, the optional response cache and the
// pacer from the loaded config.
func (a *app) newScraper(m *metrics.Metrics) *scrape.Scraper {
	client := oasis.NewClient(a.cfg.OASIS.BaseURL, a.cfg.OASIS.Timeout, a.log)
	if a.cfg.OASIS.Cache.Enabled {
		client.Cache = oasis.NewResponseCache(a.cfg.OASIS.Cache.TTL)
	}
	return scrape.New(client, a.log,
		scrape.WithPacer(scrape.NewPacer(a.cfg.OASIS.RequestDelay)),
		scrape.WithMetrics(m))
}
