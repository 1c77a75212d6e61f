package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lmp-scraper/internal/api"
	"lmp-scraper/internal/config"
	"lmp-scraper/internal/logger"
	"lmp-scraper/internal/metrics"
	"lmp-scraper/internal/oasis"
	"lmp-scraper/internal/scrape"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfgPath := flag.String("config", os.Getenv("LMP_CONFIG"), "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	// Environment overrides file, as deployments set the port per instance.
	if port := os.Getenv("API_PORT"); port != "" {
		cfg.API.Port = port
	}

	log := logger.Must(cfg.Logging)
	defer func() { _ = log.Sync() }()

	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	client := oasis.NewClient(cfg.OASIS.BaseURL, cfg.OASIS.Timeout, log)
	if cfg.OASIS.Cache.Enabled {
		client.Cache = oasis.NewResponseCache(cfg.OASIS.Cache.TTL)
	}
	m := metrics.New()
	scraper := scrape.New(client, log,
		scrape.WithPacer(scrape.NewPacer(cfg.OASIS.RequestDelay)),
		scrape.WithMetrics(m))

	router := api.NewRouter(api.Deps{Config: cfg, Scraper: scraper, Metrics: m, Logger: log})

	srv := &http.Server{
		Addr:              ":" + cfg.API.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting API server",
			logger.String("addr", srv.Addr),
			logger.String("oasis", cfg.OASIS.BaseURL),
			logger.Bool("cache", cfg.OASIS.Cache.Enabled))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("Server failed", logger.Error(err))
			os.Exit(1)
		}
	case <-ctx.Done():
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Shutdown failed", logger.Error(err))
		}
	}
}
