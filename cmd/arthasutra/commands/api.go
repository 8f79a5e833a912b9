package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/arthasutra/backend/internal/analytics"
	"github.com/arthasutra/backend/internal/api"
	"github.com/arthasutra/backend/internal/api/handlers"
	"github.com/arthasutra/backend/internal/dashboard"
	"github.com/arthasutra/backend/internal/decision"
	"github.com/arthasutra/backend/internal/feed"
	"github.com/arthasutra/backend/internal/importer"
	"github.com/arthasutra/backend/internal/live"
	"github.com/arthasutra/backend/internal/market"
	"github.com/arthasutra/backend/internal/marketdata/scrape"
	"github.com/arthasutra/backend/internal/marketdata/yahoo"
	"github.com/arthasutra/backend/internal/scheduler"
	"github.com/arthasutra/backend/internal/scheduler/jobs"
	"github.com/arthasutra/backend/internal/store/postgres"
	"github.com/arthasutra/backend/pkg/config"
	"github.com/arthasutra/backend/pkg/database"
	"github.com/arthasutra/backend/pkg/httputil"
	"github.com/arthasutra/backend/pkg/logger"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the REST API server together with the live quote feeds and
the nightly EOD sync job.

Endpoints:
  GET    /healthz
  POST   /portfolios
  GET    /portfolios
  DELETE /portfolios/{id}
  POST   /portfolios/{id}/import-csv
  GET    /portfolios/{id}/positions
  GET    /portfolios/{id}/dashboard
  POST   /data/prices-eod/import-csv
  POST   /data/prices-eod/fetch
  GET    /feeds/stats

Example:
  go run ./cmd/arthasutra api
  go run ./cmd/arthasutra api --port 8080`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	log.Info("Connected to database")

	repos := postgres.NewRepos(db.Pool)

	clock, err := market.NewClock(cfg.Market.Timezone)
	if err != nil {
		return fmt.Errorf("load market timezone: %w", err)
	}

	// Market data clients
	httpClient := httputil.New(log)
	yahooClient := yahoo.NewClient(httpClient, cfg.Yahoo.BaseURL, log)
	scraper := scrape.NewClient(httpClient, "", log)

	// Valuation core
	quotes := live.NewCache(log)
	valuator := analytics.NewValuator(
		repos.Securities, repos.Holdings, repos.Bars, quotes,
		clock, cfg.Market.Freshness(), log,
	)
	engine := decision.NewEngine(repos.Securities, repos.Holdings, repos.Bars, log)
	composer := dashboard.NewComposer(repos.Portfolios, repos.Holdings, valuator, engine, log)
	importerSvc := importer.NewService(repos.Securities, repos.Holdings, repos.Lots, repos.Bars, log)

	// Live feeds
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feeds := feed.NewManager(cfg, quotes, repos.Securities, yahooClient, scraper, clock, log)
	feeds.Start(ctx)
	defer feeds.Stop()

	// Nightly EOD sync
	sched := scheduler.New(clock.Location(), log)
	if err := sched.AddJob(jobs.NewEODSyncJob(yahooClient, repos.Securities, repos.Bars, log)); err != nil {
		return fmt.Errorf("register eod sync job: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	// HTTP surface
	onImport := func() { feeds.RefreshSubscriptions(ctx) }
	portfolioHandler := handlers.NewPortfolioHandler(repos.Portfolios, composer, importerSvc, onImport, log)
	dataHandler := handlers.NewDataHandler(importerSvc, yahooClient, repos.Securities, repos.Bars, log)
	feedsHandler := handlers.NewFeedsHandler(feeds, log)

	router := api.NewRouter(portfolioHandler, dataHandler, feedsHandler, log)
	server := api.New(cfg, log, router)

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
