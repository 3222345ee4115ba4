// main.go
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/kwehner/nyiso-scrape/config"
	"github.com/kwehner/nyiso-scrape/database"
	"github.com/kwehner/nyiso-scrape/handlers"
	"github.com/kwehner/nyiso-scrape/services"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default: standard locations)")
	backfill := flag.Bool("backfill", false, "run a backfill for -source over -from..-to, then exit")
	source := flag.String("source", "all", "source name for -backfill, or 'all'")
	fromStr := flag.String("from", "", "backfill range start, YYYY-MM-DD")
	toStr := flag.String("to", "", "backfill range end, YYYY-MM-DD (defaults to -from)")
	flag.Parse()

	// Missing .env is fine, credentials can come from the real environment.
	_ = godotenv.Load()

	if err := config.LoadConfig(*configPath); err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}
	setupLogging(config.AppConfig.Logging)
	log.Infof("Configuration loaded: %d sources (%d active), server port %s, DB %s",
		len(config.AppConfig.Sources), len(config.ActiveSources()),
		config.AppConfig.Server.Port, config.AppConfig.Database.DBName)

	if err := database.InitDB(config.AppConfig.Database); err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}
	defer database.CloseDB()

	if err := database.EnsureSchema(); err != nil {
		log.Fatalf("Error ensuring database schema: %v", err)
	}
	if err := database.EnsureSources(config.AppConfig.Sources); err != nil {
		log.Fatalf("Error syncing source registry: %v", err)
	}

	if *backfill {
		runBackfill(*source, *fromStr, *toStr)
		return
	}

	serve()
}

func setupLogging(cfg config.LoggingConfig) {
	log.SetFormatter(&log.TextFormatter{QuoteEmptyFields: true, FullTimestamp: true})
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		log.Warnf("Unknown log level %q, using info", cfg.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func runBackfill(source, fromStr, toStr string) {
	if fromStr == "" {
		log.Fatal("Backfill needs -from YYYY-MM-DD")
	}
	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		log.Fatalf("Invalid -from date %q: %v", fromStr, err)
	}
	to := from
	if toStr != "" {
		to, err = time.Parse("2006-01-02", toStr)
		if err != nil {
			log.Fatalf("Invalid -to date %q: %v", toStr, err)
		}
	}

	var summaries []services.BackfillSummary
	if source == "all" {
		summaries, err = services.BackfillAll(from, to)
	} else {
		var s *services.BackfillSummary
		s, err = services.BackfillRange(source, from, to)
		if s != nil {
			summaries = append(summaries, *s)
		}
	}
	if err != nil {
		log.Fatalf("Backfill failed: %v", err)
	}
	for _, s := range summaries {
		log.Infof("Backfill %s: %d days, %d completed, %d skipped, %d failed",
			s.SourceName, s.Days, s.Completed, s.Skipped, s.Failed)
	}
}

func serve() {
	var sched *services.Scheduler
	if config.AppConfig.Scheduler.Enabled {
		sched = services.NewScheduler()
		sched.Start()
	} else {
		log.Info("Scheduler disabled, only manual triggers will run")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", handlers.HealthCheckHandler)
	mux.HandleFunc("/api/admin/scrape", handlers.TriggerScrapeHandler)
	mux.HandleFunc("/api/admin/backfill", handlers.TriggerBackfillHandler)
	mux.HandleFunc("/api/jobs", handlers.GetJobsHandler)
	mux.HandleFunc("/api/jobs/latest", handlers.GetLatestJobHandler)
	mux.HandleFunc("/api/jobs/logs", handlers.GetJobLogsHandler)
	mux.HandleFunc("/api/sources", handlers.GetSourcesHandler)
	mux.HandleFunc("/api/zones", handlers.GetZonesHandler)
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    ":" + config.AppConfig.Server.Port,
		Handler: mux,
	}

	go func() {
		log.Infof("Server starting on http://localhost%s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Error starting server: %v", err)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	<-sigc
	log.Info("Shutdown signal received, draining...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP server shutdown: %v", err)
	}
	if sched != nil {
		sched.Stop()
	}
	log.Info("Shutdown complete")
}
