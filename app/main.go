package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/event-comb/app/aggregator"
	"github.com/lysyi3m/event-comb/app/api"
	"github.com/lysyi3m/event-comb/app/browser"
	"github.com/lysyi3m/event-comb/app/cfg"
	"github.com/lysyi3m/event-comb/app/database"
	"github.com/lysyi3m/event-comb/app/event"
	"github.com/lysyi3m/event-comb/app/queue"
	"github.com/lysyi3m/event-comb/app/robots"
	"github.com/lysyi3m/event-comb/app/scrapers"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Event Comb server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	migrationVersion, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "migration_version", migrationVersion, "dirty", dirty)

	platformConfigs, err := scrapers.LoadPlatformConfigs(appCfg.PlatformsFile)
	if err != nil {
		slog.Error("Failed to load platform configurations", "path", appCfg.PlatformsFile, "error", err)
		os.Exit(1)
	}
	slog.Info("Platform configurations loaded", "platforms", len(platformConfigs))

	client := scrapers.NewClient(appCfg.UserAgent, appCfg.OutboundRPS)
	checker := robots.NewChecker(client.HTTPClient(), appCfg.UserAgent)

	pool := browser.NewPool(appCfg.BrowserEnabled, appCfg.UserAgent)
	defer pool.Shutdown()

	requests := queue.New()
	defer requests.Stop()

	enricher := scrapers.NewEnricher(client, requests)

	var adapters []scrapers.Scraper
	for name, pc := range platformConfigs {
		if !pc.Enabled {
			slog.Info("Platform disabled", "platform", name)
			continue
		}

		requests.Configure(name, pc.Limits())

		switch event.Platform(name) {
		case event.PlatformAllEvents:
			adapters = append(adapters, scrapers.NewAllEvents(pc, client, checker, requests, enricher))
		case event.PlatformInsider:
			adapters = append(adapters, scrapers.NewInsider(pc, client, checker, requests))
		case event.PlatformBookMyShow:
			adapters = append(adapters, scrapers.NewBookMyShow(pc, checker, requests, pool))
		case event.PlatformFeedCal:
			adapters = append(adapters, scrapers.NewFeedCal(pc, client, checker, requests))
		default:
			slog.Warn("Unknown platform in configuration, skipping", "platform", name)
		}
	}
	slog.Info("Scrapers initialized", "enabled", len(adapters))

	repo := database.NewEventRepository(db)
	harvester := aggregator.New(adapters, event.NewValidator(), event.NewDeduplicator(), repo)

	if appCfg.HarvestOnStart {
		go harvester.Run(context.Background(), event.FetchConfig{
			City:           appCfg.DefaultCity,
			Limit:          appCfg.DefaultLimit,
			FullValidation: appCfg.FullValidation,
		})
	}

	apiHandler := api.NewHandler(harvester, repo, appCfg.DefaultCity, appCfg.DefaultLimit, appCfg.FullValidation)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // harvest runs synchronously inside a request
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Queue and browser pool are stopped via defer
	slog.Info("Shutdown complete")
}
