package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/palletops/warehouse-monitor/internal/anomaly"
	"github.com/palletops/warehouse-monitor/internal/api"
	"github.com/palletops/warehouse-monitor/internal/config"
	"github.com/palletops/warehouse-monitor/internal/dashboard"
	"github.com/palletops/warehouse-monitor/internal/dataservice"
	"github.com/palletops/warehouse-monitor/internal/storage"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.DataService.BaseURL == "" {
		log.Fatalf("data_service.base_url (or DATA_SERVICE_URL) is required")
	}

	client := dataservice.NewClient(cfg.DataService)
	store := dashboard.NewStore()

	opts := dashboard.Options{
		Debounce:         cfg.Refresh.Debounce(),
		ProcessingWindow: cfg.Refresh.ProcessingWindow(),
		PollInterval:     cfg.Refresh.PollInterval(),
		PollMaxAttempts:  cfg.Refresh.PollMaxAttempts,
		Scoring:          anomaly.ScoreOptions{HourlyRate: cfg.Scoring.HourlyRate},
		Fallback: dashboard.FallbackSplit{
			CriticalPct: cfg.Scoring.FallbackCriticalPct,
			ReviewPct:   cfg.Scoring.FallbackReviewPct,
			ResolvedPct: cfg.Scoring.FallbackResolvedPct,
		},
	}
	if cfg.Scoring.HighRiskLocation != "" {
		re, err := regexp.Compile(cfg.Scoring.HighRiskLocation)
		if err != nil {
			log.Printf("[main] invalid scoring.high_risk_location %q, using default: %v",
				cfg.Scoring.HighRiskLocation, err)
		} else {
			opts.Scoring.HighRiskLocation = re
		}
	}

	// Optional Redis snapshot cache for warm starts.
	var cache *storage.SnapshotCache
	if cfg.Storage.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.Storage.RedisAddr,
			DB:   cfg.Storage.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Printf("[main] redis unreachable at %s, snapshot cache disabled: %v", cfg.Storage.RedisAddr, err)
		} else {
			cache = storage.NewSnapshotCache(rdb, cfg.Storage.SnapshotTTL())
			opts.Cache = cache
			log.Printf("[main] snapshot cache enabled (redis %s)", cfg.Storage.RedisAddr)
		}
		cancel()
	}

	// Optional Postgres cycle history.
	var history *storage.CycleHistory
	if cfg.Storage.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.Storage.DatabaseURL)
		if err != nil {
			log.Printf("[main] postgres open failed, cycle history disabled: %v", err)
		} else {
			db.SetMaxOpenConns(10)
			history = storage.NewCycleHistory(db)
			opts.Recorder = history
			log.Printf("[main] cycle history enabled")
		}
	}

	controller := dashboard.NewController(client, store, opts)

	// Warm start: render the last committed snapshot (generation zero, so
	// the first real refresh always supersedes it) while the first cycle runs.
	if cache != nil {
		warmCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if snap, err := cache.Load(warmCtx); err == nil {
			store.CommitReady(0, snap)
			log.Printf("[main] warm-started from cached snapshot (fetched %s)", snap.FetchedAt.Format(time.RFC3339))
		} else if !errors.Is(err, storage.ErrCacheMiss) {
			log.Printf("[main] warm start skipped: %v", err)
		}
		cancel()
	}

	handlers := api.NewHandlers(store, controller, client, historyOrNil(history))
	router := api.SetupRoutes(handlers, cfg.Server.AllowedOrigins)

	// Kick off the first refresh before serving so the dashboard has data
	// shortly after startup.
	controller.Refresh()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("[main] warehouse monitor listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[main] shutting down...")
	controller.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] server shutdown: %v", err)
	}
	log.Println("[main] stopped")
}

// historyOrNil keeps the typed-nil *CycleHistory from masquerading as a
// non-nil api.History interface value.
func historyOrNil(h *storage.CycleHistory) api.History {
	if h == nil {
		return nil
	}
	return h
}
