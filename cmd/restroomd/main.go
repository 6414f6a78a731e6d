package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"restroom-status-backend/config"
	"restroom-status-backend/internal/api"
	"restroom-status-backend/internal/db"
	"restroom-status-backend/internal/live"
	"restroom-status-backend/internal/notification"
	"restroom-status-backend/internal/occupancy"
	"restroom-status-backend/internal/store"
)

func main() {
	logger := log.New(os.Stdout, "restroom-backend ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	loc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		logger.Fatalf("invalid timezone %q: %v", cfg.App.Timezone, err)
	}

	var webpushOptions *webpush.Options
	if cfg.Push.Enabled {
		if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
			logger.Fatalf("push is enabled but VAPID keys are not configured")
		}
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	if err := db.SeedFacilities(gormDB, cfg.App.Facilities); err != nil {
		logger.Fatalf("failed to seed facilities: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	broker := live.NewBroker()

	synchronizer := live.NewSynchronizer(appStore, broker, loc)
	go func() {
		if err := synchronizer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("live view synchronizer stopped: %v", err)
		}
	}()

	var notifier occupancy.Notifier
	if webpushOptions != nil {
		workerPool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions)
		workerPool.Start(ctx)
		notifier = workerPool
	}

	protocol := occupancy.NewProtocol(appStore, broker, notifier)

	handler := api.NewHandler(appStore, protocol, broker, synchronizer, webpushOptions, cfg.App.GroupLabels, loc)
	router := api.NewRouter(handler, api.RouterConfig{
		RateLimitPerSec: cfg.Server.RateLimitPerSec,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
		CacheTTL:        time.Duration(cfg.Server.CacheTTLSeconds) * time.Second,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
