package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/go-radar-alerts/internal/api"
	"github.com/mr1hm/go-radar-alerts/internal/classifier"
	"github.com/mr1hm/go-radar-alerts/internal/config"
	"github.com/mr1hm/go-radar-alerts/internal/eventsink"
	"github.com/mr1hm/go-radar-alerts/internal/ingestion"
	"github.com/mr1hm/go-radar-alerts/internal/live"
	"github.com/mr1hm/go-radar-alerts/internal/logging"
	"github.com/mr1hm/go-radar-alerts/internal/moderation"
	"github.com/mr1hm/go-radar-alerts/internal/notify"
	"github.com/mr1hm/go-radar-alerts/internal/observability"
	"github.com/mr1hm/go-radar-alerts/internal/pipeline"
	"github.com/mr1hm/go-radar-alerts/internal/registry"
	"github.com/mr1hm/go-radar-alerts/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logFile, err := logging.Setup(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		logging.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	reg, err := loadRegistry(cfg.Registry.Path)
	if err != nil {
		logging.Fatalf("Failed to load region registry: %v", err)
	}

	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	// Fan-out: live view and optional kafka sink first, then subscribers
	hub := live.NewHub(metrics)
	liveSvc := live.NewService(hub, db)

	publishers := []notify.Publisher{liveSvc}
	var sink *eventsink.Writer
	if cfg.Kafka.Enabled() {
		sink = eventsink.NewWriter(cfg.Kafka)
		publishers = append(publishers, sink)
		slog.Info("kafka sink enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	var sender notify.Sender = notify.LogSender{}
	if cfg.Telegram.BotToken != "" {
		sender = notify.NewTelegramSender(cfg.Telegram.APIURL, cfg.Telegram.BotToken, cfg.Telegram.MapURL, cfg.Telegram.DeliveryTimeout)
	} else {
		slog.Warn("BOT_TOKEN not set, notifications are only logged")
	}

	fanout := notify.NewFanOut(db, sender, notify.FanOutConfig{
		Pause:           cfg.Telegram.DeliveryPause,
		DeliveryTimeout: cfg.Telegram.DeliveryTimeout,
	}, metrics, publishers...)

	dispatcher := notify.NewDispatcher(fanout, cfg.Worker.Count, cfg.Worker.BufferSize)
	notifyCtx, notifyCancel := context.WithCancel(context.Background())
	defer notifyCancel()
	dispatcher.Start(notifyCtx)

	// Pipeline
	oracle := classifier.FromConfig(cfg.Oracle, reg, metrics)
	reconciler := pipeline.NewReconciler(db, clock, metrics)
	processor := pipeline.NewProcessor(reg, oracle, reconciler, dispatcher, metrics)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var bg sync.WaitGroup
	bg.Add(1)
	go func() {
		defer bg.Done()
		liveSvc.RunReconciler(ctx, cfg.Live.SnapshotInterval)
	}()

	channels := cfg.Feed.Channels
	if len(channels) == 0 {
		channels = reg.Channels()
	}
	feed := ingestion.NewTelegramFeed(cfg.Feed.BaseURL, cfg.Feed.Timeout)
	mgr := ingestion.NewManager(cfg, channels, feed, processor, metrics)
	mgr.Start(ctx)

	store := moderation.NewStore(cfg.Moderation.ReportTTL, cfg.Moderation.MaxPending, clock)
	modSvc := moderation.NewService(store, db, processor, fanout, reg, cfg.Moderation.AdminUserIDs)

	// Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", api.AdminHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // Set to false when using wildcard origins
	}))
	router.Use(api.RateLimitMiddleware(cfg.Server.RateLimit))

	handler := api.NewHandler(db, reg, mgr, modSvc, liveSvc.ServeWS)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// Stop producing work before draining notifications
	cancel()
	mgr.Stop()
	bg.Wait()

	dispatcher.Stop()
	notifyCancel()
	if sink != nil {
		if err := sink.Close(); err != nil {
			slog.Error("kafka sink close error", "error", err)
		}
	}
	hub.Close() // Close all live connections gracefully

	slog.Info("shutdown complete")
}

func loadRegistry(path string) (*registry.Registry, error) {
	if path == "" {
		return registry.Default()
	}
	return registry.Load(path)
}
