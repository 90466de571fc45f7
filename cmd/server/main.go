package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"potd_engine/internal/api"
	"potd_engine/internal/app/competition"
	"potd_engine/internal/app/notify"
	"potd_engine/internal/app/service"
	"potd_engine/internal/app/worker"
	"potd_engine/internal/common/security"
	"potd_engine/internal/domain/repository"
	"potd_engine/internal/domain/repository/memory"
	"potd_engine/internal/platform/config"
	"potd_engine/internal/platform/database"
	"potd_engine/internal/platform/logger"
	"potd_engine/internal/platform/monitoring"
	"potd_engine/internal/platform/queue"
	"potd_engine/internal/platform/storage"

	"go.uber.org/zap"
)

func main() {
	// 1. Configuration and logging
	cfg, err := config.Load()
	if err != nil {
		// The logger is not configured yet.
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger.InitLogger(cfg)
	defer logger.SyncLogger()
	monitoring.Init()
	security.InitJWT()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Store
	var store *repository.Store
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		if err := database.MigrateFromDSN(ctx, cfg.DBConnStr); err != nil {
			logger.Log.Fatal("Failed to run migrations", zap.Error(err))
		}
		if err := database.Connect(ctx); err != nil {
			logger.Log.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer database.Close()
		store = repository.NewPgStore(database.DB)
	default:
		logger.Log.Warn("Using the in-memory store, state is lost on restart")
		store = memory.NewStore()
	}

	// 3. Image blobs
	var blobs storage.BlobStore
	if cfg.ImageStore == config.ImageStoreMinio {
		mb, err := storage.NewMinioBlobStore(ctx, cfg)
		if err != nil {
			logger.Log.Fatal("Failed to initialize MinIO", zap.Error(err))
		}
		blobs = mb
	}

	// 4. Notifications and the cross-process advance lock
	sender := notify.NewWebhookSender(cfg.NotificationHTTPTimeout)
	deliverer := notify.NewDeliverer(sender, cfg.Destinations, cfg.NotificationRatePerSec, cfg.NotificationBurst)

	var dispatcher notify.Dispatcher
	var advanceLock service.AdvanceLock
	var direct *notify.DirectDispatcher
	if cfg.RedisAddr != "" {
		if err := queue.ConnectRedis(ctx); err != nil {
			logger.Log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer queue.CloseRedis()
		dispatcher = notify.NewRedisOutbox(queue.RDB, cfg.NotificationQueueName)
		advanceLock = queue.NewRedisLocker(queue.RDB, cfg.AdvanceLockKey, time.Duration(cfg.AdvanceLockTTLSeconds)*time.Second)

		notificationWorker := worker.NewNotificationWorker(queue.RDB, cfg.NotificationQueueName, deliverer)
		go notificationWorker.Start(ctx)
	} else {
		direct = notify.NewDirectDispatcher(deliverer)
		dispatcher = direct
	}

	// 5. Services
	session := competition.NewSession()
	scoring := service.NewScoringService(store, cfg.BasePoints, nil)
	problems := service.NewProblemService(store, blobs)
	advance := service.NewAdvanceService(store, session, scoring, dispatcher, advanceLock, cfg.Destinations, cfg.Location, cfg.AdminIDs)
	svc := api.Services{
		Auth:        service.NewAuthService(store, cfg),
		Problems:    problems,
		Submissions: service.NewSubmissionService(store, session, scoring, problems, dispatcher, cfg.Destinations),
		Advance:     advance,
		Admin:       service.NewAdminService(store, scoring, blobs),
		Ratings:     service.NewRatingService(store, session),
		Leaderboard: service.NewLeaderboardService(store),
		Users:       service.NewUserService(store),
	}

	// 6. Daily scheduler
	hour, minute, _ := cfg.PostClock()
	go worker.NewScheduler(advance, cfg.Location, hour, minute).Start(ctx)

	// 7. HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      api.NewRouter(svc, cfg.CORSOrigins),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Log.Info("Server starting", zap.String("port", cfg.APIPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Could not listen", zap.String("port", cfg.APIPort), zap.Error(err))
		}
	}()

	<-stop

	logger.Log.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server shutdown failed", zap.Error(err))
	}
	if direct != nil {
		direct.Wait()
	}
	logger.Log.Info("Server and workers stopped")
}
