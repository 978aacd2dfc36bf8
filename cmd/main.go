package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"

	"campusride/api"
	"campusride/config"
	"campusride/pkg/auth"
	"campusride/pkg/bot"
	"campusride/pkg/logger"
	"campusride/pkg/presence"
	"campusride/pkg/relay"
	"campusride/service"
	"campusride/storage"
	"campusride/storage/memory"
	"campusride/storage/postgres"
	"campusride/storage/redis"
)

func main() {
	// 1. Config and logger
	cfg := config.Load()
	log := logger.New(cfg.ServiceName, cfg.LoggerLevel)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Storage
	stg, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open storage", logger.Error(err))
		os.Exit(1)
	}
	defer stg.Close()

	// 3. Optional location cache
	var (
		cache  presence.LocationCache
		nearby api.NearbyFinder
	)
	if cfg.RedisEnabled() {
		lc, err := redis.New(ctx, cfg, log)
		if err != nil {
			log.Warning("location cache disabled", logger.Error(err))
		} else {
			defer func() { _ = lc.Close() }()
			cache, nearby = lc, lc
		}
	}

	// 4. Realtime state and services
	hub := relay.NewHub(log)
	registry := presence.New(stg.Driver(), cache, log)
	tokens := auth.NewIssuer(cfg.JWTSecret, cfg.JWTExpiry)

	notifier := &lateNotifier{}
	svc := service.New(stg, service.Options{
		Tokens:   tokens,
		Relay:    hub,
		Sessions: registry,
		Notifier: notifier,
	}, log)

	if err := svc.Admin().EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Error("failed to ensure admin account", logger.Error(err))
		os.Exit(1)
	}

	// 5. Optional Telegram admin bot
	if cfg.AdminBotToken != "" && cfg.AdminID != 0 {
		reviewer := adminAccountID(ctx, stg, cfg, log)
		adminBot, err := bot.New(bot.Options{
			Token:      cfg.AdminBotToken,
			ChatID:     cfg.AdminID,
			ReviewerID: reviewer,
		}, svc.Admin(), log)
		if err != nil {
			log.Warning("admin bot disabled", logger.Error(err))
		} else {
			notifier.set(adminBot)
			go adminBot.Start()
			defer adminBot.Stop()
		}
	}

	// 6. HTTP server
	if cfg.LoggerLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Options{
		Services: svc,
		Hub:      hub,
		Presence: registry,
		Tokens:   tokens,
		Nearby:   nearby,
		Log:      log,
	})
	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.AppPort),
		Handler: router,
	}

	go func() {
		log.Info("http server listening", logger.Int("port", cfg.AppPort), logger.String("storage", cfg.StorageDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", logger.Error(err))
			stop()
		}
	}()

	// 7. Graceful shutdown
	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", logger.Error(err))
	}
}

func openStorage(ctx context.Context, cfg config.Config, log logger.ILogger) (storage.IStorage, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		log.Warning("using in-memory storage, data is lost on restart")
		return memory.New(), nil
	}
	pg, err := postgres.New(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return pg, nil
}

func adminAccountID(ctx context.Context, stg storage.IStorage, cfg config.Config, log logger.ILogger) int64 {
	if cfg.AdminEmail == "" {
		return 0
	}
	u, err := stg.User().GetByEmail(ctx, cfg.AdminEmail)
	if err != nil || u == nil {
		log.Warning("admin account not found, driver reviews disabled in bot", logger.String("email", cfg.AdminEmail))
		return 0
	}
	return u.ID
}
