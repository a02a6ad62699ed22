package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"tourbooking/internal/config"
	"tourbooking/internal/database"
	"tourbooking/internal/domain/auth"
	"tourbooking/internal/domain/booking"
	"tourbooking/internal/domain/catalog"
	"tourbooking/internal/domain/chat"
	"tourbooking/internal/domain/notification"
	"tourbooking/internal/logger"
	"tourbooking/internal/metrics"
	jwtsvc "tourbooking/internal/pkg/jwt"
	"tourbooking/internal/server"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config_invalid", "error", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db_connect_failed", "error", err)
	}
	if err := database.Migrate(db, allModels()...); err != nil {
		logger.Fatal("db_migrate_failed", "error", err)
	}

	reg := metrics.New()
	dispatcher := notification.NewEmailDispatcher(newMailer(cfg), cfg.OwnerEmail,
		notification.WithDeliveryLog(notification.NewDeliveryRepository(db)),
		notification.WithMetrics(reg),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := chat.NewHub(reg)
	if cfg.RedisURL != "" {
		rdb, err := chat.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis_connect_failed", "error", err)
		}
		defer rdb.Close()

		relay := chat.NewRelay(rdb, hub)
		go func() {
			if err := relay.Run(ctx); err != nil {
				logger.Get().Error("chat_relay_stopped", "error", err)
			}
		}()
	}

	router := server.NewRouter(server.Deps{
		DB:           db,
		JWT:          jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL),
		Metrics:      reg,
		Dispatcher:   dispatcher,
		Hub:          hub,
		CORSOrigins:  cfg.CORSAllowedOrigins,
		MetricsToken: cfg.MetricsToken,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Get().Info("server_starting", "addr", cfg.HTTPAddr, "env", cfg.AppEnv, "mail_enabled", cfg.MailEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server_failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Get().Info("server_shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Get().Error("server_forced_shutdown", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	logger.Get().Info("server_stopped")
	os.Exit(0)
}

func newMailer(cfg *config.Config) notification.Mailer {
	if !cfg.MailEnabled() {
		logger.Get().Warn("mail_api_key_missing", "fallback", "log")
		return notification.LogMailer{}
	}
	return notification.NewHTTPMailer(cfg.MailAPIURL, cfg.MailAPIKey, cfg.MailFrom, cfg.MailTimeout)
}

func allModels() []any {
	var models []any
	models = append(models, auth.Models()...)
	models = append(models, catalog.Models()...)
	models = append(models, booking.Models()...)
	models = append(models, chat.Models()...)
	models = append(models, notification.Models()...)
	return models
}
