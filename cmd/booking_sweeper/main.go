package main

import (
	"context"
	"flag"
	"time"

	"github.com/joho/godotenv"

	"tourbooking/internal/config"
	"tourbooking/internal/database"
	"tourbooking/internal/domain/booking"
	"tourbooking/internal/domain/catalog"
	"tourbooking/internal/domain/notification"
	"tourbooking/internal/logger"
)

// booking_sweeper is meant for cron: it completes confirmed bookings whose
// tour date has passed and prunes the notification delivery log.
func main() {
	retention := flag.Duration("delivery-retention", 90*24*time.Hour, "delete delivery log rows older than this")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config_invalid", "error", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db_connect_failed", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// the sweep never notifies anyone, so the log mailer is enough
	dispatcher := notification.NewEmailDispatcher(notification.LogMailer{}, cfg.OwnerEmail)
	svc := booking.NewService(booking.NewRepository(db), catalog.NewRepository(db), dispatcher)

	completed, err := svc.CompletePast(ctx)
	if err != nil {
		logger.Fatal("complete_past_failed", "error", err, "completed", completed)
	}

	pruned, err := notification.NewDeliveryRepository(db).DeleteOlderThan(ctx, *retention)
	if err != nil {
		logger.Fatal("delivery_prune_failed", "error", err)
	}

	logger.Get().Info("booking_sweep_completed", "completed", completed, "deliveries_pruned", pruned)
}
