package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tripplan_app_echo/internal/config"
	"tripplan_app_echo/internal/services"
	"tripplan_app_echo/internal/tasks"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	db, err := services.InitDB(cfg.DatabaseURL, false)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	mailer := services.NewEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.EmailFrom)
	if !mailer.Configured() {
		log.Println("Warning: SMTP not configured, invitation emails will fail and be retried")
	}

	purge := tasks.NewPurgeDeletedPlansTask(cfg.PurgeRetentionDays)
	tasks.DefineTasks(tasks.GlobalRegistry,
		purge,
		tasks.NewSendInvitationTask(mailer, cfg.AppURL, logger),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	created, err := tasks.EnsurePurgeTask(ctx, db, purge)
	if err != nil {
		log.Fatalf("Failed to schedule purge task: %v", err)
	}
	if created {
		log.Println("Scheduled daily purge of deleted plans")
	}

	log.Printf("Worker started, checking every %s", cfg.WorkerInterval)
	tasks.NewRunner(db, tasks.GlobalRegistry, logger).Loop(ctx, cfg.WorkerInterval)
	log.Println("Worker stopped")
}
