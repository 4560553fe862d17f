package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/taskmind-dev/taskmind/db"
	"github.com/taskmind-dev/taskmind/internal/auth"
	"github.com/taskmind-dev/taskmind/internal/config"
	"github.com/taskmind-dev/taskmind/internal/handlers"
	"github.com/taskmind-dev/taskmind/internal/router"
	"github.com/taskmind-dev/taskmind/internal/scheduler"
	"github.com/taskmind-dev/taskmind/internal/services"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := auth.InitJWTSecret(); err != nil {
		log.Fatalf("auth: %v", err)
	}

	if err := db.ConnectDatabase(cfg.DatabaseURL); err != nil {
		log.Fatalf("db: %v", err)
	}

	if err := db.MigrateDatabase(); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	handlers.Parser = services.NewTaskParser(cfg.ParserAPIURL, cfg.ParserAPIKey, cfg.ParserModel)
	handlers.Payments = services.NewPaymentClient(cfg.PaymentAPIURL, cfg.PaymentAPIKey)
	handlers.PaymentWebhookSecret = cfg.PaymentWebhookSecret
	handlers.AppBaseURL = cfg.BaseURL

	if cfg.SchedulerEnabled {
		mailer := services.NewHTTPMailer(cfg.MailAPIURL, cfg.MailAPIKey, cfg.MailFrom)

		if err := scheduler.Initialize(cfg.Timezone, mailer, cfg.ReminderTime); err != nil {
			log.Fatalf("scheduler: %v", err)
		}
		defer scheduler.Shutdown()
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router.NewRouter(),
	}

	go func() {
		log.Printf("TaskMind listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}

	log.Println("Shutdown complete.")
}
