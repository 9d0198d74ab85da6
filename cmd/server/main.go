package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/example/shafran-auth/internal/config"
	"github.com/example/shafran-auth/internal/database"
	"github.com/example/shafran-auth/internal/repositories"
	"github.com/example/shafran-auth/internal/routes"
	"github.com/example/shafran-auth/internal/services"
	"github.com/example/shafran-auth/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	initLogging(cfg.LogLevel)

	users, closeStore, err := openUserStore(cfg)
	if err != nil {
		log.Fatalf("user store: %v", err)
	}
	defer closeStore()

	router, err := services.NewDeliveryRouter(cfg.SMS)
	if err != nil {
		log.Fatalf("sms providers: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := services.NewVerificationRegistry(nil, cfg.Verification.Cooldown, cfg.Verification.MaxAttempts)
	go registry.Run(ctx, cfg.Verification.SweepInterval)

	sessions := utils.NewSessionIssuer(cfg.JWTSecret, cfg.TokenExpires, nil)
	authService := services.NewAuthService(services.AuthDeps{
		Users:    users,
		Registry: registry,
		Sender:   router,
		Sessions: sessions,
		Notifier: services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat),
	}, cfg.Verification)

	app, err := routes.NewApp(cfg, authService, sessions)
	if err != nil {
		log.Fatalf("routes: %v", err)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("starting server", "port", cfg.AppPort, "sms_provider", router.Provider(), "db_driver", cfg.DBDriver)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatalf("fiber.Listen error: %v", err)
	}
}

func openUserStore(cfg *config.Config) (repositories.UserRepository, func(), error) {
	if cfg.DBDriver == "sqlite" {
		store, err := repositories.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return repositories.NewGormUserRepository(db), func() { _ = database.Close(db) }, nil
}

func initLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				a.Key = "ts"
			case slog.LevelKey:
				a.Key = "severity"
			}
			return a
		},
	})))
}
