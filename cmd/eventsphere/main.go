package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/dukerupert/eventsphere/internal/apperr"
	"github.com/dukerupert/eventsphere/internal/config"
	"github.com/dukerupert/eventsphere/internal/database"
	"github.com/dukerupert/eventsphere/internal/email"
	"github.com/dukerupert/eventsphere/internal/logging"
	"github.com/dukerupert/eventsphere/internal/media"
	"github.com/dukerupert/eventsphere/internal/server"
	"github.com/dukerupert/eventsphere/internal/service"
	"github.com/dukerupert/eventsphere/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if len(os.Args) > 1 && os.Args[1] == "seed-admin" {
		if err := seedAdmin(cfg, logger, os.Args[2:]); err != nil {
			slog.Error("seed admin", "error", err)
			os.Exit(1)
		}
		return
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	emailClient := email.NewClient(cfg.PostmarkToken, cfg.EmailFrom, cfg.FrontendURL, email.WithLocation(cfg.Location))
	if !emailClient.Configured() {
		slog.Warn("postmark not configured, emails will not be sent")
	}
	images := media.New(cfg.S3)
	if images == nil {
		slog.Warn("s3 not configured, image uploads disabled")
	}

	srv := server.New(db, cfg, emailClient, images, logger)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	srv.ReminderScheduler().Start(ctx)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Background cleanup goroutine
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := srv.UserStore().ClearExpiredResetTokens(time.Now()); err != nil {
					slog.Error("clear expired reset tokens", "error", err)
				} else if n > 0 {
					slog.Info("cleared expired reset tokens", "count", n)
				}
				srv.RateLimiter().Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		slog.Info("eventsphere starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	srv.ReminderScheduler().Stop()
	srv.RSVPService().Wait()
}

// seedAdmin creates the first admin account so the API can be bootstrapped
// without direct database access.
func seedAdmin(cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("seed-admin", flag.ContinueOnError)
	name := fs.String("name", os.Getenv("ADMIN_NAME"), "admin display name")
	addr := fs.String("email", os.Getenv("ADMIN_EMAIL"), "admin email")
	password := fs.String("password", os.Getenv("ADMIN_PASSWORD"), "admin password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	users := service.NewUserService(store.NewUserStore(db), nil, logger)
	u, err := users.CreateAdmin(service.CreateAdminInput{
		Name:     *name,
		Email:    *addr,
		Password: *password,
	}, service.Actor{})
	if apperr.Is(err, apperr.KindConflict) {
		slog.Info("admin already exists", "email", *addr)
		return nil
	}
	if err != nil {
		return err
	}
	slog.Info("admin created", "user_id", u.ID, "email", u.Email)
	return nil
}
