package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/authcode/authcode-go/internal/client"
	"github.com/authcode/authcode-go/internal/config"
	"github.com/authcode/authcode-go/internal/email"
	"github.com/authcode/authcode-go/internal/logging"
	"github.com/authcode/authcode-go/internal/repository"
	"github.com/authcode/authcode-go/internal/server"
	"github.com/authcode/authcode-go/internal/service"
	"github.com/authcode/authcode-go/internal/ui"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg := config.Load()
	logging.Setup(os.Stdout, cfg.LogFormat, cfg.LogLevel)

	store, db, err := openStore(cfg)
	if err != nil {
		slog.Error("storage unavailable", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	sender, err := email.New(cfg.Email, cfg.Codes.TTL)
	if err != nil {
		slog.Error("email backend unavailable", "error", err)
		os.Exit(1)
	}

	authService := service.NewAuthService(store, sender, service.Options{
		Secret:            cfg.SecretKey,
		JWTSecret:         cfg.JWTSecret,
		JWTExpiry:         cfg.JWTExpiry,
		CodeTTL:           cfg.Codes.TTL,
		ResendCooldown:    cfg.Codes.ResendCooldown,
		Lockout:           cfg.Codes.Lockout,
		MaxAttempts:       cfg.Codes.MaxAttempts,
		MinPasswordLength: cfg.Codes.MinPasswordLength,
	})

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Sessions share one transport; each keeps its own cookies.
	apiHTTP := &http.Client{Timeout: 15 * time.Second}
	uiSessions := ui.NewSessions(cfg.UISessionIdle, func() ui.Poster {
		return client.New(cfg.APIBaseURL, client.WithHTTPClient(apiHTTP), client.WithUserAgent("authcode-web"))
	}, ui.WithMaxSessions(cfg.UIMaxSessions))
	go uiSessions.Run(ctx, time.Minute)

	handler := server.NewRouter(server.Deps{
		Auth:      authService,
		Cookies:   server.NewCookieStore(cfg.SecretKey, cfg.SessionCookieSecure),
		UI:        uiSessions,
		JWTSecret: cfg.JWTSecret,
		RateLimit: cfg.RateLimitRPS,
		RateBurst: cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver, "email", cfg.Email.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

// openStore returns the Store selected by STORE_DRIVER. db is nil for the
// memory store.
func openStore(cfg config.Config) (repository.Store, *sql.DB, error) {
	if cfg.StoreDriver == "memory" {
		slog.Warn("using in-memory store, data is lost on restart")
		return repository.NewMemoryStore(), nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if cfg.AutoCreate {
		if err := repository.EnsureDatabase(ctx, cfg.DatabaseDSN); err != nil {
			return nil, nil, err
		}
	}

	db, err := repository.NewDB(cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}

	if cfg.AutoCreate {
		if err := repository.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
	}

	return repository.NewSQLStore(db), db, nil
}
