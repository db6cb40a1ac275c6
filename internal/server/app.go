// Package server initializes and runs the gatekeeper server. It opens the
// durable and ephemeral stores, runs schema migrations, wires the service
// graph and serves the HTTP API until the process is told to stop.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"

	"github.com/comfort-stereo/gatekeeper/internal/logging"
	"github.com/comfort-stereo/gatekeeper/internal/server/api"
	"github.com/comfort-stereo/gatekeeper/internal/server/config"
	"github.com/comfort-stereo/gatekeeper/internal/server/credentials"
	"github.com/comfort-stereo/gatekeeper/internal/server/email"
	"github.com/comfort-stereo/gatekeeper/internal/server/migrations"
	"github.com/comfort-stereo/gatekeeper/internal/server/repositories/users"
	"github.com/comfort-stereo/gatekeeper/internal/server/services"
	"github.com/comfort-stereo/gatekeeper/internal/server/sessions"
	"github.com/comfort-stereo/gatekeeper/internal/server/verification"
)

const (
	startupPingTimeout = 2 * time.Second
	shutdownTimeout    = 10 * time.Second
)

type App struct {
	config *config.Config
	logger logging.Logger
}

func NewApp(c *config.Config) *App {
	l := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	return &App{config: c, logger: logging.NewSlogLogger(l)}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// pingBackoff caps startup store pings at five fibonacci-spaced attempts.
func pingBackoff() retry.Backoff {
	return retry.WithMaxRetries(5, retry.NewFibonacci(500*time.Millisecond))
}

func (app *App) openDB(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("pgx", app.config.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	err = retry.Do(ctx, pingBackoff(), func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, startupPingTimeout)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			app.logger.Warn(ctx, "database not reachable yet", "error", err.Error())
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return db, nil
}

func (app *App) runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

func (app *App) openRedis(ctx context.Context) (*redis.Client, error) {
	opts, err := redis.ParseURL(app.config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis url error: %w", err)
	}
	client := redis.NewClient(opts)

	err = retry.Do(ctx, pingBackoff(), func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, startupPingTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			app.logger.Warn(ctx, "redis not reachable yet", "error", err.Error())
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping error: %w", err)
	}
	return client, nil
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc, handler http.Handler) {
	server := &http.Server{
		Addr:              app.config.EndpointAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "http shutdown error", "error", err.Error())
		}
	}()

	app.logger.Info(ctx, "http server listening", "addr", app.config.EndpointAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, "http server error", "error", err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app")
	app.initSignalHandler(cancelFunc)

	db, err := app.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := app.runMigrations(ctx, db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	redisClient, err := app.openRedis(ctx)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	userRepo := users.NewPostgresRepository(db)
	sessionStore := sessions.NewRedisStore(redisClient)
	codeStore := verification.NewRedisStore(redisClient)
	hasher := credentials.NewHasher(app.config.PasswordHashCost)
	notifier := email.NewSender(app.config.SMTPHost, app.config.SMTPPort,
		app.config.SMTPUsername, app.config.SMTPPassword, app.config.SMTPFrom)

	authService := services.NewAuthService(userRepo, sessionStore, codeStore,
		hasher, notifier, app.config, app.logger.With("module", "auth"))

	handler := api.NewHandler(authService, app.logger.With("module", "api"))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc, handler.Router())
	}()
	wg.Wait()

	app.logger.Info(ctx, "app stopped")
	return nil
}
