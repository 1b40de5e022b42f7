// Package server assembles the vault: configuration, logging, the
// PostgreSQL pool, optional Redis revocation store, the account service and
// the HTTP server, and runs it until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/axiscapital/vault/internal/cryptox"
	"github.com/axiscapital/vault/internal/logging"
	"github.com/axiscapital/vault/internal/server/auth"
	"github.com/axiscapital/vault/internal/server/config"
	"github.com/axiscapital/vault/internal/server/repositories/repomanager"
	"github.com/axiscapital/vault/internal/server/repositories/revocations"
	"github.com/axiscapital/vault/internal/server/rest"
	"github.com/axiscapital/vault/internal/server/services"
	"github.com/redis/go-redis/v9"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	redis    *redis.Client
	manager  repomanager.RepositoryManager
	accounts *services.AccountService
	metrics  *rest.Metrics
}

// seams for tests
var (
	openDB      = OpenDB
	openRedis   = revocations.NewClient
	argonParams = auth.DefaultArgon2Params
)

// OpenDB opens the PostgreSQL pool through the pgx stdlib driver and checks
// it is reachable.
func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open(repomanager.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// NewLogger builds the process logger from cfg, writing to out.
func NewLogger(cfg *config.Config, out io.Writer) (logging.Logger, error) {
	return logging.New(logging.Options{
		Format: cfg.LogFormat,
		Level:  cfg.LogLevel,
		Env:    cfg.Env,
		Output: out,
	})
}

// NewApp validates cfg and builds every dependency. Key material is checked
// before any connection is opened so a bad key never reaches the database.
func NewApp(ctx context.Context, cfg *config.Config, out io.Writer) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg, out)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	cipher, err := cryptox.NewSecretCipher(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenCodec([]byte(cfg.JWTSecretKey), cfg.JWTAlgorithm, cfg.AccessTokenTTL)
	if err != nil {
		return nil, err
	}

	db, err := openDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app := &App{
		config:  cfg,
		logger:  logger,
		db:      db,
		manager: repomanager.NewPostgresRepositoryManager(),
		metrics: rest.NewMetrics(),
	}

	var revoked revocations.Repository
	if cfg.RedisURL != "" {
		rc, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		app.redis = rc
		revoked = revocations.NewRedisRepository(rc)
		logger.Info(ctx, "token revocation enabled")
	} else {
		logger.Info(ctx, "token revocation disabled, tokens are stateless")
	}

	accounts, err := services.NewAccountService(db, app.manager, auth.NewArgon2Hasher(argonParams()), tokens, cipher, revoked, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.accounts = accounts

	return app, nil
}

// Migrate applies pending schema migrations, mirroring the table creation
// the service performs on startup.
func (app *App) Migrate(ctx context.Context) error {
	if err := app.manager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

func (app *App) Accounts() *services.AccountService { return app.accounts }

func (app *App) Logger() logging.Logger { return app.logger }

// Close releases the database pool and the Redis client.
func (app *App) Close() error {
	var errs []error
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
	}
	if app.db != nil {
		errs = append(errs, app.db.Close())
	}
	return errors.Join(errs...)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) error {
	s := rest.NewServer(app.config.HTTPAddr, app.accounts, app.db, app.metrics, app.logger, app.config.RequestTimeout)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server failed", "error", err)
		cancelFunc()
		return err
	}
	return nil
}

// Run serves HTTP until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting vault", "addr", app.config.HTTPAddr, "env", app.config.Env)

	app.initSignalHandler(cancelFunc)

	var (
		wg     sync.WaitGroup
		runErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		runErr = app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.logger.Info(context.Background(), "vault stopped")
	return runErr
}
