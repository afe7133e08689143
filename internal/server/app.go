// Package server wires configuration, storage and services together and runs
// the HTTP API and the gRPC health server until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/diagnexus/internal/buildinfo"
	"github.com/dmitrijs2005/diagnexus/internal/common"
	"github.com/dmitrijs2005/diagnexus/internal/logging"
	"github.com/dmitrijs2005/diagnexus/internal/server/config"
	"github.com/dmitrijs2005/diagnexus/internal/server/idempotency"
	"github.com/dmitrijs2005/diagnexus/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/diagnexus/internal/server/rest"
	"github.com/dmitrijs2005/diagnexus/internal/server/services"
	"github.com/dmitrijs2005/diagnexus/internal/server/storage"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/diagnexus/internal/server/grpc"
)

const healthInterval = 15 * time.Second

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	redis      *redis.Client
	httpServer *rest.HTTPServer
	grpcServer *gs.GRPCServer
}

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

func openDB(c *config.Config) (*sql.DB, error) {
	db, err := sqlOpen("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(c.DBMaxOpenConns)
	db.SetMaxIdleConns(c.DBMaxIdleConns)
	db.SetConnMaxIdleTime(c.DBConnMaxIdleTime)
	return db, nil
}

// newIdempotencyStore picks Redis when an address is configured and an
// a bounded in-process cache otherwise.
func newIdempotencyStore(ctx context.Context, c *config.Config) (idempotency.Store, *redis.Client, error) {
	if c.RedisAddr == "" {
		return idempotency.NewMemoryStore(c.IdempotencyTTL, idempotency.DefaultMemoryEntries), nil, nil
	}
	rc, err := idempotency.Connect(ctx, c.RedisAddr, c.RedisPassword, c.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	return idempotency.NewRedisStore(rc, c.IdempotencyTTL), rc, nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.New(c.LogBackend, c.LogLevel, os.Stdout)

	if c.SecretKey == "" {
		key, err := common.MakeRandHexString(32)
		if err != nil {
			return nil, fmt.Errorf("generate secret key: %w", err)
		}
		c.SecretKey = key
		logger.Warn(ctx, "secret key is not configured, using a random one; sessions will not survive a restart")
	}

	db, err := openDB(c)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	store, err := storage.NewS3Store(ctx, c, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	idem, rc, err := newIdempotencyStore(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("redis init error: %w", err)
	}

	as := services.NewAuthService(db, m, c)
	acs := services.NewAccountService(db, m, c)
	rs := services.NewReportService(db, m, store, idem, c)

	if c.SeedDemoData {
		n, err := acs.SeedDemoData(ctx)
		if err != nil {
			logger.Warn(ctx, "demo data seeding failed", "error", err)
		} else if n > 0 {
			logger.Info(ctx, "demo accounts created", "count", n)
		}
	}

	h := rest.NewHandler(rest.Deps{
		Auth:          as,
		Accounts:      acs,
		Reports:       rs,
		Objects:       store,
		DatabaseProbe: db.PingContext,
		StorageProbe:  store.Ping,
		Logger:        logger,
		Version:       buildinfo.Version(),
	})

	probes := map[string]gs.Probe{
		"database": db.PingContext,
		"storage":  store.Ping,
	}

	return &App{
		config:     c,
		logger:     logger,
		db:         db,
		redis:      rc,
		httpServer: rest.NewHTTPServer(c.HTTPAddr, rest.NewRouter(h), logger),
		grpcServer: gs.NewGRPCServer(c.GRPCAddr, logger, probes, healthInterval),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// runServer runs fn and cancels the whole app when it fails.
func (app *App) runServer(ctx context.Context, cancelFunc context.CancelFunc, name string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		app.logger.Error(ctx, name+" server failed", "error", err)
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "version", buildinfo.Version())

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.runServer(ctx, cancelFunc, "http", app.httpServer.Run)
	}()
	go func() {
		defer wg.Done()
		app.runServer(ctx, cancelFunc, "grpc", app.grpcServer.Run)
	}()

	wg.Wait()

	app.close(context.WithoutCancel(ctx))
}

func (app *App) close(ctx context.Context) {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(ctx, "redis close", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Warn(ctx, "db close", "error", err)
		}
	}
	app.logger.Info(ctx, "App stopped")
}
