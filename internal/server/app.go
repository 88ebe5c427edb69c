// Package server wires the backend together: PostgreSQL storage, the S3
// object store, the change listener and the gRPC front end.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/socialhub/internal/logging"
	"github.com/dmitrijs2005/socialhub/internal/realtime"
	"github.com/dmitrijs2005/socialhub/internal/server/config"
	gs "github.com/dmitrijs2005/socialhub/internal/server/grpc"
	listener "github.com/dmitrijs2005/socialhub/internal/server/realtime"
	"github.com/dmitrijs2005/socialhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/socialhub/internal/server/services"
	"golang.org/x/sync/errgroup"
)

// openDB is a seam for tests.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

// Runner is a long-running part of the app.
type Runner interface {
	Run(ctx context.Context) error
}

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	runners []Runner
}

// NewApp connects to the database, applies migrations and builds every
// service. The returned App owns the database handle.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogFormat, c.LogLevel)

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	storage, err := services.NewStorageService(ctx, c, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	hub := realtime.NewHub()
	users := services.NewUserService(db, rm, c, logger)
	records := services.NewRecordService(db, rm, logger)

	return &App{
		config: c,
		logger: logger,
		db:     db,
		runners: []Runner{
			gs.NewGRPCServer(c.EndpointAddrGRPC, logger, users, records, storage, hub),
			listener.NewListener(c.DatabaseDSN, records, hub, logger),
		},
	}, nil
}

// Run blocks until a runner fails or the process is signalled.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "Starting app...")

	g, ctx := errgroup.WithContext(ctx)
	for _, r := range app.runners {
		g.Go(func() error { return r.Run(ctx) })
	}
	err := g.Wait()

	app.logger.Info(ctx, "App stopped")
	if cerr := app.db.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
