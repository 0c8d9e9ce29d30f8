// Package server wires configuration, storage, services and the gRPC
// endpoint together and runs them until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/axiomvault/internal/logging"
	"github.com/dmitrijs2005/axiomvault/internal/server/config"
	"github.com/dmitrijs2005/axiomvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/axiomvault/internal/server/services"
	"github.com/dmitrijs2005/axiomvault/internal/server/storage"
	"github.com/dmitrijs2005/axiomvault/internal/timex"
	_ "github.com/jackc/pgx/v5/stdlib"

	gs "github.com/dmitrijs2005/axiomvault/internal/server/grpc"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	services gs.Services
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	store, err := storage.NewS3Store(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	clock := timex.SystemClock
	pc := c.Policy()

	tokens := services.NewTokenService(db, rm, c, clock)
	svc := gs.Services{
		Tokens:   tokens,
		Auth:     services.NewAuthService(db, rm, pc, tokens, clock, logger),
		Accounts: services.NewAccountService(db, rm, pc, c.SecretKey, clock, logger),
		Recovery: services.NewRecoveryService(db, rm, c, clock, logger),
		Admin:    services.NewAdminService(db, rm, pc, clock, logger),
		Files:    services.NewFileService(db, rm, store, clock, logger),
	}

	return &App{config: c, logger: logger, db: db, services: svc}, nil
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

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.services, gs.Options{
		AuthRateLimit: app.config.AuthRateLimit,
		AuthRateBurst: app.config.AuthRateBurst,
	})

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
