package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/app"
	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/clock"
	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/config"
	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/idempotency"
	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/storage/memory"
	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/storage/postgres"
	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/telemetry"
	transporthttp "github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/transport/http"
	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/migrations"
)

const startupTimeout = 5 * time.Second

type eventStore interface {
	app.EventRepository
	app.SaleRepository
}

// repositories groups the store-specific implementations of the app ports.
type repositories struct {
	events   eventStore
	tickets  app.LedgerRepository
	resales  app.ResaleRepository
	accounts app.AccountRepository
	pinger   transporthttp.Pinger
	close    func()
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	config.LoadDotEnv(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("load config")
	}
	if cfg.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	shutdownTracing, err := telemetry.Setup(startupCtx, telemetry.Options{
		Enabled:  cfg.OTELEnabled,
		Endpoint: cfg.OTELEndpoint,
	})
	if err != nil {
		logger.WithError(err).Fatal("setup tracing")
	}

	repos, err := openRepositories(startupCtx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("open store")
	}
	defer repos.close()

	clk := clock.NewSystem()
	ledger := app.NewLedger(repos.tickets, clk)
	sales := app.NewSaleService(repos.events, ledger, repos.accounts, clk,
		app.WithWalletLimit(cfg.MintLimitPerWallet))
	resales := app.NewResaleService(repos.resales, repos.events, ledger, repos.accounts, clk,
		app.WithHoldingPeriod(cfg.HoldingPeriod),
		app.WithMaxMarkupBps(cfg.ResaleMaxMarkupBps))

	svc := transporthttp.Services{
		Events:   app.NewEventService(repos.events, clk),
		Sales:    sales,
		Ledger:   ledger,
		Resales:  resales,
		Accounts: app.NewAccountService(repos.accounts),
	}

	pingers := []transporthttp.Pinger{repos.pinger}
	if cfg.RedisURL != "" {
		client, err := idempotency.NewRedisClient(cfg.RedisURL)
		if err != nil {
			logger.WithError(err).Fatal("redis client")
		}
		defer client.Close()
		if err := client.Ping(startupCtx).Err(); err != nil {
			logger.WithError(err).Fatal("redis ping")
		}
		svc.Dedup = idempotency.NewRedisDeduper(client, cfg.IdempotencyTTL)
		pingers = append(pingers, transporthttp.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}))
		logger.WithField("ttl", cfg.IdempotencyTTL.String()).Info("idempotency keys enabled")
	} else {
		logger.Warn("REDIS_URL not set, Idempotency-Key headers are ignored")
	}

	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set, trusting X-Caller-ID header")
	}

	handler := transporthttp.NewRouter(svc, transporthttp.RouterConfig{
		CORSOrigins: cfg.CORSOrigins,
		Auth:        transporthttp.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer),
		Logger:      logger,
		Pingers:     pingers,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.WithFields(logrus.Fields{
		"port":    cfg.Port,
		"backend": cfg.StoreBackend,
	}).Info("api listening")

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("server error")
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Error("server shutdown error")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.WithError(err).Warn("tracing shutdown")
	}
	logger.Info("server stopped")
}

func openRepositories(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (repositories, error) {
	if cfg.StoreBackend == config.BackendMemory {
		logger.Warn("using in-memory store, records are lost on restart")
		store := memory.New()
		return repositories{
			events:   store,
			tickets:  store,
			resales:  store,
			accounts: store,
			close:    func() {},
		}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return repositories{}, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return repositories{}, err
	}
	applied, err := migrations.Apply(ctx, pool)
	if err != nil {
		pool.Close()
		return repositories{}, err
	}
	for _, name := range applied {
		logger.WithField("migration", name).Info("applied migration")
	}

	return repositories{
		events:   postgres.NewEventRepository(pool),
		tickets:  postgres.NewTicketRepository(pool),
		resales:  postgres.NewResaleRepository(pool),
		accounts: postgres.NewAccountRepository(pool),
		pinger:   pool,
		close:    pool.Close,
	}, nil
}
