package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"finitefield.org/retail-console/internal/api"
	"finitefield.org/retail-console/internal/app"
	"finitefield.org/retail-console/internal/format"
	"finitefield.org/retail-console/internal/httpserver"
	"finitefield.org/retail-console/internal/platform/config"
	"finitefield.org/retail-console/internal/platform/observability"
	"finitefield.org/retail-console/internal/session"
	"finitefield.org/retail-console/internal/transport"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	baseLogger, err := observability.NewLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("console")
	ctx = observability.WithLogger(ctx, logger)

	store, closeStore, err := buildStore(ctx, cfg.Session, logger)
	if err != nil {
		logger.Fatal("failed to initialise session store", zap.Error(err))
	}
	defer closeStore()

	view := app.NewView(logger)
	tc, err := transport.New(cfg.API.BaseURL,
		transport.WithNotifier(view),
		transport.WithTimeout(cfg.API.Timeout),
		transport.WithLogger(logger),
	)
	if err != nil {
		logger.Fatal("failed to initialise api client", zap.Error(err))
	}

	state, err := app.New(app.Deps{
		API:             api.New(tc),
		Store:           store,
		View:            view,
		Formatter:       format.New(cfg.Display.CurrencySymbol, cfg.Display.Language),
		Logger:          logger,
		Tracer:          otel.Tracer("finitefield.org/retail-console"),
		LowStockLimit:   cfg.Dashboard.LowStockLimit,
		TopSpenderLimit: cfg.Dashboard.TopSpenderLimit,
		OrdersPageSize:  cfg.Orders.PageSize,
	})
	if err != nil {
		logger.Fatal("failed to initialise console state", zap.Error(err))
	}

	restored, err := state.Restore(ctx)
	if err != nil {
		logger.Warn("session restore failed", zap.Error(err))
	}
	logger.Info("session restored", zap.Bool("authenticated", restored))

	srv := httpserver.New(httpserver.Config{
		Address:      cfg.Server.Address,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		Logger:       logger,
	}, state)

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	logger.Info("console listening",
		zap.String("address", cfg.Server.Address),
		zap.String("api", cfg.API.BaseURL),
		zap.String("sessionStore", cfg.Session.Store),
	)

	<-sigCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return
	}
	logger.Info("console stopped")
}

func buildStore(ctx context.Context, cfg config.SessionConfig, logger *zap.Logger) (session.Store, func(), error) {
	noop := func() {}
	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn("using in-memory session store; sessions will not survive restarts")
		return session.NewMemoryStore(), noop, nil
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
		}
		store, err := session.NewRedisStore(client, cfg.RedisPrefix, cfg.MaxAge)
		if err != nil {
			_ = client.Close()
			return nil, noop, err
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				logger.Warn("redis close error", zap.Error(err))
			}
		}
		return store, closeFn, nil
	default:
		store, err := session.NewFileStore(cfg.FilePath, []byte(cfg.HashKey), []byte(cfg.BlockKey), cfg.MaxAge)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil
	}
}
