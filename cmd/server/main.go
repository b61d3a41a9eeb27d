package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/UserDirectory/cmd/server/factory"
	"github.com/UserDirectory/internal/app"
	"github.com/UserDirectory/internal/infra/tracing"
	transport "github.com/UserDirectory/internal/transport/http"
	"github.com/UserDirectory/pkg/config"
	"go.uber.org/fx"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	fx.New(
		fx.Provide(
			// Config
			factory.NewConfig,

			// Infrastructure
			factory.NewPageCache,
			factory.NewPageEventPublisher,
			factory.NewUsersFetcher,

			// Services
			factory.NewSessionRegistry,

			// HTTP Server
			transport.NewConfiguredRateLimiter,
			transport.NewHTTPServer,
		),
		fx.Invoke(
			SetupLogger,
			SetupTracer,
			WaitForReady, // Block until dependencies are ready
			RegisterHooks,
			StartServer,
		),
	).Run()
}

// --- Invokers ---

func SetupLogger(cfg *config.Config) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
}

func RegisterHooks(
	lc fx.Lifecycle,
	cfg *config.Config,
	limiter *transport.RateLimiter,
	registry *app.SessionRegistry,
) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go limiter.RunCleanup(ctx, time.Minute)
			if cfg.SessionIdleTimeout > 0 {
				go registry.RunSweeper(ctx, time.Minute, cfg.SessionIdleTimeout)
			}
			return nil
		},
		OnStop: func(_ context.Context) error {
			cancel()
			return nil
		},
	})
}

func SetupTracer(lc fx.Lifecycle, cfg *config.Config) error {
	if !cfg.TracingEnabled {
		tracing.Disable()
		return nil
	}

	ctx := context.Background()
	shutdown, err := tracing.InitTracer(ctx, cfg.ServiceName)
	if err != nil {
		slog.Error("Failed to initialize tracer", "error", err)
		return err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Info("Shutting down tracer provider")
			return shutdown(ctx)
		},
	})
	return nil
}

// WaitForReady blocks until all dependencies are ready.
func WaitForReady(cfg *config.Config) error {
	ctx := context.Background()
	waiter := app.NewReadinessWaiter(cfg.KafkaBrokers, cfg.KafkaPageEventsTopic)
	return waiter.WaitForDependencies(ctx)
}

func StartServer(lc fx.Lifecycle, server *http.Server) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				slog.Info("Starting user directory server", "address", server.Addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					slog.Error("HTTP server failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})
}
