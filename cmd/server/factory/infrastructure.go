// Package factory provides dependency injection constructors for infrastructure components.
package factory

import (
	"context"
	"log/slog"

	"github.com/UserDirectory/internal/domain"
	"github.com/UserDirectory/internal/infra/cache"
	"github.com/UserDirectory/internal/infra/queue"
	"github.com/UserDirectory/pkg/config"
	"go.uber.org/fx"
)

// NewPageCache creates the process-wide page cache shared by all screens.
func NewPageCache() domain.PageCache {
	return cache.NewMemoryPageCache()
}

// NewPageEventPublisher creates the Kafka page event producer, or a no-op
// publisher when no brokers are configured.
func NewPageEventPublisher(cfg *config.Config, lc fx.Lifecycle) domain.PageEventPublisher {
	if !cfg.PageEventsEnabled() {
		slog.Info("Page events disabled, no kafka brokers configured")
		return queue.NoopPublisher{}
	}

	producer := queue.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaPageEventsTopic)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return producer.Close()
		},
	})
	slog.Info("Publishing page events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaPageEventsTopic)
	return producer
}
