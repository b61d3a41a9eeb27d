package factory

import (
	"context"
	"errors"

	"github.com/UserDirectory/internal/app"
	"github.com/UserDirectory/internal/domain"
	"github.com/UserDirectory/pkg/config"
	"go.uber.org/fx"
)

// NewConfig loads and validates the configuration.
func NewConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewSessionRegistry creates the screen registry with validation.
func NewSessionRegistry(
	fetcher domain.Fetcher,
	cache domain.PageCache,
	publisher domain.PageEventPublisher,
	cfg *config.Config,
	lc fx.Lifecycle,
) (*app.SessionRegistry, error) {
	if fetcher == nil {
		return nil, errors.New("users fetcher is nil")
	}
	if cache == nil {
		return nil, errors.New("page cache is nil")
	}

	registry := app.NewSessionRegistry(fetcher, cache, publisher, cfg.PageSize, cfg.SearchDebounce)
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			registry.Close()
			return nil
		},
	})
	return registry, nil
}
