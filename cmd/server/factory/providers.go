package factory

import (
	"fmt"
	"log/slog"

	"github.com/UserDirectory/internal/domain"
	"github.com/UserDirectory/internal/infra/fetcher"
	"github.com/UserDirectory/internal/infra/transformer"
	"github.com/UserDirectory/pkg/config"
)

// NewUsersFetcher creates the listing fetcher with the configured decoder.
func NewUsersFetcher(cfg *config.Config) (domain.Fetcher, error) {
	tr, err := transformer.GetTransformer(cfg.Decoder)
	if err != nil {
		return nil, fmt.Errorf("users decoder: %w", err)
	}

	f := fetcher.NewHTTPFetcher(cfg.UsersBaseURL, tr, fetcher.Options{Timeout: cfg.FetchTimeout})
	slog.Info("Registered users fetcher",
		"base_url", cfg.UsersBaseURL,
		"decoder", cfg.Decoder,
		"page_size", cfg.PageSize,
		"timeout", cfg.FetchTimeout)
	return f, nil
}
