package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/UserDirectory/internal/domain"
	"github.com/UserDirectory/internal/infra/metrics"
	"github.com/UserDirectory/pkg/logging"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// HTTPFetcher loads pages from GET <base>/users?_page=&_limit=.
// It never retries; a failed page is surfaced to the caller as a
// domain.FetchError.
type HTTPFetcher struct {
	baseURL     string
	client      *http.Client
	transformer domain.Transformer
	cb          *gobreaker.CircuitBreaker
	sampler     *logging.ErrorSampler
}

var _ domain.Fetcher = (*HTTPFetcher)(nil)

// Options tunes an HTTPFetcher. The zero value is usable.
type Options struct {
	// Timeout bounds a single request. Zero leaves the request unbounded.
	Timeout time.Duration
	// TripAfter opens the circuit after this many consecutive network
	// failures. Defaults to 3.
	TripAfter uint32
	// OpenFor is how long the circuit stays open before probing again.
	// Defaults to 30s.
	OpenFor time.Duration
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

func NewHTTPFetcher(baseURL string, transformer domain.Transformer, opts Options) *HTTPFetcher {
	if opts.TripAfter == 0 {
		opts.TripAfter = 3
	}
	if opts.OpenFor == 0 {
		opts.OpenFor = 30 * time.Second
	}

	tripAfter := opts.TripAfter
	cbSettings := gobreaker.Settings{
		Name:        "users-listing",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     opts.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= tripAfter
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("CircuitBreaker state changed", "name", name, "from", from, "to", to)
		},
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	return &HTTPFetcher{
		baseURL:     baseURL,
		client:      client,
		transformer: transformer,
		cb:          gobreaker.NewCircuitBreaker(cbSettings),
		sampler:     logging.NewErrorSampler(10),
	}
}

// PageURL returns the listing URL for cursor and pageSize.
func (f *HTTPFetcher) PageURL(cursor, pageSize int) (string, error) {
	endpoint, err := url.JoinPath(f.baseURL, "users")
	if err != nil {
		return "", fmt.Errorf("invalid users base URL %q: %w", f.baseURL, err)
	}
	query := url.Values{}
	query.Set("_page", strconv.Itoa(cursor))
	query.Set("_limit", strconv.Itoa(pageSize))
	return endpoint + "?" + query.Encode(), nil
}

func (f *HTTPFetcher) FetchPage(ctx context.Context, cursor, pageSize int) (domain.Page, error) {
	tr := otel.Tracer("user-directory")
	ctx, span := tr.Start(ctx, "FetchPage")
	defer span.End()
	span.SetAttributes(attribute.Int("cursor", cursor), attribute.Int("page_size", pageSize))

	start := time.Now()
	page, err := f.fetch(ctx, cursor, pageSize)
	metrics.FetchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		kind := domain.KindOf(err)
		metrics.PagesFetched.WithLabelValues(string(kind)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))
		if ok, count := f.sampler.ShouldLog(string(kind)); ok {
			slog.Warn("Page fetch failed", "cursor", cursor, "kind", kind, "occurrences", count, "error", err)
		}
		return nil, err
	}

	f.sampler.Reset(string(domain.NetworkError))
	f.sampler.Reset(string(domain.ParseError))
	metrics.PagesFetched.WithLabelValues("success").Inc()
	span.SetAttributes(attribute.Int("users", len(page)))
	slog.Debug("Fetched page", "cursor", cursor, "page_size", pageSize, "users", len(page))
	return page, nil
}

func (f *HTTPFetcher) fetch(ctx context.Context, cursor, pageSize int) (domain.Page, error) {
	pageURL, err := f.PageURL(cursor, pageSize)
	if err != nil {
		return nil, domain.NewNetworkError(cursor, 0, err)
	}

	// Only transport failures and bad statuses count against the circuit
	result, err := f.cb.Execute(func() (interface{}, error) {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if reqErr != nil {
			return nil, domain.NewNetworkError(cursor, 0, fmt.Errorf("failed to create request: %w", reqErr))
		}
		req.Header.Set("Accept", "application/json")

		resp, respErr := f.client.Do(req)
		if respErr != nil {
			return nil, domain.NewNetworkError(cursor, 0, respErr)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			if err := resp.Body.Close(); err != nil {
				slog.Warn("Failed to close response body", "error", err)
			}
			return nil, domain.NewNetworkError(cursor, resp.StatusCode, fmt.Errorf("listing returned status %d", resp.StatusCode))
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, domain.NewNetworkError(cursor, 0, fmt.Errorf("circuit breaker: %w", err))
		}
		return nil, err
	}

	resp := result.(*http.Response)
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("Failed to close response body", "error", err)
		}
	}()

	users, err := f.transformer.Transform(resp.Body)
	if err != nil {
		return nil, domain.NewParseError(cursor, err)
	}
	return domain.Page(users), nil
}
