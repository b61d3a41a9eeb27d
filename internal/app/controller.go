package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/UserDirectory/internal/domain"
	"github.com/UserDirectory/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// State is a point-in-time view of a list screen's pagination.
type State struct {
	Cursor           int
	HasMore          bool
	Accumulated      []domain.User
	IsLoadingInitial bool
	IsLoadingMore    bool
	IsRefreshing     bool
	LastError        error
}

// Controller drives one list screen: it owns the cursor, the deduplicated
// list of users loaded so far and the loading flags.
//
// The mutex is never held across a fetch. Every fetch is tagged with the
// epoch it was issued in; Refresh starts a new epoch so that results from
// fetches issued before it are dropped, neither applied nor cached.
type Controller struct {
	fetcher   domain.Fetcher
	cache     domain.PageCache
	publisher domain.PageEventPublisher
	pageSize  int
	sessionID string

	mu      sync.Mutex
	state   State
	seen    map[int]struct{}
	epoch   uint64
	mounted bool
	// LastError came from Refresh, so Retry must refresh again
	refreshFailed bool
}

type ControllerOption func(*Controller)

// WithPublisher sends a PageLoadedEvent for every applied page.
func WithPublisher(p domain.PageEventPublisher) ControllerOption {
	return func(c *Controller) { c.publisher = p }
}

// WithSessionID tags logs and events with the owning session.
func WithSessionID(id string) ControllerOption {
	return func(c *Controller) { c.sessionID = id }
}

func NewController(fetcher domain.Fetcher, cache domain.PageCache, pageSize int, opts ...ControllerOption) *Controller {
	c := &Controller{
		fetcher:  fetcher,
		cache:    cache,
		pageSize: pageSize,
		state: State{
			Cursor:           1,
			HasMore:          true,
			IsLoadingInitial: true,
		},
		seen: make(map[int]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mount performs the initial load. Calls after the first are no-ops.
func (c *Controller) Mount(ctx context.Context) error {
	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return nil
	}
	c.mounted = true
	c.mu.Unlock()

	return c.load(ctx, true)
}

// LoadMore fetches the page at the current cursor and appends it. It does
// nothing while another load or a refresh is in flight, before Mount, or
// once the listing is exhausted.
func (c *Controller) LoadMore(ctx context.Context) error {
	return c.load(ctx, false)
}

// Retry re-attempts whatever failed last: the refresh if it was a refresh,
// otherwise the page at the current cursor.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	refresh := c.refreshFailed && c.state.LastError != nil
	c.mu.Unlock()

	if refresh {
		return c.Refresh(ctx)
	}
	return c.load(ctx, false)
}

func (c *Controller) load(ctx context.Context, initial bool) error {
	c.mu.Lock()
	if !initial {
		if !c.mounted || c.state.IsLoadingMore || c.state.IsLoadingInitial || c.state.IsRefreshing || !c.state.HasMore {
			c.mu.Unlock()
			return nil
		}
		if c.state.Cursor == 1 && len(c.state.Accumulated) == 0 {
			c.state.IsLoadingInitial = true
		} else {
			c.state.IsLoadingMore = true
		}
	}
	cursor := c.state.Cursor
	epoch := c.epoch
	c.mu.Unlock()

	tr := otel.Tracer("user-directory")
	ctx, span := tr.Start(ctx, "Controller.LoadMore")
	defer span.End()
	span.SetAttributes(attribute.Int("cursor", cursor), attribute.String("session_id", c.sessionID))

	page, fromCache := c.cache.Get(cursor)
	var err error
	if !fromCache {
		page, err = c.fetcher.FetchPage(ctx, cursor, c.pageSize)
	}
	span.SetAttributes(attribute.Bool("from_cache", fromCache))

	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		metrics.StaleResponsesDiscarded.Inc()
		slog.Debug("Discarding stale page", "session_id", c.sessionID, "cursor", cursor)
		return nil
	}
	c.state.IsLoadingInitial = false
	c.state.IsLoadingMore = false

	if err != nil {
		c.state.LastError = err
		c.refreshFailed = false
		c.mu.Unlock()
		span.RecordError(err)
		slog.Warn("Failed to load page", "session_id", c.sessionID, "cursor", cursor, "kind", domain.KindOf(err), "error", err)
		return err
	}

	if !fromCache {
		c.cache.Put(cursor, page)
	}
	added := c.merge(page)
	c.state.HasMore = page.IsFull(c.pageSize)
	c.state.Cursor = cursor + 1
	c.state.LastError = nil
	c.refreshFailed = false
	hasMore := c.state.HasMore
	total := len(c.state.Accumulated)
	c.mu.Unlock()

	slog.Debug("Loaded page",
		"session_id", c.sessionID,
		"cursor", cursor,
		"from_cache", fromCache,
		"users_on_page", len(page),
		"users_added", added,
		"total_users", total,
		"has_more", hasMore)

	c.publish(ctx, domain.PageLoadedEvent{
		SessionID: c.sessionID,
		Cursor:    cursor,
		PageSize:  c.pageSize,
		Count:     len(page),
		FromCache: fromCache,
	})
	return nil
}

// Refresh reloads the first page straight from the fetcher and replaces
// the list with it. On failure the previous list, cursor and has-more flag
// are kept.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.epoch++
	epoch := c.epoch
	c.mounted = true
	c.state.LastError = nil
	c.state.IsRefreshing = true
	// Any in-flight load belongs to the previous epoch and will be dropped
	c.state.IsLoadingInitial = false
	c.state.IsLoadingMore = false
	c.mu.Unlock()

	tr := otel.Tracer("user-directory")
	ctx, span := tr.Start(ctx, "Controller.Refresh")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", c.sessionID))

	page, err := c.fetcher.FetchPage(ctx, 1, c.pageSize)

	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		metrics.StaleResponsesDiscarded.Inc()
		slog.Debug("Discarding stale refresh", "session_id", c.sessionID)
		return nil
	}
	c.state.IsRefreshing = false

	if err != nil {
		c.state.LastError = err
		c.refreshFailed = true
		c.mu.Unlock()
		span.RecordError(err)
		slog.Warn("Failed to refresh users", "session_id", c.sessionID, "kind", domain.KindOf(err), "error", err)
		return err
	}

	c.cache.Put(1, page)
	c.state.Accumulated = nil
	c.seen = make(map[int]struct{}, len(page))
	c.merge(page)
	c.state.HasMore = page.IsFull(c.pageSize)
	c.state.Cursor = 2
	c.state.LastError = nil
	c.refreshFailed = false
	total := len(c.state.Accumulated)
	c.mu.Unlock()

	slog.Info("Refreshed users", "session_id", c.sessionID, "total_users", total)

	c.publish(ctx, domain.PageLoadedEvent{
		SessionID: c.sessionID,
		Cursor:    1,
		PageSize:  c.pageSize,
		Count:     len(page),
		Refreshed: true,
	})
	return nil
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	s.Accumulated = make([]domain.User, len(c.state.Accumulated))
	copy(s.Accumulated, c.state.Accumulated)
	return s
}

// merge appends users not seen before, keeping first-seen order.
// Callers hold c.mu.
func (c *Controller) merge(page domain.Page) int {
	added := 0
	for _, u := range page {
		if _, dup := c.seen[u.ID]; dup {
			continue
		}
		c.seen[u.ID] = struct{}{}
		c.state.Accumulated = append(c.state.Accumulated, u)
		added++
	}
	if skipped := len(page) - added; skipped > 0 {
		metrics.UsersDuplicatesSkipped.Add(float64(skipped))
	}
	return added
}

func (c *Controller) publish(ctx context.Context, event domain.PageLoadedEvent) {
	if c.publisher == nil {
		return
	}
	event.LoadedAt = time.Now().UTC()
	if err := c.publisher.PublishPageLoaded(ctx, event); err != nil {
		slog.Error("Failed to publish page event", "session_id", c.sessionID, "cursor", event.Cursor, "error", err)
		metrics.PageEventsPublished.WithLabelValues("error").Inc()
		return
	}
	metrics.PageEventsPublished.WithLabelValues("success").Inc()
}
