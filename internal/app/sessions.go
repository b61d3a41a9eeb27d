package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/UserDirectory/internal/domain"
	"github.com/UserDirectory/internal/infra/metrics"
	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRegistry keeps one Screen per mounted list screen. All screens
// share the registry's page cache. Screens live until Unmount or until
// SweepIdle finds them untouched for too long.
type SessionRegistry struct {
	fetcher   domain.Fetcher
	cache     domain.PageCache
	publisher domain.PageEventPublisher
	pageSize  int
	debounce  time.Duration
	now       func() time.Time

	mu      sync.RWMutex
	screens map[string]*Screen
}

func NewSessionRegistry(
	fetcher domain.Fetcher,
	cache domain.PageCache,
	publisher domain.PageEventPublisher,
	pageSize int,
	debounce time.Duration,
) *SessionRegistry {
	return &SessionRegistry{
		fetcher:   fetcher,
		cache:     cache,
		publisher: publisher,
		pageSize:  pageSize,
		debounce:  debounce,
		now:       time.Now,
		screens:   make(map[string]*Screen),
	}
}

// Mount creates a screen and runs its initial load. The screen is
// registered even when the load fails so the client can retry.
func (r *SessionRegistry) Mount(ctx context.Context) (*Screen, error) {
	id := uuid.NewString()

	opts := []ControllerOption{WithSessionID(id)}
	if r.publisher != nil {
		opts = append(opts, WithPublisher(r.publisher))
	}
	screen := NewScreen(id, NewController(r.fetcher, r.cache, r.pageSize, opts...), r.debounce)
	screen.touch(r.now())

	r.mu.Lock()
	r.screens[id] = screen
	r.mu.Unlock()
	metrics.ActiveSessions.Inc()
	slog.Info("Mounted list screen", "session_id", id)

	return screen, screen.Mount(ctx)
}

func (r *SessionRegistry) Get(id string) (*Screen, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	screen, ok := r.screens[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	screen.touch(r.now())
	return screen, nil
}

// Unmount tears a screen down. Its loaded users are discarded; cached
// pages stay for the next mount.
func (r *SessionRegistry) Unmount(id string) error {
	r.mu.Lock()
	screen, ok := r.screens[id]
	delete(r.screens, id)
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	screen.Close()
	metrics.ActiveSessions.Dec()
	slog.Info("Unmounted list screen", "session_id", id)
	return nil
}

// SweepIdle unmounts screens not looked up for longer than maxIdle and
// returns how many were removed.
func (r *SessionRegistry) SweepIdle(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	var idle []*Screen
	r.mu.Lock()
	for id, s := range r.screens {
		if s.lastTouched().Before(cutoff) {
			idle = append(idle, s)
			delete(r.screens, id)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		s.Close()
		metrics.ActiveSessions.Dec()
		slog.Info("Unmounted idle list screen", "session_id", s.ID())
	}
	return len(idle)
}

// RunSweeper calls SweepIdle every interval until ctx is done.
func (r *SessionRegistry) RunSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.SweepIdle(maxIdle)
		}
	}
}

func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.screens)
}

// Close unmounts every screen.
func (r *SessionRegistry) Close() {
	r.mu.Lock()
	screens := r.screens
	r.screens = make(map[string]*Screen)
	r.mu.Unlock()

	for _, s := range screens {
		s.Close()
		metrics.ActiveSessions.Dec()
	}
}
