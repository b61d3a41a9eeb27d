package app

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/UserDirectory/internal/domain"
)

const (
	MessageFailedToLoad     = "Failed to load users"
	MessageNoUsersFound     = "No users found"
	MessageNoUsersAvailable = "No users available"
)

// View is what the presentation layer renders for a list screen.
type View struct {
	Items            []domain.User `json:"items"`
	IsLoadingInitial bool          `json:"is_loading_initial"`
	IsLoadingMore    bool          `json:"is_loading_more"`
	IsRefreshing     bool          `json:"is_refreshing"`
	ErrorMessage     string        `json:"error_message"`
	HasMore          bool          `json:"has_more"`
	Search           string        `json:"search"`
	DebouncedSearch  string        `json:"debounced_search"`
	EmptyMessage     string        `json:"empty_message,omitempty"`
}

// Screen binds a Controller to a debounced search term.
type Screen struct {
	id         string
	controller *Controller
	search     *Debouncer
	touched    atomic.Int64
}

func NewScreen(id string, controller *Controller, debounce time.Duration) *Screen {
	s := &Screen{id: id, controller: controller}
	s.search = NewDebouncer(debounce, func(term string) {
		slog.Debug("Search term settled", "session_id", id, "term", term)
	})
	return s
}

func (s *Screen) ID() string {
	return s.id
}

func (s *Screen) Mount(ctx context.Context) error {
	return s.controller.Mount(ctx)
}

func (s *Screen) LoadMore(ctx context.Context) error {
	return s.controller.LoadMore(ctx)
}

func (s *Screen) Refresh(ctx context.Context) error {
	return s.controller.Refresh(ctx)
}

func (s *Screen) Retry(ctx context.Context) error {
	return s.controller.Retry(ctx)
}

// SetSearch records raw search input. The filter only sees it once the
// debounce window has passed.
func (s *Screen) SetSearch(term string) {
	s.search.Set(term)
}

// OnEndReached is the scroll-to-bottom trigger. Searching only covers users
// that are already loaded, so it never fetches while a term is active.
func (s *Screen) OnEndReached(ctx context.Context) (bool, error) {
	if isSearching(s.search.Value()) {
		return false, nil
	}
	return true, s.controller.LoadMore(ctx)
}

// View derives the current filtered view.
func (s *Screen) View() View {
	state := s.controller.Snapshot()
	term := s.search.Value()

	v := View{
		Items:            Filter(state.Accumulated, term),
		IsLoadingInitial: state.IsLoadingInitial,
		IsLoadingMore:    state.IsLoadingMore,
		IsRefreshing:     state.IsRefreshing,
		HasMore:          state.HasMore,
		Search:           s.search.Raw(),
		DebouncedSearch:  term,
	}
	if state.LastError != nil {
		v.ErrorMessage = MessageFailedToLoad
	}
	if len(v.Items) == 0 && !v.IsLoadingInitial && !v.IsLoadingMore {
		if isSearching(term) {
			v.EmptyMessage = MessageNoUsersFound
		} else {
			v.EmptyMessage = MessageNoUsersAvailable
		}
	}
	return v
}

// User returns a loaded user for the detail view. It never fetches.
func (s *Screen) User(id int) (domain.User, bool) {
	for _, u := range s.controller.Snapshot().Accumulated {
		if u.ID == id {
			return u, true
		}
	}
	return domain.User{}, false
}

func (s *Screen) State() State {
	return s.controller.Snapshot()
}

// Close stops pending search updates.
func (s *Screen) Close() {
	s.search.Stop()
}

func (s *Screen) touch(t time.Time) {
	s.touched.Store(t.UnixNano())
}

func (s *Screen) lastTouched() time.Time {
	return time.Unix(0, s.touched.Load())
}

func isSearching(term string) bool {
	return strings.TrimSpace(term) != ""
}
