package app

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/UserDirectory/internal/domain"
	"github.com/UserDirectory/internal/domain/mocks"
	"github.com/UserDirectory/internal/infra/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const pageSize = 5

func users(from, to int) domain.Page {
	page := make(domain.Page, 0, to-from+1)
	for i := from; i <= to; i++ {
		page = append(page, domain.User{ID: i, Name: fmt.Sprintf("User %d", i)})
	}
	return page
}

func ids(list []domain.User) []int {
	out := make([]int, 0, len(list))
	for _, u := range list {
		out = append(out, u.ID)
	}
	return out
}

func newTestController(f domain.Fetcher) (*Controller, *cache.MemoryPageCache) {
	c := cache.NewMemoryPageCache()
	return NewController(f, c, pageSize), c
}

func networkErr(cursor int) error {
	return domain.NewNetworkError(cursor, 503, errors.New("listing returned status 503"))
}

func TestController_InitialState(t *testing.T) {
	ctrl, _ := newTestController(new(mocks.MockFetcher))

	s := ctrl.Snapshot()
	assert.Equal(t, 1, s.Cursor)
	assert.True(t, s.HasMore)
	assert.True(t, s.IsLoadingInitial)
	assert.Empty(t, s.Accumulated)
	assert.NoError(t, s.LastError)
}

func TestController_LoadMoreBeforeMountIsNoop(t *testing.T) {
	fetcher := new(mocks.MockFetcher)
	ctrl, _ := newTestController(fetcher)

	require.NoError(t, ctrl.LoadMore(context.Background()))
	fetcher.AssertNotCalled(t, "FetchPage", mock.Anything, mock.Anything, mock.Anything)
}

func TestController_HappyPath(t *testing.T) {
	fetcher := new(mocks.MockFetcher)
	fetcher.On("FetchPage", mock.Anything, 1, pageSize).Return(users(1, 5), nil).Once()
	fetcher.On("FetchPage", mock.Anything, 2, pageSize).Return(users(6, 8), nil).Once()
	ctrl, pages := newTestController(fetcher)
	ctx := context.Background()

	require.NoError(t, ctrl.Mount(ctx))
	s := ctrl.Snapshot()
	assert.True(t, s.HasMore)
	assert.Len(t, s.Accumulated, 5)
	assert.Equal(t, 2, s.Cursor)
	assert.False(t, s.IsLoadingInitial)

	require.NoError(t, ctrl.LoadMore(ctx))
	s = ctrl.Snapshot()
	assert.False(t, s.HasMore)
	assert.Len(t, s.Accumulated, 8)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, ids(s.Accumulated))
	assert.Equal(t, 3, s.Cursor)
	assert.False(t, s.IsLoadingMore)

	cached, ok := pages.Get(2)
	require.True(t, ok)
	assert.Equal(t, users(6, 8), cached)
	fetcher.AssertExpectations(t)
}

func TestController_DeduplicatesAcrossPages(t *testing.T) {
	overlap := domain.Page{
		{ID: 4, Name: "Renamed 4"},
		{ID: 6, Name: "User 6"},
		{ID: 2, Name: "Renamed 2"},
		{ID: 7, Name: "User 7"},
		{ID: 6, Name: "User 6 again"},
	}
	fetcher := new(mocks.MockFetcher)
	fetcher.On("FetchPage", mock.Anything, 1, pageSize).Return(users(1, 5), nil).Once()
	fetcher.On("FetchPage", mock.Anything, 2, pageSize).Return(overlap, nil).Once()
	ctrl, _ := newTestController(fetcher)
	ctx := context.Background()

	require.NoError(t, ctrl.Mount(ctx))
	require.NoError(t, ctrl.LoadMore(ctx))

	s := ctrl.Snapshot()
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, ids(s.Accumulated))
	assert.Equal(t, "User 2", s.Accumulated[1].Name, "first-seen record wins")
	assert.Equal(t, "User 4", s.Accumulated[3].Name, "first-seen record wins")
	assert.Equal(t, "User 6", s.Accumulated[5].Name)
	assert.True(t, s.HasMore, "has-more follows the raw page length, not the number added")
}

func TestController_ShortPageExhaustsUntilRefresh(t *testing.T) {
	fetcher := new(mocks.MockFetcher)
	fetcher.On("FetchPage", mock.Anything, 1, pageSize).Return(users(1, 3), nil).Once()
	fetcher.On("FetchPage", mock.Anything, 1, pageSize).Return(users(1, 5), nil).Once()
	ctrl, _ := newTestController(fetcher)
	ctx := context.Background()

	require.NoError(t, ctrl.Mount(ctx))
	assert.False(t, ctrl.Snapshot().HasMore)

	for i := 0; i < 3; i++ {
		require.NoError(t, ctrl.LoadMore(ctx))
		require.NoError(t, ctrl.Retry(ctx))
	}
	assert.False(t, ctrl.Snapshot().HasMore)
	assert.Equal(t, 2, ctrl.Snapshot().Cursor)
	fetcher.AssertNumberOfCalls(t, "FetchPage", 1)

	require.NoError(t, ctrl.Refresh(ctx))
	assert.True(t, ctrl.Snapshot().HasMore)
	fetcher.AssertExpectations(t)
}

func TestController_EmptyPageExhausts(t *testing.T) {
	fetcher := new(mocks.MockFetcher)
	fetcher.On("FetchPage", mock.Anything, 1, pageSize).Return(users(1, 5), nil).Once()
	fetcher.On("FetchPage", mock.Anything, 2, pageSize).Return(domain.Page{}, nil).Once()
	ctrl, _ := newTestController(fetcher)
	ctx := context.Background()

	require.NoError(t, ctrl.Mount(ctx))
	require.NoError(t, ctrl.LoadMore(ctx))

	s := ctrl.Snapshot()
	assert.False(t, s.HasMore)
	assert.Len(t, s.Accumulated, 5)
	assert.Equal(t, 3, s.Cursor)
}

func TestController_LoadMoreWhileInFlightIsNoop(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	fetcher := new(mocks.MockFetcher)
	fetcher.On("FetchPage", mock.Anything, 1, pageSize).Return(users(1, 5), nil).Once()
	fetcher.On("FetchPage", mock.Anything, 2, pageSize).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(users(6, 10), nil).Once()
	ctrl, _ := newTestController(fetcher)
	ctx := context.Background()
	require.NoError(t, ctrl.Mount(ctx))

	done := make(chan error, 1)
	go func() { done <- ctrl.LoadMore(ctx) }()
	<-started

	assert.True(t, ctrl.Snapshot().IsLoadingMore)
	require.NoError(t, ctrl.LoadMore(ctx))
	require.NoError(t, ctrl.Retry(ctx))
	assert.Equal(t, 2, ctrl.Snapshot().Cursor, "cursor must not move while the fetch is in flight")

	close(release)
	require.NoError(t, <-done)

	s := ctrl.Snapshot()
	assert.Equal(t, 3, s.Cursor)
	assert.Len(t, s.Accumulated, 10)
	fetcher.AssertNumberOfCalls(t, "FetchPage", 2)
}

func TestController_CacheHitOnRemount(t *testing.T) {
	shared := cache.NewMemoryPageCache()

	first := new(mocks.MockFetcher)
	first.On("FetchPage", mock.Anything, 1, pageSize).Return(users(1, 5), nil).Once()
	require.NoError(t, NewController(first, shared, pageSize).Mount(context.Background()))
	first.AssertExpectations(t)

	second := new(mocks.MockFetcher)
	remounted := NewController(second, shared, pageSize)
	require.NoError(t, remounted.Mount(context.Background()))

	second.AssertNotCalled(t, "FetchPage", mock.Anything, mock.Anything, mock.Anything)
	s := remounted.Snapshot()
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ids(s.Accumulated))
	assert.True(t, s.HasMore)
	assert.Equal(t, 2, s.Cursor)
}

func TestController_RefreshAfterPartialLoad(t *testing.T) {
	fresh := domain.Page{
		{ID: 1, Name: "User 1"},
		{ID: 2, Name: "User 2"},
		{ID: 4, Name: "User 4"},
		{ID: 5, Name: "User 5"},
		{ID: 9, Name: "User 9"},
	}
	fetcher := new(mocks.MockFetcher)
	fetcher.On("FetchPage", mock.Anything, 1, pageSize).Return(users(1, 5), nil).Once()
	fetcher.On("FetchPage", mock.Anything, 2, pageSize).Return(users(6, 8), nil).Once()
	fetcher.On("FetchPage", mock.Anything, 1, pageSize).Return(fresh, nil).Once()
	ctrl, pages := newTestController(fetcher)
	ctx := context.Background()

	require.NoError(t, ctrl.Mount(ctx))
	require.NoError(t, ctrl.LoadMore(ctx))
	require.Len(t, ctrl.Snapshot().Accumulated, 8)

	require.NoError(t, ctrl.Refresh(ctx))

	s := ctrl.Snapshot()
	assert.Equal(t, []int{1, 2, 4, 5, 9}, ids(s.Accumulated), "stale records are discarded")
	assert.Equal(t, 2, s.Cursor)
	assert.True(t, s.HasMore)
	assert.False(t, s.IsRefreshing)
	assert.NoError(t, s.LastError)

	cached, ok := pages.Get(1)
	require.True(t, ok)
	assert.Equal(t, fresh, cached, "refresh overwrites the cached first page")
	fetcher.AssertExpectations(t)
}

func TestController_RefreshBypassesCache(t *testing.T) {
	fetcher := new(mocks.MockFetcher)
	fetcher.On("FetchPage", mock.Anything, 1, pageSize).Return(users(1, 2), nil).Once()
	ctrl, pages := newTestController(fetcher)
	pages.Put(1, users(1, 5))

	require.NoError(t, ctrl.Refresh(context.Background()))

	assert.Equal(t, []int{1, 2}, ids(ctrl.Snapshot().Accumulated))
	assert.False(t, ctrl.Snapshot().HasMore)
	fetcher.AssertExpectations(t)
}

func TestController_RefreshFailurePreservesList(t *testing.T) {
	fetcher := new(mocks.MockFetcher)
	fetcher.On("FetchPage", mock.Anything, 1, pageSize).Return(users(1, 5), nil).Once()
	fetcher.On("FetchPage", mock.Anything, 2, pageSize).Return(users(6, 8), nil).Once()
	fetcher.On("FetchPage", mock.Anything, 1, pageSize).Return(nil, networkErr(1)).Once()
	ctrl, _ := newTestController(fetcher)
	ctx := context.Background()

	require.NoError(t, ctrl.Mount(ctx))
	require.NoError(t, ctrl.LoadMore(ctx))

	err := ctrl.Refresh(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNetwork)

	s := ctrl.Snapshot()
	assert.Len(t, s.Accumulated, 8)
	assert.Equal(t, 3, s.Cursor)
	assert.False(t, s.HasMore)
	assert.False(t, s.IsRefreshing)
	assert.ErrorIs(t, s.LastError, domain.ErrNetwork)
}

func TestController_RetryAfterRefreshFailureOnExhaustedList(t *testing.T) {
	fetcher := new(mocks.MockFetcher)
	fetcher.On("FetchPage", mock.Anything, 1, pageSize).Return(users(1, 5), nil).Once()
	fetcher.On("FetchPage", mock.Anything, 2, pageSize).Return(users(6, 8), nil).Once()
	fetcher.On("FetchPage", mock.Anything, 1, pageSize).Return(nil, networkErr(1)).Once()
	fetcher.On("FetchPage", mock.Anything, 1, pageSize).Return(users(1, 5), nil).Once()
	ctrl, pages := newTestController(fetcher)
	ctx := context.Background()

	require.NoError(t, ctrl.Mount(ctx))
	require.NoError(t, ctrl.LoadMore(ctx))
	require.False(t, ctrl.Snapshot().HasMore)
	require.Error(t, ctrl.Refresh(ctx))

	require.NoError(t, ctrl.Retry(ctx))
	s := ctrl.Snapshot()
	assert.NoError(t, s.LastError)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ids(s.Accumulated))
	assert.Equal(t, 2, s.Cursor)
	assert.True(t, s.HasMore)
	cached, ok := pages.Get(1)
	require.True(t, ok)
	assert.Len(t, cached, 5)
	fetcher.AssertExpectations(t)
}

func TestController_RetryAfterRefreshFailureThenLoadFailure(t *testing.T) {
	fetcher := new(mocks.MockFetcher)
	fetcher.On("FetchPage", mock.Anything, 1, pageSize).Return(users(1, 5), nil).Once()
	fetcher.On("FetchPage", mock.Anything, 1, pageSize).Return(nil, networkErr(1)).Once()
	fetcher.On("FetchPage", mock.Anything, 2, pageSize).Return(nil, networkErr(2)).Once()
	fetcher.On("FetchPage", mock.Anything, 2, pageSize).Return(users(6, 8), nil).Once()
	ctrl, _ := newTestController(fetcher)
	ctx := context.Background()

	require.NoError(t, ctrl.Mount(ctx))
	require.Error(t, ctrl.Refresh(ctx))
	require.Error(t, ctrl.LoadMore(ctx))

	// the latest failure was page 2, so that is what gets retried
	require.NoError(t, ctrl.Retry(ctx))
	s := ctrl.Snapshot()
	assert.NoError(t, s.LastError)
	assert.Len(t, s.Accumulated, 8)
	assert.Equal(t, 3, s.Cursor)
	fetcher.AssertExpectations(t)
}

func TestController_FailureThenRetry(t *testing.T) {
	fetcher := new(mocks.MockFetcher)
	fetcher.On("FetchPage", mock.Anything, 1, pageSize).Return(users(1, 5), nil).Once()
	fetcher.On("FetchPage", mock.Anything, 2, pageSize).Return(nil, networkErr(2)).Once()
	fetcher.On("FetchPage", mock.Anything, 2, pageSize).Return(users(6, 10), nil).Once()
	ctrl, pages := newTestController(fetcher)
	ctx := context.Background()

	require.NoError(t, ctrl.Mount(ctx))

	err := ctrl.LoadMore(ctx)
	require.Error(t, err)
	s := ctrl.Snapshot()
	assert.ErrorIs(t, s.LastError, domain.ErrNetwork)
	assert.Equal(t, 2, s.Cursor)
	assert.True(t, s.HasMore)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ids(s.Accumulated))
	assert.False(t, s.IsLoadingMore)
	_, cached := pages.Get(2)
	assert.False(t, cached, "failed pages are not cached")

	require.NoError(t, ctrl.Retry(ctx))
	s = ctrl.Snapshot()
	assert.NoError(t, s.LastError)
	assert.Equal(t, 3, s.Cursor)
	assert.Len(t, s.Accumulated, 10)
	fetcher.AssertExpectations(t)
}

func TestController_InitialFailureThenRetry(t *testing.T) {
	parseErr := domain.NewParseError(1, errors.New("unexpected EOF"))
	fetcher := new(mocks.MockFetcher)
	fetcher.On("FetchPage", mock.Anything, 1, pageSize).Return(nil, parseErr).Once()
	fetcher.On("FetchPage", mock.Anything, 1, pageSize).Return(users(1, 5), nil).Once()
	ctrl, _ := newTestController(fetcher)
	ctx := context.Background()

	err := ctrl.Mount(ctx)
	assert.ErrorIs(t, err, domain.ErrParse)
	s := ctrl.Snapshot()
	assert.False(t, s.IsLoadingInitial)
	assert.Equal(t, 1, s.Cursor)
	assert.Equal(t, domain.ParseError, domain.KindOf(s.LastError))

	require.NoError(t, ctrl.Retry(ctx))
	assert.Len(t, ctrl.Snapshot().Accumulated, 5)
	fetcher.AssertExpectations(t)
}

func TestController_StaleLoadMoreDiscardedAfterRefresh(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	fresh := users(11, 15)

	fetcher := new(mocks.MockFetcher)
	fetcher.On("FetchPage", mock.Anything, 1, pageSize).Return(users(1, 5), nil).Once()
	fetcher.On("FetchPage", mock.Anything, 2, pageSize).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(users(6, 10), nil).Once()
	fetcher.On("FetchPage", mock.Anything, 1, pageSize).Return(fresh, nil).Once()
	ctrl, pages := newTestController(fetcher)
	ctx := context.Background()
	require.NoError(t, ctrl.Mount(ctx))

	done := make(chan error, 1)
	go func() { done <- ctrl.LoadMore(ctx) }()
	<-started

	require.NoError(t, ctrl.Refresh(ctx))
	close(release)
	require.NoError(t, <-done, "a discarded response is not an error")

	s := ctrl.Snapshot()
	assert.Equal(t, []int{11, 12, 13, 14, 15}, ids(s.Accumulated))
	assert.Equal(t, 2, s.Cursor)
	assert.False(t, s.IsLoadingMore)
	_, ok := pages.Get(2)
	assert.False(t, ok, "stale responses are not cached")
	fetcher.AssertExpectations(t)
}

func TestController_StaleFailureDoesNotSetError(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	fetcher := new(mocks.MockFetcher)
	fetcher.On("FetchPage", mock.Anything, 1, pageSize).Return(users(1, 5), nil).Once()
	fetcher.On("FetchPage", mock.Anything, 2, pageSize).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(nil, networkErr(2)).Once()
	fetcher.On("FetchPage", mock.Anything, 1, pageSize).Return(users(1, 5), nil).Once()
	ctrl, _ := newTestController(fetcher)
	ctx := context.Background()
	require.NoError(t, ctrl.Mount(ctx))

	done := make(chan error, 1)
	go func() { done <- ctrl.LoadMore(ctx) }()
	<-started

	require.NoError(t, ctrl.Refresh(ctx))
	close(release)
	require.NoError(t, <-done)
	assert.NoError(t, ctrl.Snapshot().LastError)
}

func TestController_PublishesPageEvents(t *testing.T) {
	fetcher := new(mocks.MockFetcher)
	fetcher.On("FetchPage", mock.Anything, 1, pageSize).Return(users(1, 5), nil)

	publisher := new(mocks.MockPageEventPublisher)
	publisher.On("PublishPageLoaded", mock.Anything, mock.MatchedBy(func(e domain.PageLoadedEvent) bool {
		return e.SessionID == "s-1" && e.Cursor == 1 && e.Count == 5 && !e.FromCache && !e.Refreshed && !e.LoadedAt.IsZero()
	})).Return(nil).Once()
	publisher.On("PublishPageLoaded", mock.Anything, mock.MatchedBy(func(e domain.PageLoadedEvent) bool {
		return e.Refreshed && e.Cursor == 1
	})).Return(errors.New("broker down")).Once()

	ctrl := NewController(fetcher, cache.NewMemoryPageCache(), pageSize, WithSessionID("s-1"), WithPublisher(publisher))
	ctx := context.Background()

	require.NoError(t, ctrl.Mount(ctx))
	require.NoError(t, ctrl.Refresh(ctx), "publish failures do not fail the load")
	assert.Len(t, ctrl.Snapshot().Accumulated, 5)
	publisher.AssertExpectations(t)
}

func TestController_SnapshotIsACopy(t *testing.T) {
	fetcher := new(mocks.MockFetcher)
	fetcher.On("FetchPage", mock.Anything, 1, pageSize).Return(users(1, 5), nil)
	ctrl, _ := newTestController(fetcher)
	require.NoError(t, ctrl.Mount(context.Background()))

	s := ctrl.Snapshot()
	s.Accumulated[0].Name = "mutated"
	assert.Equal(t, "User 1", ctrl.Snapshot().Accumulated[0].Name)
}
