package mocks

import (
	"context"

	"github.com/UserDirectory/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockFetcher struct {
	mock.Mock
}

// Ensure MockFetcher implements Fetcher
var _ domain.Fetcher = (*MockFetcher)(nil)

func (m *MockFetcher) FetchPage(ctx context.Context, cursor, pageSize int) (domain.Page, error) {
	args := m.Called(ctx, cursor, pageSize)

	var page domain.Page
	if args.Get(0) != nil {
		page = args.Get(0).(domain.Page)
	}
	return page, args.Error(1)
}

type MockPageEventPublisher struct {
	mock.Mock
}

func (m *MockPageEventPublisher) PublishPageLoaded(ctx context.Context, event domain.PageLoadedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPageEventPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}
