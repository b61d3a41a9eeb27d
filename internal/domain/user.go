package domain

import (
	"context"
	"time"
)

// User is a record from the remote listing endpoint. Identity is ID.
type User struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Username string `json:"username"`
	Website  string `json:"website"`
}

// Page is the ordered set of users returned by one fetch for one cursor.
type Page []User

// IsFull reports whether the page signals that more pages may exist.
func (p Page) IsFull(pageSize int) bool {
	return len(p) == pageSize
}

// PageLoadedEvent announces a page that was applied to a session's list.
type PageLoadedEvent struct {
	SessionID string    `json:"session_id"`
	Cursor    int       `json:"cursor"`
	PageSize  int       `json:"page_size"`
	Count     int       `json:"count"`
	FromCache bool      `json:"from_cache"`
	Refreshed bool      `json:"refreshed"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// Fetcher retrieves one page of users from the listing endpoint.
type Fetcher interface {
	FetchPage(ctx context.Context, cursor, pageSize int) (Page, error)
}

// PageCache stores fetched pages by cursor for the lifetime of the process.
// Absence is a valid outcome; the cache never fails.
type PageCache interface {
	Get(cursor int) (Page, bool)
	Put(cursor int, page Page)
}

// PageEventPublisher publishes page events to a queue.
type PageEventPublisher interface {
	PublishPageLoaded(ctx context.Context, event PageLoadedEvent) error
	Close() error
}
