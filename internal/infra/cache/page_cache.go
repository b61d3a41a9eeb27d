// Package cache holds the process-lifetime page cache shared by list screens.
package cache

import (
	"sync"

	"github.com/UserDirectory/internal/domain"
	"github.com/UserDirectory/internal/infra/metrics"
)

// MemoryPageCache is an unbounded cursor-to-page map with no expiry.
type MemoryPageCache struct {
	mu    sync.RWMutex
	pages map[int]domain.Page
}

var _ domain.PageCache = (*MemoryPageCache)(nil)

func NewMemoryPageCache() *MemoryPageCache {
	return &MemoryPageCache{pages: make(map[int]domain.Page)}
}

func (c *MemoryPageCache) Get(cursor int) (domain.Page, bool) {
	c.mu.RLock()
	page, ok := c.pages[cursor]
	c.mu.RUnlock()

	if !ok {
		metrics.PageCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.PageCacheLookups.WithLabelValues("hit").Inc()
	return clonePage(page), true
}

// Put stores page under cursor, overwriting any earlier entry.
func (c *MemoryPageCache) Put(cursor int, page domain.Page) {
	c.mu.Lock()
	c.pages[cursor] = clonePage(page)
	c.mu.Unlock()
}

func (c *MemoryPageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pages)
}

// Pages are copied in and out so callers cannot alias cached entries.
func clonePage(page domain.Page) domain.Page {
	if page == nil {
		return domain.Page{}
	}
	out := make(domain.Page, len(page))
	copy(out, page)
	return out
}
