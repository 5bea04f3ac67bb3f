package memory

import (
	"context"
	"sync"
	"time"

	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/cache"
)

const DefaultSweepInterval = 5 * time.Minute

type item struct {
	value     interface{}
	expiresAt time.Time
}

type Options struct {
	SweepInterval time.Duration
	// Clock подменяется в тестах
	Clock func() time.Time
}

// Cache - простой in-memory кеш с TTL
type Cache struct {
	mu       sync.RWMutex
	items    map[string]item
	now      func() time.Time
	interval time.Duration
	stopChan chan struct{}
	stopped  bool
}

func New() *Cache {
	return NewWithContext(context.Background())
}

func NewWithContext(ctx context.Context) *Cache {
	return NewWithOptions(ctx, Options{})
}

// NewWithOptions - интервал чистки и часы берутся из opts, нули заменяются дефолтами.
func NewWithOptions(ctx context.Context, opts Options) *Cache {
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	c := &Cache{
		items:    make(map[string]item),
		now:      opts.Clock,
		interval: opts.SweepInterval,
		stopChan: make(chan struct{}),
	}
	go c.cleanup(ctx)
	return c
}

func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, ok := c.items[key]
	if !ok || !c.now().Before(it.expiresAt) {
		return nil, false
	}
	return it.value, true
}

func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	c.items[key] = item{value: value, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache) Stop() {
	c.mu.Lock()
	if !c.stopped {
		c.stopped = true
		close(c.stopChan)
	}
	c.mu.Unlock()
}

func (c *Cache) cleanup(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Sweep удаляет просроченные записи. Читатели держат RLock,
// поэтому запись не исчезнет посреди Get.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, it := range c.items {
		if !now.Before(it.expiresAt) {
			delete(c.items, k)
			removed++
		}
	}
	return removed
}

var _ cache.Cache = (*Cache)(nil)
