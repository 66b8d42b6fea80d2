// Package query кэширует чтения API по ключу и склеивает параллельные загрузки одного ключа.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

const DefaultTTL = 30 * time.Second

// CacheItem один закэшированный результат чтения.
type CacheItem struct {
	Data      any
	ExpiresAt time.Time
}

func (item *CacheItem) IsExpired(now time.Time) bool {
	return !now.Before(item.ExpiresAt)
}

// Stats счётчики попаданий и промахов.
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// Client общий кэш чтений перед REST API.
//
// Каждая инвалидация увеличивает версию. Загрузка сохраняет результат, только если
// за время её выполнения инвалидаций не было. Загрузки, начатые до инвалидации, не
// отдаются пришедшим после неё, так что чтение после подтверждённой мутации всегда
// видит новые данные.
type Client struct {
	mu      sync.RWMutex
	entries map[string]*CacheItem
	version uint64

	group  singleflight.Group
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	hits   int64
	misses int64
}

func NewClient(ttl time.Duration, logger *slog.Logger) *Client {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		entries: make(map[string]*CacheItem),
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
	}
}

// Get возвращает значение из кэша или загружает его через fetch. Ошибки не кэшируются.
func Get[T any](ctx context.Context, c *Client, key string, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	c.mu.RLock()
	item, ok := c.entries[key]
	version := c.version
	c.mu.RUnlock()

	if ok && !item.IsExpired(c.now()) {
		if value, typed := item.Data.(T); typed {
			atomic.AddInt64(&c.hits, 1)
			return value, nil
		}
	}
	atomic.AddInt64(&c.misses, 1)

	flightKey := fmt.Sprintf("%s@%d", key, version)
	result, err, _ := c.group.Do(flightKey, func() (any, error) {
		value, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.store(key, value, version)
		return value, nil
	})
	if err != nil {
		return zero, err
	}
	value, typed := result.(T)
	if !typed {
		return zero, fmt.Errorf("query: cached value for %q has type %T", key, result)
	}
	return value, nil
}

func (c *Client) store(key string, value any, version uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.version != version {
		c.logger.Debug("query: dropping result fetched before invalidation", slog.String("key", key))
		return
	}
	c.entries[key] = &CacheItem{Data: value, ExpiresAt: c.now().Add(c.ttl)}
}

// Invalidate удаляет записи, ключ которых начинается с одного из префиксов.
// Без префиксов очищается весь кэш.
func (c *Client) Invalidate(prefixes ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version++
	if len(prefixes) == 0 {
		c.entries = make(map[string]*CacheItem)
		return
	}
	for key := range c.entries {
		for _, prefix := range prefixes {
			if strings.HasPrefix(key, prefix) {
				delete(c.entries, key)
				break
			}
		}
	}
}

// Mutate выполняет мутацию и сбрасывает префиксы только после её успеха.
// При ошибке кэш не трогается, ошибка возвращается как есть.
func (c *Client) Mutate(ctx context.Context, mutation func(ctx context.Context) error, prefixes ...string) error {
	if err := mutation(ctx); err != nil {
		return err
	}
	c.Invalidate(prefixes...)
	return nil
}

func (c *Client) Stats() Stats {
	c.mu.RLock()
	entries := len(c.entries)
	c.mu.RUnlock()
	return Stats{
		Entries: entries,
		Hits:    atomic.LoadInt64(&c.hits),
		Misses:  atomic.LoadInt64(&c.misses),
	}
}

// StartCleanupWorker раз в interval вычищает просроченные записи, пока не вызвана
// возвращённая функция отмены.
func (c *Client) StartCleanupWorker(interval time.Duration) context.CancelFunc {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.evictExpired()
			}
		}
	}()
	return cancel
}

func (c *Client) evictExpired() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, item := range c.entries {
		if item.IsExpired(now) {
			delete(c.entries, key)
		}
	}
}
