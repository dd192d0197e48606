package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/couchcryptid/weather-type-service/internal/domain"
	"github.com/couchcryptid/weather-type-service/internal/observability"
)

// CachedPredictor wraps a Predictor with an in-memory LRU cache. Inference is
// deterministic, so a feature vector always maps to the same class.
type CachedPredictor struct {
	inner   domain.Predictor
	cache   *lruCache[domain.FeatureVector, int]
	metrics *observability.Metrics
}

// NewCachedPredictor creates a cache decorator around a predictor.
func NewCachedPredictor(inner domain.Predictor, maxEntries int, metrics *observability.Metrics) *CachedPredictor {
	return &CachedPredictor{
		inner:   inner,
		cache:   newLRUCache[domain.FeatureVector, int](maxEntries),
		metrics: metrics,
	}
}

// Predict serves cached rows and forwards only the misses to the inner predictor.
func (c *CachedPredictor) Predict(ctx context.Context, rows []domain.FeatureVector) ([]int, error) {
	out := make([]int, len(rows))
	var (
		missRows []domain.FeatureVector
		missIdx  []int
	)
	for i, row := range rows {
		if class, ok := c.cache.get(row); ok {
			out[i] = class
			c.metrics.PredictionCache.WithLabelValues("hit").Inc()
			continue
		}
		c.metrics.PredictionCache.WithLabelValues("miss").Inc()
		missRows = append(missRows, row)
		missIdx = append(missIdx, i)
	}
	if len(missRows) == 0 {
		return out, nil
	}

	classes, err := c.inner.Predict(ctx, missRows)
	if err != nil {
		return nil, err
	}
	if len(classes) != len(missRows) {
		return nil, fmt.Errorf("predictor returned %d classes for %d rows", len(classes), len(missRows))
	}
	for j, class := range classes {
		out[missIdx[j]] = class
		c.cache.put(missRows[j], class)
	}
	return out, nil
}

// Classes forwards the inner predictor's class space, or nil when it has none.
func (c *CachedPredictor) Classes() []int {
	if cs, ok := c.inner.(domain.ClassSpace); ok {
		return cs.Classes()
	}
	return nil
}

// lruCache is a simple thread-safe LRU cache.
type lruCache[K comparable, V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[K]*entry[K, V]
	head       *entry[K, V] // most recently used
	tail       *entry[K, V] // least recently used
}

type entry[K comparable, V any] struct {
	key   K
	value V
	prev  *entry[K, V]
	next  *entry[K, V]
}

func newLRUCache[K comparable, V any](maxEntries int) *lruCache[K, V] {
	return &lruCache[K, V]{
		maxEntries: maxEntries,
		entries:    make(map[K]*entry[K, V]),
	}
}

func (c *lruCache[K, V]) get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[K, V]) put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry[K, V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[K, V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache[K, V]) moveToFront(e *entry[K, V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache[K, V]) addToFront(e *entry[K, V]) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache[K, V]) remove(e *entry[K, V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache[K, V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
