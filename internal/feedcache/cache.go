// Package feedcache caches composed daily feeds per learner and day.
package feedcache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/abhisek/cognitioflux/internal/clock"
)

// Cache stores opaque feed payloads. Implementations must be safe for
// concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	// Invalidate drops every key starting with prefix.
	Invalidate(ctx context.Context, prefix string) error
}

// Key returns the cache key for a learner's feed on day with the given
// new-lesson budget. generation identifies the state of the learner's
// stores the feed was composed from, so a feed built before a mutation is
// never served after it.
func Key(learner string, generation uint64, day time.Time, maxNew int) string {
	return fmt.Sprintf("%s%d:%s:%d", LearnerPrefix(learner), generation, day.Format("2006-01-02"), maxNew)
}

// LearnerPrefix is the prefix shared by all of a learner's feed keys.
func LearnerPrefix(learner string) string {
	return "feed:" + learner + ":"
}

type memoryItem struct {
	val     []byte
	expires time.Time // zero means no expiry
}

// Memory is an in-process Cache. Expired items are evicted lazily.
type Memory struct {
	mu    sync.Mutex
	items map[string]memoryItem
	clock clock.Clock
}

// NewMemory returns an empty in-process cache. A nil clk uses the system clock.
func NewMemory(clk clock.Clock) *Memory {
	if clk == nil {
		clk = clock.System()
	}
	return &Memory{items: make(map[string]memoryItem), clock: clk}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	if !it.expires.IsZero() && !m.clock.Now().Before(it.expires) {
		delete(m.items, key)
		return nil, false, nil
	}
	return append([]byte(nil), it.val...), true, nil
}

func (m *Memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	it := memoryItem{val: append([]byte(nil), val...)}
	if ttl > 0 {
		it.expires = m.clock.Now().Add(ttl)
	}

	m.mu.Lock()
	m.items[key] = it
	m.mu.Unlock()
	return nil
}

func (m *Memory) Invalidate(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k := range m.items {
		if strings.HasPrefix(k, prefix) {
			delete(m.items, k)
		}
	}
	return nil
}

// Len reports the number of stored items, including expired ones not yet
// evicted.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Nop) Invalidate(context.Context, string) error                 { return nil }
