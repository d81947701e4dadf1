package query

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Store holds cached response bodies under versioned keys. Bumping an
// entity's version orphans every key written under the previous version.
type Store interface {
	Version(ctx context.Context, e Entity) (int64, error)
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Bump(ctx context.Context, entities ...Entity) error
}

const keyPrefix = "lib"

func versioned(k Key, ver int64) string {
	return fmt.Sprintf("%s:%s:v%d:%s", keyPrefix, k.Entity, ver, strings.TrimPrefix(k.String(), string(k.Entity)+":"))
}

type memEntry struct {
	val     []byte
	expires time.Time
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu       sync.Mutex
	versions map[Entity]int64
	entries  map[string]memEntry
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		versions: make(map[Entity]int64),
		entries:  make(map[string]memEntry),
		now:      time.Now,
	}
}

func (m *MemoryStore) Version(_ context.Context, e Entity) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.versions[e] + 1, nil
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && m.now().After(e.expires) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.val, true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var exp time.Time
	if ttl > 0 {
		exp = m.now().Add(ttl)
	}
	m.entries[key] = memEntry{val: append([]byte(nil), val...), expires: exp}
	return nil
}

// Bump advances versions and drops the orphaned entries.
func (m *MemoryStore) Bump(_ context.Context, entities ...Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entities {
		m.versions[e]++
		prefix := keyPrefix + ":" + string(e) + ":"
		for k := range m.entries {
			if strings.HasPrefix(k, prefix) {
				delete(m.entries, k)
			}
		}
	}
	return nil
}

// Len reports the number of live entries.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
