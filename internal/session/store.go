package session

import (
	"context"
	"sync"
	"time"
)

// Credentials is what survives a restart: the token and who it belongs to.
type Credentials struct {
	Token       string
	UserID      string
	Username    string
	StudentCode string
	SavedAt     time.Time
}

// CredentialStore persists at most one set of credentials.
type CredentialStore interface {
	Load(ctx context.Context) (Credentials, bool, error)
	Save(ctx context.Context, c Credentials) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps credentials for the life of the process.
type MemoryStore struct {
	mu  sync.Mutex
	c   Credentials
	set bool
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Load(context.Context) (Credentials, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.c, m.set, nil
}

func (m *MemoryStore) Save(_ context.Context, c Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.c, m.set = c, true
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.c, m.set = Credentials{}, false
	return nil
}
