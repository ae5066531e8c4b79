package directory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memory struct {
	mu    sync.RWMutex
	data  map[string]Account
	clock func() time.Time
}

// NewMemory returns a concurrency-safe in-memory Directory.
// Used when no database is configured, and in tests.
func NewMemory() Directory {
	return &memory{
		data:  make(map[string]Account),
		clock: time.Now,
	}
}

func (m *memory) LoadByEmail(_ context.Context, email string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acc, ok := m.data[NormalizeEmail(email)]
	if !ok {
		return Account{}, ErrNotFound
	}
	return acc, nil
}

func (m *memory) Create(_ context.Context, acc Account) (Account, error) {
	key := NormalizeEmail(acc.Email)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data[key]; ok {
		return Account{}, ErrAlreadyExists
	}

	now := m.clock().UTC()
	acc.Email = key
	if acc.ID == uuid.Nil {
		acc.ID = uuid.New()
	}
	if acc.RegisteredAt.IsZero() {
		acc.RegisteredAt = now
	}
	acc.UpdatedAt = now

	m.data[key] = acc
	return acc, nil
}

func (m *memory) Update(_ context.Context, acc Account) (Account, error) {
	key := NormalizeEmail(acc.Email)

	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.data[key]
	if !ok {
		return Account{}, ErrNotFound
	}

	acc.Email = key
	acc.ID = cur.ID
	if acc.PasswordHash == "" {
		acc.PasswordHash = cur.PasswordHash
	}
	acc.RegisteredAt = cur.RegisteredAt
	acc.UpdatedAt = m.clock().UTC()

	m.data[key] = acc
	return acc, nil
}
