package storefake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-medapp/token"
)

var _ token.Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory token.Store for tests. Errors can be injected per operation.
type MemoryStore struct {
	lock  sync.RWMutex
	token string

	SaveErr  error
	LoadErr  error
	ClearErr error

	Saves  int
	Clears int
}

func NewMemoryStore(initial string) *MemoryStore {
	return &MemoryStore{token: initial}
}

func (m *MemoryStore) Save(_ context.Context, t string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.Saves++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.token = t
	return nil
}

func (m *MemoryStore) Load(_ context.Context) (string, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	if m.LoadErr != nil {
		return "", m.LoadErr
	}
	return m.token, nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.Clears++
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.token = ""
	return nil
}

// Value returns the stored token without going through Load
func (m *MemoryStore) Value() string {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.token
}
