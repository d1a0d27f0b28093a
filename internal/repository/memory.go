package repository

import (
	"context"
	"time"

	"github.com/alexedwards/scs/v2/memstore"
)

// MemoryStore keeps values in an scs memstore. Nothing survives a restart.
type MemoryStore struct {
	impl *memstore.MemStore
}

func NewMemory() *MemoryStore {
	// entries never expire on their own, so no cleanup goroutine is needed
	return &MemoryStore{impl: memstore.NewWithCleanupInterval(0)}
}

// memstore tracks expiry in unix nanoseconds, which rules out time.Time's
// far future.
func farFuture() time.Time {
	return time.Now().AddDate(100, 0, 0)
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	b, found, err := m.impl.Find(key)
	if err != nil {
		return "", err
	}
	if !found {
		return "", ErrNotFound
	}
	return string(b), nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	return m.impl.Commit(key, []byte(value), farFuture())
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	return m.impl.Delete(key)
}

func (m *MemoryStore) Close() {
	m.impl.StopCleanup()
}
