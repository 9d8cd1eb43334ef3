// Package kvstore is the persistence substrate for the shop: a flat
// string-keyed byte store. The catalog, the cached exchange rate and the
// admin session state all live under well-known keys here.
package kvstore

import "sync"

// Keys used by the rest of the system.
const (
	KeyProducts        = "products"
	KeyUSDRate         = "usd_rate"
	KeyRateCache       = "rate_cache"
	KeyRateLastUpdated = "rate_last_updated"
	KeyAdminSession    = "admin_session"
	KeyAdminGuard      = "admin_guard"
)

// Store is a minimal key-value contract. Get reports absence via the bool,
// never as an error; a missing key is a normal condition for every consumer.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Close() error
}

type MemStore struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{m: make(map[string][]byte)}
}

func (s *MemStore) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.m[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (s *MemStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	s.m[key] = v
	return nil
}

func (s *MemStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.m, key)
	return nil
}

func (s *MemStore) Close() error { return nil }
