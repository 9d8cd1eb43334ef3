package catalog

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/bekeleetsub857-cloud/etsub-shop/internal/kvstore"
)

// KVStore keeps the whole catalog as one JSON array under a single key of the
// persistence substrate. Every mutation loads a snapshot, builds a new list
// and writes it back whole (copy-on-write), so a persisted catalog is always
// a consistent snapshot.
type KVStore struct {
	mu  sync.Mutex
	kv  kvstore.Store
	log *zap.Logger
}

func NewKVStore(kv kvstore.Store, log *zap.Logger) *KVStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &KVStore{kv: kv, log: log}
}

func (s *KVStore) Ping(ctx context.Context) error {
	_, _, err := s.kv.Get(kvstore.KeyProducts)
	return err
}

func (s *KVStore) List(ctx context.Context) ([]Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *KVStore) Get(ctx context.Context, id string) (Product, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, err := s.load()
	if err != nil {
		return Product{}, false, err
	}
	for _, p := range ps {
		if p.ID == id {
			return p, true, nil
		}
	}
	return Product{}, false, nil
}

// Put inserts the product, or replaces the record with the same ID in place.
func (s *KVStore) Put(ctx context.Context, p Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, err := s.load()
	if err != nil {
		return err
	}

	replaced := false
	next := make([]Product, 0, len(ps)+1)
	for _, cur := range ps {
		if cur.ID == p.ID {
			next = append(next, p)
			replaced = true
			continue
		}
		next = append(next, cur)
	}
	if !replaced {
		next = append(next, p)
	}
	return s.save(next)
}

func (s *KVStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, err := s.load()
	if err != nil {
		return false, err
	}

	next := make([]Product, 0, len(ps))
	found := false
	for _, p := range ps {
		if p.ID == id {
			found = true
			continue
		}
		next = append(next, p)
	}
	if !found {
		return false, nil
	}
	return true, s.save(next)
}

func (s *KVStore) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Delete(kvstore.KeyProducts)
}

func (s *KVStore) ReplaceAll(ctx context.Context, ps []Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ps)
}

// load treats a missing or malformed payload as an empty catalog. A corrupt
// record must never take the shop down.
func (s *KVStore) load() ([]Product, error) {
	raw, ok, err := s.kv.Get(kvstore.KeyProducts)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var ps []Product
	if err := json.Unmarshal(raw, &ps); err != nil {
		s.log.Warn("catalog payload unreadable, starting empty", zap.Error(err))
		return nil, nil
	}

	sort.SliceStable(ps, func(i, j int) bool {
		return ps[i].CreatedAt.After(ps[j].CreatedAt)
	})
	return ps, nil
}

func (s *KVStore) save(ps []Product) error {
	if ps == nil {
		ps = []Product{}
	}
	raw, err := json.Marshal(ps)
	if err != nil {
		return err
	}
	return s.kv.Set(kvstore.KeyProducts, raw)
}
