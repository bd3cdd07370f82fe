package lifecycle

import (
	"context"
	"encoding/json"
	"sync"

	"jan-server/services/claims-api/internal/domain/decision"
)

// MemoryStore keeps lifecycle records in process memory. Records are stored
// serialized so callers never share mutable state with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
	locks   *keyedMutex
}

// NewMemoryStore creates an empty in-memory lifecycle store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string][]byte),
		locks:   newKeyedMutex(),
	}
}

func (s *MemoryStore) Create(ctx context.Context, record *decision.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.CallID]; exists {
		return decision.ErrAlreadyExists
	}
	s.records[record.CallID] = data
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, callID string) (*decision.Record, error) {
	s.mu.RLock()
	data, ok := s.records[callID]
	s.mu.RUnlock()
	if !ok {
		return nil, decision.ErrNotFound
	}
	return decode(data)
}

func (s *MemoryStore) GetMany(ctx context.Context, callIDs []string) (map[string]*decision.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*decision.Record, len(callIDs))
	for _, id := range callIDs {
		data, ok := s.records[id]
		if !ok {
			continue
		}
		record, err := decode(data)
		if err != nil {
			return nil, err
		}
		out[id] = record
	}
	return out, nil
}

func (s *MemoryStore) Save(ctx context.Context, record *decision.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.CallID]; !exists {
		return decision.ErrNotFound
	}
	s.records[record.CallID] = data
	return nil
}

func (s *MemoryStore) Lock(ctx context.Context, callID string) (func(), error) {
	return s.locks.lock(ctx, callID)
}

func decode(data []byte) (*decision.Record, error) {
	var record decision.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// keyedMutex hands out one mutex per key and drops it once nobody holds or waits on it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	ch   chan struct{}
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refLock)}
}

func (k *keyedMutex) lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{ch: make(chan struct{}, 1)}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(key, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			k.release(key, l)
		})
	}, nil
}

func (k *keyedMutex) release(key string, l *refLock) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}

var _ decision.Store = (*MemoryStore)(nil)
