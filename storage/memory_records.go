package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/ruteri/zkkb/interfaces"
)

// MemoryRecordStore is a process-local RecordStore, used by tests and ephemeral gatekeepers.
type MemoryRecordStore struct {
	mu      sync.RWMutex
	records map[interfaces.RecordNamespace]map[string][]byte
}

func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{records: make(map[interfaces.RecordNamespace]map[string][]byte)}
}

func (s *MemoryRecordStore) Get(ctx context.Context, namespace interfaces.RecordNamespace, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.records[namespace][key]
	if !ok {
		return nil, interfaces.ErrRecordNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *MemoryRecordStore) Put(ctx context.Context, namespace interfaces.RecordNamespace, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.records[namespace]
	if !ok {
		ns = make(map[string][]byte)
		s.records[namespace] = ns
	}
	ns[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryRecordStore) Delete(ctx context.Context, namespace interfaces.RecordNamespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records[namespace], key)
	return nil
}

func (s *MemoryRecordStore) List(ctx context.Context, namespace interfaces.RecordNamespace) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.records[namespace]))
	for k := range s.records[namespace] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemoryRecordStore) Available(ctx context.Context) bool { return true }

func (s *MemoryRecordStore) Name() string { return "memory" }

func (s *MemoryRecordStore) LocationURI() string { return "memory://" }
