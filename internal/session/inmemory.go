package session

import (
	"context"
	"sync"
)

// InMemoryStore is a simple in-process store for local/dev use and tests.
// It stores the same encoded blobs the durable stores do, so codec behavior
// is identical across backends.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]memoryEntry
}

type memoryEntry struct {
	turns []byte
	state []byte
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]memoryEntry)}
}

func (s *InMemoryStore) Load(_ context.Context, sessionID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.records[sessionID]
	if !ok {
		return Record{}, nil
	}
	return decodeRecord(entry.turns, entry.state), nil
}

func (s *InMemoryStore) Persist(_ context.Context, sessionID string, rec Record) error {
	turnsBlob, stateBlob, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[sessionID] = memoryEntry{turns: turnsBlob, state: stateBlob}
	return nil
}

func (s *InMemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, sessionID)
	return nil
}

func (s *InMemoryStore) Close() error { return nil }
