package storage

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// lockStripes bounds the number of write locks regardless of how many users
// have been seen.
const lockStripes = 64

// MemoryStore keeps records in process memory. Writes to the same user are
// serialized by the lock stripe the user hashes to.
type MemoryStore struct {
	clock Clock

	mu      sync.RWMutex
	records map[string]json.RawMessage

	stripes [lockStripes]sync.Mutex
}

// NewMemoryStore creates an empty MemoryStore. clock may be nil.
func NewMemoryStore(clock Clock) *MemoryStore {
	return &MemoryStore{
		clock:   clock,
		records: make(map[string]json.RawMessage),
	}
}

func stripeIndex(userID string) int {
	return int(xxhash.Sum64String(userID) % lockStripes)
}

func (s *MemoryStore) lockFor(userID string) *sync.Mutex {
	return &s.stripes[stripeIndex(userID)]
}

func (s *MemoryStore) Read(_ context.Context, userID string) (json.RawMessage, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[userID]
	return record, ok, nil
}

func (s *MemoryStore) Write(_ context.Context, userID string, data json.RawMessage) (Metadata, error) {
	if err := validateObject(data); err != nil {
		return Metadata{}, err
	}

	l := s.lockFor(userID)
	l.Lock()
	defer l.Unlock()

	s.mu.RLock()
	prior := versionOf(s.records[userID])
	s.mu.RUnlock()

	meta := Metadata{LastUpdated: s.clock.stamp(), Version: prior + 1}
	record, err := withMetadata(data, meta)
	if err != nil {
		return Metadata{}, err
	}

	s.mu.Lock()
	s.records[userID] = record
	s.mu.Unlock()

	return meta, nil
}

func (s *MemoryStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
