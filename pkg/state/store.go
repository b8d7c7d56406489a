// Package state persists donation cursors per node instance.
//
// A Store is the Go counterpart of a node's static data: each node instance
// owns exactly one cursor, addressed by Key, and nothing else reads it.
package state

import (
	"context"
	"sync"

	"donation-nodes/pkg/donation"
)

// Key addresses one node instance inside one workflow.
type Key struct {
	Workflow string
	Node     string
}

func (k Key) String() string { return k.Workflow + "/" + k.Node }

// Store loads and saves cursors. Load returns a zero cursor (never an error)
// for a key that has not been saved yet. Save must never drop processed ids
// that an earlier Save recorded.
type Store interface {
	Load(ctx context.Context, key Key) (donation.Cursor, error)
	Save(ctx context.Context, key Key, cur donation.Cursor) error
}

// MemoryStore keeps cursors in process memory. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	cursors map[Key]donation.Cursor
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cursors: make(map[Key]donation.Cursor)}
}

func (s *MemoryStore) Load(_ context.Context, key Key) (donation.Cursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur, ok := s.cursors[key]
	if !ok {
		return donation.Cursor{ProcessedIDs: map[string]bool{}}, nil
	}
	return cur.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, key Key, cur donation.Cursor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := cur.Clone()
	for id := range s.cursors[key].ProcessedIDs {
		next.ProcessedIDs[id] = true
	}
	s.cursors[key] = next
	return nil
}
