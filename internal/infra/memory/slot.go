package memory

import (
	"context"
	"sync"

	"timed-quiz-service/internal/app"
)

// SlotStore keeps one history slot per client in process memory.
type SlotStore struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

func NewSlotStore() *SlotStore {
	return &SlotStore{slots: make(map[string][]byte)}
}

// Slot returns the app.Slot of clientID.
func (s *SlotStore) Slot(clientID string) app.Slot {
	return &Slot{store: s, key: clientID}
}

// Put overwrites a slot's raw content, useful to seed fixtures.
func (s *SlotStore) Put(clientID string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[clientID] = append([]byte(nil), data...)
}

// Slot is a single client's entry in a SlotStore.
type Slot struct {
	store *SlotStore
	key   string
}

// NewSlot returns a standalone slot backed by its own store.
func NewSlot() *Slot {
	return &Slot{store: NewSlotStore(), key: "default"}
}

func (s *Slot) Load(_ context.Context) ([]byte, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	data, ok := s.store.slots[s.key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

func (s *Slot) Save(_ context.Context, data []byte) error {
	s.store.Put(s.key, data)
	return nil
}

// Raw exposes the stored bytes for assertions.
func (s *Slot) Raw() []byte {
	data, _ := s.Load(context.Background())
	return data
}

// Set overwrites the stored bytes.
func (s *Slot) Set(data []byte) {
	s.store.Put(s.key, data)
}
