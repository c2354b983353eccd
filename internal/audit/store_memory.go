package audit

import (
	"context"
	"sync"
)

// InMemoryStore keeps audit events in memory, keyed by patient.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[string][]Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[string][]Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string][]Event)
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.PatientNIDA] = append(s.events[event.PatientNIDA], event)
	return nil
}

func (s *InMemoryStore) ListByPatient(_ context.Context, patientNIDA string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events[patientNIDA]...), nil
}
