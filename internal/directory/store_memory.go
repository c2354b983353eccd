package directory

import (
	"context"
	"sort"
	"sync"

	"afyalink/pkg/platform/sentinel"
)

// InMemoryStore keeps patients and doctors in memory. All reads return copies
// so callers cannot mutate stored state.
type InMemoryStore struct {
	mu       sync.RWMutex
	patients map[string]*Patient
	doctors  map[string]*Doctor
}

// NewInMemoryStore constructs an empty directory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		patients: make(map[string]*Patient),
		doctors:  make(map[string]*Doctor),
	}
}

func (s *InMemoryStore) SavePatient(_ context.Context, patient *Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *patient
	s.patients[patient.NIDA] = &cp
	return nil
}

func (s *InMemoryStore) GetPatient(_ context.Context, nida string) (*Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	patient, ok := s.patients[nida]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *patient
	return &cp, nil
}

func (s *InMemoryStore) SaveDoctor(_ context.Context, doctor *Doctor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *doctor
	s.doctors[doctor.ID] = &cp
	return nil
}

func (s *InMemoryStore) GetDoctor(_ context.Context, doctorID string) (*Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doctor, ok := s.doctors[doctorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *doctor
	return &cp, nil
}

func (s *InMemoryStore) SearchPatients(_ context.Context, match func(*Patient) bool) ([]*Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found []*Patient
	for _, patient := range s.patients {
		if match == nil || match(patient) {
			cp := *patient
			found = append(found, &cp)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].NIDA < found[j].NIDA })
	return found, nil
}

func (s *InMemoryStore) ListDoctors(_ context.Context) ([]*Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var doctors []*Doctor
	for _, doctor := range s.doctors {
		cp := *doctor
		doctors = append(doctors, &cp)
	}
	sort.Slice(doctors, func(i, j int) bool { return doctors[i].ID < doctors[j].ID })
	return doctors, nil
}
