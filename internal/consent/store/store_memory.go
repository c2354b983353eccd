package store

import (
	"context"
	"sort"
	"sync"

	"afyalink/internal/consent/models"
	"afyalink/pkg/platform/sentinel"
	psync "afyalink/pkg/platform/sync"
)

// InMemoryStore stores consent rows and access requests in memory.
// Consents are keyed by the (patient, doctor) pair; a pending-request index
// keeps the one-pending-per-pair lookup O(1).
type InMemoryStore struct {
	mu       sync.RWMutex
	consents map[string]*models.Consent       // pair key -> row
	requests map[string]*models.AccessRequest // request ID -> row
	pending  map[string]string                // pair key -> pending request ID
}

// New constructs an empty in-memory consent store.
func New() *InMemoryStore {
	return &InMemoryStore{
		consents: make(map[string]*models.Consent),
		requests: make(map[string]*models.AccessRequest),
		pending:  make(map[string]string),
	}
}

func (s *InMemoryStore) SaveConsent(_ context.Context, consent *models.Consent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *consent
	s.consents[psync.PairKey(consent.PatientNIDA, consent.DoctorID)] = &cp
	return nil
}

func (s *InMemoryStore) FindConsent(_ context.Context, patientNIDA, doctorID string) (*models.Consent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	consent, ok := s.consents[psync.PairKey(patientNIDA, doctorID)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *consent
	return &cp, nil
}

func (s *InMemoryStore) ListConsentsByPatient(_ context.Context, patientNIDA string) ([]*models.Consent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Consent
	for _, consent := range s.consents {
		if consent.PatientNIDA == patientNIDA {
			cp := *consent
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DoctorID < out[j].DoctorID })
	return out, nil
}

func (s *InMemoryStore) ListConsentsByDoctor(_ context.Context, doctorID string) ([]*models.Consent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Consent
	for _, consent := range s.consents {
		if consent.DoctorID == doctorID {
			cp := *consent
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PatientNIDA < out[j].PatientNIDA })
	return out, nil
}

func (s *InMemoryStore) SaveRequest(_ context.Context, request *models.AccessRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *request
	s.requests[request.ID] = &cp

	pairKey := psync.PairKey(request.PatientNIDA, request.DoctorID)
	if request.Status == models.RequestPending {
		s.pending[pairKey] = request.ID
	} else if s.pending[pairKey] == request.ID {
		delete(s.pending, pairKey)
	}
	return nil
}

func (s *InMemoryStore) GetRequest(_ context.Context, requestID string) (*models.AccessRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	request, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *request
	return &cp, nil
}

func (s *InMemoryStore) FindPendingRequest(_ context.Context, patientNIDA, doctorID string) (*models.AccessRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	requestID, ok := s.pending[psync.PairKey(patientNIDA, doctorID)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.requests[requestID]
	return &cp, nil
}

func (s *InMemoryStore) ListRequestsByPatient(_ context.Context, patientNIDA string, status *models.RequestStatus) ([]*models.AccessRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.AccessRequest
	for _, request := range s.requests {
		if request.PatientNIDA != patientNIDA {
			continue
		}
		if status != nil && request.Status != *status {
			continue
		}
		cp := *request
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out, nil
}
