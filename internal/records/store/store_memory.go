package store

import (
	"context"
	"sort"
	"sync"

	"afyalink/internal/records/models"
	"afyalink/pkg/platform/sentinel"
)

// InMemoryStore stores health records in memory, keyed by record ID.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*models.HealthRecord
}

// New constructs an empty in-memory record store.
func New() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]*models.HealthRecord)}
}

func (s *InMemoryStore) Save(_ context.Context, record *models.HealthRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := copyRecord(record)
	s.records[record.ID] = cp
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, recordID string) (*models.HealthRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[recordID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyRecord(record), nil
}

func (s *InMemoryStore) ListByPatient(_ context.Context, patientNIDA string) ([]*models.HealthRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.HealthRecord
	for _, record := range s.records {
		if record.Active && record.PatientNIDA == patientNIDA {
			out = append(out, copyRecord(record))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemoryStore) ListAll(_ context.Context) ([]*models.HealthRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.HealthRecord, 0, len(s.records))
	for _, record := range s.records {
		if !record.Active {
			continue
		}
		out = append(out, copyRecord(record))
	}
	sortNewestFirst(out)
	return out, nil
}

func copyRecord(record *models.HealthRecord) *models.HealthRecord {
	cp := *record
	if record.SealedData != nil {
		cp.SealedData = make([]byte, len(record.SealedData))
		copy(cp.SealedData, record.SealedData)
	}
	return &cp
}

func sortNewestFirst(records []*models.HealthRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID > records[j].ID
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}
