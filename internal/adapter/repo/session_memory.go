package repo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rb-om1999/ensofinal/internal/domain"
	"github.com/rb-om1999/ensofinal/internal/session"
)

// MemoryStore keeps records in process memory. Records vanish on restart.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]session.Record
	now     func() time.Time
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]session.Record), now: time.Now}
}

func (m *MemoryStore) Load(_ context.Context, visitorID string) (session.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[visitorID]
	if !ok {
		return session.Record{}, domain.ErrNotFound
	}
	if rec.Profile != nil {
		p := *rec.Profile
		rec.Profile = &p
	}
	return rec, nil
}

func (m *MemoryStore) Save(_ context.Context, rec session.Record) error {
	if rec.VisitorID == "" {
		return fmt.Errorf("repo: visitor id is required")
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = m.now().UTC()
	}
	if rec.Profile != nil {
		p := *rec.Profile
		rec.Profile = &p
	}
	m.mu.Lock()
	m.records[rec.VisitorID] = rec
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, visitorID string) error {
	m.mu.Lock()
	delete(m.records, visitorID)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Sweep(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, rec := range m.records {
		if rec.UpdatedAt.Before(cutoff) {
			delete(m.records, id)
			removed++
		}
	}
	return removed, nil
}

var _ session.Store = (*MemoryStore)(nil)
