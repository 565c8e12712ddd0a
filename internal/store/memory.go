package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// MemoryStore implements Store with in-memory maps keyed by auto-incrementing IDs.
// Records handed in and out are copies, so callers cannot mutate stored state.
type MemoryStore struct {
	mu sync.RWMutex

	scans    map[int]*Scan
	sessions map[int]*Session

	nextScanID    int
	nextSessionID int

	now func() time.Time
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scans:         make(map[int]*Scan),
		sessions:      make(map[int]*Session),
		nextScanID:    1,
		nextSessionID: 1,
		now:           time.Now,
	}
}

// Scan operations

func (m *MemoryStore) CreateScan(ctx context.Context, scan *Scan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	scan.ID = m.nextScanID
	m.nextScanID++
	scan.CreatedAt = m.now()

	m.scans[scan.ID] = scan.clone()
	return nil
}

func (m *MemoryStore) GetScan(ctx context.Context, id int) (*Scan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	scan, ok := m.scans[id]
	if !ok {
		return nil, fmt.Errorf("scan %d: %w", id, ErrNotFound)
	}
	return scan.clone(), nil
}

func (m *MemoryStore) ListRecentScans(ctx context.Context, limit int) ([]*Scan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	scans := make([]*Scan, 0, len(m.scans))
	for _, s := range m.scans {
		scans = append(scans, s.clone())
	}
	slices.SortFunc(scans, func(a, b *Scan) int {
		return newestFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
	return truncate(scans, normalizeLimit(limit)), nil
}

// Mediation session operations

func (m *MemoryStore) CreateSession(ctx context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session.ID = m.nextSessionID
	m.nextSessionID++
	session.CreatedAt = m.now()

	m.sessions[session.ID] = session.clone()
	return nil
}

func (m *MemoryStore) GetSession(ctx context.Context, id int) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %d: %w", id, ErrNotFound)
	}
	return session.clone(), nil
}

func (m *MemoryStore) UpdateSession(ctx context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.sessions[session.ID]
	if !ok {
		return fmt.Errorf("session %d: %w", session.ID, ErrNotFound)
	}
	// creation time is owned by the store
	session.CreatedAt = existing.CreatedAt
	m.sessions[session.ID] = session.clone()
	return nil
}

func (m *MemoryStore) ListRecentSessions(ctx context.Context, limit int) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s.clone())
	}
	slices.SortFunc(sessions, func(a, b *Session) int {
		return newestFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
	return truncate(sessions, normalizeLimit(limit)), nil
}

// newestFirst orders by creation time descending, breaking ties by higher ID.
func newestFirst(ta, tb time.Time, ida, idb int) int {
	if c := tb.Compare(ta); c != 0 {
		return c
	}
	return cmp.Compare(idb, ida)
}

func truncate[T any](items []T, limit int) []T {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}
