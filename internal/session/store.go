package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/gradecalc/internal/grading"
)

var ErrNotFound = errors.New("session not found")

// Store holds the entry set of each open calculator page. Nothing outlives
// the process; a page reload starts a new session.
type Store interface {
	Create(ctx context.Context) (uuid.UUID, error)
	Entries(ctx context.Context, id uuid.UUID) ([]grading.ScoreEntry, error)
	SetEntry(ctx context.Context, id uuid.UUID, e grading.ScoreEntry) ([]grading.ScoreEntry, error)
	Sweep(ctx context.Context, idle time.Duration) int
	Len() int
}

type session struct {
	entries  []grading.ScoreEntry
	lastSeen time.Time
}

type MemoryStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*session
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[uuid.UUID]*session),
		now:      time.Now,
	}
}

func (m *MemoryStore) Create(_ context.Context) (uuid.UUID, error) {
	id := uuid.New()
	m.mu.Lock()
	m.sessions[id] = &session{lastSeen: m.now()}
	m.mu.Unlock()
	return id, nil
}

// Entries returns a copy of the session's entries in insertion order.
func (m *MemoryStore) Entries(_ context.Context, id uuid.UUID) ([]grading.ScoreEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.lastSeen = m.now()
	out := make([]grading.ScoreEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

// SetEntry applies e with grading.Upsert and returns the updated entries.
func (m *MemoryStore) SetEntry(_ context.Context, id uuid.UUID, e grading.ScoreEntry) ([]grading.ScoreEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.entries = grading.Upsert(s.entries, e)
	s.lastSeen = m.now()
	out := make([]grading.ScoreEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

// Sweep drops sessions not touched within idle and returns how many went.
func (m *MemoryStore) Sweep(_ context.Context, idle time.Duration) int {
	cutoff := m.now().Add(-idle)
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// RunSweeper calls Sweep every interval until ctx is cancelled. A
// non-positive interval disables sweeping.
func RunSweeper(ctx context.Context, s Store, interval, idle time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		logger.Warn("session sweeper disabled", "interval", interval)
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(ctx, idle); n > 0 {
				logger.Info("expired idle sessions", "removed", n, "remaining", s.Len())
			}
		}
	}
}
