// Package session holds the current imported trade set and its daily index.
//
// A session is created once per import and is immutable afterwards. Replacing
// the dataset means building a whole new session and atomically installing it
// in the Manager; every derived report is recomputed from the installed
// session on request, so nothing has to be invalidated piecemeal.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"tradescope/internal/domain"
)

// ImportStats accounts for every data row of an import.
// Retained + RejectedInvalid + RejectedFiltered equals the number of
// data lines in the source CSV.
type ImportStats struct {
	Candidates       int `json:"candidates"`
	Retained         int `json:"retained"`
	RejectedInvalid  int `json:"rejected_invalid"`
	RejectedFiltered int `json:"rejected_filtered"`
}

// Session is one imported dataset.
type Session struct {
	ID         string
	SourceName string
	Filter     string
	ImportedAt time.Time
	Trades     []domain.TradeRecord
	Daily      map[string]*DailyAggregate
	Stats      ImportStats
}

// New builds a session around an already-normalized trade set,
// assigning a fresh ID and computing the daily index.
func New(sourceName, filter string, trades []domain.TradeRecord, stats ImportStats) *Session {
	return &Session{
		ID:         uuid.New().String(),
		SourceName: sourceName,
		Filter:     filter,
		ImportedAt: time.Now().UTC(),
		Trades:     trades,
		Daily:      BuildDailyIndex(trades),
		Stats:      stats,
	}
}

// Manager guards access to the current session. The pipeline itself is
// synchronous, but sessions are installed and read from HTTP handlers,
// so replacement goes through a mutex.
type Manager struct {
	mu      sync.RWMutex
	current *Session
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{}
}

// Current returns the installed session, or nil before the first import.
func (m *Manager) Current() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Replace installs a new session wholesale. The previous session is
// simply dropped; callers holding it keep a consistent snapshot.
func (m *Manager) Replace(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = s
}
