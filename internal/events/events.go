// Package events provides a minimal typed pub/sub bus for dataset changes.
// The dashboard frontend subscribes (via the server's websocket endpoint)
// to learn when the current import has been replaced and reports must be
// refetched.
package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType identifies an event on the bus.
type EventType string

const (
	// DatasetReplaced fires after an import installs a new session.
	// All previously fetched reports are stale once this is seen.
	DatasetReplaced EventType = "dataset_replaced"
)

// Event is one bus message.
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// DatasetReplacedData carries the import outcome.
type DatasetReplacedData struct {
	SessionID        string `json:"session_id"`
	SourceName       string `json:"source_name"`
	Filter           string `json:"filter"`
	Retained         int    `json:"retained"`
	RejectedInvalid  int    `json:"rejected_invalid"`
	RejectedFiltered int    `json:"rejected_filtered"`
}

// Manager fans events out to subscribers. Publish never blocks: a
// subscriber that stops draining its channel misses events rather than
// stalling the import pipeline.
type Manager struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	log    zerolog.Logger
}

// NewManager creates an event manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		subs: make(map[int]chan Event),
		log:  log.With().Str("component", "events").Logger(),
	}
}

// Subscribe registers a new subscriber and returns its ID and channel.
func (m *Manager) Subscribe() (int, <-chan Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++

	ch := make(chan Event, 16)
	m.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (m *Manager) Unsubscribe(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ch, ok := m.subs[id]; ok {
		delete(m.subs, id)
		close(ch)
	}
}

// Publish sends an event to all subscribers.
func (m *Manager) Publish(evtType EventType, data interface{}) {
	evt := Event{
		Type:      evtType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, ch := range m.subs {
		select {
		case ch <- evt:
		default:
			m.log.Warn().Int("subscriber", id).Str("event", string(evtType)).Msg("Subscriber queue full, dropping event")
		}
	}
}
