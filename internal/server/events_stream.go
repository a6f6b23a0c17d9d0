package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"tradescope/internal/events"
)

// EventStream pushes bus events to connected dashboard clients over
// websockets. A client that stops reading is dropped, never blocking
// the import pipeline.
type EventStream struct {
	events *events.Manager
	log    zerolog.Logger

	mu     sync.Mutex
	closed bool
	cancel map[int]context.CancelFunc
}

// NewEventStream creates an event stream.
func NewEventStream(eventManager *events.Manager, log zerolog.Logger) *EventStream {
	return &EventStream{
		events: eventManager,
		log:    log.With().Str("component", "event_stream").Logger(),
		cancel: make(map[int]context.CancelFunc),
	}
}

// HandleWebSocket handles GET /api/events/ws
func (s *EventStream) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}

	id, ch := s.events.Subscribe()

	ctx, cancel := context.WithCancel(r.Context())
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		s.events.Unsubscribe(id)
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	s.cancel[id] = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.cancel, id)
		s.mu.Unlock()
		s.events.Unsubscribe(id)
		conn.Close(websocket.StatusNormalClosure, "")
	}()

	s.log.Debug().Int("subscriber", id).Msg("Websocket client connected")

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			writeCtx, writeCancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, evt)
			writeCancel()
			if err != nil {
				s.log.Debug().Err(err).Int("subscriber", id).Msg("Websocket write failed, dropping client")
				return
			}
		}
	}
}

// Close disconnects all clients.
func (s *EventStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for _, cancel := range s.cancel {
		cancel()
	}
}
