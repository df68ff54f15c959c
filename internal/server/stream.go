package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Event types sent on the selection stream.
const (
	EventReady    = "ready"
	EventCreated  = "created"
	EventReleased = "released"
)

// SelectionEvent reports a change in the set of held selections.
type SelectionEvent struct {
	Type        string    `json:"type"`
	SelectionID string    `json:"selectionId,omitempty"`
	Devices     int       `json:"devices,omitempty"`
	Live        int       `json:"live"` // held selections after the event
	Timestamp   time.Time `json:"timestamp"`
}

// EventBroadcaster fans selection events out to SSE clients
type EventBroadcaster struct {
	mu      sync.RWMutex
	clients map[chan SelectionEvent]struct{}
	closed  bool
}

// NewEventBroadcaster creates a new event broadcaster
func NewEventBroadcaster() *EventBroadcaster {
	return &EventBroadcaster{
		clients: make(map[chan SelectionEvent]struct{}),
	}
}

// Subscribe adds a client. The returned channel is closed by Unsubscribe or
// Close.
func (eb *EventBroadcaster) Subscribe() chan SelectionEvent {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan SelectionEvent, 10) // Buffered to prevent blocking
	if eb.closed {
		close(ch)
		return ch
	}
	eb.clients[ch] = struct{}{}

	slog.Debug("SSE client subscribed", "total_clients", len(eb.clients))
	return ch
}

// Unsubscribe removes a client from receiving events
func (eb *EventBroadcaster) Unsubscribe(ch chan SelectionEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if _, ok := eb.clients[ch]; ok {
		delete(eb.clients, ch)
		close(ch)
	}

	slog.Debug("SSE client unsubscribed", "total_clients", len(eb.clients))
}

// Clients returns the number of subscribed clients.
func (eb *EventBroadcaster) Clients() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.clients)
}

// Broadcast sends an event to all subscribed clients
func (eb *EventBroadcaster) Broadcast(event SelectionEvent) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if len(eb.clients) == 0 {
		return
	}

	slog.Debug("Broadcasting event", "type", event.Type, "clients", len(eb.clients))

	for ch := range eb.clients {
		select {
		case ch <- event:
		default:
			// Channel full, skip this client (prevents blocking)
			slog.Warn("SSE channel full, skipping event", "type", event.Type)
		}
	}
}

// Close disconnects every client.
func (eb *EventBroadcaster) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for ch := range eb.clients {
		close(ch)
	}
	eb.clients = make(map[chan SelectionEvent]struct{})
	eb.closed = true
}

// handleEvents handles GET /api/v1/events
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal", "SSE not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	eventChan := s.selections.broadcaster.Subscribe()
	defer s.selections.broadcaster.Unsubscribe(eventChan)

	ready := SelectionEvent{Type: EventReady, Live: s.selections.Len(), Timestamp: time.Now()}
	if err := writeSSEEvent(w, ready); err != nil {
		slog.Error("Failed to write initial SSE event", "error", err)
		return
	}
	flusher.Flush()

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			slog.Debug("SSE client disconnected")
			return

		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if err := writeSSEEvent(w, event); err != nil {
				slog.Error("Failed to write SSE event", "error", err)
				return
			}
			flusher.Flush()

		case <-pingTicker.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

// writeSSEEvent writes an event in SSE format
func writeSSEEvent(w http.ResponseWriter, event SelectionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
	return err
}
