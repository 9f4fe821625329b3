package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"kpidash/internal"
)

// Event types pushed to dashboard pages
const (
	EventReload    = "reload"
	EventLoadError = "load_error"
	eventPing      = "ping"
)

// Event tells connected pages that the workbook changed
type Event struct {
	Type      string    `json:"type"`
	Source    string    `json:"source,omitempty"`
	Rows      int       `json:"rows,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventHub fans workbook events out to Server-Sent Events clients
type EventHub struct {
	clients    map[chan Event]bool
	clientsMu  sync.RWMutex
	register   chan chan Event
	unregister chan chan Event
	broadcast  chan Event
	done       chan struct{}
	closeOnce  sync.Once
	keepAlive  time.Duration
	logger     *internal.Logger
}

// NewEventHub starts a hub; Close stops it
func NewEventHub() *EventHub {
	hub := &EventHub{
		clients:    make(map[chan Event]bool),
		register:   make(chan chan Event, 10),
		unregister: make(chan chan Event, 10),
		broadcast:  make(chan Event, 100),
		done:       make(chan struct{}),
		keepAlive:  30 * time.Second,
		logger:     internal.DefaultLogger.Named("SSE"),
	}
	go hub.run()
	return hub
}

func (h *EventHub) run() {
	for {
		select {
		case client := <-h.register:
			h.clientsMu.Lock()
			h.clients[client] = true
			h.logger.Debug("client registered (total clients: %d)", len(h.clients))
			h.clientsMu.Unlock()

		case client := <-h.unregister:
			h.clientsMu.Lock()
			if h.clients[client] {
				delete(h.clients, client)
				close(client)
				h.logger.Debug("client unregistered (remaining clients: %d)", len(h.clients))
			}
			h.clientsMu.Unlock()

		case event := <-h.broadcast:
			h.clientsMu.RLock()
			for client := range h.clients {
				select {
				case client <- event:
				default:
					h.logger.Warn("client channel full, skipping %s event", event.Type)
				}
			}
			h.clientsMu.RUnlock()

		case <-h.done:
			h.clientsMu.Lock()
			for client := range h.clients {
				close(client)
			}
			h.clients = make(map[chan Event]bool)
			h.clientsMu.Unlock()
			return
		}
	}
}

// Broadcast queues an event for every client. A full queue drops it.
func (h *EventHub) Broadcast(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("broadcast channel full, dropping %s event", event.Type)
	}
}

// Close disconnects every client and stops the hub
func (h *EventHub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ClientCount returns the number of connected clients
func (h *EventHub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// ServeHTTP streams events until the client goes away or the hub closes
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client := make(chan Event, 10)
	select {
	case h.register <- client:
	case <-h.done:
		http.Error(w, "event hub closed", http.StatusServiceUnavailable)
		return
	}
	defer func() {
		select {
		case h.unregister <- client:
		case <-h.done:
		}
	}()

	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case event, open := <-client:
			if !open {
				return
			}
			if err := writeEvent(w, event); err != nil {
				h.logger.Warn("failed to write event: %v", err)
				return
			}
			flusher.Flush()
		case now := <-ticker.C:
			if err := writeEvent(w, Event{Type: eventPing, Timestamp: now}); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		case <-h.done:
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
	return err
}
