package main

import (
	"sync"

	"github.com/rs/zerolog"
)

// sessionLink is what the hub needs from a session. It enables faking
// sessions in tests without a live WebSocket connection.
type sessionLink interface {
	ID() string
	Send(env *Envelope)
	Close()
}

// Dispatcher is the fan-out primitive the catalog engine and the chat room
// use to reach all connected sessions or one session. Delivery is
// best-effort: a session that is gone or cannot keep up is skipped or
// evicted, never reported to the caller.
type Dispatcher interface {
	Broadcast(event string, data any)
	SendTo(sessionID, event string, data any)
}

// Hub maintains live sessions and routes events to them.
type Hub struct {
	// Sessions indexed by session ID
	sessions map[string]sessionLink

	mu sync.RWMutex

	// dispatchMu serializes event dispatch so every session observes the
	// same relative order of broadcasts.
	dispatchMu sync.Mutex

	// Channels for session management
	register   chan sessionLink
	unregister chan sessionLink
	shutdown   chan struct{}

	// Chat room, notified of disconnects (set after initialization)
	room *Room

	log zerolog.Logger
}

// Compile-time check that Hub implements Dispatcher.
var _ Dispatcher = (*Hub)(nil)

// NewHub creates a new Hub instance.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		sessions:   make(map[string]sessionLink),
		register:   make(chan sessionLink, 256),
		unregister: make(chan sessionLink, 256),
		shutdown:   make(chan struct{}),
		log:        log.With().Str("component", "hub").Logger(),
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case sess := <-h.register:
			h.addSession(sess)

		case sess := <-h.unregister:
			h.removeSession(sess)

		case <-h.shutdown:
			h.closeAllSessions()
			return
		}
	}
}

// Shutdown gracefully shuts down the hub.
func (h *Hub) Shutdown() {
	close(h.shutdown)
}

// SetRoom sets the chat room notified of session disconnects.
func (h *Hub) SetRoom(r *Room) {
	h.room = r
}

// Register adds a session to the hub.
// Non-blocking: if the buffer is full, spawns a goroutine to retry.
func (h *Hub) Register(sess sessionLink) {
	select {
	case h.register <- sess:
	default:
		go func() { h.register <- sess }()
	}
}

// Unregister removes a session from the hub. Idempotent.
// Non-blocking: if the buffer is full, spawns a goroutine to retry.
// This prevents connection leaks when sessions can't unregister.
func (h *Hub) Unregister(sess sessionLink) {
	select {
	case h.unregister <- sess:
	default:
		go func() { h.unregister <- sess }()
	}
}

func (h *Hub) addSession(sess sessionLink) {
	h.mu.Lock()
	h.sessions[sess.ID()] = sess
	h.mu.Unlock()

	h.log.Debug().Str("session", shortSID(sess.ID())).Msg("session registered")
}

func (h *Hub) removeSession(sess sessionLink) {
	h.mu.Lock()
	_, live := h.sessions[sess.ID()]
	if live {
		delete(h.sessions, sess.ID())
	}
	h.mu.Unlock()

	if !live {
		return
	}

	h.log.Debug().Str("session", shortSID(sess.ID())).Msg("session unregistered")

	// Presence cleanup. A no-op for sessions that never joined the chat.
	if h.room != nil {
		h.room.Leave(sess.ID())
	}
}

func (h *Hub) closeAllSessions() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sess := range h.sessions {
		sess.Close()
	}
	h.sessions = make(map[string]sessionLink)
}

// SessionCount returns the number of live sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Broadcast sends an event to every session live at call time.
func (h *Hub) Broadcast(event string, data any) {
	env, err := NewEnvelope(event, data)
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("failed to encode broadcast")
		return
	}

	h.mu.RLock()
	targets := make([]sessionLink, 0, len(h.sessions))
	for _, sess := range h.sessions {
		targets = append(targets, sess)
	}
	h.mu.RUnlock()

	h.dispatchMu.Lock()
	defer h.dispatchMu.Unlock()
	for _, sess := range targets {
		sess.Send(env)
	}
}

// SendTo sends an event to a single session. Delivery to a session that is
// already gone is silently dropped.
func (h *Hub) SendTo(sessionID, event string, data any) {
	h.mu.RLock()
	sess := h.sessions[sessionID]
	h.mu.RUnlock()

	if sess == nil {
		return
	}

	env, err := NewEnvelope(event, data)
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("failed to encode event")
		return
	}

	h.dispatchMu.Lock()
	defer h.dispatchMu.Unlock()
	sess.Send(env)
}
