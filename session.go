package main

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024 // 64KB
	// Send buffer size
	sendBufferSize = 128
)

// Session connection states. Transitions are one-way:
// connecting -> connected -> disconnected.
const (
	stateConnecting int32 = iota
	stateConnected
	stateDisconnected
)

// Session represents one live WebSocket connection. Its identifier is
// assigned at construction and never reused; a reconnecting client gets a
// fresh session.
type Session struct {
	id         string
	hub        *Hub
	conn       *websocket.Conn
	send       chan *Envelope
	catalog    *Catalog
	room       *Room
	remoteAddr string
	log        zerolog.Logger

	// Connection state (atomic access)
	state int32

	once sync.Once
}

// Compile-time check that Session implements sessionLink.
var _ sessionLink = (*Session)(nil)

// NewSession creates a new session around an upgraded connection.
func NewSession(hub *Hub, conn *websocket.Conn, remoteAddr string, catalog *Catalog, room *Room, log zerolog.Logger) *Session {
	id := uuid.New().String()
	return &Session{
		id:         id,
		hub:        hub,
		conn:       conn,
		send:       make(chan *Envelope, sendBufferSize),
		catalog:    catalog,
		room:       room,
		remoteAddr: remoteAddr,
		state:      stateConnecting,
		log:        log.With().Str("session", shortSID(id)).Logger(),
	}
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// Send queues an event for delivery to the client.
// Safe to call from multiple goroutines.
func (s *Session) Send(env *Envelope) {
	// Close() may close the channel between the state check and the send;
	// recovering here is cheaper than taking a mutex on every send.
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed, session is gone - drop the event
		}
	}()

	if atomic.LoadInt32(&s.state) == stateDisconnected {
		return
	}
	select {
	case s.send <- env:
	default:
		// Buffer full: the client can't keep up, evict it rather than
		// blocking the dispatcher.
		go s.Close()
	}
}

// Close closes the session.
// Safe to call multiple times - only the first call takes effect.
func (s *Session) Close() {
	s.once.Do(func() {
		atomic.StoreInt32(&s.state, stateDisconnected)
		close(s.send)
		s.conn.Close()
	})
}

// Run starts the session's read and write pumps. Blocks until the
// connection closes.
func (s *Session) Run() {
	atomic.StoreInt32(&s.state, stateConnected)
	go s.writePump()
	s.readPump()
}

// readPump pumps events from the WebSocket connection to the engines.
// Events are handled one at a time, so a single session's intents are
// processed in submission order.
func (s *Session) readPump() {
	defer func() {
		s.hub.Unregister(s)
		s.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.log.Debug().Err(err).Msg("unexpected close")
			}
			break
		}

		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			s.sendError("malformed message")
			continue
		}

		s.dispatch(&env)
	}
}

// writePump pumps queued events to the WebSocket connection.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	for {
		select {
		case env, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := s.conn.WriteJSON(env); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch routes an inbound event to the appropriate engine.
func (s *Session) dispatch(env *Envelope) {
	switch env.Event {
	case EvGetAllIphones:
		s.catalog.HandleList(s.id)
	case EvCreateIphone:
		s.catalog.HandleCreate(s.id, env.Data)
	case EvUpdateIphone:
		s.catalog.HandleUpdate(s.id, env.Data)
	case EvDeleteIphone:
		s.catalog.HandleDelete(s.id, env.Data)
	case EvJoinChat:
		s.room.HandleJoin(s.id, env.Data)
	case EvSendMessage:
		s.room.HandleSend(s.id, env.Data)
	default:
		s.sendError("unknown event: " + env.Event)
	}
}

func (s *Session) sendError(text string) {
	env, err := NewEnvelope(EvError, text)
	if err != nil {
		return
	}
	s.Send(env)
}
