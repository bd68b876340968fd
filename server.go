package main

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lojafone/vitrine/config"
	"github.com/lojafone/vitrine/middleware"
)

// Server handles HTTP and WebSocket connections.
type Server struct {
	hub      *Hub
	catalog  *Catalog
	room     *Room
	config   *config.Config
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewServer creates a new server.
func NewServer(hub *Hub, catalog *Catalog, room *Room, cfg *config.Config, log zerolog.Logger) *Server {
	return &Server{
		hub:     hub,
		catalog: catalog,
		room:    room,
		config:  cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     middleware.CheckOrigin(cfg.Server.AllowedOrigins),
		},
		log: log.With().Str("component", "server").Logger(),
	}
}

// SetupRoutes configures HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v0/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
}

// handleWebSocket upgrades HTTP to WebSocket and runs a session.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	remoteAddr := r.RemoteAddr
	if s.config.Server.UseXForwardedFor {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			remoteAddr = xff
		}
	}

	sess := NewSession(s.hub, conn, remoteAddr, s.catalog, s.room, s.log)
	s.hub.Register(sess)

	s.log.Debug().Str("session", shortSID(sess.ID())).Str("remote", remoteAddr).Msg("client connected")

	// Run the session (blocks until the connection closes)
	sess.Run()

	s.log.Debug().Str("session", shortSID(sess.ID())).Msg("client disconnected")
}

// handleHealth is a simple health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","sessions":%d,"online":%d}`, s.hub.SessionCount(), s.room.PresentCount())
}
