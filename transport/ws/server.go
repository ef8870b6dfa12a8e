package ws

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"chat-relay/router"
	"chat-relay/runtime"
)

// Server upgrades HTTP requests into relay connections.
type Server struct {
	log           *slog.Logger
	router        *router.Router
	lifecycle     *runtime.Lifecycle
	upgrader      websocket.Upgrader
	allowedOrigin string
	bufferSize    int

	mu      sync.Mutex
	clients map[*Client]struct{}
}

func NewServer(log *slog.Logger, r *router.Router, lifecycle *runtime.Lifecycle,
	allowedOrigin string, bufferSize int) *Server {
	s := &Server{
		log:           log,
		router:        r,
		lifecycle:     lifecycle,
		allowedOrigin: allowedOrigin,
		bufferSize:    bufferSize,
		clients:       make(map[*Client]struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Handler exposes the health route and the websocket endpoint.
func (s *Server) Handler() http.Handler {
	m := mux.NewRouter()
	m.Use(s.corsMiddleware)
	m.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	m.HandleFunc("/ws", s.handleSocket)
	return m
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "Socket server running")
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	connID := uuid.NewString()
	client := NewClient(connID, s.log, conn, s.router, s.lifecycle, s.bufferSize)
	s.trackClient(client)
	defer s.forgetClient(client)
	s.lifecycle.Connect(connID, client)

	go client.WritePump()
	// ReadPump blocks until the connection closes and performs the
	// disconnect teardown on its way out.
	client.ReadPump(r.Context())
}

func (s *Server) trackClient(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client] = struct{}{}
}

func (s *Server) forgetClient(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, client)
}

// CloseConnections closes every live client. http.Server.Shutdown leaves
// hijacked connections alone, so a graceful stop calls this to send each
// client its close frame and let the read loops run their disconnect
// teardown.
func (s *Server) CloseConnections() {
	s.mu.Lock()
	clients := make([]*Client, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	s.mu.Unlock()

	for _, client := range clients {
		client.Close()
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if s.allowedOrigin == "*" {
		return true
	}
	return r.Header.Get("Origin") == s.allowedOrigin
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
