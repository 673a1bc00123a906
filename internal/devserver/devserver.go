//go:build devserver

// Package devserver is an opt-in trace streamer: it upgrades incoming HTTP
// connections to WebSocket and forwards every line the VM writes through
// its Trace/TraceOut hook to each connected browser tab. Built only when
// the devserver tag is set; absent from ordinary CLI builds.
package devserver

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Server broadcasts trace lines to every currently connected client. It
// implements io.Writer so it can be assigned directly to mvm.VM.TraceOut.
type Server struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	clients  map[string]*websocket.Conn
	nextID   int
}

// New returns a Server ready to Serve; CheckOrigin allows any origin, since
// this is a local development aid rather than a public-facing endpoint.
func New() *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*websocket.Conn),
	}
}

// Write implements io.Writer, broadcasting p to every connected client.
// Trace output is line-buffered by the VM, so p is one line per call.
func (s *Server) Write(p []byte) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, conn := range s.clients {
		if err := conn.WriteMessage(websocket.TextMessage, p); err != nil {
			conn.Close()
			delete(s.clients, id)
		}
	}
	return len(p), nil
}

// Handler upgrades the connection and registers it as a trace subscriber
// until the client disconnects.
func (s *Server) Handler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	id := fmt.Sprintf("client-%d", s.nextID)
	s.nextID++
	s.clients[id] = conn
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.clients, id)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// ListenAndServe starts an HTTP server exposing the trace stream at
// /trace on addr. Blocks until the server stops.
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/trace", s.Handler)
	return http.ListenAndServe(addr, mux)
}
