// Package eiohub serves the Engine.IO transport layer: a framed message
// channel that starts on HTTP long-polling and upgrades in place to a
// websocket without losing or reordering traffic.
//
// A Server is an http.Handler for a single endpoint. Clients open a
// session with a GET lacking a sid, then poll with GET, push with POST,
// and may upgrade by opening a websocket against the same endpoint with
// transport=websocket. Application code receives a *Socket through
// ConnectFunc and talks to the client with Read and Send; the transport
// under the socket can change without the application noticing.
package eiohub

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/yanun0323/logs"
)

type Server struct {
	registry  *Registry
	config    *Config
	upgrader  *websocket.Upgrader
	connectFn func(*Socket)
}

// NewServer returns a server dispatching onto registry. If config is
// nil, DefaultConfig is used.
func NewServer(registry *Registry, config *Config) *Server {
	if config == nil {
		config = DefaultConfig
	}
	return &Server{
		registry: registry,
		config:   config,
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
		},
	}
}

// ConnectFunc sets fn to be invoked in its own goroutine for every new
// session. The goroutine's lifetime is the session's: Read returns
// ErrSocketClosed once the session is gone.
func (s *Server) ConnectFunc(fn func(*Socket)) {
	s.connectFn = fn
}

// Close tears down every live session.
func (s *Server) Close() error {
	for _, so := range s.registry.Sessions() {
		s.registry.remove(so.id)
		so.close()
		decr("sessions", 1)
	}
	return nil
}

// ServeHTTP classifies the request by its transport and sid query
// parameters and routes it to the session opener, the polling handler or
// the websocket upgrade.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	name, ok := singleton(query["transport"])
	if !ok {
		writeError(w, ErrTransportUnknown)
		return
	}
	kind, ok := parseTransportName(name)
	if !ok {
		writeError(w, ErrTransportUnknown)
		return
	}

	if _, present := query["sid"]; !present {
		s.openSession(w)
		return
	}
	sid, ok := singleton(query["sid"])
	if !ok {
		writeError(w, ErrSessionIDUnknown)
		return
	}
	so, ok := s.registry.lookup(sid)
	if !ok {
		writeError(w, ErrSessionIDUnknown)
		return
	}

	t := so.currentTransport()
	if t.kind != pollingKind {
		// Polling requests against an upgraded session have nothing to
		// serve; same for a second upgrade attempt.
		writeError(w, ErrBadRequest)
		return
	}

	switch kind {
	case pollingKind:
		s.servePolling(w, r, t)
	case websocketKind:
		s.serveUpgrade(w, r, so)
	}
}

// openInfo is the body of the OPEN packet, fixed by the wire protocol.
type openInfo struct {
	Sid          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingTimeout  int64    `json:"pingTimeout"`
	PingInterval int64    `json:"pingInterval"`
}

// openSession publishes a fresh socket and answers with the handshake
// payload. The socket is in the registry before the response is written.
func (s *Server) openSession(w http.ResponseWriter) {
	so := newSocket(newSessionID())
	s.registry.add(so)
	incr("sessions", 1)
	go s.runSession(so)
	if s.connectFn != nil {
		go s.connectFn(so)
	}
	logs.Infof("session %s open", so.id)

	data, err := json.Marshal(openInfo{
		Sid:          so.id,
		Upgrades:     s.config.Upgrades,
		PingTimeout:  s.config.PingTimeout,
		PingInterval: s.config.PingInterval,
	})
	if err != nil {
		writeError(w, ErrBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(encodePayload([]packet{{Type: packetOpen, Data: data}}))
}

func singleton(values []string) (string, bool) {
	if len(values) != 1 {
		return "", false
	}
	return values[0], true
}
