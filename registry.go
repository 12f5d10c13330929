package eiohub

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
)

// Registry maps live session IDs to sockets. It is not a package
// singleton; tests and embedders create as many as they need.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Socket
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Socket),
	}
}

func (r *Registry) add(s *Socket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.id] = s
}

func (r *Registry) lookup(sid string) (*Socket, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sid]
	return s, ok
}

// remove is idempotent; it is the sole source of session destruction.
func (r *Registry) remove(sid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sid)
}

// Sessions returns the currently open sockets.
func (r *Registry) Sessions() []*Socket {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sockets := make([]*Socket, 0, len(r.sessions))
	for _, s := range r.sessions {
		sockets = append(sockets, s)
	}
	return sockets
}

var idMu sync.Mutex

// newSessionID draws 15 bytes in [0,63] and base64-encodes them into a
// 20 character token. The restricted byte range predates this server and
// is kept for wire compatibility.
func newSessionID() string {
	idMu.Lock()
	defer idMu.Unlock()

	buf := make([]byte, 15)
	rand.Read(buf)
	for i := range buf {
		buf[i] &= 0x3f
	}
	return base64.StdEncoding.EncodeToString(buf)
}
