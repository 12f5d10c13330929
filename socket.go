package eiohub

import (
	"sync"
	"sync/atomic"
)

// Socket is one logical session. Its incoming and outgoing queues are the
// application-visible ends of the channel; they survive transport swaps.
type Socket struct {
	id        string
	transport atomic.Pointer[transport]
	incoming  *queue[[]byte]
	outgoing  *queue[[]byte]
	done      chan struct{}
	once      sync.Once
}

func newSocket(id string) *Socket {
	s := &Socket{
		id:       id,
		incoming: newQueue[[]byte](),
		outgoing: newQueue[[]byte](),
		done:     make(chan struct{}),
	}
	s.transport.Store(newPollingTransport())
	return s
}

// ID returns the session token.
func (s *Socket) ID() string {
	return s.id
}

// Read blocks until the next inbound message arrives. It returns
// ErrSocketClosed once the session is torn down.
func (s *Socket) Read() ([]byte, error) {
	msg, ok := <-s.incoming.C()
	if !ok {
		return nil, ErrSocketClosed
	}
	return msg, nil
}

// Incoming exposes the inbound message channel so callers can select
// across several sockets. The channel is closed on teardown.
func (s *Socket) Incoming() <-chan []byte {
	return s.incoming.C()
}

// Send queues data for delivery on the session's current transport.
// It does not wait for the client.
func (s *Socket) Send(data []byte) error {
	select {
	case <-s.done:
		return ErrSocketClosed
	default:
	}
	s.outgoing.Push(data)
	return nil
}

func (s *Socket) currentTransport() *transport {
	return s.transport.Load()
}

func (s *Socket) close() {
	s.once.Do(func() {
		close(s.done)
		s.currentTransport().close()
		s.incoming.Close()
		s.outgoing.Close()
	})
}
