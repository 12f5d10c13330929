package eiohub

import (
	"sync"
)

// transport is the physical carrier under a session: a pair of packet
// queues and the kind that tells the handlers how to serve it. in carries
// client-to-server packets, out server-to-client. ingest keeps the
// packets of one POST body contiguous when bodies arrive concurrently.
type transport struct {
	kind   transportKind
	in     *queue[packet]
	out    *queue[packet]
	ingest sync.Mutex
}

func newPollingTransport() *transport {
	return &transport{
		kind: pollingKind,
		in:   newQueue[packet](),
		out:  newQueue[packet](),
	}
}

// upgradedFrom builds the websocket transport that replaces t. The in
// queue is shared with the old transport so every packet the client sent
// before or during the handshake reaches the brain exactly once; only the
// out side starts fresh.
func upgradedFrom(t *transport) *transport {
	return &transport{
		kind: websocketKind,
		in:   t.in,
		out:  newQueue[packet](),
	}
}

func (t *transport) close() {
	t.in.Close()
	t.out.Close()
}
