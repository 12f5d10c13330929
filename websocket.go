package eiohub

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// Maximum frame size accepted from a peer.
const maxFrameSize = 1 << 20

// wsConn is the slice of *websocket.Conn the upgrade path needs; tests
// substitute a scripted implementation.
type wsConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	Close() error
}

func (s *Server) serveUpgrade(w http.ResponseWriter, r *http.Request, so *Socket) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logs.Infof("upgrade: accept failed for session %s, err: %v", so.id, err)
		return
	}
	defer ws.Close()
	s.runWebsocket(ws, so)
}

// runWebsocket performs the probe handshake, commits the transport swap
// and then pumps frames both ways until the connection dies.
func (s *Server) runWebsocket(ws wsConn, so *Socket) {
	ws.SetReadLimit(maxFrameSize)

	cur, next, err := s.handshake(ws, so)
	if err != nil {
		// The polling transport stays in place; the client keeps its
		// session.
		logs.Infof("upgrade: aborted for session %s, err: %v", so.id, err)
		return
	}

	if !so.transport.CompareAndSwap(cur, next) {
		logs.Infof("upgrade: transport changed under session %s", so.id)
		return
	}
	// The replaced polling out lives until this websocket session ends so
	// a poll already in flight can still pick up the NOOP.
	defer cur.out.Close()
	incr("websockets", 1)
	incr("upgrades", 1)
	defer decr("websockets", 1)

	done := make(chan struct{})
	go writeFrames(ws, next.out, done)
	readFrames(ws, next.in)

	// Reader exit means client disconnect or a frame error; either way
	// the session ends. The synthetic CLOSE lets the session loop
	// unregister as if the client had said goodbye.
	next.in.Push(packet{Type: packetClose})
	close(done)
}

// handshake runs the probe exchange and prepares the websocket transport
// without committing it.
func (s *Server) handshake(ws wsConn, so *Socket) (cur, next *transport, err error) {
	p, err := readPacket(ws)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read probe")
	}
	if p.Type != packetPing || string(p.Data) != probe {
		return nil, nil, errors.New("unexpected probe packet")
	}
	err = ws.WriteMessage(websocket.TextMessage, encodePacket(packet{Type: packetPong, Data: []byte(probe)}))
	if err != nil {
		return nil, nil, errors.Wrap(err, "write probe reply")
	}

	cur = so.currentTransport()
	if cur.kind != pollingKind {
		return nil, nil, errors.New("session already upgraded")
	}
	// Unblock any polling GET waiting on the old transport so the
	// client's poll cycle ends before the swap.
	cur.out.Push(packet{Type: packetNoop})
	next = upgradedFrom(cur)

	p, err = readPacket(ws)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read upgrade")
	}
	if p.Type != packetUpgrade || len(p.Data) != 0 {
		return nil, nil, errors.New("unexpected upgrade packet")
	}
	return cur, next, nil
}

func readPacket(ws wsConn) (packet, error) {
	op, data, err := ws.ReadMessage()
	if err != nil {
		return packet{}, err
	}
	if op != websocket.TextMessage {
		return packet{}, errors.New("non-text frame during handshake")
	}
	return parsePacket(data)
}

// readFrames decodes inbound frames into the transport until the
// connection errors out or a text frame fails to parse.
func readFrames(ws wsConn, in *queue[packet]) {
	for {
		op, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		if op != websocket.TextMessage {
			// Binary frames are not part of this protocol version.
			logs.Infof("websocket: skipping non-text frame, opcode %d", op)
			continue
		}
		p, err := parsePacket(data)
		if err != nil {
			return
		}
		in.Push(p)
	}
}

// writeFrames delivers outbound packets as text frames until the reader
// loop ends, the session closes or the peer goes away.
func writeFrames(ws wsConn, out *queue[packet], done chan struct{}) {
	for {
		select {
		case p, ok := <-out.C():
			if !ok {
				ws.Close()
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, encodePacket(p)); err != nil {
				return
			}
			incr("packets.send", 1)
		case <-done:
			return
		}
	}
}

var _ wsConn = (*websocket.Conn)(nil)
