package eiohub

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFrame struct {
	op   int
	data []byte
	err  error
}

// fakeWsConn scripts the client side of the upgrade handshake.
type fakeWsConn struct {
	reads  chan fakeFrame
	writes chan fakeFrame
	closed chan struct{}
	once   sync.Once
}

func newFakeWsConn() *fakeWsConn {
	return &fakeWsConn{
		reads:  make(chan fakeFrame, 16),
		writes: make(chan fakeFrame, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeWsConn) ReadMessage() (int, []byte, error) {
	select {
	case f := <-c.reads:
		return f.op, f.data, f.err
	case <-c.closed:
		return 0, nil, errors.New("connection closed")
	}
}

func (c *fakeWsConn) WriteMessage(op int, data []byte) error {
	select {
	case c.writes <- fakeFrame{op: op, data: data}:
		return nil
	case <-c.closed:
		return errors.New("connection closed")
	}
}

func (c *fakeWsConn) SetReadLimit(int64) {}

func (c *fakeWsConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeWsConn) sendText(s string) {
	c.reads <- fakeFrame{op: websocket.TextMessage, data: []byte(s)}
}

func (c *fakeWsConn) expectText(t *testing.T) string {
	t.Helper()
	select {
	case f := <-c.writes:
		require.Equal(t, websocket.TextMessage, f.op)
		return string(f.data)
	case <-time.After(time.Second):
		t.Fatal("Expectation: server should write a frame")
		return ""
	}
}

func TestUpgradeAbortsOnBadProbe(t *testing.T) {
	srv, so := startTestSession(t)
	defer so.close()

	ws := newFakeWsConn()
	ws.sendText("4nope")
	srv.runWebsocket(ws, so)

	assert.Equal(t, pollingKind, so.currentTransport().kind)
	_, ok := srv.registry.lookup(so.id)
	assert.True(t, ok)
}

func TestUpgradeAbortsWithoutUpgradePacket(t *testing.T) {
	srv, so := startTestSession(t)
	defer so.close()
	old := so.currentTransport()

	ws := newFakeWsConn()
	ws.sendText("2probe")
	ws.reads <- fakeFrame{err: errors.New("client went away")}
	srv.runWebsocket(ws, so)

	assert.Equal(t, "3probe", ws.expectText(t))
	assert.Equal(t, pollingKind, so.currentTransport().kind)
	assert.Same(t, old, so.currentTransport())
}

func TestUpgradeHandshake(t *testing.T) {
	srv, so := startTestSession(t)
	old := so.currentTransport()

	ws := newFakeWsConn()
	ws.sendText("2probe")
	ws.sendText("5")

	wsDone := make(chan struct{})
	go func() {
		srv.runWebsocket(ws, so)
		close(wsDone)
	}()

	assert.Equal(t, "3probe", ws.expectText(t))

	// The old polling transport gets a NOOP so a pending GET returns.
	p := recvPacket(t, old.out)
	assert.Equal(t, packetNoop, p.Type)

	require.Eventually(t, func() bool {
		return so.currentTransport().kind == websocketKind
	}, time.Second, 5*time.Millisecond)

	// Outbound messages now arrive as websocket text frames.
	require.NoError(t, so.Send([]byte("yo")))
	assert.Equal(t, "4yo", ws.expectText(t))

	// Inbound frames surface as messages.
	ws.sendText("4hi")
	msg, err := so.Read()
	require.NoError(t, err)
	assert.Equal(t, "hi", string(msg))

	// Client disconnect tears the session down.
	ws.reads <- fakeFrame{err: errors.New("gone")}
	require.Eventually(t, func() bool {
		_, ok := srv.registry.lookup(so.id)
		return !ok
	}, time.Second, 5*time.Millisecond)
	<-wsDone
}

func TestUpgradeCarriesPendingPackets(t *testing.T) {
	srv, so := startTestSession(t)
	old := so.currentTransport()

	ws := newFakeWsConn()
	ws.sendText("2probe")
	go srv.runWebsocket(ws, so)
	assert.Equal(t, "3probe", ws.expectText(t))

	// A polling POST lands between probe and commit.
	old.in.Push(packet{Type: packetMessage, Data: []byte("in flight")})
	ws.sendText("5")

	msg, err := so.Read()
	require.NoError(t, err)
	assert.Equal(t, "in flight", string(msg))

	ws.reads <- fakeFrame{err: errors.New("gone")}
}

func TestUpgradeSkipsBinaryFrames(t *testing.T) {
	srv, so := startTestSession(t)

	ws := newFakeWsConn()
	ws.sendText("2probe")
	ws.sendText("5")
	go srv.runWebsocket(ws, so)

	require.Eventually(t, func() bool {
		return so.currentTransport().kind == websocketKind
	}, time.Second, 5*time.Millisecond)

	ws.reads <- fakeFrame{op: websocket.BinaryMessage, data: []byte{0xde, 0xad}}
	ws.sendText("4still here")

	msg, err := so.Read()
	require.NoError(t, err)
	assert.Equal(t, "still here", string(msg))

	ws.reads <- fakeFrame{err: errors.New("gone")}
}
