package eiohub

import (
	"github.com/yanun0323/logs"
)

// runSession is the per-session loop between the packet level and the
// message level. Each iteration re-reads the transport slot, so a
// polling-to-websocket swap takes effect without respawning the loop.
// It never touches the network; both ends are in-process queues.
func (s *Server) runSession(so *Socket) {
	for {
		t := so.currentTransport()
		select {
		case p, ok := <-t.in.C():
			if !ok {
				return
			}
			switch p.Type {
			case packetMessage:
				incr("packets.recv", 1)
				so.incoming.Push(p.Data)
			case packetPing:
				so.currentTransport().out.Push(packet{Type: packetPong, Data: p.Data})
			case packetClose:
				s.registry.remove(so.id)
				so.close()
				decr("sessions", 1)
				logs.Infof("session %s closed", so.id)
				return
			default:
				// Unknown or unexpected types are dropped for forward
				// compatibility.
				incr("drops", 1)
			}
		case msg, ok := <-so.outgoing.C():
			if !ok {
				return
			}
			so.currentTransport().out.Push(packet{Type: packetMessage, Data: msg})
		}
	}
}
