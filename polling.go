package eiohub

import (
	"net/http"

	"github.com/yanun0323/logs"
)

// servePolling drains the out queue on GET and ingests a payload on
// POST. Any other method is a protocol violation.
func (s *Server) servePolling(w http.ResponseWriter, r *http.Request, t *transport) {
	switch r.Method {
	case http.MethodGet:
		s.pollOut(w, t)
	case http.MethodPost:
		s.pollIn(w, r, t)
	default:
		writeError(w, ErrBadRequest)
	}
}

// pollOut blocks for one packet, then takes everything else already
// queued so one response carries the whole backlog in FIFO order.
func (s *Server) pollOut(w http.ResponseWriter, t *transport) {
	p, ok := <-t.out.C()
	if !ok {
		writeError(w, ErrBadRequest)
		return
	}
	packets := []packet{p}
drain:
	for {
		select {
		case p, ok := <-t.out.C():
			if !ok {
				break drain
			}
			packets = append(packets, p)
		default:
			break drain
		}
	}
	incr("packets.send", int64(len(packets)))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(encodePayload(packets))
}

func (s *Server) pollIn(w http.ResponseWriter, r *http.Request, t *transport) {
	packets, err := parsePayload(r.Body)
	if err != nil {
		logs.Infof("polling: dropping request body, err: %v", err)
		writeError(w, ErrBadRequest)
		return
	}
	t.ingest.Lock()
	for _, p := range packets {
		t.in.Push(p)
	}
	t.ingest.Unlock()
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(okResponse)
}

var okResponse = []byte("ok")
