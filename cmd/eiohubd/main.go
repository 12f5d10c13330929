package main

import (
	"flag"
	"net/http"
	"time"

	"github.com/Automattic/eiohub"
	"github.com/facebookgo/httpdown"
	"github.com/gorilla/mux"
	"github.com/yanun0323/logs"
)

func main() {
	// Prepare the stoppable HTTP server
	server := &http.Server{
		Addr: "127.0.0.1:8081",
	}
	hd := &httpdown.HTTP{
		StopTimeout: 10 * time.Second,
		KillTimeout: 1 * time.Second,
	}

	flag.StringVar(&server.Addr, "addr", server.Addr, "http service address")
	flag.DurationVar(&hd.StopTimeout, "stop-timeout", hd.StopTimeout, "stop timeout")
	flag.DurationVar(&hd.KillTimeout, "kill-timeout", hd.KillTimeout, "kill timeout")
	path := flag.String("path", "/engine.io/", "endpoint path")
	tick := flag.Duration("metrics.tick", 60*time.Second, "metrics: duration between reports")
	flag.Parse()

	server.Handler = newHandler(*path)
	eiohub.StartMetrics(*tick)

	logs.Infof("listening on %s", server.Addr)
	if err := httpdown.ListenAndServe(server, hd); err != nil {
		panic(err)
	}
	eiohub.WriteMetricsOnce()
}

func newHandler(path string) http.Handler {
	registry := eiohub.NewRegistry()
	server := eiohub.NewServer(registry, nil)
	server.ConnectFunc(echo)

	handler := mux.NewRouter()
	handler.PathPrefix(path).Handler(server)
	return handler
}

// echo sends every message straight back on the same session.
func echo(s *eiohub.Socket) {
	for {
		msg, err := s.Read()
		if err != nil {
			logs.Infof("session %s closed", s.ID())
			return
		}
		if err := s.Send(msg); err != nil {
			return
		}
	}
}
