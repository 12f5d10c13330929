package eiohub

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Error is an Engine.IO protocol error. It is written to clients as an
// HTTP 400 with a JSON body carrying the wire code.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrTransportUnknown = &Error{Code: 0, Message: "Transport unknown"}
	ErrSessionIDUnknown = &Error{Code: 1, Message: "Session ID unknown"}
	ErrBadRequest       = &Error{Code: 3, Message: "Bad request"}

	ErrSocketClosed = errors.New("socket closed")
)

func writeError(w http.ResponseWriter, e *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(e)
}
