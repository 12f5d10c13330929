package eiohub

// Config carries the handshake advertisement and websocket buffer sizes.
type Config struct {
	// Ping interval advertised to clients, in milliseconds. The server
	// does not probe liveness itself; clients drive the ping cycle.
	PingInterval int64

	// Ping timeout advertised to clients, in milliseconds.
	PingTimeout int64

	// Transports a session may upgrade to. (Only websocket supported.)
	Upgrades []string

	// The size of the websocket read buffer in bytes.
	ReadBufferSize int

	// The size of the websocket write buffer in bytes.
	WriteBufferSize int
}

var DefaultConfig = &Config{
	PingInterval:    25000,
	PingTimeout:     60000,
	Upgrades:        []string{"websocket"},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}
