package sseclient

import "time"

// Config holds the transport timeouts and logging switch, supplied once at
// client construction.
type Config struct {
	// ConnectTimeout bounds dialing and the TLS handshake.
	ConnectTimeout time.Duration

	// ReadTimeout bounds each read on the stream: it is the maximum gap
	// between bytes, not an overall deadline, so a silent stream times out
	// while an active one never does.
	ReadTimeout time.Duration

	// WriteTimeout bounds each write on the connection.
	WriteTimeout time.Duration

	// EnableLogging activates the built-in logging interceptor.
	EnableLogging bool
}

// DefaultConfig returns the documented defaults: connect 1m, read 2m,
// write 1m, logging off.
//
// The minute-scale granularity is deliberately preserved from the original
// defaults. It is unusually coarse for a streaming client; most embedders
// will want to override it.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 1 * time.Minute,
		ReadTimeout:    2 * time.Minute,
		WriteTimeout:   1 * time.Minute,
		EnableLogging:  false,
	}
}
