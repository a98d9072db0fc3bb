package sseclient

import (
	"context"
	"net"
	"net/http"
	"time"
)

// newTransport builds the terminal RoundTripper for a client.
//
// ConnectTimeout maps to the dialer and TLS handshake; ReadTimeout and
// WriteTimeout become per-operation deadlines on the underlying connection.
// There is no overall deadline on total stream lifetime.
func newTransport(cfg Config) *http.Transport {
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}

	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return &deadlineConn{
				Conn:         conn,
				readTimeout:  cfg.ReadTimeout,
				writeTimeout: cfg.WriteTimeout,
			}, nil
		},
		TLSHandshakeTimeout: cfg.ConnectTimeout,
		ForceAttemptHTTP2:   true,
	}
}

// deadlineConn enforces per-operation timeouts: each Read or Write must
// complete within its timeout of being issued. A zero timeout disables the
// deadline for that direction.
type deadlineConn struct {
	net.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func (c *deadlineConn) Read(p []byte) (int, error) {
	if c.readTimeout > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(p)
}

func (c *deadlineConn) Write(p []byte) (int, error) {
	if c.writeTimeout > 0 {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Write(p)
}
