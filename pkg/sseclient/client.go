// Package sseclient manages a long-lived client-side SSE connection: it
// issues a streaming HTTP call (GET or POST), parses the event stream as
// bytes arrive, exposes connection-state transitions through a listener,
// and ties teardown to a caller-supplied lifecycle.
//
// The package is not a general HTTP client. Connection pooling, TLS and
// redirects are delegated to net/http, and there is no automatic reconnect:
// every failure is terminal for the current attempt and the embedding
// application decides whether to call Connect again.
package sseclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/pulsegate/sseconn/pkg/logger"
	"github.com/pulsegate/sseconn/pkg/sse"
)

// Client owns at most one active streaming call at a time. All control
// operations (Connect, Disconnect, State, SetListener) return immediately;
// network waiting happens on the streaming goroutine.
type Client struct {
	config       Config
	logger       *slog.Logger
	lifecycle    context.Context
	extraHeaders []Header

	state atomic.Int32

	mu           sync.Mutex
	listener     Listener
	interceptors []Interceptor
	httpClient   *http.Client
	attempt      *attempt
	destroyed    bool
}

// attempt identifies one streaming call. Transitions reported by the
// streaming goroutine apply only while its attempt is still current, which
// is how a local Disconnect pre-empts late transport callbacks.
type attempt struct {
	id     string
	cancel context.CancelFunc
}

// New creates a Client. Without options it uses DefaultConfig(), a no-op
// logger, no listener and a background lifecycle.
func New(opts ...Option) *Client {
	c := &Client{
		config:    DefaultConfig(),
		logger:    logger.Nop(),
		lifecycle: context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.state.Store(int32(StateIdle))

	if c.lifecycle.Done() != nil {
		go func() {
			<-c.lifecycle.Done()
			c.Close()
		}()
	}

	return c
}

// Connect issues a streaming call for req. It is fire-and-forget: all
// outcomes are reported through the listener.
//
// Calling Connect while an attempt is connecting or connected is a guarded
// no-op; the call is neither queued nor an error.
func (c *Client) Connect(req *Request) {
	if req == nil {
		return
	}

	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	if s := c.State(); s == StateConnecting || s == StateConnected {
		c.mu.Unlock()
		c.logger.Debug("connect ignored, attempt already active", "state", s.String())
		return
	}

	httpClient := c.transportLocked()

	ctx, cancel := context.WithCancel(c.lifecycle)
	a := &attempt{id: uuid.NewString(), cancel: cancel}
	c.attempt = a
	listener := c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	if listener != nil {
		listener.OnStateChanged(StateConnecting)
	}

	c.logger.Debug("connecting",
		"attempt_id", a.id,
		"method", req.Method,
		"url", req.URL,
	)

	go c.stream(ctx, a, httpClient, req)
}

// ConnectGet builds a GET request and connects. Only construction errors
// are returned; everything after construction reports via the listener.
func (c *Client) ConnectGet(url string, headers ...Header) error {
	req, err := NewGet(url, headers...)
	if err != nil {
		return err
	}
	c.Connect(req)
	return nil
}

// ConnectPost builds a POST request and connects. Only construction errors
// are returned; everything after construction reports via the listener.
func (c *Client) ConnectPost(url, body string, headers ...Header) error {
	req, err := NewPost(url, body, headers...)
	if err != nil {
		return err
	}
	c.Connect(req)
	return nil
}

// Disconnect cancels the active streaming call, if any. When the prior
// state was Connecting or Connected the client moves to Cancelled
// immediately, independent of whatever the transport later reports for that
// attempt. Disconnect on an idle client is a no-op.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}

	a := c.attempt
	s := c.State()
	if a == nil || (s != StateConnecting && s != StateConnected) {
		c.mu.Unlock()
		return
	}

	c.attempt = nil
	listener := c.setStateLocked(StateCancelled)
	c.mu.Unlock()

	a.cancel()
	c.logger.Debug("disconnected", "attempt_id", a.id)

	if listener != nil {
		listener.OnStateChanged(StateCancelled)
		listener.OnCancelled()
	}
}

// Close disconnects and releases the listener, transport client and
// interceptors. After Close every in-flight transport callback is
// suppressed and the client accepts no further operations. Close is called
// automatically when a WithLifecycle context is done.
func (c *Client) Close() {
	c.Disconnect()

	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.destroyed = true
	c.listener = nil
	c.httpClient = nil
	c.interceptors = nil
	c.mu.Unlock()

	c.logger.Debug("client closed")
}

// State returns the current connection state without blocking.
func (c *Client) State() State {
	return State(c.state.Load())
}

// IsConnecting reports whether an attempt is connecting or connected.
func (c *Client) IsConnecting() bool {
	s := c.State()
	return s == StateConnecting || s == StateConnected
}

// SetListener replaces the registered listener. It takes effect for
// subsequent callbacks only; past events are not re-delivered. A callback
// already in flight completes against the listener captured at dispatch.
func (c *Client) SetListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return
	}
	c.listener = l
}

// AddInterceptor appends a user stage to the chain. Stages must be added
// before the transport client is first built; later additions return
// ErrTransportBuilt instead of silently having no effect.
func (c *Client) AddInterceptor(stage Interceptor) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return ErrClientClosed
	}
	if c.httpClient != nil {
		return ErrTransportBuilt
	}
	c.interceptors = append(c.interceptors, stage)
	return nil
}

// transportLocked lazily builds and caches the transport client: base
// transport from the config timeouts, wrapped by the interceptor chain.
// Reused across attempts; invalidated only by teardown.
func (c *Client) transportLocked() *http.Client {
	if c.httpClient == nil {
		stages := make([]Interceptor, 0, len(c.interceptors)+2)
		stages = append(stages,
			&loggingInterceptor{logger: c.logger, enabled: c.config.EnableLogging},
			&headerInterceptor{extra: c.extraHeaders},
		)
		stages = append(stages, c.interceptors...)

		c.httpClient = &http.Client{
			// No overall Timeout: the stream lives until it closes, fails,
			// or is cancelled. Per-operation deadlines live in the transport.
			Transport: &chain{stages: stages, base: newTransport(c.config)},
		}
	}
	return c.httpClient
}

// setStateLocked stores the new state and returns the listener snapshot to
// dispatch against. Callers must hold c.mu and fire callbacks after
// unlocking, OnStateChanged first.
func (c *Client) setStateLocked(s State) Listener {
	c.state.Store(int32(s))
	return c.listener
}

// stream runs one streaming call to completion on its own goroutine.
func (c *Client) stream(ctx context.Context, a *attempt, httpClient *http.Client, req *Request) {
	httpReq, err := req.httpRequest(ctx)
	if err != nil {
		c.finish(a, err)
		return
	}

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		c.finish(a, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a bounded amount so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4*1024))
		c.finish(a, fmt.Errorf("stream handshake: unexpected status %s", resp.Status))
		return
	}

	if !c.markConnected(a) {
		return
	}

	r := sse.NewReader(resp.Body)
	for {
		ev, err := r.Next()
		if err != nil {
			c.finish(a, err)
			return
		}
		if ev == nil {
			// Source exhausted: the stream closed normally.
			c.finish(a, nil)
			return
		}
		c.dispatchEvent(a, ev)
	}
}

// markConnected transitions Connecting → Connected for a still-current
// attempt. Returns false when the attempt was disconnected or the client
// torn down in the meantime.
func (c *Client) markConnected(a *attempt) bool {
	c.mu.Lock()
	if c.destroyed || c.attempt != a {
		c.mu.Unlock()
		return false
	}
	listener := c.setStateLocked(StateConnected)
	c.mu.Unlock()

	c.logger.Debug("stream opened", "attempt_id", a.id)

	if listener != nil {
		listener.OnStateChanged(StateConnected)
		listener.OnConnected()
	}
	return true
}

// dispatchEvent delivers one parsed event, unless the attempt has been
// superseded, the state left Connected, or the client was torn down.
func (c *Client) dispatchEvent(a *attempt, ev *sse.Event) {
	c.mu.Lock()
	if c.destroyed || c.attempt != a || c.State() != StateConnected {
		c.mu.Unlock()
		return
	}
	listener := c.listener
	c.mu.Unlock()

	if listener != nil {
		listener.OnEvent(ev)
	}
}

// finish applies the terminal transition for an attempt: Closed on a nil
// error, Cancelled on a local cancellation, Failed otherwise. A stale
// attempt (already disconnected or torn down) is a no-op, so a late
// transport callback can never overwrite a locally driven Cancelled.
func (c *Client) finish(a *attempt, err error) {
	c.mu.Lock()
	if c.destroyed || c.attempt != a {
		c.mu.Unlock()
		return
	}
	c.attempt = nil

	var next State
	switch {
	case err == nil:
		next = StateClosed
	case isCancellation(err):
		next = StateCancelled
	default:
		next = StateFailed
	}
	listener := c.setStateLocked(next)
	c.mu.Unlock()

	a.cancel()

	switch next {
	case StateClosed:
		c.logger.Debug("stream closed", "attempt_id", a.id)
	case StateCancelled:
		c.logger.Debug("stream cancelled", "attempt_id", a.id)
	default:
		c.logger.Debug("stream failed", "attempt_id", a.id, "err", err)
	}

	if listener != nil {
		listener.OnStateChanged(next)
		switch next {
		case StateClosed:
			listener.OnClosed()
		case StateCancelled:
			listener.OnCancelled()
		default:
			listener.OnFailure(err)
		}
	}
}
