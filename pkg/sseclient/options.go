package sseclient

import (
	"context"
	"log/slog"
)

// Option configures a Client created with New.
type Option func(*Client)

// WithConfig supplies the transport timeouts and logging switch.
// Defaults to DefaultConfig().
func WithConfig(cfg Config) Option {
	return func(c *Client) {
		c.config = cfg
	}
}

// WithLogger supplies the structured logger. Defaults to a no-op logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithListener registers the initial event listener.
func WithListener(l Listener) Option {
	return func(c *Client) {
		c.listener = l
	}
}

// WithInterceptors appends user interceptor stages. They run after the
// built-in logging and header-injection stages, in the given order.
func WithInterceptors(stages ...Interceptor) Option {
	return func(c *Client) {
		c.interceptors = append(c.interceptors, stages...)
	}
}

// WithDefaultHeaders binds additional headers to the built-in
// header-injection stage; they are added to every outbound request.
func WithDefaultHeaders(headers ...Header) Option {
	return func(c *Client) {
		c.extraHeaders = append(c.extraHeaders, headers...)
	}
}

// WithLifecycle ties the client's lifetime to ctx. When ctx is done the
// client disconnects and releases its listener, transport client and
// interceptors, and every still-in-flight transport callback is suppressed.
// The context is also the parent of every streaming call.
func WithLifecycle(ctx context.Context) Option {
	return func(c *Client) {
		if ctx != nil {
			c.lifecycle = ctx
		}
	}
}
