package sseclient

import (
	"log/slog"
	"net/http"
	"time"
)

// Next invokes the remainder of the interceptor chain, ending at the
// terminal transport call.
type Next func(*http.Request) (*http.Response, error)

// Interceptor is one stage of the request/response pipeline applied around
// the transport call.
//
// A stage receives the current request, may mutate or replace it, and must
// invoke next exactly once. Omitting the call or calling it more than once
// is a programming error; short-circuiting is not supported.
type Interceptor interface {
	Intercept(req *http.Request, next Next) (*http.Response, error)
}

// InterceptorFunc adapts a function to the Interceptor interface.
type InterceptorFunc func(req *http.Request, next Next) (*http.Response, error)

func (f InterceptorFunc) Intercept(req *http.Request, next Next) (*http.Response, error) {
	return f(req, next)
}

// chain composes interceptor stages around a terminal RoundTripper.
// Stage order is fixed: built-in logging, built-in header injection, then
// user stages in append order.
type chain struct {
	stages []Interceptor
	base   http.RoundTripper
}

func (c *chain) RoundTrip(req *http.Request) (*http.Response, error) {
	var invoke func(i int) Next
	invoke = func(i int) Next {
		return func(req *http.Request) (*http.Response, error) {
			if i == len(c.stages) {
				return c.base.RoundTrip(req)
			}
			return c.stages[i].Intercept(req, invoke(i+1))
		}
	}
	return invoke(0)(req)
}

// loggingInterceptor is the built-in first stage. It is a pass-through
// unless logging was enabled in the client config.
type loggingInterceptor struct {
	logger  *slog.Logger
	enabled bool
}

func (l *loggingInterceptor) Intercept(req *http.Request, next Next) (*http.Response, error) {
	if !l.enabled {
		return next(req)
	}

	start := time.Now()
	l.logger.Debug("stream request",
		"method", req.Method,
		"url", req.URL.String(),
	)

	resp, err := next(req)
	if err != nil {
		l.logger.Debug("stream request failed",
			"url", req.URL.String(),
			"err", err,
		)
		return nil, err
	}

	l.logger.Debug("stream response",
		"status", resp.StatusCode,
		"elapsed", time.Since(start),
	)
	return resp, nil
}

// headerInterceptor is the built-in second stage. It injects the mandatory
// event-stream headers plus any additional headers bound to the stage.
type headerInterceptor struct {
	extra []Header
}

func (h *headerInterceptor) Intercept(req *http.Request, next Next) (*http.Response, error) {
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	for _, hd := range h.extra {
		req.Header.Add(hd.Key, hd.Value)
	}

	return next(req)
}
