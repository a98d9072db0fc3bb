package sseclient

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/net/http2"
)

var (
	// ErrBlankURL is returned when a request is constructed with an empty URL.
	ErrBlankURL = errors.New("sseclient: request URL must not be blank")

	// ErrMissingBody is returned when a POST request is constructed
	// without a body.
	ErrMissingBody = errors.New("sseclient: POST request requires a body")

	// ErrInvalidMethod is returned for methods other than GET and POST.
	ErrInvalidMethod = errors.New("sseclient: method must be GET or POST")

	// ErrTransportBuilt is returned by AddInterceptor once the transport
	// client has been built; later stages would silently have no effect,
	// so they are rejected instead.
	ErrTransportBuilt = errors.New("sseclient: transport already built, interceptor rejected")

	// ErrClientClosed is returned by operations on a torn-down client.
	ErrClientClosed = errors.New("sseclient: client is closed")
)

// isCancellation classifies a transport error as a local cancellation.
//
// An error counts as a cancellation when the request context was cancelled,
// when the stream was reset with an HTTP/2 CANCEL code, or when the error
// message carries a cancellation marker (case-insensitive). Everything else
// is a failure.
func isCancellation(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return true
	}

	var streamErr http2.StreamError
	if errors.As(err, &streamErr) && streamErr.Code == http2.ErrCodeCancel {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "cancel")
}
