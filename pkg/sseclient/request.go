package sseclient

import (
	"context"
	"net/http"
	"strings"
)

// contentTypeJSON is the fixed content type sent with every POST body.
// The body is sent as UTF-8 bytes under this type regardless of whether it
// is actually JSON; callers needing another type can override it with a
// request header.
const contentTypeJSON = "application/json; charset=utf-8"

// Header is a single HTTP header pair. Requests carry headers as an ordered
// slice so that duplicates are preserved and applied in caller order.
type Header struct {
	Key   string
	Value string
}

// Request is an immutable description of a streaming call, validated at
// construction time. Construction errors are returned from the constructors
// and never surface through the listener.
type Request struct {
	URL     string
	Method  string
	Headers []Header
	Body    string
}

// NewGet constructs a GET streaming request.
func NewGet(url string, headers ...Header) (*Request, error) {
	return newRequest(http.MethodGet, url, "", headers)
}

// NewPost constructs a POST streaming request. The body must be non-empty;
// a POST with no body is a construction error, not a runtime failure.
func NewPost(url, body string, headers ...Header) (*Request, error) {
	return newRequest(http.MethodPost, url, body, headers)
}

func newRequest(method, url, body string, headers []Header) (*Request, error) {
	if strings.TrimSpace(url) == "" {
		return nil, ErrBlankURL
	}

	switch method {
	case http.MethodGet:
	case http.MethodPost:
		if body == "" {
			return nil, ErrMissingBody
		}
	default:
		return nil, ErrInvalidMethod
	}

	return &Request{
		URL:     url,
		Method:  method,
		Headers: headers,
		Body:    body,
	}, nil
}

// httpRequest builds the transport-level request. The mandatory
// event-stream headers are injected later by the built-in header
// interceptor, not here.
func (r *Request) httpRequest(ctx context.Context) (*http.Request, error) {
	var body *strings.Reader
	if r.Method == http.MethodPost {
		body = strings.NewReader(r.Body)
	}

	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, r.Method, r.URL, nil)
	}
	if err != nil {
		return nil, err
	}

	if r.Method == http.MethodPost {
		req.Header.Set("Content-Type", contentTypeJSON)
	}

	// Header.Add preserves caller order and keeps duplicates.
	for _, h := range r.Headers {
		req.Header.Add(h.Key, h.Value)
	}

	return req, nil
}
