// Package sse provides a streaming SSE (Server-Sent Events) reader for the
// client side of a long-lived event-stream connection. It parses discrete
// events out of an incrementally delivered byte stream and can optionally
// tee the raw bytes verbatim to a destination writer while parsing.
//
// This package intentionally does NOT provide SSE writer or server
// capabilities.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

import "time"

// Event represents a single parsed SSE event, delimited by a blank line
// in the byte stream.
type Event struct {
	// ID is the event ID from the "id:" field, if present.
	ID string

	// Type is the SSE event type from the "event:" field.
	// An empty string means the default "message" type per the SSE spec.
	Type string

	// Data is the concatenated contents of all "data:" lines for this event,
	// joined with "\n" (per the SSE spec, multiple data fields are joined
	// with a single newline).
	Data string

	// Retry is the reconnection delay from the "retry:" field, converted
	// from integer milliseconds. Zero when the stream supplied none.
	//
	// Retry is surfaced to the caller only; this package performs no
	// automatic reconnection on its behalf.
	Retry time.Duration
}
