package sse

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
)

// Reader incrementally parses SSE events out of a source io.Reader.
//
// A Reader is a lazy, unbounded, non-restartable sequence: Next blocks on
// the source until a complete event frame is available and returns nil, nil
// once the source is exhausted. When constructed via NewTeeReader, all raw
// bytes are additionally written verbatim to a destination writer:
//
//	┌──────────────────┐
//	│ source io.Reader │
//	└──────────────────┘
//	│
//	▼
//	┌──────────────────┐   ┌───────────────────────┐
//	│   Reader.Next()  │──▶│ destination io.Writer │
//	└──────────────────┘   └───────────────────────┘
//	│
//	▼
//	┌──────────────────┐
//	│      Event       │
//	└──────────────────┘
type Reader struct {
	scanner *bufio.Scanner
	dest    io.Writer

	// current accumulates fields for the event being built in the current scan.
	current   *Event
	hasFields bool
}

// NewReader returns a Reader that parses SSE events from src.
func NewReader(src io.Reader) *Reader {
	return NewTeeReader(src, io.Discard)
}

// NewTeeReader returns a Reader that parses SSE events from src and writes
// all raw bytes through to dest, so a downstream consumer can observe the
// stream verbatim while the caller inspects parsed events.
func NewTeeReader(src io.Reader, dest io.Writer) *Reader {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	return &Reader{
		scanner: scanner,
		dest:    dest,
		current: &Event{},
	}
}

// Next returns the next parsed SSE event from the stream. It blocks until a
// complete event is available (terminated by a blank line in the stream).
// Next returns nil, nil when the source is exhausted.
func (r *Reader) Next() (*Event, error) {
	for r.scanner.Scan() {
		raw := r.scanner.Text()

		// Write the raw line content and newline to the destination.
		// bufio.Scanner strips the newline from Scan() so we reinsert it here.
		_, err := io.WriteString(r.dest, raw+"\n")
		if err != nil {
			return nil, err
		}

		// A blank line signals the end of the current event.
		if raw == "" {
			if r.hasFields {
				currentEvent := r.current
				r.reset()
				return currentEvent, nil
			}

			// Blank line with no accumulated fields — skip (e.g. leading
			// blank lines or keep-alive newlines).
			continue
		}

		// Lines starting with ':' are comments. Skip them in Event parsing.
		if strings.HasPrefix(raw, ":") {
			continue
		}

		r.parseLine(raw)
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	// Source exhausted and no error from scanner.
	// If there is an in-progress event (stream ended without a trailing blank
	// line), yield it.
	if r.hasFields {
		ev := r.current
		r.reset()
		return ev, nil
	}

	return nil, nil
}

// parseLine processes a single non-empty, non-comment SSE line and
// accumulates the field into the current event.
//
// Per the SSE spec, a line has the form "field:value" where the first
// space after the colon is optional and stripped if present.
func (r *Reader) parseLine(line string) {
	var field, value string

	if before, after, ok := strings.Cut(line, ":"); ok {
		field = before
		value = after
		// Strip a single leading space after the colon, per spec.
		value = strings.TrimPrefix(value, " ")
	} else {
		// Line with no colon: the entire line is the field name with
		// an empty value.
		field = line
	}

	switch field {
	case "data":
		if r.hasFields && r.current.Data != "" {
			// Multiple data fields are joined with "\n".
			r.current.Data += "\n"
		}
		r.current.Data += value
		r.hasFields = true
	case "event":
		r.current.Type = value
		r.hasFields = true
	case "id":
		r.current.ID = value
		r.hasFields = true
	case "retry":
		// Non-integer retry values are ignored, and a malformed line never
		// aborts the stream.
		ms, err := strconv.ParseInt(value, 10, 64)
		if err == nil && ms >= 0 {
			r.current.Retry = time.Duration(ms) * time.Millisecond
			r.hasFields = true
		}
	default:
		// Unknown fields are ignored per the SSE spec.
	}
}

// reset clears the accumulated event state for the next event.
func (r *Reader) reset() {
	r.current = &Event{}
	r.hasFields = false
}
