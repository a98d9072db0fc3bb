package sseclient

import "github.com/pulsegate/sseconn/pkg/sse"

// Listener receives connection callbacks from a Client.
//
// Every state transition fires OnStateChanged first, then the
// state-specific callback. Callbacks are delivered on the streaming
// goroutine or the caller's goroutine (for Disconnect); implementations
// that touch shared state must synchronize.
//
// Embed NoopListener to override only the callbacks you need.
type Listener interface {
	// OnStateChanged fires on every transition, before the specific callback.
	OnStateChanged(state State)

	// OnConnected fires once the stream has opened.
	OnConnected()

	// OnEvent fires for each parsed event while the stream is connected.
	OnEvent(event *sse.Event)

	// OnClosed fires when the stream ends normally.
	OnClosed()

	// OnFailure fires when the attempt ends with a transport error.
	OnFailure(err error)

	// OnCancelled fires when the attempt is torn down locally.
	OnCancelled()
}

// NoopListener implements Listener with empty methods.
type NoopListener struct{}

func (NoopListener) OnStateChanged(State)  {}
func (NoopListener) OnConnected()          {}
func (NoopListener) OnEvent(*sse.Event)    {}
func (NoopListener) OnClosed()             {}
func (NoopListener) OnFailure(error)       {}
func (NoopListener) OnCancelled()          {}
