package sseclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pulsegate/sseconn/pkg/sse"
)

// recordingListener captures every callback in arrival order so specs can
// assert both content and ordering.
type recordingListener struct {
	mu    sync.Mutex
	calls []string
}

func (l *recordingListener) record(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *recordingListener) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.calls))
	copy(out, l.calls)
	return out
}

func (l *recordingListener) OnStateChanged(s State) { l.record("state:" + s.String()) }
func (l *recordingListener) OnConnected()           { l.record("connected") }
func (l *recordingListener) OnEvent(ev *sse.Event)  { l.record("event:" + ev.Data) }
func (l *recordingListener) OnClosed()              { l.record("closed") }
func (l *recordingListener) OnFailure(error)        { l.record("failure") }
func (l *recordingListener) OnCancelled()           { l.record("cancelled") }

// upstream is a gated httptest SSE server: frames sent to events are
// flushed to the connected client; closing the gate ends the stream.
type upstream struct {
	server    *httptest.Server
	events    chan string
	hits      atomic.Int64
	closeOnce sync.Once

	mu         sync.Mutex
	lastHeader http.Header
	lastBody   []byte
}

func newUpstream() *upstream {
	u := &upstream{events: make(chan string, 16)}

	u.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.hits.Add(1)

		body, _ := io.ReadAll(r.Body)
		u.mu.Lock()
		u.lastHeader = r.Header.Clone()
		u.lastBody = body
		u.mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, ok := w.(http.Flusher)
		Expect(ok).To(BeTrue())
		flusher.Flush()

		for {
			select {
			case frame, open := <-u.events:
				if !open {
					return
				}
				fmt.Fprint(w, frame)
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	}))

	return u
}

// endStream closes the event gate, ending the SSE response normally.
func (u *upstream) endStream() {
	u.closeOnce.Do(func() { close(u.events) })
}

func (u *upstream) requestHeader() http.Header {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastHeader
}

func (u *upstream) requestBody() []byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastBody
}

var _ = Describe("Client", func() {
	var (
		u        *upstream
		listener *recordingListener
		client   *Client
	)

	BeforeEach(func() {
		u = newUpstream()
		listener = &recordingListener{}
		client = New(WithListener(listener))
	})

	AfterEach(func() {
		client.Close()
		u.endStream()
		u.server.Close()
	})

	Describe("Connect", func() {
		It("transitions idle → connecting → connected and dispatches events", func() {
			Expect(client.State()).To(Equal(StateIdle))

			Expect(client.ConnectGet(u.server.URL)).To(Succeed())

			Eventually(listener.snapshot, "3s").Should(ContainElement("connected"))
			Expect(client.State()).To(Equal(StateConnected))
			Expect(client.IsConnecting()).To(BeTrue())

			u.events <- "data: hello\n\n"
			Eventually(listener.snapshot, "3s").Should(ContainElement("event:hello"))

			u.endStream()
			Eventually(listener.snapshot, "3s").Should(ContainElement("closed"))
			Expect(client.State()).To(Equal(StateClosed))

			Expect(listener.snapshot()).To(Equal([]string{
				"state:connecting",
				"state:connected", "connected",
				"event:hello",
				"state:closed", "closed",
			}))
		})

		It("issues exactly one transport call for two connects in succession", func() {
			req, err := NewGet(u.server.URL)
			Expect(err).NotTo(HaveOccurred())

			client.Connect(req)
			client.Connect(req)

			Eventually(listener.snapshot, "3s").Should(ContainElement("connected"))
			Consistently(u.hits.Load, "300ms").Should(Equal(int64(1)))
		})

		It("accepts a fresh connect after a terminal state", func() {
			Expect(client.ConnectGet(u.server.URL)).To(Succeed())
			Eventually(listener.snapshot, "3s").Should(ContainElement("connected"))

			u.endStream()
			Eventually(client.State, "3s").Should(Equal(StateClosed))

			Expect(client.ConnectGet(u.server.URL)).To(Succeed())
			Eventually(u.hits.Load, "3s").Should(Equal(int64(2)))
		})

		It("sends the mandatory event-stream headers", func() {
			Expect(client.ConnectGet(u.server.URL)).To(Succeed())
			Eventually(listener.snapshot, "3s").Should(ContainElement("connected"))

			hdr := u.requestHeader()
			Expect(hdr.Get("Accept")).To(Equal("text/event-stream"))
			Expect(hdr.Get("Cache-Control")).To(Equal("no-cache"))
		})

		It("round-trips a POST body verbatim with the fixed content type", func() {
			Expect(client.ConnectPost(u.server.URL, `{"prompt":"héllo"}`)).To(Succeed())
			Eventually(listener.snapshot, "3s").Should(ContainElement("connected"))

			Expect(u.requestBody()).To(Equal([]byte(`{"prompt":"héllo"}`)))
			Expect(u.requestHeader().Get("Content-Type")).To(Equal("application/json; charset=utf-8"))
		})

		It("returns construction errors without touching the listener", func() {
			Expect(client.ConnectGet("")).To(MatchError(ErrBlankURL))
			Expect(client.ConnectPost(u.server.URL, "")).To(MatchError(ErrMissingBody))

			Consistently(listener.snapshot, "200ms").Should(BeEmpty())
			Expect(client.State()).To(Equal(StateIdle))
		})
	})

	Describe("failure handling", func() {
		It("reports a non-2xx handshake as a failure", func() {
			bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer bad.Close()

			Expect(client.ConnectGet(bad.URL)).To(Succeed())

			Eventually(listener.snapshot, "3s").Should(ContainElement("failure"))
			Expect(client.State()).To(Equal(StateFailed))
			Expect(listener.snapshot()).To(Equal([]string{
				"state:connecting",
				"state:failed", "failure",
			}))
		})

		It("reports an unreachable upstream as a failure", func() {
			dead := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
			dead.Close()

			Expect(client.ConnectGet(dead.URL)).To(Succeed())

			Eventually(listener.snapshot, "3s").Should(ContainElement("failure"))
			Expect(client.State()).To(Equal(StateFailed))
		})
	})

	Describe("Disconnect", func() {
		It("is a no-op on an idle client", func() {
			client.Disconnect()

			Expect(client.State()).To(Equal(StateIdle))
			Consistently(listener.snapshot, "200ms").Should(BeEmpty())
		})

		It("cancels a connected stream locally and immediately", func() {
			Expect(client.ConnectGet(u.server.URL)).To(Succeed())
			Eventually(listener.snapshot, "3s").Should(ContainElement("connected"))

			client.Disconnect()

			calls := listener.snapshot()
			Expect(calls[len(calls)-2:]).To(Equal([]string{"state:cancelled", "cancelled"}))

			// The transport's own failure callback for the torn-down call
			// must not alter the locally driven transition.
			Consistently(client.State, "500ms").Should(Equal(StateCancelled))
			Consistently(listener.snapshot, "500ms").Should(HaveLen(len(calls)))
		})
	})

	Describe("SetListener", func() {
		It("takes effect for subsequent callbacks only", func() {
			Expect(client.ConnectGet(u.server.URL)).To(Succeed())
			Eventually(listener.snapshot, "3s").Should(ContainElement("connected"))

			u.events <- "data: one\n\n"
			Eventually(listener.snapshot, "3s").Should(ContainElement("event:one"))

			replacement := &recordingListener{}
			client.SetListener(replacement)

			u.events <- "data: two\n\n"
			Eventually(replacement.snapshot, "3s").Should(ContainElement("event:two"))

			Expect(listener.snapshot()).NotTo(ContainElement("event:two"))
			Expect(replacement.snapshot()).NotTo(ContainElement("event:one"))
		})
	})

	Describe("AddInterceptor", func() {
		It("applies stages added before the transport is built", func() {
			stage := InterceptorFunc(func(req *http.Request, next Next) (*http.Response, error) {
				req.Header.Set("X-Custom", "stage")
				return next(req)
			})
			Expect(client.AddInterceptor(stage)).To(Succeed())

			Expect(client.ConnectGet(u.server.URL)).To(Succeed())
			Eventually(listener.snapshot, "3s").Should(ContainElement("connected"))

			Expect(u.requestHeader().Get("X-Custom")).To(Equal("stage"))
		})

		It("rejects stages added after the transport is built", func() {
			Expect(client.ConnectGet(u.server.URL)).To(Succeed())
			Eventually(listener.snapshot, "3s").Should(ContainElement("connected"))

			err := client.AddInterceptor(InterceptorFunc(func(req *http.Request, next Next) (*http.Response, error) {
				return next(req)
			}))
			Expect(err).To(MatchError(ErrTransportBuilt))
		})
	})

	Describe("lifecycle binding", func() {
		It("tears down when the lifecycle context is done and suppresses later callbacks", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			bound := &recordingListener{}
			lifecycleClient := New(WithLifecycle(ctx), WithListener(bound))
			defer lifecycleClient.Close()

			Expect(lifecycleClient.ConnectGet(u.server.URL)).To(Succeed())
			Eventually(bound.snapshot, "3s").Should(ContainElement("connected"))

			cancel()
			Eventually(bound.snapshot, "3s").Should(ContainElement("cancelled"))

			// Frames arriving after teardown must never reach the listener.
			frozen := bound.snapshot()
			u.events <- "data: late\n\n"
			u.events <- "data: later\n\n"
			Consistently(bound.snapshot, "500ms").Should(Equal(frozen))

			// A torn-down client ignores further connects.
			Expect(lifecycleClient.ConnectGet(u.server.URL)).To(Succeed())
			Consistently(bound.snapshot, "300ms").Should(Equal(frozen))
		})
	})

	Describe("classification", func() {
		It("treats context cancellation as a cancellation", func() {
			Expect(isCancellation(context.Canceled)).To(BeTrue())
			Expect(isCancellation(fmt.Errorf("doing request: %w", context.Canceled))).To(BeTrue())
		})

		It("treats cancellation markers in messages as cancellations", func() {
			Expect(isCancellation(fmt.Errorf("stream error: stream ID 7; CANCEL"))).To(BeTrue())
		})

		It("treats everything else as a failure", func() {
			Expect(isCancellation(fmt.Errorf("connection reset by peer"))).To(BeFalse())
			Expect(isCancellation(context.DeadlineExceeded)).To(BeFalse())
			Expect(isCancellation(nil)).To(BeFalse())
		})
	})
})

var _ = Describe("Client defaults", func() {
	It("reads state without blocking under concurrent access", func() {
		client := New()
		defer client.Close()

		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < 1000; i++ {
				s := client.State()
				Expect(s).To(BeElementOf(
					StateIdle, StateConnecting, StateConnected,
					StateClosed, StateFailed, StateCancelled,
				))
			}
		}()

		for i := 0; i < 100; i++ {
			client.Disconnect()
		}

		Eventually(done, 2*time.Second).Should(BeClosed())
	})
})
