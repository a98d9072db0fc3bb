// Package tailcmder provides the tail command: connect to an SSE endpoint
// and print events until the stream reaches a terminal state.
package tailcmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pulsegate/sseconn/pkg/config"
	"github.com/pulsegate/sseconn/pkg/logger"
	"github.com/pulsegate/sseconn/pkg/sse"
	"github.com/pulsegate/sseconn/pkg/sseclient"
)

type tailCommander struct {
	url     string
	method  string
	data    string
	headers []string
	raw     bool

	connectTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration

	logFile string

	logger  *slog.Logger
	capture io.Closer
}

const tailLongDesc string = `Connect to an SSE endpoint and print events as they arrive.

Events are printed as structured logs, or as verbatim wire frames with
--raw. The command exits when the stream closes, fails, or is interrupted.

There is no automatic reconnect: when the server ends the stream the
command ends with it.`

const tailShortDesc string = "Tail an SSE endpoint"

func NewTailCmd() *cobra.Command {
	cmder := &tailCommander{}

	cmd := &cobra.Command{
		Use:   "tail <url>",
		Short: tailShortDesc,
		Long:  tailLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			v, err := config.InitViper(cmd)
			if err != nil {
				return fmt.Errorf("binding config: %w", err)
			}

			cmder.method = v.GetString("method")
			cmder.data = v.GetString("data")
			cmder.raw = v.GetBool("raw")
			cmder.connectTimeout = v.GetDuration("connect-timeout")
			cmder.readTimeout = v.GetDuration("read-timeout")
			cmder.writeTimeout = v.GetDuration("write-timeout")
			cmder.logFile = v.GetString("log-file")

			cmder.logger = logger.New(
				logger.WithDebug(v.GetBool("debug")),
				logger.WithJSON(v.GetBool("json")),
			)

			if cmder.logFile != "" {
				f, err := os.OpenFile(cmder.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("opening log file: %w", err)
				}
				cmder.capture = f
				// Terminal output keeps its format; the capture file always
				// gets machine-readable JSON.
				cmder.logger = logger.Multi(
					cmder.logger,
					logger.New(
						logger.WithDebug(v.GetBool("debug")),
						logger.WithJSON(true),
						logger.WithWriter(f),
					),
				)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.url = args[0]
			var err error
			cmder.headers, err = cmd.Flags().GetStringArray("header")
			if err != nil {
				return err
			}
			return cmder.run(cmd.Context())
		},
	}

	defaults := sseclient.DefaultConfig()
	cmd.Flags().StringP("method", "X", http.MethodGet, "Request method (GET or POST)")
	cmd.Flags().String("data", "", "POST body (required for POST)")
	cmd.Flags().StringArrayP("header", "H", nil, "Extra request header, \"Key: Value\" (repeatable)")
	cmd.Flags().Bool("raw", false, "Print verbatim wire frames instead of structured logs")
	cmd.Flags().String("log-file", "", "Also append JSON logs to this file")
	cmd.Flags().Duration("connect-timeout", defaults.ConnectTimeout, "Dial and TLS handshake timeout")
	cmd.Flags().Duration("read-timeout", defaults.ReadTimeout, "Maximum gap between stream reads")
	cmd.Flags().Duration("write-timeout", defaults.WriteTimeout, "Per-write timeout")

	return cmd
}

func (c *tailCommander) run(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.capture != nil {
		defer c.capture.Close()
	}

	headers, err := config.ParseHeaders(c.headers)
	if err != nil {
		return err
	}

	if c.raw {
		return c.runRaw(ctx, headers)
	}

	cfg := sseclient.Config{
		ConnectTimeout: c.connectTimeout,
		ReadTimeout:    c.readTimeout,
		WriteTimeout:   c.writeTimeout,
		EnableLogging:  true,
	}

	done := make(chan error, 1)
	client := sseclient.New(
		sseclient.WithConfig(cfg),
		sseclient.WithLogger(c.logger),
		sseclient.WithLifecycle(ctx),
		sseclient.WithListener(&tailListener{logger: c.logger, done: done}),
	)
	defer client.Close()

	switch c.method {
	case http.MethodPost:
		err = client.ConnectPost(c.url, c.data, headers...)
	default:
		err = client.ConnectGet(c.url, headers...)
	}
	if err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return nil
	}
}

// runRaw bypasses the managed client and dumps the stream verbatim while
// still counting parsed events, using the parser's tee mode.
func (c *tailCommander) runRaw(ctx context.Context, headers []sseclient.Header) error {
	var req *sseclient.Request
	var err error
	if c.method == http.MethodPost {
		req, err = sseclient.NewPost(c.url, c.data, headers...)
	} else {
		req, err = sseclient.NewGet(c.url, headers...)
	}
	if err != nil {
		return err
	}

	var body io.Reader
	if req.Method == http.MethodPost {
		body = strings.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return err
	}
	if req.Method == http.MethodPost {
		httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")
	for _, h := range req.Headers {
		httpReq.Header.Add(h.Key, h.Value)
	}

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	count := 0
	r := sse.NewTeeReader(resp.Body, os.Stdout)
	for {
		ev, err := r.Next()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return err
		}
		if ev == nil {
			break
		}
		count++
	}

	c.logger.Info("stream ended", "events", count)
	return nil
}

// tailListener prints each event and reports the terminal outcome on done.
type tailListener struct {
	sseclient.NoopListener

	logger *slog.Logger
	done   chan error
}

func (l *tailListener) OnStateChanged(s sseclient.State) {
	l.logger.Debug("state changed", "state", s.String())
}

func (l *tailListener) OnConnected() {
	l.logger.Info("stream opened")
}

func (l *tailListener) OnEvent(ev *sse.Event) {
	attrs := []any{"data", ev.Data}
	if ev.ID != "" {
		attrs = append(attrs, "id", ev.ID)
	}
	if ev.Type != "" {
		attrs = append(attrs, "type", ev.Type)
	}
	if ev.Retry > 0 {
		attrs = append(attrs, "retry", ev.Retry)
	}
	l.logger.Info("event", attrs...)
}

func (l *tailListener) OnClosed() {
	l.logger.Info("stream closed")
	l.done <- nil
}

func (l *tailListener) OnFailure(err error) {
	l.done <- fmt.Errorf("stream failed: %w", err)
}

func (l *tailListener) OnCancelled() {
	l.logger.Info("stream cancelled")
	l.done <- nil
}
