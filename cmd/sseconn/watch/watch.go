// Package watchcmder provides the watch command: a live terminal view of
// an SSE stream.
package watchcmder

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pulsegate/sseconn/pkg/config"
	"github.com/pulsegate/sseconn/pkg/sse"
	"github.com/pulsegate/sseconn/pkg/sseclient"
)

type watchCommander struct {
	url     string
	method  string
	data    string
	headers []string

	readTimeout time.Duration
}

const watchLongDesc string = `Follow an SSE endpoint in a live terminal view.

The header shows the connection state as it moves through
connecting/connected/closed; events appear below as they arrive.
Quit with q.`

const watchShortDesc string = "Watch an SSE endpoint in a TUI"

func NewWatchCmd() *cobra.Command {
	cmder := &watchCommander{}

	cmd := &cobra.Command{
		Use:   "watch <url>",
		Short: watchShortDesc,
		Long:  watchLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			v, err := config.InitViper(cmd)
			if err != nil {
				return fmt.Errorf("binding config: %w", err)
			}

			cmder.method = v.GetString("method")
			cmder.data = v.GetString("data")
			cmder.readTimeout = v.GetDuration("read-timeout")
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
	cmd.Flags().Duration("read-timeout", defaults.ReadTimeout, "Maximum gap between stream reads")

	return cmd
}

func (c *watchCommander) run(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	headers, err := config.ParseHeaders(c.headers)
	if err != nil {
		return err
	}

	program := bubbletea.NewProgram(newWatchModel(c.url),
		bubbletea.WithContext(ctx),
		bubbletea.WithAltScreen(),
	)

	cfg := sseclient.DefaultConfig()
	cfg.ReadTimeout = c.readTimeout

	client := sseclient.New(
		sseclient.WithConfig(cfg),
		sseclient.WithLifecycle(ctx),
		sseclient.WithListener(&watchListener{program: program}),
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

	_, err = program.Run()
	return err
}

// watchListener forwards client callbacks into the bubbletea program.
type watchListener struct {
	sseclient.NoopListener

	program *bubbletea.Program
}

func (l *watchListener) OnStateChanged(s sseclient.State) {
	l.program.Send(stateMsg{state: s})
}

func (l *watchListener) OnEvent(ev *sse.Event) {
	l.program.Send(eventMsg{event: ev})
}

func (l *watchListener) OnFailure(err error) {
	l.program.Send(failureMsg{err: err})
}
