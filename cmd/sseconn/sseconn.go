// Package sseconncmder provides the sseconn root command.
package sseconncmder

import (
	"github.com/spf13/cobra"

	servecmder "github.com/pulsegate/sseconn/cmd/sseconn/serve"
	tailcmder "github.com/pulsegate/sseconn/cmd/sseconn/tail"
	watchcmder "github.com/pulsegate/sseconn/cmd/sseconn/watch"
	versioncmder "github.com/pulsegate/sseconn/cmd/version"
)

const sseconnLongDesc string = `sseconn manages long-lived Server-Sent-Events connections.

Consume streams using:
  sseconn tail     Connect to an SSE endpoint and print events
  sseconn watch    Follow an SSE endpoint in a live terminal view
  sseconn serve    Run a demo SSE server for local testing`

const sseconnShortDesc string = "sseconn - SSE connection manager"

func NewSSEConnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sseconn",
		Short: sseconnShortDesc,
		Long:  sseconnLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().Bool("json", false, "Emit JSON logs instead of text")

	// Add subcommands
	cmd.AddCommand(tailcmder.NewTailCmd())
	cmd.AddCommand(watchcmder.NewWatchCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
