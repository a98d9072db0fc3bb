// Package servecmder provides the serve command: a small demo SSE server
// for exercising the client end to end.
package servecmder

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pulsegate/sseconn/pkg/config"
	"github.com/pulsegate/sseconn/pkg/logger"
)

type serveCommander struct {
	listen   string
	interval time.Duration
	count    int

	logger *slog.Logger
}

const serveLongDesc string = `Run a demo SSE server.

GET /events streams timestamped tick events at a fixed interval.
POST /events does the same but echoes the request body in the
first event, which makes it handy for testing POST streaming clients:

  sseconn serve &
  sseconn tail http://localhost:8777/events`

const serveShortDesc string = "Run a demo SSE server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			v, err := config.InitViper(cmd)
			if err != nil {
				return fmt.Errorf("binding config: %w", err)
			}

			cmder.listen = v.GetString("listen")
			cmder.interval = v.GetDuration("interval")
			cmder.count = v.GetInt("count")
			cmder.logger = logger.New(
				logger.WithDebug(v.GetBool("debug")),
				logger.WithJSON(v.GetBool("json")),
			)
			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.run()
		},
	}

	cmd.Flags().String("listen", ":8777", "Address to listen on")
	cmd.Flags().Duration("interval", time.Second, "Delay between events")
	cmd.Flags().Int("count", 0, "Events per stream, 0 for unbounded")

	return cmd
}

type tickEvent struct {
	Seq  int       `json:"seq"`
	Time time.Time `json:"time"`
	Echo string    `json:"echo,omitempty"`
}

func (c *serveCommander) run() error {
	app := fiber.New(fiber.Config{
		// Quieter logs for a demo tool
		DisableStartupMessage: true,
		StreamRequestBody:     true,
	})

	app.Get("/events", func(ctx *fiber.Ctx) error {
		return c.stream(ctx, "")
	})
	app.Post("/events", func(ctx *fiber.Ctx) error {
		return c.stream(ctx, string(ctx.Body()))
	})

	c.logger.Info("demo SSE server listening",
		"addr", c.listen,
		"interval", c.interval,
	)
	return app.Listen(c.listen)
}

// stream writes tick events until the configured count is reached or the
// client goes away.
func (c *serveCommander) stream(ctx *fiber.Ctx, echo string) error {
	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")

	interval := c.interval
	count := c.count
	log := c.logger

	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		for seq := 1; count == 0 || seq <= count; seq++ {
			ev := tickEvent{Seq: seq, Time: time.Now().UTC()}
			if seq == 1 {
				ev.Echo = echo
			}

			payload, err := json.Marshal(ev)
			if err != nil {
				log.Error("marshal tick", "err", err)
				return
			}

			fmt.Fprintf(w, "id: %s\nevent: tick\ndata: %s\n\n", uuid.NewString(), payload)
			if err := w.Flush(); err != nil {
				// Client went away.
				return
			}

			time.Sleep(interval)
		}
	})

	return nil
}
