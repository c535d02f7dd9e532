package action

import (
	"context"
	"slices"

	"github.com/dimspell/lobbywatch/internal/console"
	"github.com/kelindar/event"
	"github.com/urfave/cli/v3"
)

func ServeCommand(version string) *cli.Command {
	cmd := &cli.Command{
		Name:        "serve",
		Usage:       "Start the console server",
		Description: "Serves the lobby directory over HTTP, with Prometheus metrics on /_metrics",
		Flags: slices.Concat(clientFlags(), []cli.Flag{
			&cli.StringFlag{
				Name:  "console-addr",
				Value: defaultConsoleAddr,
				Usage: "Address the console server listens on",
			},
			&cli.StringSliceFlag{
				Name:  "cors-origin",
				Value: []string{"*"},
				Usage: "Allowed CORS origin, may be repeated",
			},
			&cli.DurationFlag{
				Name:  "request-timeout",
				Value: console.DefaultConfig().RequestTimeout,
				Usage: "Time limit of one API request, including every fetch it runs",
			},
		}),
	}

	cmd.Action = func(ctx context.Context, c *cli.Command) error {
		bus := event.NewDispatcher()
		defer bus.Close()

		client, err := newClient(c, bus)
		if err != nil {
			return err
		}

		con, err := console.NewConsole(client,
			console.WithVersion(version),
			console.WithBindAddr(c.String("console-addr")),
			console.WithCORSAllowedOrigins(c.StringSlice("cors-origin")),
			console.WithRequestTimeout(c.Duration("request-timeout")),
		)
		if err != nil {
			return err
		}

		start, stop := con.Handlers()
		return con.Graceful(ctx, start, stop)
	}

	return cmd
}
