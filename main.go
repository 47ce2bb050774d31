package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/anicoll/telldus-integration/cmd"
)

func main() {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "overrides LOG_LEVEL",
			Value: "INFO",
		},
		&cli.DurationFlag{
			Name:  "poll-interval",
			Usage: "overrides TELLDUS_POLL_INTERVAL, minimum 500ms",
		},
	}

	app := &cli.App{
		Name:   "telldus-controller",
		Usage:  "bridge a Telldus hub to Home Assistant, PostgreSQL and a local API",
		Action: cmd.ServeCommand,
		Flags:  flags,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "poll the hub and publish devices until interrupted",
				Action: cmd.ServeCommand,
				Flags:  flags,
			},
			{
				Name:   "devices",
				Usage:  "print every device known to the hub",
				Action: cmd.DevicesCommand,
				Flags:  flags,
			},
			{
				Name:      "hash-key",
				Usage:     "print the bcrypt hash to use as API_KEY_HASH",
				ArgsUsage: "[key]",
				Action:    cmd.HashKeyCommand,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
