/*
Package main is the entry point for the Room Token Server.

The default command loads configuration, initializes the global logger, and serves the
token API (plus the metrics listener when enabled) until SIGINT or SIGTERM, then shuts
down gracefully. The remaining commands are operator tools that share the same
configuration: issuing or inspecting a token offline, generating a key pair, and
encrypting the signing secret for a secrets keeper.
*/
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

var version = "1.0.0"

func main() {
	cmd := &cli.Command{
		Name:           "roomtoken",
		Usage:          "Issue and validate room access tokens",
		Version:        version,
		DefaultCommand: "serve",
		Commands:       getCommands(),
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
}

func getCommands() []*cli.Command {
	cmds := []*cli.Command{
		{
			Name:  "serve",
			Usage: "Start the HTTP token server",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return runServe(ctx)
			},
		},
	}
	cmds = append(cmds, getTokenCommands()...)
	cmds = append(cmds, getKeyCommands()...)
	return cmds
}
