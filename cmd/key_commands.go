package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"roomtoken/internal/pkg/keeper"
	"roomtoken/internal/pkg/randx"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "gen-key",
			Usage: "Generate a new API key and secret pair in .env format",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return runGenKey(os.Stdout)
			},
		},
		{
			Name:  "encrypt-secret",
			Usage: "Encrypt an API secret with a secrets keeper for use as API_SECRET",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "keeper-uri",
					Sources:  cli.EnvVars("API_SECRET_KEEPER_URI"),
					Required: true,
					Usage:    "Keeper URI (e.g., base64key://..., hashivault://mykey)",
				},
				&cli.StringFlag{
					Name:     "secret",
					Required: true,
					Usage:    "Plaintext secret to encrypt",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return runEncryptSecret(ctx, os.Stdout, cmd.String("keeper-uri"), cmd.String("secret"))
			},
		},
	}
}

func runGenKey(w io.Writer) error {
	key, err := randx.APIKey()
	if err != nil {
		return fmt.Errorf("generate API key: %w", err)
	}
	secret, err := randx.APISecret()
	if err != nil {
		return fmt.Errorf("generate API secret: %w", err)
	}

	_, err = fmt.Fprintf(w, "API_KEY=%s\nAPI_SECRET=%s\n", key, secret)
	return err
}

func runEncryptSecret(ctx context.Context, w io.Writer, keeperURI, secret string) error {
	ciphertext, err := keeper.EncryptSecret(ctx, keeperURI, secret)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "API_SECRET_KEEPER_URI=%s\nAPI_SECRET=%s\n", keeperURI, ciphertext)
	return err
}
