package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"roomtoken/internal/app/token"
	"roomtoken/internal/configs"
)

func getTokenCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "issue",
			Usage: "Issue a token with the configured key and print it",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "identity", Aliases: []string{"i"}, Required: true, Usage: "Participant identity (token subject)"},
				&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Required: true, Usage: "Participant display name"},
				&cli.StringFlag{Name: "room", Aliases: []string{"r"}, Usage: "Room to grant; derived from --hint when empty"},
				&cli.StringFlag{Name: "hint", Usage: "Room derivation hint, usually an email address"},
				&cli.StringFlag{Name: "metadata", Aliases: []string{"m"}, Usage: "JSON object of string values"},
				&cli.BoolFlag{Name: "no-publish", Usage: "Deny publishing tracks"},
				&cli.BoolFlag{Name: "no-subscribe", Usage: "Deny subscribing to tracks"},
				&cli.BoolFlag{Name: "no-update-metadata", Usage: "Deny updating own metadata"},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg, err := configs.LoadConfig()
				if err != nil {
					return err
				}
				authority, err := newAuthority(ctx, cfg)
				if err != nil {
					return err
				}

				md, err := token.DecodeMetadata(cmd.String("metadata"))
				if err != nil {
					return err
				}

				return runIssue(ctx, authority, os.Stdout, token.CredentialRequest{
					Identity:     cmd.String("identity"),
					Name:         cmd.String("name"),
					Room:         cmd.String("room"),
					IdentityHint: cmd.String("hint"),
					Metadata:     md,
					Capabilities: capabilitiesFromFlags(
						cmd.Bool("no-publish"),
						cmd.Bool("no-subscribe"),
						cmd.Bool("no-update-metadata"),
					),
				})
			},
		},
		{
			Name:      "validate",
			Usage:     "Validate a token with the configured key and print its claims",
			ArgsUsage: "<token>",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg, err := configs.LoadConfig()
				if err != nil {
					return err
				}
				authority, err := newAuthority(ctx, cfg)
				if err != nil {
					return err
				}

				return runValidate(ctx, authority, os.Stdout, cmd.Args().First())
			},
		},
	}
}

// capabilitiesFromFlags turns the deny flags into explicit grants.
func capabilitiesFromFlags(noPublish, noSubscribe, noUpdateMetadata bool) token.Capabilities {
	canPublish, canSubscribe, canUpdate := !noPublish, !noSubscribe, !noUpdateMetadata
	return token.Capabilities{
		CanPublish:           &canPublish,
		CanSubscribe:         &canSubscribe,
		CanUpdateOwnMetadata: &canUpdate,
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runIssue(ctx context.Context, svc token.Service, w io.Writer, req token.CredentialRequest) error {
	cred, err := svc.Issue(ctx, req)
	if err != nil {
		return err
	}

	return writeJSON(w, map[string]any{
		"token":      cred.Token,
		"identity":   cred.Identity,
		"room_name":  cred.Room,
		"issued_at":  cred.IssuedAt.UTC(),
		"expires_at": cred.ExpiresAt.UTC(),
	})
}

// runValidate prints the outcome including the internal rejection reason, which the
// HTTP API never exposes.
func runValidate(ctx context.Context, svc token.Service, w io.Writer, tokenString string) error {
	result := svc.Validate(ctx, tokenString)
	if !result.Valid {
		if err := writeJSON(w, map[string]any{"valid": false, "reason": result.Reason}); err != nil {
			return err
		}
		return cli.Exit(fmt.Sprintf("token rejected: %s", result.Reason), 2)
	}

	return writeJSON(w, map[string]any{
		"valid":      true,
		"identity":   result.Identity,
		"name":       result.Name,
		"room":       result.Room,
		"grants":     result.Grants,
		"metadata":   result.Metadata,
		"issued_at":  result.IssuedAt,
		"expires_at": result.ExpiresAt,
	})
}
