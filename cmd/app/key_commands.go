package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/envoy-gateway/cmd/app/commands"
	"github.com/allisson/envoy-gateway/internal/app"
	"github.com/allisson/envoy-gateway/internal/config"
	"github.com/allisson/envoy-gateway/internal/crypto/secretsource"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-master-secret",
			Usage: "Generate a new master secret, optionally encrypted with a KMS keeper",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "keeper-uri",
					Value: "",
					Usage: "KMS keeper URI (e.g., base64key://, gcpkms://projects/.../cryptoKeys/...)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunCreateMasterSecret(
					ctx,
					secretsource.OpenKeeper,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("keeper-uri"),
				)
			},
		},
		{
			Name:  "derive-keys",
			Usage: "Derive both keys from the configured master secret and print their fingerprints",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				keys, err := container.KeySet()
				if err != nil {
					return err
				}

				return commands.RunDeriveKeys(commands.DefaultIO().Writer, keys, cmd.String("format"))
			},
		},
		{
			Name:  "sign-payload",
			Usage: "Print the X-Anchor-Signature value for a request body",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "file",
					Aliases: []string{"i"},
					Value:   "-",
					Usage:   "Body file to sign ('-' reads stdin)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				signer, err := container.Signer()
				if err != nil {
					return err
				}

				io := commands.DefaultIO()
				body, err := commands.ReadInput(cmd.String("file"), io.Reader)
				if err != nil {
					return err
				}

				return commands.RunSignPayload(io.Writer, signer, body)
			},
		},
		{
			Name:  "encrypt-payload",
			Usage: "Encrypt a payload into a Fernet token with the derived encryption key",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "file",
					Aliases: []string{"i"},
					Value:   "-",
					Usage:   "Plaintext file to encrypt ('-' reads stdin)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				cipher, err := container.PayloadCipher()
				if err != nil {
					return err
				}

				io := commands.DefaultIO()
				plaintext, err := commands.ReadInput(cmd.String("file"), io.Reader)
				if err != nil {
					return err
				}

				return commands.RunEncryptPayload(io.Writer, cipher, plaintext)
			},
		},
		{
			Name:  "decrypt-payload",
			Usage: "Decrypt a Fernet token with the derived encryption key",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "file",
					Aliases: []string{"i"},
					Value:   "-",
					Usage:   "Token file to decrypt ('-' reads stdin)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				cipher, err := container.PayloadCipher()
				if err != nil {
					return err
				}

				io := commands.DefaultIO()
				token, err := commands.ReadInput(cmd.String("file"), io.Reader)
				if err != nil {
					return err
				}

				return commands.RunDecryptPayload(io.Writer, cipher, token)
			},
		},
	}
}
