package main

import (
	"context"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/allisson/envoy-gateway/cmd/app/commands"
	"github.com/allisson/envoy-gateway/internal/app"
	"github.com/allisson/envoy-gateway/internal/config"
	"github.com/allisson/envoy-gateway/internal/device/client"
)

// deviceFlags are shared by every command that talks to a running gateway.
func deviceFlags(extra ...cli.Flag) []cli.Flag {
	return append([]cli.Flag{
		&cli.StringFlag{
			Name:    "url",
			Aliases: []string{"u"},
			Value:   "http://localhost:8080",
			Usage:   "Gateway base URL",
			Sources: cli.EnvVars("GATEWAY_URL"),
		},
		&cli.IntFlag{
			Name:  "retries",
			Value: 2,
			Usage: "Retries on connection errors, 429 and 5xx responses",
		},
	}, extra...)
}

// withDeviceClient builds a device client from the configured master secret and runs fn.
func withDeviceClient(
	ctx context.Context,
	cmd *cli.Command,
	fn func(c commands.DeviceClient, io commands.IOTuple) error,
) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	defer func() { _ = container.Shutdown(ctx) }()

	keys, err := container.KeySet()
	if err != nil {
		return err
	}

	c, err := client.New(
		cmd.String("url"),
		keys,
		client.WithRetryMax(int(cmd.Int("retries"))),
		client.WithLogger(container.Logger()),
	)
	if err != nil {
		return err
	}

	return fn(c, commands.DefaultIO())
}

func getDeviceCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "health",
			Usage: "Call the gateway health endpoint",
			Flags: deviceFlags(),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withDeviceClient(ctx, cmd, func(c commands.DeviceClient, io commands.IOTuple) error {
					return commands.RunCheckHealth(ctx, c, io.Writer)
				})
			},
		},
		{
			Name:  "send-boot",
			Usage: "Send a signed boot announcement as a device",
			Flags: deviceFlags(
				&cli.StringFlag{
					Name:    "device-id",
					Aliases: []string{"d"},
					Usage:   "Device identifier",
				},
				&cli.StringFlag{
					Name:  "config-version",
					Usage: "Configuration version reported by the device",
				},
			),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withDeviceClient(ctx, cmd, func(c commands.DeviceClient, io commands.IOTuple) error {
					return commands.RunSendBoot(ctx, c, io.Writer, cmd.String("device-id"), cmd.String("config-version"))
				})
			},
		},
		{
			Name:  "send-directive",
			Usage: "Poll the gateway for a directive as a device",
			Flags: deviceFlags(),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withDeviceClient(ctx, cmd, func(c commands.DeviceClient, io commands.IOTuple) error {
					return commands.RunSendDirective(ctx, c, io.Writer)
				})
			},
		},
		{
			Name:  "send-ingest",
			Usage: "Encrypt a file and upload it to the gateway as a device",
			Flags: deviceFlags(
				&cli.StringFlag{
					Name:    "file",
					Aliases: []string{"i"},
					Value:   "-",
					Usage:   "File to upload ('-' reads stdin)",
				},
				&cli.StringFlag{
					Name:    "filename",
					Aliases: []string{"n"},
					Usage:   "Stored filename (defaults to the input file name)",
				},
			),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withDeviceClient(ctx, cmd, func(c commands.DeviceClient, io commands.IOTuple) error {
					path := cmd.String("file")
					data, err := commands.ReadInput(path, io.Reader)
					if err != nil {
						return err
					}

					filename := cmd.String("filename")
					if filename == "" && path != "-" {
						filename = filepath.Base(path)
					}

					return commands.RunSendIngest(ctx, c, io.Writer, filename, data)
				})
			},
		},
	}
}
