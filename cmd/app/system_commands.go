package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/envoy-gateway/cmd/app/commands"
	"github.com/allisson/envoy-gateway/internal/app"
	"github.com/allisson/envoy-gateway/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the gateway HTTP server",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "migrate",
			Usage: "Run boot store migrations (postgres and mysql boot store drivers only)",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunMigrations(container.Logger(), cfg.BootStoreDriver, cfg.DBConnectionString)
			},
		},
	}
}
