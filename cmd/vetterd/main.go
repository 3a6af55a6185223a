package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/vetter/pkg/api"
	"github.com/NVIDIA/vetter/pkg/config"
)

func main() {
	cmd := &cli.Command{
		Name:  "vetterd",
		Usage: "vetter API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML or JSON config file",
				Sources: cli.EnvVars("VETTER_CONFIG"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return err
			}
			// Serve handles SIGINT and SIGTERM.
			return api.Serve(ctx, cfg)
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
