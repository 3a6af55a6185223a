// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/vetter/pkg/api"
	"github.com/NVIDIA/vetter/pkg/pipeline"
)

// withPipeline connects to the configured cluster, wires the pipeline and
// calls fn with it.
func withPipeline(ctx context.Context, cmd *cli.Command, fn func(p *pipeline.Pipeline) (*pipeline.Result, error)) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	conn, err := api.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	app, err := api.Build(ctx, cfg, conn.Clientset, conn.Credentials)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	defer func() {
		if err := app.Close(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	res, err := fn(app.Pipeline)
	if err != nil {
		return err
	}
	if err := writeOutput(ctx, cmd, res); err != nil {
		return err
	}
	if !res.Succeeded() {
		return fmt.Errorf("run %s ended in state %s: %s", res.RunID, res.State, res.Message)
	}
	return nil
}

func runCmd() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Upload a script, validate it in an ephemeral namespace and promote it",
		ArgsUsage: "FILE",
		Description: `Runs the full pipeline for a local file: the file is stored, published to
source control when a publisher is configured, executed in a fresh validation
namespace and, when its output is clean, promoted to production.

The file name must match the configured expected name (helloworld.py by
default).`,
		Flags: []cli.Flag{outputFlag(), formatFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return fmt.Errorf("a file to run is required")
			}
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %q: %w", path, err)
			}
			return withPipeline(ctx, cmd, func(p *pipeline.Pipeline) (*pipeline.Result, error) {
				return p.Submit(ctx, filepath.Base(path), content)
			})
		},
	}
}

func rerunCmd() *cli.Command {
	return &cli.Command{
		Name:      "rerun",
		Usage:     "Run the stored copy of an artifact again",
		ArgsUsage: "NAME",
		Flags:     []cli.Flag{outputFlag(), formatFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			artifactName := cmd.Args().First()
			if artifactName == "" {
				return fmt.Errorf("an artifact name is required")
			}
			return withPipeline(ctx, cmd, func(p *pipeline.Pipeline) (*pipeline.Result, error) {
				return p.Rerun(ctx, artifactName)
			})
		},
	}
}

func triggerCmd() *cli.Command {
	return &cli.Command{
		Name:  "trigger",
		Usage: "Fetch the artifact from source control and run it, as a push webhook would",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "ref",
				Usage: "pushed ref; defaults to the tracked branch",
			},
			outputFlag(),
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withPipeline(ctx, cmd, func(p *pipeline.Pipeline) (*pipeline.Result, error) {
				ref := cmd.String("ref")
				if ref == "" {
					ref = p.Branch()
				}
				return p.Trigger(ctx, ref)
			})
		},
	}
}
