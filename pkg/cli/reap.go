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
	"time"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/vetter/pkg/api"
	"github.com/NVIDIA/vetter/pkg/defaults"
	"github.com/NVIDIA/vetter/pkg/environment"
	"github.com/NVIDIA/vetter/pkg/k8s/cluster"
)

// ReapReport lists the environments a reap deleted.
type ReapReport struct {
	TTL     string           `json:"ttl" yaml:"ttl"`
	Deleted []environment.ID `json:"deleted" yaml:"deleted"`
}

func reapCmd() *cli.Command {
	return &cli.Command{
		Name:  "reap",
		Usage: "Delete validation namespaces older than a TTL",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "ttl",
				Value: defaults.EnvironmentTTL,
				Usage: "minimum age of namespaces to delete",
			},
			outputFlag(),
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			conn, err := api.Connect(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to connect: %w", err)
			}

			ttl := cmd.Duration("ttl")
			deleted, reapErr := environment.NewReaper(cluster.NewKube(conn.Clientset)).Reap(ctx, ttl)
			if err := writeOutput(ctx, cmd, ReapReport{TTL: ttl.String(), Deleted: deleted}); err != nil {
				return err
			}
			return reapErr
		},
	}
}

// PreflightReport is the result of a permission preflight.
type PreflightReport struct {
	Context     string                    `json:"context,omitempty" yaml:"context,omitempty"`
	CheckedAt   time.Time                 `json:"checkedAt" yaml:"checkedAt"`
	Permissions []cluster.PermissionCheck `json:"permissions" yaml:"permissions"`
}

func preflightCmd() *cli.Command {
	return &cli.Command{
		Name:  "preflight",
		Usage: "Check that the configured identity may perform every pipeline action",
		Flags: []cli.Flag{outputFlag(), formatFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			conn, err := api.Connect(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to connect: %w", err)
			}

			checks, checkErr := cluster.NewKube(conn.Clientset).CheckPermissions(ctx, cfg.Promotion.Namespace)
			report := PreflightReport{
				Context:     conn.Context,
				CheckedAt:   time.Now().UTC(),
				Permissions: checks,
			}
			if err := writeOutput(ctx, cmd, report); err != nil {
				return err
			}
			return checkErr
		},
	}
}
