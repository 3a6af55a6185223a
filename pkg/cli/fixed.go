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
	"os"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/vetter/pkg/artifact"
	"github.com/NVIDIA/vetter/pkg/pipeline"
)

func fixedCmd() *cli.Command {
	return &cli.Command{
		Name:      "fixed",
		Usage:     "Write the known-good version of an artifact",
		ArgsUsage: "[NAME]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "destination file; stdout when empty",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			artifactName := cmd.Args().First()
			if artifactName == "" {
				artifactName = pipeline.DefaultExpectedName
			}

			fixed, ok := artifact.Fixed(artifactName)
			if !ok {
				return fmt.Errorf("no fixed version of %q is available", artifactName)
			}

			if out := cmd.String("output"); out != "" {
				if err := os.WriteFile(out, fixed.Content, 0o644); err != nil {
					return fmt.Errorf("failed to write %q: %w", out, err)
				}
				return nil
			}
			_, err := cmd.Root().Writer.Write(fixed.Content)
			return err
		},
	}
}
