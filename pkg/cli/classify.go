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
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/vetter/pkg/classifier"
	"github.com/NVIDIA/vetter/pkg/defaults"
)

func classifyCmd() *cli.Command {
	return &cli.Command{
		Name:      "classify",
		Usage:     "Classify a validation log as success or failure",
		ArgsUsage: "[FILE]",
		Description: `Reads a captured pod log from FILE, or from stdin when FILE is "-" or
omitted, and prints the outcome the pipeline would assign to it. Exits non-zero
when the log contains a known failure signature.`,
		Flags: []cli.Flag{outputFlag(), formatFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			var r io.Reader = cmd.Root().Reader
			if path := cmd.Args().First(); path != "" && path != "-" {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("failed to open log %q: %w", path, err)
				}
				defer f.Close()
				r = f
			}
			if r == nil {
				r = os.Stdin
			}

			b, err := io.ReadAll(io.LimitReader(r, defaults.MaxLogBytes))
			if err != nil {
				return fmt.Errorf("failed to read log: %w", err)
			}

			outcome := classifier.Classify(string(b))
			if err := writeOutput(ctx, cmd, outcome); err != nil {
				return err
			}
			if !outcome.Succeeded() {
				return fmt.Errorf("log classified as failure (%s)", outcome.Signature)
			}
			return nil
		},
	}
}
