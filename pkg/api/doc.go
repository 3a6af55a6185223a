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

// Package api wires vetter configuration into a running HTTP API server.
//
// Connect resolves credentials through the configured secret provider and
// builds the cluster client, selecting the kubeconfig context named by the
// CLUSTER-NAME secret when one exists. Build constructs every pipeline
// component from configuration; there are no package-level clients. Serve
// combines both with pkg/server and, when enabled, runs the environment
// reaper alongside it.
//
//	cfg, err := config.Load(path)
//	if err != nil {
//	    return err
//	}
//	return api.Serve(ctx, cfg)
//
// Version information is set at build time using ldflags:
//
//	go build -ldflags="-X 'github.com/NVIDIA/vetter/pkg/api.version=1.0.0'"
package api
