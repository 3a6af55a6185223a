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

// Package server implements the vetter HTTP API.
//
// The API accepts an uploaded artifact, runs it through the validation and
// promotion pipeline and answers with the run Result. Push webhooks from
// GitHub or Gitea start runs in the background.
//
// # Endpoints
//
//	POST /api/deploy           multipart upload, field "file"
//	POST /api/rerun/{name}     run the stored artifact again
//	POST /api/webhook          push webhook (HMAC checked when a secret is set)
//	GET  /api/fixed/{name}     known-good version of an artifact
//	GET  /api/health           backend probe
//	GET  /health, /ready       liveness and readiness
//	GET  /metrics              Prometheus metrics
//
// /api/deploy-helloworld, /api/gitea-webhook and /api/get-fixed-helloworld
// remain as aliases.
//
// Upload replies are 200 with the Result when the artifact was promoted, 500
// with the Result when validation or promotion failed, and an ErrorResponse
// otherwise (400 wrong name, 413 too large, 503 provisioning failure).
//
// # Middleware
//
// API routes pass through metrics, API version negotiation
// (application/vnd.nvidia.vetter.v1+json), request ID, panic recovery, rate
// limiting (golang.org/x/time/rate) and logging. The whole mux is wrapped by
// otelhttp so request spans parent the pipeline stage spans.
//
// # Usage
//
//	s := server.New(p,
//	    server.WithName("vetterd"),
//	    server.WithVersion(version),
//	    server.WithWebhookSecret(creds.WebhookSecret),
//	)
//	if err := s.Run(ctx); err != nil {
//	    slog.Error("server failed", "error", err)
//	}
//
// Run handles SIGINT and SIGTERM. Shutdown waits for in-flight requests and
// triggered runs for up to ShutdownTimeout, then cancels the remaining runs.
package server
