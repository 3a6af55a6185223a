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

package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/NVIDIA/vetter/pkg/serializer"
)

// Legacy paths kept for clients of the first API revision.
const (
	legacyDeployPath  = "/api/deploy-helloworld"
	legacyWebhookPath = "/api/gitea-webhook"
	legacyFixedPath   = "/api/get-fixed-helloworld"
)

var routeList = []string{
	"POST /api/deploy",
	"POST /api/rerun/{name}",
	"POST /api/webhook",
	"GET /api/fixed/{name}",
	"GET /api/health",
	"GET /health",
	"GET /ready",
	"GET /metrics",
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleDefault)

	// System endpoints (no rate limiting)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("GET /api/health", s.handleBackendHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	// API endpoints with middleware
	mux.HandleFunc("POST /api/deploy", s.withMiddleware(s.handleDeploy))
	mux.HandleFunc("POST /api/rerun/{name}", s.withMiddleware(s.handleRerun))
	mux.HandleFunc("POST /api/webhook", s.withMiddleware(s.handleWebhook))
	mux.HandleFunc("GET /api/fixed/{name}", s.withMiddleware(s.handleFixed))

	mux.HandleFunc("POST "+legacyDeployPath, s.withMiddleware(s.handleDeploy))
	mux.HandleFunc("POST "+legacyWebhookPath, s.withMiddleware(s.handleWebhook))
	mux.HandleFunc("GET "+legacyFixedPath, s.withMiddleware(s.handleFixed))

	return otelhttp.NewHandler(mux, s.name)
}

func (s *Server) handleDefault(w http.ResponseWriter, r *http.Request) {
	slog.Debug("handling default route",
		"remote_addr", r.RemoteAddr,
		"user_agent", r.UserAgent(),
	)

	resp := struct {
		Name      string   `json:"name"`
		Version   string   `json:"version"`
		Ready     bool     `json:"ready"`
		Timestamp string   `json:"timestamp"`
		Routes    []string `json:"routes"`
	}{
		Name:      s.name,
		Version:   s.version,
		Ready:     s.isReady(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Routes:    routeList,
	}

	serializer.RespondJSON(w, http.StatusOK, resp)
}
