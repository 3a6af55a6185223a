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
	"context"
	stderrors "errors"
	"log/slog"
	"mime"
	"net/http"

	"github.com/google/go-github/v68/github"
	"go.opentelemetry.io/otel/trace"

	"github.com/NVIDIA/vetter/pkg/errors"
	"github.com/NVIDIA/vetter/pkg/serializer"
)

// Gitea delivery headers. Gitea also sends the GitHub names; these are the
// fallbacks for older releases.
const (
	giteaEventHeader     = "X-Gitea-Event"
	giteaSignatureHeader = "X-Gitea-Signature"
)

const (
	eventPush = "push"
	eventPing = "ping"
)

// handleWebhook handles POST /api/webhook. A push to the tracked branch
// starts a pipeline run in the background and is answered with 202; pings,
// other events and other branches are answered with 200.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxWebhookBytes)

	contentType := r.Header.Get("Content-Type")
	mediaType := "application/json"
	if contentType != "" {
		mt, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			WriteError(w, r, http.StatusBadRequest, errors.ErrCodeInvalidRequest,
				"Invalid content type", false, map[string]any{"contentType": contentType})
			return
		}
		mediaType = mt
	}
	if mediaType != "application/json" && mediaType != "application/x-www-form-urlencoded" {
		WriteError(w, r, http.StatusUnsupportedMediaType, errors.ErrCodeInvalidRequest,
			"Unsupported content type", false, map[string]any{"contentType": contentType})
		return
	}

	payload, err := github.ValidatePayloadFromBody(mediaType, r.Body, s.signature(r), s.webhookSecret)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case stderrors.As(err, &tooLarge):
			WriteError(w, r, http.StatusRequestEntityTooLarge, errors.ErrCodeInvalidRequest,
				"Payload too large", false, map[string]any{"limit": s.config.MaxWebhookBytes})
		case len(s.webhookSecret) > 0:
			webhookEvents.WithLabelValues(eventType(r), "unauthorized").Inc()
			slog.Warn("webhook signature rejected", "requestID", RequestID(r.Context()), "error", err)
			WriteError(w, r, http.StatusUnauthorized, errors.ErrCodeUnauthorized,
				"Invalid webhook signature", false, nil)
		default:
			WriteError(w, r, http.StatusBadRequest, errors.ErrCodeInvalidRequest,
				"Invalid webhook payload", false, map[string]any{"error": err.Error()})
		}
		return
	}

	event := eventType(r)
	switch event {
	case eventPing:
		webhookEvents.WithLabelValues(event, "ok").Inc()
		serializer.RespondJSON(w, http.StatusOK, StatusResponse{Status: "ok", Message: "pong"})
		return
	case eventPush:
	default:
		webhookEvents.WithLabelValues(event, "ignored").Inc()
		serializer.RespondJSON(w, http.StatusOK, StatusResponse{
			Status:  "ignored",
			Message: "Not a push event",
		})
		return
	}

	parsed, err := github.ParseWebHook(eventPush, payload)
	push, ok := parsed.(*github.PushEvent)
	if err != nil || !ok || push.GetRef() == "" || push.GetRepo() == nil {
		webhookEvents.WithLabelValues(event, "invalid").Inc()
		WriteError(w, r, http.StatusBadRequest, errors.ErrCodeInvalidRequest,
			"Invalid webhook payload", false, map[string]any{"required": []string{"ref", "repository"}})
		return
	}

	ref := push.GetRef()
	if !s.runner.Tracks(ref) {
		webhookEvents.WithLabelValues(event, "ignored").Inc()
		serializer.RespondJSON(w, http.StatusOK, StatusResponse{
			Status:  "ignored",
			Message: "Not a tracked branch push",
			Ref:     ref,
		})
		return
	}

	// The run outlives the request; keep its trace linked to the delivery.
	ctx := trace.ContextWithRemoteSpanContext(s.baseCtx, trace.SpanContextFromContext(r.Context()))
	if !s.trigger(ctx, ref, RequestID(r.Context()), push.GetRepo().GetFullName()) {
		webhookEvents.WithLabelValues(event, "rejected").Inc()
		WriteError(w, r, http.StatusServiceUnavailable, errors.ErrCodeUnavailable,
			"Server is shutting down", true, map[string]any{"ref": ref})
		return
	}

	webhookEvents.WithLabelValues(event, "triggered").Inc()
	serializer.RespondJSON(w, http.StatusAccepted, StatusResponse{
		Status:  "triggered",
		Message: "Pipeline triggered",
		Ref:     ref,
	})
}

// trigger runs the pipeline for ref in the background. At most
// WebhookWorkers runs execute at once; later deliveries wait for a slot.
// It reports false without starting a run once shutdown has begun.
func (s *Server) trigger(ctx context.Context, ref, requestID, repo string) bool {
	if !s.track() {
		return false
	}
	webhookRunsInFlight.Inc()

	go func() {
		defer s.inflight.Done()
		defer webhookRunsInFlight.Dec()

		select {
		case s.sem <- struct{}{}:
		case <-ctx.Done():
			slog.Warn("triggered run dropped before start", "requestID", requestID, "ref", ref)
			return
		}
		defer func() { <-s.sem }()

		ctx, cancel := context.WithTimeout(ctx, s.config.WebhookRunTimeout)
		defer cancel()

		res, err := s.runner.Trigger(ctx, ref)
		if err != nil {
			slog.Error("triggered run failed to start",
				"requestID", requestID, "repository", repo, "ref", ref, "error", err)
			return
		}
		slog.Info("triggered run finished",
			"requestID", requestID,
			"repository", repo,
			"ref", ref,
			"runID", res.RunID,
			"state", res.State,
			"message", res.Message,
		)
	}()
	return true
}

// signature returns the delivery signature in "sha256=<hex>" form, or "" when
// no secret is configured.
func (s *Server) signature(r *http.Request) string {
	if len(s.webhookSecret) == 0 {
		return ""
	}
	if sig := r.Header.Get(github.SHA256SignatureHeader); sig != "" {
		return sig
	}
	if sig := r.Header.Get(github.SHA1SignatureHeader); sig != "" {
		return sig
	}
	if sig := r.Header.Get(giteaSignatureHeader); sig != "" {
		return "sha256=" + sig
	}
	return ""
}

// eventType returns the delivery event name. Deliveries without an event
// header are treated as pushes.
func eventType(r *http.Request) string {
	if event := github.WebHookType(r); event != "" {
		return event
	}
	if event := r.Header.Get(giteaEventHeader); event != "" {
		return event
	}
	return eventPush
}
