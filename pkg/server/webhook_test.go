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
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/vetter/pkg/errors"
	"github.com/NVIDIA/vetter/pkg/pipeline"
)

const testSecret = "s3cr3t"

func pushPayload(ref string) string {
	return `{"ref":"` + ref + `","repository":{"full_name":"org/backend-im","name":"backend-im"}}`
}

func webhookRequest(path, event, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if event != "" {
		req.Header.Set("X-GitHub-Event", event)
	}
	return req
}

func sign(body string) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func decodeStatus(t *testing.T, w *httptest.ResponseRecorder) StatusResponse {
	t.Helper()
	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func waitTriggered(t *testing.T, runner *stubRunner) string {
	t.Helper()
	select {
	case ref := <-runner.triggered:
		return ref
	case <-time.After(5 * time.Second):
		t.Fatal("run was not triggered")
		return ""
	}
}

func TestHandleWebhook_Unsigned(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		event      string
		body       string
		wantStatus int
		wantResp   string
		triggers   bool
	}{
		{
			name:       "push to main",
			path:       "/api/webhook",
			event:      "push",
			body:       pushPayload(mainRef),
			wantStatus: http.StatusAccepted,
			wantResp:   "triggered",
			triggers:   true,
		},
		{
			name:       "legacy path without event header",
			path:       legacyWebhookPath,
			body:       pushPayload(mainRef),
			wantStatus: http.StatusAccepted,
			wantResp:   "triggered",
			triggers:   true,
		},
		{
			name:       "push to other branch",
			path:       "/api/webhook",
			event:      "push",
			body:       pushPayload("refs/heads/feature"),
			wantStatus: http.StatusOK,
			wantResp:   "ignored",
		},
		{
			name:       "ping",
			path:       "/api/webhook",
			event:      "ping",
			body:       `{"zen":"Keep it logically awesome."}`,
			wantStatus: http.StatusOK,
			wantResp:   "ok",
		},
		{
			name:       "other event",
			path:       "/api/webhook",
			event:      "issues",
			body:       `{"action":"opened"}`,
			wantStatus: http.StatusOK,
			wantResp:   "ignored",
		},
		{
			name:       "missing ref",
			path:       "/api/webhook",
			event:      "push",
			body:       `{"repository":{"full_name":"org/backend-im"}}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing repository",
			path:       "/api/webhook",
			event:      "push",
			body:       `{"ref":"refs/heads/main"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed json",
			path:       "/api/webhook",
			event:      "push",
			body:       `{"ref":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := newStubRunner(promotedResult())
			s := New(runner)

			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, webhookRequest(tt.path, tt.event, tt.body))
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())

			if tt.wantResp != "" {
				assert.Equal(t, tt.wantResp, decodeStatus(t, w).Status)
			}
			if tt.triggers {
				assert.Equal(t, mainRef, waitTriggered(t, runner))
			}
			require.NoError(t, s.Shutdown(context.Background()))
			if !tt.triggers {
				assert.Empty(t, runner.triggered)
			}
		})
	}
}

func TestHandleWebhook_Signature(t *testing.T) {
	body := pushPayload(mainRef)

	tests := []struct {
		name       string
		header     string
		value      string
		wantStatus int
	}{
		{name: "github sha256", header: "X-Hub-Signature-256", value: "sha256=" + sign(body), wantStatus: http.StatusAccepted},
		{name: "gitea", header: giteaSignatureHeader, value: sign(body), wantStatus: http.StatusAccepted},
		{name: "wrong signature", header: "X-Hub-Signature-256", value: "sha256=" + sign("other"), wantStatus: http.StatusUnauthorized},
		{name: "missing signature", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := newStubRunner(promotedResult())
			s := New(runner, WithWebhookSecret(testSecret))

			req := webhookRequest("/api/webhook", "push", body)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, req)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())

			if tt.wantStatus == http.StatusAccepted {
				waitTriggered(t, runner)
			}
			require.NoError(t, s.Shutdown(context.Background()))
		})
	}
}

func TestHandleWebhook_UnsupportedContentType(t *testing.T) {
	s := New(newStubRunner(nil))

	req := webhookRequest("/api/webhook", "push", pushPayload(mainRef))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestHandleWebhook_BoundedWorkers(t *testing.T) {
	var running, peak atomic.Int32
	release := make(chan struct{})

	runner := newStubRunner(promotedResult())
	runner.trigger = func(context.Context, string) (*pipeline.Result, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		running.Add(-1)
		return promotedResult(), nil
	}

	cfg := NewConfig()
	cfg.WebhookWorkers = 2
	s := New(runner, WithConfig(cfg))

	for range 4 {
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, webhookRequest("/api/webhook", "push", pushPayload(mainRef)))
		require.Equal(t, http.StatusAccepted, w.Code)
	}

	waitTriggered(t, runner)
	waitTriggered(t, runner)
	select {
	case <-runner.triggered:
		t.Fatal("a third run started while two workers were busy")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	waitTriggered(t, runner)
	waitTriggered(t, runner)
	require.NoError(t, s.Shutdown(context.Background()))
	assert.Equal(t, int32(2), peak.Load())
}

func TestShutdown_CancelsRunsPastTimeout(t *testing.T) {
	cancelled := make(chan struct{})

	runner := newStubRunner(nil)
	runner.trigger = func(ctx context.Context, _ string) (*pipeline.Result, error) {
		<-ctx.Done()
		close(cancelled)
		return nil, ctx.Err()
	}

	cfg := NewConfig()
	cfg.ShutdownTimeout = 50 * time.Millisecond
	s := New(runner, WithConfig(cfg))

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, webhookRequest("/api/webhook", "push", pushPayload(mainRef)))
	require.Equal(t, http.StatusAccepted, w.Code)
	waitTriggered(t, runner)

	require.NoError(t, s.Shutdown(context.Background()))
	select {
	case <-cancelled:
	default:
		t.Fatal("shutdown returned before the run was cancelled")
	}
}

func TestWebhook_RejectedAfterShutdown(t *testing.T) {
	runner := newStubRunner(promotedResult())
	s := New(runner)
	require.NoError(t, s.Shutdown(context.Background()))

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, webhookRequest("/api/webhook", "push", pushPayload(mainRef)))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, errors.ErrCodeUnavailable, resp.Code)
	assert.True(t, resp.Retryable)

	select {
	case ref := <-runner.triggered:
		t.Fatalf("run started for %s after shutdown", ref)
	case <-time.After(50 * time.Millisecond):
	}
}
