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
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/NVIDIA/vetter/pkg/errors"
	"github.com/NVIDIA/vetter/pkg/pipeline"
)

const mainRef = "refs/heads/main"

// stubRunner answers like the pipeline without touching a cluster.
type stubRunner struct {
	mu        sync.Mutex
	result    *pipeline.Result
	err       error
	submitted []string
	stored    map[string][]byte

	triggered chan string
	// trigger, when set, replaces the default Trigger behavior.
	trigger func(ctx context.Context, ref string) (*pipeline.Result, error)
}

func newStubRunner(res *pipeline.Result) *stubRunner {
	return &stubRunner{
		result:    res,
		stored:    map[string][]byte{},
		triggered: make(chan string, 8),
	}
}

func (r *stubRunner) ExpectedName() string { return "helloworld.py" }

func (r *stubRunner) Tracks(ref string) bool { return ref == mainRef }

func (r *stubRunner) Submit(_ context.Context, name string, content []byte) (*pipeline.Result, error) {
	if name != r.ExpectedName() {
		return nil, errors.NewWithContext(errors.ErrCodeInvalidRequest,
			"File must be named helloworld.py", map[string]any{"name": name})
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submitted = append(r.submitted, string(content))
	r.stored[name] = content
	return r.result, r.err
}

func (r *stubRunner) Rerun(_ context.Context, name string) (*pipeline.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stored[name]; !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "artifact not found")
	}
	return r.result, r.err
}

func (r *stubRunner) Trigger(ctx context.Context, ref string) (*pipeline.Result, error) {
	r.triggered <- ref
	if r.trigger != nil {
		return r.trigger(ctx, ref)
	}
	return r.result, r.err
}

func promotedResult() *pipeline.Result {
	return &pipeline.Result{
		RunID:       "run-1",
		Status:      pipeline.StatusSuccess,
		State:       pipeline.StatePromoted,
		Message:     "helloworld deployed successfully",
		Environment: "helloworld-0011223344556677",
	}
}

func failedResult() *pipeline.Result {
	return &pipeline.Result{
		RunID:            "run-2",
		Status:           pipeline.StatusError,
		State:            pipeline.StateReportedFailure,
		Message:          "Test failed",
		Details:          "NameError: name 'undefined_variable' is not defined",
		FixSuggestionRef: "/api/fixed/helloworld.py",
		Environment:      "helloworld-8899aabbccddeeff",
	}
}

func TestNew(t *testing.T) {
	s := New(newStubRunner(nil))

	if s.config == nil {
		t.Fatal("expected config to be initialized")
	}
	if s.httpServer == nil {
		t.Error("expected httpServer to be initialized")
	}
	if s.rateLimiter == nil {
		t.Error("expected rateLimiter to be initialized")
	}
	if cap(s.sem) != DefaultWebhookWorkers {
		t.Errorf("webhook workers = %d, want %d", cap(s.sem), DefaultWebhookWorkers)
	}
	if s.isReady() {
		t.Error("server should not be ready before Start")
	}
}

func TestNew_ConfigDefaultsFilled(t *testing.T) {
	s := New(newStubRunner(nil), WithConfig(&Config{Port: 9090, WebhookWorkers: 2}))

	if s.config.Port != 9090 {
		t.Errorf("port = %d, want 9090", s.config.Port)
	}
	if cap(s.sem) != 2 {
		t.Errorf("webhook workers = %d, want 2", cap(s.sem))
	}
	if s.config.ShutdownTimeout <= 0 || s.config.DeployTimeout <= 0 || s.config.MaxUploadBytes <= 0 {
		t.Errorf("zero fields should take defaults: %+v", s.config)
	}
	if s.httpServer.Addr != ":9090" {
		t.Errorf("addr = %s, want :9090", s.httpServer.Addr)
	}
}

func TestNewConfig_Env(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "45")

	cfg := NewConfig()
	if cfg.Port != 7000 {
		t.Errorf("port = %d, want 7000", cfg.Port)
	}
	if cfg.ShutdownTimeout.Seconds() != 45 {
		t.Errorf("shutdown timeout = %s, want 45s", cfg.ShutdownTimeout)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := New(newStubRunner(nil))
	h := s.Handler()

	t.Run("health", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %s, want application/json", ct)
		}
	})

	t.Run("backend health", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		var resp StatusResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Status != "healthy" || resp.Message != "Backend is running" {
			t.Errorf("unexpected body: %+v", resp)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/health", nil))
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", w.Code)
		}
	})
}

func TestReadyEndpoint(t *testing.T) {
	s := New(newStubRunner(nil))

	tests := []struct {
		name           string
		ready          bool
		expectedStatus int
	}{
		{name: "ready state", ready: true, expectedStatus: http.StatusOK},
		{name: "not ready state", ready: false, expectedStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.setReady(tt.ready)

			w := httptest.NewRecorder()
			s.handleReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestReadyEndpoint_DependencyChecks(t *testing.T) {
	var calls int
	down := stderrors.New("connection refused")
	s := New(newStubRunner(nil),
		WithReadinessCheck("noop", func(context.Context) error { calls++; return nil }),
		WithReadinessCheck("lock", func(ctx context.Context) error {
			if _, ok := ctx.Deadline(); !ok {
				t.Error("readiness check ran without a deadline")
			}
			return down
		}),
	)
	s.setReady(true)

	w := httptest.NewRecorder()
	s.handleReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", w.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Reason != "lock: connection refused" {
		t.Errorf("reason = %q", resp.Reason)
	}
	if calls != 1 {
		t.Errorf("noop check calls = %d, want 1", calls)
	}
}

func TestDefaultRoute(t *testing.T) {
	s := New(newStubRunner(nil), WithName("vetterd"), WithVersion("v1.2.3"))

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Name    string   `json:"name"`
		Version string   `json:"version"`
		Routes  []string `json:"routes"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Name != "vetterd" || resp.Version != "v1.2.3" {
		t.Errorf("unexpected identity: %+v", resp)
	}
	if len(resp.Routes) != len(routeList) {
		t.Errorf("routes = %v", resp.Routes)
	}

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/unknown", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", w.Code)
	}
}

func TestRateLimiting(t *testing.T) {
	cfg := NewConfig()
	cfg.RateLimit = 1
	cfg.RateLimitBurst = 1

	s := New(newStubRunner(nil), WithConfig(cfg))
	handler := s.withMiddleware(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	w1 := httptest.NewRecorder()
	handler(w1, httptest.NewRequest(http.MethodGet, "/test", nil))
	if w1.Code != http.StatusOK {
		t.Errorf("expected first request to succeed with status 200, got %d", w1.Code)
	}

	w2 := httptest.NewRecorder()
	handler(w2, httptest.NewRequest(http.MethodGet, "/test", nil))
	if w2.Code != http.StatusTooManyRequests {
		t.Errorf("expected rate limit error with status 429, got %d", w2.Code)
	}
	if w2.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header to be set")
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w2.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != errors.ErrCodeRateLimitExceeded || !resp.Retryable {
		t.Errorf("unexpected error body: %+v", resp)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	s := New(newStubRunner(nil))

	var seen string
	handler := s.requestIDMiddleware(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{name: "valid id kept", header: "9b2e4a1c-6f3d-4e8a-b5c7-0d1e2f3a4b5c", keep: true},
		{name: "invalid id replaced", header: "not-a-uuid"},
		{name: "missing id generated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set("X-Request-Id", tt.header)
			}
			w := httptest.NewRecorder()
			handler(w, req)

			got := w.Header().Get("X-Request-Id")
			if got == "" || got != seen {
				t.Fatalf("header %q and context %q should match and be set", got, seen)
			}
			if tt.keep && got != tt.header {
				t.Errorf("request id = %s, want %s", got, tt.header)
			}
			if !tt.keep && got == tt.header {
				t.Errorf("request id %s should have been replaced", got)
			}
		})
	}
}

func TestPanicRecovery(t *testing.T) {
	s := New(newStubRunner(nil))
	handler := s.withMiddleware(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != errors.ErrCodeInternal {
		t.Errorf("code = %s, want %s", resp.Code, errors.ErrCodeInternal)
	}
	if resp.RequestID == "" {
		t.Error("error response should carry the request id")
	}
}

func TestNegotiateAPIVersion(t *testing.T) {
	tests := []struct {
		accept string
		want   string
	}{
		{"", "v1"},
		{"application/json", "v1"},
		{"application/vnd.nvidia.vetter.v1+json", "v1"},
		{"text/html, application/vnd.nvidia.vetter.v1+json", "v1"},
		{"application/vnd.nvidia.vetter.v9+json", "v1"},
	}

	for _, tt := range tests {
		t.Run(tt.accept, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Accept", tt.accept)
			if got := negotiateAPIVersion(req); got != tt.want {
				t.Errorf("negotiateAPIVersion(%q) = %s, want %s", tt.accept, got, tt.want)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code errors.ErrorCode
		want int
	}{
		{errors.ErrCodeInvalidRequest, http.StatusBadRequest},
		{errors.ErrCodeNotFound, http.StatusNotFound},
		{errors.ErrCodeUnauthorized, http.StatusUnauthorized},
		{errors.ErrCodeProvisioning, http.StatusServiceUnavailable},
		{errors.ErrCodeUnavailable, http.StatusServiceUnavailable},
		{errors.ErrCodeTimeout, http.StatusGatewayTimeout},
		{errors.ErrCodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got, _ := httpStatus(tt.code); got != tt.want {
				t.Errorf("httpStatus(%s) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}
