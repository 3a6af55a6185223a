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
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/NVIDIA/vetter/pkg/logging"
	"github.com/NVIDIA/vetter/pkg/pipeline"
)

// Runner is the pipeline surface the HTTP API drives.
type Runner interface {
	ExpectedName() string
	Tracks(ref string) bool
	Submit(ctx context.Context, name string, content []byte) (*pipeline.Result, error)
	Rerun(ctx context.Context, name string) (*pipeline.Result, error)
	Trigger(ctx context.Context, ref string) (*pipeline.Result, error)
}

// Server is the vetter HTTP API.
type Server struct {
	name          string
	version       string
	config        *Config
	runner        Runner
	webhookSecret []byte

	httpServer  *http.Server
	rateLimiter *rate.Limiter

	mu           sync.RWMutex
	ready        bool
	shuttingDown bool
	checks       []readinessCheck

	// triggered runs
	sem      chan struct{}
	inflight sync.WaitGroup
	baseCtx  context.Context
	cancel   context.CancelFunc
}

// Option configures a Server.
type Option func(*Server)

// WithName sets the server name reported on the root route.
func WithName(name string) Option {
	return func(s *Server) { s.name = name }
}

// WithVersion sets the version reported on the root route.
func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

// WithConfig replaces the default configuration.
func WithConfig(cfg *Config) Option {
	return func(s *Server) {
		if cfg != nil {
			s.config = cfg
		}
	}
}

// ReadinessCheck reports whether a dependency can serve. A non-nil error
// marks the server not ready.
type ReadinessCheck func(ctx context.Context) error

type readinessCheck struct {
	name  string
	check ReadinessCheck
}

// WithReadinessCheck adds a dependency check to GET /ready.
func WithReadinessCheck(name string, check ReadinessCheck) Option {
	return func(s *Server) {
		if check != nil {
			s.checks = append(s.checks, readinessCheck{name: name, check: check})
		}
	}
}

// WithWebhookSecret enables HMAC signature checks on webhook deliveries.
func WithWebhookSecret(secret string) Option {
	return func(s *Server) { s.webhookSecret = []byte(secret) }
}

// New returns a Server driving runner.
func New(runner Runner, opts ...Option) *Server {
	s := &Server{
		name:    "vetterd",
		version: "dev",
		config:  NewConfig(),
		runner:  runner,
	}
	for _, opt := range opts {
		opt(s)
	}

	cfg := s.config.withDefaults()
	s.config = &cfg
	s.rateLimiter = rate.NewLimiter(cfg.RateLimit, cfg.RateLimitBurst)
	s.sem = make(chan struct{}, cfg.WebhookWorkers)
	s.baseCtx, s.cancel = context.WithCancel(context.Background())

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:           s.routes(),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ErrorLog:          logging.NewLogLogger(slog.LevelWarn),
	}
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) setReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

func (s *Server) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// track registers a triggered run with Shutdown. It reports false once
// shutdown has begun so no run is added after Shutdown starts waiting.
func (s *Server) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shuttingDown {
		return false
	}
	s.inflight.Add(1)
	return true
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		slog.Info("server listening", "address", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()
	s.setReady(true)

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err, ok := <-errChan:
		s.setReady(false)
		if !ok {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	}
}

// Shutdown stops accepting requests and waits for in-flight requests and
// triggered runs, bounded by the shutdown timeout. Runs still executing when
// the timeout expires are cancelled.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.ready = false
	s.shuttingDown = true
	s.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	slog.Info("shutting down server")
	err := s.httpServer.Shutdown(shutdownCtx)

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		slog.Warn("cancelling triggered runs still in progress")
		s.cancel()
		<-done
	}
	s.cancel()
	return err
}

// Run serves until SIGINT or SIGTERM, running background alongside the
// server. background functions must return when their context is done.
func (s *Server) Run(ctx context.Context, background ...func(context.Context) error) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("server config",
		"address", s.httpServer.Addr,
		"rateLimit", float64(s.config.RateLimit),
		"rateLimitBurst", s.config.RateLimitBurst,
		"webhookWorkers", s.config.WebhookWorkers,
		"maxUploadBytes", s.config.MaxUploadBytes,
		"shutdownTimeout", s.config.ShutdownTimeout.String(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.Start(gctx)
	})
	for _, fn := range background {
		g.Go(func() error {
			return fn(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped gracefully")
	return nil
}
