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

package api

import (
	"context"
	"log/slog"
	"maps"
	"slices"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/NVIDIA/vetter/pkg/artifact"
	"github.com/NVIDIA/vetter/pkg/classifier"
	"github.com/NVIDIA/vetter/pkg/config"
	"github.com/NVIDIA/vetter/pkg/environment"
	"github.com/NVIDIA/vetter/pkg/errors"
	"github.com/NVIDIA/vetter/pkg/k8s/client"
	"github.com/NVIDIA/vetter/pkg/k8s/cluster"
	"github.com/NVIDIA/vetter/pkg/lock"
	"github.com/NVIDIA/vetter/pkg/logging"
	"github.com/NVIDIA/vetter/pkg/pipeline"
	"github.com/NVIDIA/vetter/pkg/promotion"
	"github.com/NVIDIA/vetter/pkg/secret"
	"github.com/NVIDIA/vetter/pkg/server"
	"github.com/NVIDIA/vetter/pkg/source"
	"github.com/NVIDIA/vetter/pkg/telemetry"
	"github.com/NVIDIA/vetter/pkg/validation"
)

const (
	name           = "vetterd"
	versionDefault = "dev"
)

var (
	// overridden during build with ldflags to reflect actual version info
	// e.g., -X "github.com/NVIDIA/vetter/pkg/api.version=1.0.0"
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

// Connection is an authenticated view of the target cluster.
type Connection struct {
	Clientset   kubernetes.Interface
	RestConfig  *rest.Config
	Credentials secret.Credentials
	// Context is the kubeconfig context in use; empty when in-cluster or
	// when the kubeconfig's current context was used.
	Context string
}

// Connect resolves credentials and builds the cluster client. Without an
// explicit kube context, the context named by the CLUSTER-NAME secret is
// selected when the kubeconfig defines it.
func Connect(ctx context.Context, cfg *config.Config) (*Connection, error) {
	cs, rc, err := client.BuildKubeClientForContext(cfg.Kubeconfig, cfg.KubeContext)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnavailable, "failed to build kubernetes client", err)
	}
	conn := &Connection{Clientset: cs, RestConfig: rc, Context: cfg.KubeContext}

	provider, err := secret.NewProvider(cfg.Secrets, cs)
	if err != nil {
		return nil, err
	}
	conn.Credentials, err = secret.Resolve(ctx, provider)
	if err != nil {
		return nil, err
	}

	clusterName := conn.Credentials.ClusterName
	if cfg.KubeContext == "" && client.ContextExists(cfg.Kubeconfig, clusterName) {
		cs, rc, err = client.BuildKubeClientForContext(cfg.Kubeconfig, clusterName)
		if err != nil {
			return nil, errors.WrapWithContext(errors.ErrCodeUnavailable, "failed to build kubernetes client", err,
				map[string]any{"context": clusterName})
		}
		conn.Clientset, conn.RestConfig, conn.Context = cs, rc, clusterName
	}

	slog.Info("connected to cluster",
		"cluster", clusterName,
		"context", conn.Context,
		"host", conn.RestConfig.Host,
	)
	return conn, nil
}

// App is a wired pipeline and its supporting services.
type App struct {
	Pipeline  *pipeline.Pipeline
	Reaper    *environment.Reaper
	Telemetry *telemetry.Telemetry
	// Checks gate GET /ready on remote dependencies.
	Checks map[string]server.ReadinessCheck
}

// Close flushes telemetry.
func (a *App) Close(ctx context.Context) error {
	return a.Telemetry.Shutdown(ctx)
}

// Build wires every pipeline component from cfg against clientset.
func Build(ctx context.Context, cfg *config.Config, clientset kubernetes.Interface, creds secret.Credentials) (*App, error) {
	kube := cluster.NewKube(clientset)

	store, err := artifact.NewStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	fetcher, err := source.NewFetcher(cfg.Source, creds)
	if err != nil {
		return nil, err
	}
	publisher, err := source.NewPublisher(cfg.Source, creds)
	if err != nil {
		return nil, err
	}
	locker, err := lock.New(cfg.Lock)
	if err != nil {
		return nil, err
	}
	promoter, err := promotion.NewDeployer(kube, fetcher, cfg.Promotion)
	if err != nil {
		return nil, err
	}

	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		return nil, err
	}

	p, err := pipeline.New(pipeline.Components{
		Provisioner: environment.NewProvisioner(kube, environment.WithPrefix(cfg.Environment.Prefix)),
		Validator:   validation.NewDeployer(kube, cfg.Validation),
		Classifier:  classifier.Default,
		Promoter:    promoter,
		Store:       store,
		Fetcher:     fetcher,
		Publisher:   publisher,
		Locker:      locker,
		Tracer:      tel.Tracer,
	}, cfg.Pipeline)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, err
	}

	slog.Debug("pipeline wired",
		"store", cfg.Store.Type,
		"source", cfg.Source.Provider,
		"publisher", cfg.Source.Publisher,
		"lock", cfg.Lock.Type,
		"productionNamespace", promoter.Namespace(),
	)

	checks := map[string]server.ReadinessCheck{}
	if pinger, ok := locker.(lock.Pinger); ok {
		checks["lock"] = pinger.Ping
	}

	return &App{
		Pipeline:  p,
		Reaper:    environment.NewReaper(kube),
		Telemetry: tel,
		Checks:    checks,
	}, nil
}

// Serve starts the API server and blocks until shutdown.
func Serve(ctx context.Context, cfg *config.Config) error {
	logging.SetDefaultStructuredLogger(name, version)
	slog.Info("starting",
		"name", name,
		"version", version,
		"commit", commit,
		"date", date,
	)

	conn, err := Connect(ctx, cfg)
	if err != nil {
		return err
	}

	app, err := Build(ctx, cfg, conn.Clientset, conn.Credentials)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	opts := []server.Option{
		server.WithName(name),
		server.WithVersion(version),
		server.WithConfig(&cfg.Server),
		server.WithWebhookSecret(conn.Credentials.WebhookSecret),
	}
	for _, n := range slices.Sorted(maps.Keys(app.Checks)) {
		opts = append(opts, server.WithReadinessCheck(n, app.Checks[n]))
	}
	s := server.New(app.Pipeline, opts...)

	if err := s.Run(ctx, background(cfg, app)...); err != nil {
		slog.Error("server exited with error", "error", err)
		return err
	}
	return nil
}

func background(cfg *config.Config, app *App) []func(context.Context) error {
	r := cfg.Environment.Reaper
	if !r.Enabled {
		return nil
	}
	slog.Info("environment reaper enabled", "interval", r.Interval.String(), "ttl", r.TTL.String())
	return []func(context.Context) error{
		func(ctx context.Context) error {
			app.Reaper.Run(ctx, r.Interval, r.TTL)
			return nil
		},
	}
}
