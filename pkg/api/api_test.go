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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/NVIDIA/vetter/pkg/config"
	"github.com/NVIDIA/vetter/pkg/errors"
	"github.com/NVIDIA/vetter/pkg/secret"
)

const testKubeconfig = `apiVersion: v1
kind: Config
clusters:
- name: aks-prod
  cluster:
    server: https://127.0.0.1:6443
- name: kind-dev
  cluster:
    server: https://127.0.0.1:7443
users:
- name: admin
  user:
    token: abc
contexts:
- name: aks-prod
  context:
    cluster: aks-prod
    user: admin
- name: kind-dev
  context:
    cluster: kind-dev
    user: admin
current-context: kind-dev
`

func testCredentials() secret.Credentials {
	return secret.Credentials{
		ClusterName: "aks-prod",
		SourceHost:  "http://gitea.local:3000",
		SourceUser:  "vetter",
		SourceToken: "token",
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestConstants(t *testing.T) {
	assert.Equal(t, "vetterd", name)
	assert.Equal(t, "dev", versionDefault)
	assert.NotEmpty(t, version)
	assert.NotEmpty(t, commit)
	assert.NotEmpty(t, date)
}

func TestBuild(t *testing.T) {
	cfg := testConfig(t)

	app, err := Build(context.Background(), cfg, fake.NewClientset(), testCredentials())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close(context.Background()) })

	require.NotNil(t, app.Pipeline)
	require.NotNil(t, app.Reaper)
	assert.Equal(t, "helloworld.py", app.Pipeline.ExpectedName())
	assert.True(t, app.Pipeline.Tracks("refs/heads/main"))
	assert.False(t, app.Pipeline.Tracks("refs/heads/dev"))
}

func TestBuild_ReadinessChecks(t *testing.T) {
	cfg := testConfig(t)
	app, err := Build(context.Background(), cfg, fake.NewClientset(), testCredentials())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close(context.Background()) })
	assert.Empty(t, app.Checks, "local lock has no remote dependency")

	cfg = testConfig(t)
	cfg.Lock.Type = "redis"
	cfg.Lock.Redis.Addr = "127.0.0.1:1"
	app, err = Build(context.Background(), cfg, fake.NewClientset(), testCredentials())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close(context.Background()) })

	check, ok := app.Checks["lock"]
	require.True(t, ok, "redis lock registers a readiness check")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.Error(t, check(ctx), "nothing listens on the redis address")
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *config.Config, creds *secret.Credentials)
	}{
		{
			name:   "unknown store",
			mutate: func(cfg *config.Config, _ *secret.Credentials) { cfg.Store.Type = "tape" },
		},
		{
			name:   "unknown source provider",
			mutate: func(cfg *config.Config, _ *secret.Credentials) { cfg.Source.Provider = "svn" },
		},
		{
			name:   "relative source host",
			mutate: func(_ *config.Config, creds *secret.Credentials) { creds.SourceHost = "gitea.local" },
		},
		{
			name:   "redis lock without address",
			mutate: func(cfg *config.Config, _ *secret.Credentials) { cfg.Lock.Type = "redis" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			creds := testCredentials()
			tt.mutate(cfg, &creds)

			_, err := Build(context.Background(), cfg, fake.NewClientset(), creds)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeInvalidRequest), "got %v", err)
		})
	}
}

func TestConnect_SelectsClusterContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kubeconfig")
	require.NoError(t, os.WriteFile(path, []byte(testKubeconfig), 0600))

	t.Setenv("CLUSTER_NAME", "aks-prod")
	t.Setenv("SOURCE_HOST", "http://gitea.local:3000")

	cfg := testConfig(t)
	cfg.Kubeconfig = path

	conn, err := Connect(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "aks-prod", conn.Context)
	assert.Equal(t, "https://127.0.0.1:6443", conn.RestConfig.Host)
	assert.Equal(t, "http://gitea.local:3000", conn.Credentials.SourceHost)
}

func TestConnect_ExplicitContextWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kubeconfig")
	require.NoError(t, os.WriteFile(path, []byte(testKubeconfig), 0600))

	t.Setenv("CLUSTER_NAME", "aks-prod")
	t.Setenv("SOURCE_HOST", "http://gitea.local:3000")

	cfg := testConfig(t)
	cfg.Kubeconfig = path
	cfg.KubeContext = "kind-dev"

	conn, err := Connect(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "kind-dev", conn.Context)
	assert.Equal(t, "https://127.0.0.1:7443", conn.RestConfig.Host)
}

func TestConnect_MissingRequiredSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kubeconfig")
	require.NoError(t, os.WriteFile(path, []byte(testKubeconfig), 0600))

	t.Setenv("CLUSTER_NAME", "")
	t.Setenv("SOURCE_HOST", "")

	cfg := testConfig(t)
	cfg.Kubeconfig = path

	_, err := Connect(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}

func TestBackground(t *testing.T) {
	cfg := testConfig(t)
	app, err := Build(context.Background(), cfg, fake.NewClientset(), testCredentials())
	require.NoError(t, err)

	assert.Empty(t, background(cfg, app))

	cfg.Environment.Reaper.Enabled = true
	fns := background(cfg, app)
	require.Len(t, fns, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, fns[0](ctx), "reaper returns when its context is done")
}
