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

package validation

import (
	"context"
	stderrors "errors"
	"log/slog"
	"math"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/NVIDIA/vetter/pkg/artifact"
	"github.com/NVIDIA/vetter/pkg/defaults"
	"github.com/NVIDIA/vetter/pkg/environment"
	"github.com/NVIDIA/vetter/pkg/errors"
	"github.com/NVIDIA/vetter/pkg/k8s/cluster"
	"github.com/NVIDIA/vetter/pkg/workload"
)

// Config controls the validation pod and how long it is observed.
type Config struct {
	Images workload.Images `yaml:"images"`

	// Timeout bounds the wait for the validation pod to exit.
	Timeout time.Duration `yaml:"timeout"`

	InitialBackoff time.Duration `yaml:"initialBackoff"`
	MaxBackoff     time.Duration `yaml:"maxBackoff"`
	BackoffFactor  float64       `yaml:"backoffFactor"`
	BackoffJitter  float64       `yaml:"backoffJitter"`
}

// WithDefaults fills zero fields from pkg/defaults.
func (c Config) WithDefaults() Config {
	c.Images = c.Images.WithDefaults()
	if c.Timeout <= 0 {
		c.Timeout = defaults.ObservationTimeout
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = defaults.ObservationInitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = defaults.ObservationMaxBackoff
	}
	if c.BackoffFactor < 1 {
		c.BackoffFactor = defaults.ObservationBackoffFactor
	}
	if c.BackoffJitter <= 0 {
		c.BackoffJitter = defaults.ObservationBackoffJitter
	}
	return c
}

// Observation is what a validation pod produced.
type Observation struct {
	Pod   string          `json:"pod" yaml:"pod"`
	Phase corev1.PodPhase `json:"phase" yaml:"phase"`
	Log   string          `json:"-" yaml:"-"`
}

// Deployer runs an artifact in a validation pod and collects its log.
type Deployer struct {
	cluster cluster.Cluster
	config  Config
}

// NewDeployer returns a Deployer. Zero config fields take their defaults.
func NewDeployer(c cluster.Cluster, cfg Config) *Deployer {
	return &Deployer{cluster: c, config: cfg.WithDefaults()}
}

// PodName is the validation pod name for an app.
func PodName(app string) string {
	return app + "-test-pod"
}

// BuildPod returns the validation pod manifest for an artifact.
func BuildPod(runID string, env environment.ID, a artifact.Artifact, images workload.Images) *corev1.Pod {
	app := a.AppName()
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      PodName(app),
			Namespace: env.String(),
			Labels: map[string]string{
				workload.LabelName: app,
				workload.LabelRun:  runID,
			},
		},
		Spec: workload.PodSpec(a, images, corev1.RestartPolicyNever),
	}
}

// DeployAndObserve creates the validation pod in env, waits for it to exit
// and returns its full log.
//
// A pod still Running when the timeout elapses is observed as it is: its log
// is read and the Observation carries PodRunning. A rejected pod create is a
// DEPLOY_FAILED error. A pod that never starts within the timeout, or whose
// log cannot be read, is an OBSERVATION_FAILED error.
func (d *Deployer) DeployAndObserve(ctx context.Context, runID string, env environment.ID, a artifact.Artifact) (*Observation, error) {
	pod := BuildPod(runID, env, a, d.config.Images)

	if err := d.cluster.CreatePod(ctx, pod); err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeDeploy, "failed to create validation pod", err,
			map[string]any{"environment": env.String(), "pod": pod.Name})
	}
	slog.Debug("validation pod created", "environment", env, "pod", pod.Name)

	phase, err := d.waitForExit(ctx, env.String(), pod.Name)
	switch {
	case err == nil:
	case ctx.Err() == nil && phase == corev1.PodRunning:
		slog.Info("validation pod still running after observation timeout",
			"environment", env, "pod", pod.Name, "timeout", d.config.Timeout.String())
	default:
		return nil, errors.WrapWithContext(errors.ErrCodeObservation, "validation pod did not become observable", err,
			map[string]any{"environment": env.String(), "pod": pod.Name, "phase": string(phase), "timeout": d.config.Timeout.String()})
	}

	logCtx, cancel := context.WithTimeout(ctx, defaults.LogReadTimeout)
	defer cancel()

	log, err := d.cluster.PodLogs(logCtx, env.String(), pod.Name, workload.ContainerName(a.AppName()))
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeObservation, "failed to read validation pod log", err,
			map[string]any{"environment": env.String(), "pod": pod.Name})
	}

	return &Observation{Pod: pod.Name, Phase: phase, Log: log}, nil
}

func exited(phase corev1.PodPhase) bool {
	return phase == corev1.PodSucceeded || phase == corev1.PodFailed
}

// waitForExit polls the pod phase with jittered exponential backoff, capped
// at MaxBackoff, until the pod has exited or Timeout elapses. The last seen
// phase is returned either way. Transient get errors are retried.
func (d *Deployer) waitForExit(ctx context.Context, namespace, name string) (corev1.PodPhase, error) {
	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	backoff := wait.Backoff{
		Duration: d.config.InitialBackoff,
		Factor:   d.config.BackoffFactor,
		Jitter:   d.config.BackoffJitter,
		Cap:      d.config.MaxBackoff,
		Steps:    math.MaxInt32,
	}

	var phase corev1.PodPhase
	var lastErr error
	err := backoff.DelayFunc().Until(ctx, true, true, func(ctx context.Context) (bool, error) {
		p, err := d.cluster.PodPhase(ctx, namespace, name)
		if err != nil {
			lastErr = err
			return false, nil
		}
		phase = p
		return exited(p), nil
	})
	if err != nil && lastErr != nil {
		err = stderrors.Join(err, lastErr)
	}
	return phase, err
}
