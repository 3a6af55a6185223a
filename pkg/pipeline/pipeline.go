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

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
	corev1 "k8s.io/api/core/v1"

	"github.com/NVIDIA/vetter/pkg/artifact"
	"github.com/NVIDIA/vetter/pkg/classifier"
	"github.com/NVIDIA/vetter/pkg/defaults"
	"github.com/NVIDIA/vetter/pkg/environment"
	"github.com/NVIDIA/vetter/pkg/errors"
	"github.com/NVIDIA/vetter/pkg/lock"
	"github.com/NVIDIA/vetter/pkg/promotion"
	"github.com/NVIDIA/vetter/pkg/source"
	"github.com/NVIDIA/vetter/pkg/validation"
)

// DefaultExpectedName is the only artifact name accepted unless configured.
const DefaultExpectedName = "helloworld.py"

// Provisioner creates the isolated environment for a run.
type Provisioner interface {
	Provision(ctx context.Context) (environment.ID, error)
}

// Validator runs an artifact in an environment and returns what it logged.
type Validator interface {
	DeployAndObserve(ctx context.Context, runID string, env environment.ID, a artifact.Artifact) (*validation.Observation, error)
}

// Classifier turns a validation log into an Outcome. It must be total.
type Classifier interface {
	Classify(log string) classifier.Outcome
}

// Promoter creates the production workload for a validated artifact.
type Promoter interface {
	Promote(ctx context.Context, validated artifact.Artifact) (*promotion.Report, error)
	Namespace() string
}

// Components are the collaborators of a Pipeline. Publisher, Locker and
// Tracer are optional.
type Components struct {
	Provisioner Provisioner
	Validator   Validator
	Classifier  Classifier
	Promoter    Promoter
	Store       artifact.Store
	Fetcher     source.Fetcher
	Publisher   source.Publisher
	Locker      lock.Locker
	Tracer      trace.Tracer
}

// Config holds pipeline policy.
type Config struct {
	// ExpectedName is the artifact name runs accept.
	ExpectedName string `yaml:"expectedName"`
	// Branch is the ref whose pushes trigger runs, e.g. refs/heads/main.
	Branch string `yaml:"branch"`
	// PromotionTimeout bounds lock acquisition plus promotion.
	PromotionTimeout time.Duration `yaml:"promotionTimeout"`
}

// WithDefaults fills empty fields.
func (c Config) WithDefaults() Config {
	if c.ExpectedName == "" {
		c.ExpectedName = DefaultExpectedName
	}
	if c.Branch == "" {
		c.Branch = source.Config{}.Branch()
	}
	if c.PromotionTimeout <= 0 {
		c.PromotionTimeout = defaults.PromotionTimeout
	}
	return c
}

// Pipeline sequences provision, validation, classification and promotion.
// It is safe for concurrent use; each run owns its environment.
type Pipeline struct {
	c      Components
	config Config
}

// New returns a Pipeline. Provisioner, Validator, Classifier, Promoter,
// Store and Fetcher are required.
func New(c Components, cfg Config) (*Pipeline, error) {
	missing := map[string]bool{
		"provisioner": c.Provisioner == nil,
		"validator":   c.Validator == nil,
		"classifier":  c.Classifier == nil,
		"promoter":    c.Promoter == nil,
		"store":       c.Store == nil,
		"fetcher":     c.Fetcher == nil,
	}
	for name, m := range missing {
		if m {
			return nil, errors.NewWithContext(errors.ErrCodeInvalidRequest, "pipeline component is required",
				map[string]any{"component": name})
		}
	}
	if c.Publisher == nil {
		c.Publisher = source.Noop{}
	}
	if c.Locker == nil {
		c.Locker = lock.NewLocal()
	}
	if c.Tracer == nil {
		c.Tracer = nooptrace.NewTracerProvider().Tracer("vetter")
	}
	return &Pipeline{c: c, config: cfg.WithDefaults()}, nil
}

// ExpectedName returns the accepted artifact name.
func (p *Pipeline) ExpectedName() string {
	return p.config.ExpectedName
}

// Tracks reports whether pushes to ref trigger runs.
func (p *Pipeline) Tracks(ref string) bool {
	return ref == p.config.Branch
}

// Branch returns the tracked ref.
func (p *Pipeline) Branch() string {
	return p.config.Branch
}

// CheckName rejects artifact names the pipeline does not accept.
func (p *Pipeline) CheckName(name string) error {
	if err := artifact.ValidateName(name); err != nil {
		return err
	}
	if name != p.config.ExpectedName {
		return errors.NewWithContext(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("File must be named %s", p.config.ExpectedName),
			map[string]any{"name": name})
	}
	return nil
}

// Submit is the upload entry point: it stores the artifact, publishes it to
// source control and runs it. A publish failure is logged and ignored.
func (p *Pipeline) Submit(ctx context.Context, name string, content []byte) (*Result, error) {
	if err := p.CheckName(name); err != nil {
		return nil, err
	}
	if err := artifact.ValidateSize(content); err != nil {
		return nil, err
	}
	a := artifact.New(name, content)

	if err := p.c.Store.Put(ctx, a.Name, a.Content); err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeUnavailable, "failed to store artifact", err,
			map[string]any{"name": a.Name})
	}

	if err := p.c.Publisher.Publish(ctx, a.Name, a.Content, "Update "+a.Name); err != nil {
		slog.Warn("could not publish artifact to source control", "name", a.Name, "error", err)
	}

	return p.Run(ctx, a)
}

// Rerun runs the stored copy of an artifact as a new run.
func (p *Pipeline) Rerun(ctx context.Context, name string) (*Result, error) {
	if err := p.CheckName(name); err != nil {
		return nil, err
	}
	content, err := p.c.Store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, artifact.New(name, content))
}

// Trigger is the push webhook entry point. It fetches the expected artifact
// at the tracked branch and runs it. A fetch failure is reported in the
// result rather than returned.
func (p *Pipeline) Trigger(ctx context.Context, ref string) (*Result, error) {
	if !p.Tracks(ref) {
		return nil, errors.NewWithContext(errors.ErrCodeInvalidRequest, "ref is not tracked",
			map[string]any{"ref": ref, "branch": p.config.Branch})
	}

	name := p.config.ExpectedName
	var content []byte
	err := p.stage(ctx, "fetch", func(ctx context.Context) error {
		var err error
		content, err = p.c.Fetcher.Fetch(ctx, name)
		return err
	})
	if err != nil {
		res := &Result{RunID: uuid.NewString(), State: StateReportedFailure}
		res.fail(err, "Fetch failed")
		runsTotal.WithLabelValues(string(res.State)).Inc()
		return res, nil
	}

	if err := p.c.Store.Put(ctx, name, content); err != nil {
		slog.Warn("could not store fetched artifact", "name", name, "error", err)
	}
	return p.Run(ctx, artifact.New(name, content))
}

// Run validates an artifact in a fresh environment and promotes it on
// success. Only an invalid artifact or a provisioning failure is returned as
// an error; every other outcome is described by the Result.
func (p *Pipeline) Run(ctx context.Context, a artifact.Artifact) (*Result, error) {
	if err := p.CheckName(a.Name); err != nil {
		return nil, err
	}
	if err := artifact.ValidateSize(a.Content); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	ctx, span := p.c.Tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("vetter.run_id", runID),
		attribute.String("vetter.artifact", a.Name),
		attribute.String("vetter.digest", a.Digest().String()),
	))
	defer span.End()

	log := slog.With("run", runID, "artifact", a.Name)
	start := time.Now()

	var env environment.ID
	err := p.stage(ctx, "provision", func(ctx context.Context) error {
		var err error
		env, err = p.c.Provisioner.Provision(ctx)
		return err
	})
	if err != nil {
		runsTotal.WithLabelValues(string(StateAborted)).Inc()
		span.SetStatus(codes.Error, err.Error())
		log.Error("provisioning failed, run aborted", "error", err)
		return nil, err
	}
	log = log.With("environment", env)
	span.SetAttributes(attribute.String("vetter.environment", env.String()))

	res := &Result{RunID: runID, Environment: env.String(), State: StateProvisioned}

	var obs *validation.Observation
	deployErr := p.stage(ctx, "deploy", func(ctx context.Context) error {
		var err error
		obs, err = p.c.Validator.DeployAndObserve(ctx, runID, env, a)
		return err
	})

	var outcome classifier.Outcome
	if deployErr != nil {
		outcome = classifier.Outcome{Verdict: classifier.VerdictFailure, Details: deployErr.Error()}
		res.ErrorCode = errors.CodeOf(deployErr)
	} else {
		res.State = StateDeployed
		_ = p.stage(ctx, "classify", func(context.Context) error {
			outcome = judgeExit(obs, p.c.Classifier.Classify(obs.Log))
			return nil
		})
	}
	res.State = StateClassified
	log.Info("validation classified", "verdict", outcome.Verdict, "signature", outcome.Signature)

	if !outcome.Succeeded() {
		p.reportFailure(res, a, outcome)
	} else {
		p.promote(ctx, res, a, outcome)
	}

	runsTotal.WithLabelValues(string(res.State)).Inc()
	runDuration.Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.String("vetter.state", string(res.State)))
	if res.Status == StatusError {
		span.SetStatus(codes.Error, res.Message)
	}
	log.Info("run finished", "state", res.State, "status", res.Status, "duration", time.Since(start).String())
	return res, nil
}

// judgeExit fails a clean outcome whose pod did not exit successfully. A pod
// still running when observation ended passes only with a success marker.
func judgeExit(obs *validation.Observation, outcome classifier.Outcome) classifier.Outcome {
	if !outcome.Succeeded() {
		return outcome
	}
	switch {
	case obs.Phase == corev1.PodSucceeded:
		return outcome
	case obs.Phase == corev1.PodRunning && len(outcome.Evidence) > 0:
		return outcome
	case obs.Phase == corev1.PodRunning:
		outcome.Details = "pod still running after the observation window without a success marker\n" + obs.Log
	default:
		outcome.Details = fmt.Sprintf("pod exited with phase %s\n%s", obs.Phase, obs.Log)
	}
	outcome.Verdict = classifier.VerdictFailure
	return outcome
}

func (p *Pipeline) reportFailure(res *Result, a artifact.Artifact, outcome classifier.Outcome) {
	res.State = StateReportedFailure
	res.Status = StatusError
	res.Message = "Test failed"
	res.Details = outcome.Details
	if _, ok := artifact.Fixed(a.Name); ok {
		res.FixSuggestionRef = artifact.FixedRef(a.Name)
	}
}

func (p *Pipeline) promote(ctx context.Context, res *Result, a artifact.Artifact, outcome classifier.Outcome) {
	ctx, cancel := context.WithTimeout(ctx, p.config.PromotionTimeout)
	defer cancel()

	var report *promotion.Report
	err := p.stage(ctx, "promote", func(ctx context.Context) error {
		release, err := p.c.Locker.Acquire(ctx, p.c.Promoter.Namespace())
		if err != nil {
			return err
		}
		defer func() {
			if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
				slog.Warn("failed to release promotion lock", "error", rerr)
			}
		}()
		report, err = p.c.Promoter.Promote(ctx, a)
		return err
	})

	if report != nil {
		for _, s := range report.Steps {
			promotionSteps.WithLabelValues(s.Name, string(s.Status)).Inc()
		}
	}
	res.Promotion = report

	if err != nil {
		res.State = StatePromotionFailed
		res.fail(err, promotionMessage(err))
		return
	}
	res.State = StatePromoted
	res.Status = StatusSuccess
	res.Message = fmt.Sprintf("%s deployed successfully", a.AppName())
	res.Details = outcome.Details
}

func promotionMessage(err error) string {
	switch errors.CodeOf(err) {
	case errors.ErrCodePromotionPartial:
		return "Promotion partially applied"
	case errors.ErrCodeFetch:
		return "Promotion fetch failed"
	case errors.ErrCodeConflict:
		return "Promotion conflict"
	case errors.ErrCodeTimeout:
		return "Promotion lock unavailable"
	default:
		return "Promotion failed"
	}
}

// stage runs fn inside a span and records its duration.
func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := p.c.Tracer.Start(ctx, "pipeline."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	stageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
