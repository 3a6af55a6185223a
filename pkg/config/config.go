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

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/NVIDIA/vetter/pkg/artifact"
	"github.com/NVIDIA/vetter/pkg/defaults"
	"github.com/NVIDIA/vetter/pkg/environment"
	"github.com/NVIDIA/vetter/pkg/errors"
	"github.com/NVIDIA/vetter/pkg/lock"
	"github.com/NVIDIA/vetter/pkg/pipeline"
	"github.com/NVIDIA/vetter/pkg/promotion"
	"github.com/NVIDIA/vetter/pkg/secret"
	"github.com/NVIDIA/vetter/pkg/serializer"
	"github.com/NVIDIA/vetter/pkg/server"
	"github.com/NVIDIA/vetter/pkg/source"
	"github.com/NVIDIA/vetter/pkg/telemetry"
	"github.com/NVIDIA/vetter/pkg/validation"
	"github.com/NVIDIA/vetter/pkg/workload"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "VETTER_"

// Config is the complete vetter configuration.
type Config struct {
	Server server.Config `yaml:"server"`

	// Kubeconfig and KubeContext select the cluster. Empty values use
	// discovery and, when the kubeconfig defines it, the context named by
	// the CLUSTER-NAME secret.
	Kubeconfig  string `yaml:"kubeconfig,omitempty"`
	KubeContext string `yaml:"kubeContext,omitempty"`

	Pipeline    pipeline.Config      `yaml:"pipeline"`
	Environment Environment          `yaml:"environment"`
	Validation  validation.Config    `yaml:"validation"`
	Promotion   promotion.Config     `yaml:"promotion"`
	Store       artifact.StoreConfig `yaml:"store"`
	Source      source.Config        `yaml:"source"`
	Secrets     secret.Config        `yaml:"secrets"`
	Lock        lock.Config          `yaml:"lock"`
	Telemetry   telemetry.Config     `yaml:"telemetry"`
}

// Environment configures validation namespaces.
type Environment struct {
	Prefix string `yaml:"prefix"`
	Reaper Reaper `yaml:"reaper"`
}

// Reaper configures background deletion of old validation namespaces.
type Reaper struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	TTL      time.Duration `yaml:"ttl"`
}

// Default returns the configuration used when no file is given. The tracked
// branch is left empty so it follows source.ref unless set.
func Default() Config {
	return Config{
		Server: *server.NewConfig(),
		Pipeline: pipeline.Config{
			ExpectedName:     pipeline.DefaultExpectedName,
			PromotionTimeout: defaults.PromotionTimeout,
		},
		Environment: Environment{
			Prefix: environment.DefaultPrefix,
			Reaper: Reaper{
				Interval: defaults.ReaperInterval,
				TTL:      defaults.EnvironmentTTL,
			},
		},
		Validation: validation.Config{}.WithDefaults(),
		Promotion:  promotion.Config{}.WithDefaults(),
		Store:      artifact.StoreConfig{Type: artifact.StoreMemory},
		Source:     source.Config{}.WithDefaults(),
		Secrets:    secret.Config{Provider: secret.ProviderEnv},
		Lock:       lock.Config{Type: lock.TypeLocal},
		Telemetry:  telemetry.Config{ServiceName: "vetterd"},
	}
}

// Load reads the YAML (or JSON) file at path over the defaults, applies
// VETTER_* environment overrides and validates the result. An empty path
// loads defaults and the environment only. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidRequest, fmt.Sprintf("failed to open config %s", path), err)
		}
		defer f.Close()

		// YAML is a superset of JSON; one decoder serves both.
		if err := serializer.Decode(serializer.FormatYAML, f, &cfg); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidRequest, fmt.Sprintf("failed to parse config %s", path), err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	cfg.fill()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// fill derives values that default from other settings.
func (c *Config) fill() {
	c.Source = c.Source.WithDefaults()
	if c.Pipeline.Branch == "" {
		c.Pipeline.Branch = c.Source.Branch()
	}
	if c.Environment.Prefix == "" {
		c.Environment.Prefix = environment.DefaultPrefix
	}
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return invalid("server.port", c.Server.Port, "must be between 1 and 65535")
	}
	if c.Server.RateLimit < 0 || c.Server.RateLimit == rate.Inf {
		return invalid("server.rateLimit", float64(c.Server.RateLimit), "must be a finite non-negative rate")
	}
	if c.Server.MaxUploadBytes > defaults.MaxArtifactBytes {
		return invalid("server.maxUploadBytes", c.Server.MaxUploadBytes,
			fmt.Sprintf("must not exceed %d", defaults.MaxArtifactBytes))
	}
	if err := artifact.ValidateName(c.Pipeline.ExpectedName); err != nil {
		return err
	}
	for field, ref := range map[string]string{
		"validation.images.runtime": c.Validation.Images.Runtime,
		"validation.images.init":    c.Validation.Images.Init,
	} {
		if err := workload.ValidateImage(ref); err != nil {
			return errors.WrapWithContext(errors.ErrCodeInvalidRequest, "invalid image reference", err,
				map[string]any{"field": field, "image": ref})
		}
	}
	if err := c.Promotion.Validate(); err != nil {
		return err
	}

	durations := map[string]time.Duration{
		"validation.timeout":        c.Validation.Timeout,
		"validation.initialBackoff": c.Validation.InitialBackoff,
		"validation.maxBackoff":     c.Validation.MaxBackoff,
		"pipeline.promotionTimeout": c.Pipeline.PromotionTimeout,
	}
	if c.Environment.Reaper.Enabled {
		durations["environment.reaper.interval"] = c.Environment.Reaper.Interval
		durations["environment.reaper.ttl"] = c.Environment.Reaper.TTL
	}
	for field, d := range durations {
		if d <= 0 {
			return invalid(field, d.String(), "must be a positive duration")
		}
	}
	if c.Validation.InitialBackoff > c.Validation.MaxBackoff {
		return invalid("validation.initialBackoff", c.Validation.InitialBackoff.String(),
			"must not exceed validation.maxBackoff")
	}
	return nil
}

func invalid(field string, value any, reason string) error {
	return errors.NewWithContext(errors.ErrCodeInvalidRequest, fmt.Sprintf("invalid %s: %s", field, reason),
		map[string]any{"field": field, "value": value})
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

type setter func(c *Config, v string) error

func str(f func(c *Config) *string) setter {
	return func(c *Config, v string) error {
		*f(c) = v
		return nil
	}
}

func boolean(f func(c *Config) *bool) setter {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*f(c) = b
		return nil
	}
}

func duration(f func(c *Config) *time.Duration) setter {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*f(c) = d
		return nil
	}
}

func integer(f func(c *Config) *int) setter {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*f(c) = n
		return nil
	}
}

// overrides maps environment variable suffixes to the field they set.
var overrides = map[string]setter{
	"PORT":                 integer(func(c *Config) *int { return &c.Server.Port }),
	"WEBHOOK_WORKERS":      integer(func(c *Config) *int { return &c.Server.WebhookWorkers }),
	"KUBECONFIG":           str(func(c *Config) *string { return &c.Kubeconfig }),
	"KUBE_CONTEXT":         str(func(c *Config) *string { return &c.KubeContext }),
	"EXPECTED_NAME":        str(func(c *Config) *string { return &c.Pipeline.ExpectedName }),
	"BRANCH":               str(func(c *Config) *string { return &c.Pipeline.Branch }),
	"PROMOTION_TIMEOUT":    duration(func(c *Config) *time.Duration { return &c.Pipeline.PromotionTimeout }),
	"ENVIRONMENT_PREFIX":   str(func(c *Config) *string { return &c.Environment.Prefix }),
	"REAPER_ENABLED":       boolean(func(c *Config) *bool { return &c.Environment.Reaper.Enabled }),
	"REAPER_INTERVAL":      duration(func(c *Config) *time.Duration { return &c.Environment.Reaper.Interval }),
	"REAPER_TTL":           duration(func(c *Config) *time.Duration { return &c.Environment.Reaper.TTL }),
	"RUNTIME_IMAGE":        str(func(c *Config) *string { return &c.Validation.Images.Runtime }),
	"INIT_IMAGE":           str(func(c *Config) *string { return &c.Validation.Images.Init }),
	"OBSERVATION_TIMEOUT":  duration(func(c *Config) *time.Duration { return &c.Validation.Timeout }),
	"PRODUCTION_NAMESPACE": str(func(c *Config) *string { return &c.Promotion.Namespace }),
	"PRODUCTION_IMAGE":     str(func(c *Config) *string { return &c.Promotion.Image }),
	"ALLOW_SOURCE_DRIFT":   boolean(func(c *Config) *bool { return &c.Promotion.AllowSourceDrift }),
	"STORE_TYPE":           str(func(c *Config) *string { return &c.Store.Type }),
	"STORE_DIR":            str(func(c *Config) *string { return &c.Store.Dir }),
	"S3_BUCKET":            str(func(c *Config) *string { return &c.Store.S3.Bucket }),
	"S3_REGION":            str(func(c *Config) *string { return &c.Store.S3.Region }),
	"S3_ENDPOINT":          str(func(c *Config) *string { return &c.Store.S3.Endpoint }),
	"OCI_REPOSITORY":       str(func(c *Config) *string { return &c.Store.OCI.Repository }),
	"SOURCE_PROVIDER":      str(func(c *Config) *string { return &c.Source.Provider }),
	"SOURCE_PUBLISHER":     str(func(c *Config) *string { return &c.Source.Publisher }),
	"SOURCE_REPOSITORY":    str(func(c *Config) *string { return &c.Source.Repository }),
	"SOURCE_REF":           str(func(c *Config) *string { return &c.Source.Ref }),
	"GITHUB_API_URL":       str(func(c *Config) *string { return &c.Source.GitHubAPIURL }),
	"SECRETS_PROVIDER":     str(func(c *Config) *string { return &c.Secrets.Provider }),
	"SECRETS_NAMESPACE":    str(func(c *Config) *string { return &c.Secrets.Kubernetes.Namespace }),
	"SECRETS_NAME":         str(func(c *Config) *string { return &c.Secrets.Kubernetes.Name }),
	"LOCK_TYPE":            str(func(c *Config) *string { return &c.Lock.Type }),
	"REDIS_ADDR":           str(func(c *Config) *string { return &c.Lock.Redis.Addr }),
	"REDIS_PASSWORD":       str(func(c *Config) *string { return &c.Lock.Redis.Password }),
	"TELEMETRY_ENABLED":    boolean(func(c *Config) *bool { return &c.Telemetry.Enabled }),
}

// ApplyEnv applies every VETTER_* variable lookup finds.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	for suffix, set := range overrides {
		v, ok := lookup(EnvPrefix + suffix)
		if !ok || v == "" {
			continue
		}
		if err := set(c, v); err != nil {
			return errors.WrapWithContext(errors.ErrCodeInvalidRequest, "invalid environment override", err,
				map[string]any{"variable": EnvPrefix + suffix, "value": v})
		}
	}
	return nil
}
