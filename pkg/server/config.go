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
	"fmt"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/NVIDIA/vetter/pkg/defaults"
)

// Default webhook worker count: at most this many triggered runs execute at
// once, the rest queue.
const DefaultWebhookWorkers = 5

// Config holds server configuration.
type Config struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`

	// Rate limiting for API endpoints.
	RateLimit      rate.Limit `yaml:"rateLimit"` // requests per second
	RateLimitBurst int        `yaml:"rateLimitBurst"`

	// MaxUploadBytes bounds uploaded artifacts. It must not exceed
	// defaults.MaxArtifactBytes.
	MaxUploadBytes int64 `yaml:"maxUploadBytes"`
	// MaxWebhookBytes bounds webhook deliveries.
	MaxWebhookBytes int64 `yaml:"maxWebhookBytes"`
	// WebhookWorkers bounds concurrently executing triggered runs.
	WebhookWorkers int `yaml:"webhookWorkers"`

	// Timeouts
	ReadTimeout       time.Duration `yaml:"readTimeout"`
	ReadHeaderTimeout time.Duration `yaml:"readHeaderTimeout"`
	WriteTimeout      time.Duration `yaml:"writeTimeout"`
	IdleTimeout       time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdownTimeout"`
	DeployTimeout     time.Duration `yaml:"deployTimeout"`
	WebhookRunTimeout time.Duration `yaml:"webhookRunTimeout"`
}

// NewConfig returns a Config with defaults, honoring PORT and
// SHUTDOWN_TIMEOUT_SECONDS from the environment.
func NewConfig() *Config {
	cfg := &Config{
		Port:              8080,
		RateLimit:         10, // uploads start whole pipeline runs
		RateLimitBurst:    20,
		MaxUploadBytes:    defaults.MaxArtifactBytes,
		MaxWebhookBytes:   defaults.MaxWebhookBytes,
		WebhookWorkers:    DefaultWebhookWorkers,
		ReadTimeout:       defaults.ServerReadTimeout,
		ReadHeaderTimeout: defaults.ServerReadHeaderTimeout,
		WriteTimeout:      defaults.ServerWriteTimeout,
		IdleTimeout:       defaults.ServerIdleTimeout,
		ShutdownTimeout:   defaults.ServerShutdownTimeout,
		DeployTimeout:     defaults.DeployHandlerTimeout,
		WebhookRunTimeout: defaults.WebhookRunTimeout,
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		var port int
		if _, err := fmt.Sscanf(portStr, "%d", &port); err == nil {
			cfg.Port = port
		}
	}

	// Lets the shutdown window match the pod termination grace period.
	if shutdownStr := os.Getenv("SHUTDOWN_TIMEOUT_SECONDS"); shutdownStr != "" {
		var seconds int
		if _, err := fmt.Sscanf(shutdownStr, "%d", &seconds); err == nil && seconds > 0 {
			cfg.ShutdownTimeout = time.Duration(seconds) * time.Second
		}
	}

	return cfg
}

// withDefaults fills zero fields from NewConfig.
func (c Config) withDefaults() Config {
	d := NewConfig()
	if c.Port == 0 {
		c.Port = d.Port
	}
	if c.RateLimit <= 0 {
		c.RateLimit = d.RateLimit
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = d.RateLimitBurst
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	if c.MaxWebhookBytes <= 0 {
		c.MaxWebhookBytes = d.MaxWebhookBytes
	}
	if c.WebhookWorkers <= 0 {
		c.WebhookWorkers = d.WebhookWorkers
	}
	for _, p := range []struct{ v, def *time.Duration }{
		{&c.ReadTimeout, &d.ReadTimeout},
		{&c.ReadHeaderTimeout, &d.ReadHeaderTimeout},
		{&c.WriteTimeout, &d.WriteTimeout},
		{&c.IdleTimeout, &d.IdleTimeout},
		{&c.ShutdownTimeout, &d.ShutdownTimeout},
		{&c.DeployTimeout, &d.DeployTimeout},
		{&c.WebhookRunTimeout, &d.WebhookRunTimeout},
	} {
		if *p.v <= 0 {
			*p.v = *p.def
		}
	}
	return c
}
