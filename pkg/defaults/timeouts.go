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

package defaults

import "time"

// Validation observation timing.
const (
	// ObservationTimeout bounds the wait for a validation pod to exit. A pod
	// still Running when it elapses is observed as it is.
	ObservationTimeout = 60 * time.Second

	// ObservationInitialBackoff is the first delay between pod phase polls.
	ObservationInitialBackoff = 1 * time.Second

	// ObservationBackoffFactor multiplies the delay after each poll.
	ObservationBackoffFactor = 2.0

	// ObservationBackoffJitter randomizes each delay by up to this fraction.
	ObservationBackoffJitter = 0.1

	// ObservationMaxBackoff caps the delay between polls.
	ObservationMaxBackoff = 10 * time.Second

	// LogReadTimeout is the timeout for reading a pod log once it is observable.
	LogReadTimeout = 30 * time.Second
)

// Kubernetes timeouts for K8s API operations.
const (
	// K8sCreateTimeout is the timeout for a single create call.
	K8sCreateTimeout = 30 * time.Second

	// K8sCleanupTimeout is the timeout for namespace reaping operations.
	K8sCleanupTimeout = 30 * time.Second
)

// Promotion timeouts.
const (
	// PromotionTimeout bounds a full promotion (fetch plus three creates).
	PromotionTimeout = 2 * time.Minute

	// PromotionLockTTL is how long a distributed promotion lock is held
	// before it expires on its own. It must exceed PromotionTimeout.
	PromotionLockTTL = 3 * time.Minute

	// PromotionLockRetry is the delay between attempts to acquire a held lock.
	PromotionLockRetry = 250 * time.Millisecond
)

// Environment reaping.
const (
	// ReaperInterval is how often the server sweeps expired environments.
	ReaperInterval = 10 * time.Minute

	// EnvironmentTTL is the age after which a validation namespace is reaped.
	EnvironmentTTL = 1 * time.Hour
)

// Handler timeouts for HTTP request processing.
const (
	// DeployHandlerTimeout is the timeout for a synchronous upload-and-validate request.
	// Longer than the observation timeout plus a full promotion.
	DeployHandlerTimeout = 4 * time.Minute

	// WebhookRunTimeout bounds an asynchronous webhook-triggered run.
	WebhookRunTimeout = 5 * time.Minute

	// ReadinessCheckTimeout bounds each dependency check behind GET /ready.
	ReadinessCheckTimeout = 2 * time.Second

	// MaxWebhookBytes is the largest accepted webhook delivery.
	MaxWebhookBytes = 1 << 20
)

// Size limits.
const (
	// MaxArtifactBytes is the largest artifact the pipeline runs. The artifact
	// travels base64 encoded in one container env var, which the kernel caps
	// at 128 KiB (MAX_ARG_STRLEN) including the name.
	MaxArtifactBytes = 90 << 10

	// MaxLogBytes bounds a log read for offline classification.
	MaxLogBytes = 4 << 20
)

// Server timeouts for HTTP server configuration.
const (
	// ServerReadTimeout is the maximum duration for reading request headers.
	ServerReadTimeout = 10 * time.Second

	// ServerReadHeaderTimeout prevents slow header attacks.
	ServerReadHeaderTimeout = 5 * time.Second

	// ServerWriteTimeout is the maximum duration for writing a response.
	// The upload endpoint runs a full pipeline before responding.
	ServerWriteTimeout = 5 * time.Minute

	// ServerIdleTimeout is the maximum duration to wait for the next request.
	ServerIdleTimeout = 10 * time.Minute

	// ServerShutdownTimeout is the maximum duration for graceful shutdown.
	ServerShutdownTimeout = 30 * time.Second
)

// HTTP client timeouts for outbound requests.
const (
	// HTTPClientTimeout is the default total timeout for HTTP requests.
	HTTPClientTimeout = 30 * time.Second

	// HTTPConnectTimeout is the timeout for establishing connections.
	HTTPConnectTimeout = 5 * time.Second

	// HTTPTLSHandshakeTimeout is the timeout for TLS handshake.
	HTTPTLSHandshakeTimeout = 5 * time.Second

	// HTTPResponseHeaderTimeout is the timeout for reading response headers.
	HTTPResponseHeaderTimeout = 10 * time.Second

	// HTTPIdleConnTimeout is the timeout for idle connections in the pool.
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPKeepAlive is the keep-alive duration for connections.
	HTTPKeepAlive = 30 * time.Second
)

// ConfigMap timeouts for Kubernetes ConfigMap operations.
const (
	// ConfigMapWriteTimeout is the timeout for writing to ConfigMaps.
	ConfigMapWriteTimeout = 30 * time.Second
)
