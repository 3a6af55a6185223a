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

// Package config loads vetter configuration.
//
// Configuration is read from a YAML file (JSON is accepted too) over
// built-in defaults, then VETTER_* environment variables override single
// values:
//
//	server:
//	  port: 8080
//	pipeline:
//	  expectedName: helloworld.py
//	environment:
//	  prefix: helloworld-
//	  reaper:
//	    enabled: true
//	    ttl: 1h
//	store:
//	  type: s3
//	  s3:
//	    bucket: vetter-artifacts
//	    endpoint: http://minio.minio:9000
//	source:
//	  provider: http
//	  repository: org/backend-im
//	secrets:
//	  provider: kubernetes
//	  kubernetes:
//	    namespace: vetter
//	    name: vetter-credentials
//	lock:
//	  type: redis
//	  redis:
//	    addr: redis:6379
//
//	VETTER_PORT=9090 VETTER_REAPER_ENABLED=true vetterd --config vetter.yaml
//
// Unknown keys are rejected. Load validates image references and durations
// so a bad value fails at startup rather than inside a run.
package config
