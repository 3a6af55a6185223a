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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vetter_pipeline_runs_total",
			Help: "Total number of pipeline runs by terminal state",
		},
		[]string{"state"},
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vetter_pipeline_run_duration_seconds",
			Help:    "End to end duration of provisioned runs",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vetter_pipeline_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	promotionSteps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vetter_promotion_steps_total",
			Help: "Promotion step results by step and status",
		},
		[]string{"step", "status"},
	)
)
