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

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/NVIDIA/vetter/pkg/errors"
)

// DefaultServiceName is reported when Config.ServiceName is empty.
const DefaultServiceName = "vetter"

// Config controls trace export.
type Config struct {
	// Enabled turns on OTLP gRPC export. The exporter reads
	// OTEL_EXPORTER_OTLP_ENDPOINT and related variables from the environment.
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"serviceName,omitempty"`
}

// Telemetry holds the tracer and a shutdown function that flushes spans.
type Telemetry struct {
	Tracer   trace.Tracer
	Shutdown func(ctx context.Context) error
}

// Noop returns a Telemetry that records nothing.
func Noop() *Telemetry {
	return &Telemetry{
		Tracer:   nooptrace.NewTracerProvider().Tracer(DefaultServiceName),
		Shutdown: func(context.Context) error { return nil },
	}
}

// New builds tracing from cfg. When disabled it returns Noop.
func New(ctx context.Context, cfg Config) (*Telemetry, error) {
	if !cfg.Enabled {
		return Noop(), nil
	}
	name := cfg.ServiceName
	if name == "" {
		name = DefaultServiceName
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(name)))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to build telemetry resource", err)
	}

	exp, err := otlptracegrpc.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to create trace exporter", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)

	// Global registration lets otelhttp pick up the provider.
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return &Telemetry{
		Tracer:   tp.Tracer(name),
		Shutdown: tp.Shutdown,
	}, nil
}
