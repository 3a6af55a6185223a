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

package environment

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/NVIDIA/vetter/pkg/errors"
	"github.com/NVIDIA/vetter/pkg/k8s/cluster"
)

const (
	// DefaultPrefix is prepended to every generated environment ID.
	DefaultPrefix = "helloworld-"

	// LabelManagedBy marks namespaces created by vetter.
	LabelManagedBy = "app.kubernetes.io/managed-by"
	// LabelRole distinguishes validation namespaces from production.
	LabelRole = "vetter.nvidia.com/role"

	managedByValue = "vetter"
	roleValidation = "validation"

	idBytes = 8
)

// ValidationSelector selects namespaces created by Provision.
var ValidationSelector = LabelManagedBy + "=" + managedByValue + "," + LabelRole + "=" + roleValidation

// ID names an ephemeral validation namespace.
type ID string

func (id ID) String() string {
	return string(id)
}

// Provisioner creates isolated namespaces for validation runs.
type Provisioner struct {
	cluster cluster.Cluster
	prefix  string
	random  func([]byte) (int, error)
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(p *Provisioner) {
		if prefix != "" {
			p.prefix = prefix
		}
	}
}

// NewProvisioner returns a Provisioner using the given cluster.
func NewProvisioner(c cluster.Cluster, opts ...Option) *Provisioner {
	p := &Provisioner{
		cluster: c,
		prefix:  DefaultPrefix,
		random:  rand.Read,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Prefix returns the prefix used for generated IDs.
func (p *Provisioner) Prefix() string {
	return p.prefix
}

// NewID generates a fresh environment ID without creating anything.
func (p *Provisioner) NewID() (ID, error) {
	b := make([]byte, idBytes)
	if _, err := p.random(b); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, "failed to generate environment id", err)
	}
	return ID(p.prefix + hex.EncodeToString(b)), nil
}

// Provision generates a new environment ID and creates its namespace.
// Any failure is returned as a PROVISIONING structured error.
func (p *Provisioner) Provision(ctx context.Context) (ID, error) {
	id, err := p.NewID()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeProvisioning, "failed to provision environment", err)
	}

	if err := p.Ensure(ctx, id); err != nil {
		return "", err
	}

	slog.Debug("environment provisioned", "environment", id)
	return id, nil
}

// Ensure creates the namespace for an existing ID. Re-provisioning an ID that
// already exists is not an error.
func (p *Provisioner) Ensure(ctx context.Context, id ID) error {
	labels := map[string]string{
		LabelManagedBy: managedByValue,
		LabelRole:      roleValidation,
	}
	if err := p.cluster.EnsureNamespace(ctx, id.String(), labels); err != nil {
		return errors.WrapWithContext(errors.ErrCodeProvisioning, "failed to create namespace", err,
			map[string]any{"environment": id.String()})
	}
	return nil
}

// EnsureNamespace creates a namespace that is not a validation environment,
// such as the production namespace. It carries the managed-by label only, so
// the reaper never selects it.
func EnsureNamespace(ctx context.Context, c cluster.Cluster, name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New(errors.ErrCodeInvalidRequest, "namespace name is required")
	}
	if err := c.EnsureNamespace(ctx, name, map[string]string{LabelManagedBy: managedByValue}); err != nil {
		return fmt.Errorf("failed to ensure namespace %s: %w", name, err)
	}
	return nil
}
