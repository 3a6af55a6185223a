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
	"log/slog"
	"time"

	"github.com/NVIDIA/vetter/pkg/errors"
	"github.com/NVIDIA/vetter/pkg/k8s/cluster"
)

// Reaper deletes validation namespaces that outlived their TTL.
type Reaper struct {
	cluster cluster.Cluster
	now     func() time.Time
}

// NewReaper returns a Reaper using the given cluster.
func NewReaper(c cluster.Cluster) *Reaper {
	return &Reaper{cluster: c, now: time.Now}
}

// Reap deletes every validation namespace created more than olderThan ago
// and returns the IDs it deleted. Deletion continues past individual
// failures; the first failure is returned alongside the deleted IDs.
func (r *Reaper) Reap(ctx context.Context, olderThan time.Duration) ([]ID, error) {
	if olderThan <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "reap ttl must be positive")
	}

	items, err := r.cluster.ListNamespaces(ctx, ValidationSelector)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnavailable, "failed to list validation namespaces", err)
	}

	cutoff := r.now().Add(-olderThan)
	var deleted []ID
	var firstErr error

	for _, ns := range items {
		if ns.DeletionTimestamp != nil || ns.CreationTimestamp.After(cutoff) {
			continue
		}
		if err := r.cluster.DeleteNamespace(ctx, ns.Name); err != nil {
			slog.Warn("failed to reap environment", "environment", ns.Name, "error", err)
			if firstErr == nil {
				firstErr = errors.WrapWithContext(errors.ErrCodeInternal, "failed to delete namespace", err,
					map[string]any{"environment": ns.Name})
			}
			continue
		}
		deleted = append(deleted, ID(ns.Name))
	}

	if len(deleted) > 0 {
		slog.Info("reaped environments", "count", len(deleted), "ttl", olderThan.String())
	}

	return deleted, firstErr
}

// Run reaps on every interval tick until ctx is done.
func (r *Reaper) Run(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Reap(ctx, ttl); err != nil {
				slog.Error("environment reap failed", "error", err)
			}
		}
	}
}
