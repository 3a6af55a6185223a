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

package secret

import (
	"context"
	"os"
	"strings"

	"github.com/NVIDIA/vetter/pkg/errors"
)

// Secret names.
const (
	ClusterName   = "CLUSTER-NAME"
	SourceHost    = "SOURCE-HOST"
	SourceUser    = "SOURCE-USER"
	SourceToken   = "SOURCE-TOKEN"
	WebhookSecret = "WEBHOOK-SECRET"
)

// Provider retrieves named secrets.
type Provider interface {
	// GetSecret returns a NOT_FOUND structured error for unknown names.
	GetSecret(ctx context.Context, name string) (string, error)
}

func notFound(name, provider string) error {
	return errors.NewWithContext(errors.ErrCodeNotFound, "secret not found",
		map[string]any{"name": name, "provider": provider})
}

// Env reads secrets from environment variables. The name is upper-cased,
// dashes become underscores and Prefix is prepended: CLUSTER-NAME is read
// from CLUSTER_NAME, or VETTER_CLUSTER_NAME with prefix "VETTER_".
type Env struct {
	Prefix string
	lookup func(string) (string, bool)
}

// NewEnv returns an environment provider.
func NewEnv(prefix string) *Env {
	return &Env{Prefix: prefix, lookup: os.LookupEnv}
}

// VarName returns the environment variable consulted for name.
func (e *Env) VarName(name string) string {
	return e.Prefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

func (e *Env) GetSecret(ctx context.Context, name string) (string, error) {
	v, ok := e.lookup(e.VarName(name))
	if !ok || v == "" {
		return "", notFound(name, "env")
	}
	return v, nil
}

// Chain asks each provider in order and returns the first value found.
type Chain []Provider

func (c Chain) GetSecret(ctx context.Context, name string) (string, error) {
	for _, p := range c {
		v, err := p.GetSecret(ctx, name)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, errors.ErrCodeNotFound) {
			return "", err
		}
	}
	return "", notFound(name, "chain")
}

// Credentials are the resolved secrets the pipeline needs.
type Credentials struct {
	ClusterName   string
	SourceHost    string
	SourceUser    string
	SourceToken   string
	WebhookSecret string
}

// String hides secret values.
func (c Credentials) String() string {
	return "Credentials{ClusterName: " + c.ClusterName + ", SourceHost: " + c.SourceHost + ", ...}"
}

// Resolve reads every secret the pipeline uses. CLUSTER-NAME and SOURCE-HOST
// are required; the rest are optional.
func Resolve(ctx context.Context, p Provider) (Credentials, error) {
	var creds Credentials

	required := []struct {
		name string
		dst  *string
	}{
		{ClusterName, &creds.ClusterName},
		{SourceHost, &creds.SourceHost},
	}
	for _, r := range required {
		v, err := p.GetSecret(ctx, r.name)
		if err != nil {
			return Credentials{}, errors.WrapWithContext(errors.CodeOf(err), "required secret unavailable", err,
				map[string]any{"name": r.name})
		}
		*r.dst = v
	}

	optional := []struct {
		name string
		dst  *string
	}{
		{SourceUser, &creds.SourceUser},
		{SourceToken, &creds.SourceToken},
		{WebhookSecret, &creds.WebhookSecret},
	}
	for _, o := range optional {
		v, err := p.GetSecret(ctx, o.name)
		switch {
		case err == nil:
			*o.dst = v
		case errors.Is(err, errors.ErrCodeNotFound):
		default:
			return Credentials{}, errors.WrapWithContext(errors.CodeOf(err), "failed to read secret", err,
				map[string]any{"name": o.name})
		}
	}

	return creds, nil
}
