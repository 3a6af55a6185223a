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

package lock

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/NVIDIA/vetter/pkg/errors"
)

// Release gives up a held lock. It is safe to call more than once.
type Release func(ctx context.Context) error

// Locker grants exclusive ownership of a key.
type Locker interface {
	// Acquire blocks until the key is held or ctx is done.
	Acquire(ctx context.Context, key string) (Release, error)
}

// Pinger is implemented by lockers backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Locker types.
const (
	TypeLocal = "local"
	TypeRedis = "redis"
)

// Config selects and configures a Locker.
type Config struct {
	Type  string      `yaml:"type"`
	Redis RedisConfig `yaml:"redis,omitempty"`
}

// New builds the Locker named by cfg.Type. An empty type selects local.
func New(cfg Config) (Locker, error) {
	switch strings.ToLower(cfg.Type) {
	case "", TypeLocal:
		return NewLocal(), nil
	case TypeRedis:
		return NewRedis(cfg.Redis)
	default:
		return nil, errors.NewWithContext(errors.ErrCodeInvalidRequest, "unsupported lock type",
			map[string]any{"type": cfg.Type})
	}
}

// Local is an in-process Locker.
type Local struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewLocal returns an empty Local locker.
func NewLocal() *Local {
	return &Local{slots: make(map[string]chan struct{})}
}

func (l *Local) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

func (l *Local) Acquire(ctx context.Context, key string) (Release, error) {
	ch := l.slot(key)

	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, errors.WrapWithContext(errors.ErrCodeTimeout, "timed out waiting for lock", ctx.Err(),
			map[string]any{"key": key})
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() { <-ch })
		return nil
	}, nil
}

// wait sleeps for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
