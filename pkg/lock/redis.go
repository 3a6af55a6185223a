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
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/NVIDIA/vetter/pkg/defaults"
	"github.com/NVIDIA/vetter/pkg/errors"
)

// releaseScript deletes the key only when it still holds our token.
// KEYS[1] = lock key
// ARGV[1] = owner token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

const keyPrefix = "vetter:lock:"

// RedisConfig configures a Redis backed Locker.
type RedisConfig struct {
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	// TTL bounds how long a crashed holder can keep the lock.
	TTL time.Duration `yaml:"ttl,omitempty"`
	// Retry is the interval between acquisition attempts.
	Retry time.Duration `yaml:"retry,omitempty"`
}

// Redis is a Locker shared by every replica pointing at the same Redis.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
}

// NewRedis returns a Redis locker.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	if cfg.Addr == "" {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "redis address is required")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return newRedisWithClient(rdb, cfg), nil
}

func newRedisWithClient(rdb *redis.Client, cfg RedisConfig) *Redis {
	if cfg.TTL <= 0 {
		cfg.TTL = defaults.PromotionLockTTL
	}
	if cfg.Retry <= 0 {
		cfg.Retry = defaults.PromotionLockRetry
	}
	return &Redis{client: rdb, ttl: cfg.TTL, retry: cfg.Retry}
}

// Acquire polls SET NX PX until the key is free or ctx is done.
func (r *Redis) Acquire(ctx context.Context, key string) (Release, error) {
	k := keyPrefix + key
	token := uuid.NewString()

	for {
		ok, err := r.client.SetNX(ctx, k, token, r.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, errors.WrapWithContext(errors.ErrCodeUnavailable, "redis lock error", err,
				map[string]any{"key": key})
		}
		if ok {
			break
		}
		if err := wait(ctx, r.retry); err != nil {
			return nil, errors.WrapWithContext(errors.ErrCodeTimeout, "timed out waiting for lock", err,
				map[string]any{"key": key})
		}
	}

	var once sync.Once
	return func(ctx context.Context) error {
		var err error
		once.Do(func() {
			if rerr := releaseScript.Run(ctx, r.client, []string{k}, token).Err(); rerr != nil {
				err = errors.WrapWithContext(errors.ErrCodeUnavailable, "redis unlock error", rerr,
					map[string]any{"key": key})
			}
		})
		return err
	}, nil
}

// Ping checks connectivity; used by readiness.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
