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

package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/NVIDIA/vetter/pkg/errors"
)

// Store persists uploaded artifacts by name. Putting an existing name
// supersedes the previous content.
type Store interface {
	Put(ctx context.Context, name string, content []byte) error
	// Get returns a NOT_FOUND structured error for unknown names.
	Get(ctx context.Context, name string) ([]byte, error)
}

// Store backend types.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreS3     = "s3"
	StoreOCI    = "oci"
)

// StoreConfig selects and configures a Store backend.
type StoreConfig struct {
	Type string `yaml:"type"`

	// Dir is the root directory for the file backend.
	Dir string `yaml:"dir,omitempty"`

	S3  S3StoreConfig  `yaml:"s3,omitempty"`
	OCI OCIStoreConfig `yaml:"oci,omitempty"`
}

// NewStore builds the backend named by cfg.Type. An empty type selects memory.
func NewStore(ctx context.Context, cfg StoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Type) {
	case "", StoreMemory:
		return NewMemoryStore(), nil
	case StoreFile:
		return NewFileStore(cfg.Dir)
	case StoreS3:
		return NewS3Store(ctx, cfg.S3)
	case StoreOCI:
		return NewOCIStore(cfg.OCI)
	default:
		return nil, errors.NewWithContext(errors.ErrCodeInvalidRequest, "unsupported artifact store type",
			map[string]any{"type": cfg.Type})
	}
}

func notFound(name string) error {
	return errors.NewWithContext(errors.ErrCodeNotFound, "artifact not found", map[string]any{"name": name})
}

// MemoryStore keeps artifacts in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Put(ctx context.Context, name string, content []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	c := make([]byte, len(content))
	copy(c, content)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[name] = c
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.blobs[name]
	if !ok {
		return nil, notFound(name)
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c, nil
}

// FileStore keeps artifacts as files under a root directory.
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

// NewFileStore creates dir if needed and returns a FileStore rooted at it.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "file store directory is required")
	}
	//nolint:gosec // G301: artifacts are readable by the service group
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to create artifact directory", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Put(ctx context.Context, name string, content []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	//nolint:gosec // G306: artifact files are not secret
	if err := os.WriteFile(tmp, content, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to write artifact", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to commit artifact", err)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	b, err := os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, fmt.Sprintf("failed to read artifact %s", name), err)
	}
	return b, nil
}
