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
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"oras.land/oras-go/v2/content/memory"

	"github.com/NVIDIA/vetter/pkg/errors"
)

const script = "print(\"Hello, World!\")\n"

func TestArtifact(t *testing.T) {
	src := []byte(script)
	a := New("helloworld.py", src)
	src[0] = 'X'

	assert.Equal(t, script, string(a.Content), "New must copy content")
	assert.Equal(t, "helloworld", a.AppName())
	assert.Equal(t, "sha256", a.Digest().Algorithm().String())
	assert.Equal(t, New("other.py", []byte(script)).Digest(), a.Digest())
}

func TestAppName(t *testing.T) {
	tests := map[string]string{
		"helloworld.py":   "helloworld",
		"Hello_World.py":  "hello-world",
		"main":            "main",
		".hidden":         ".hidden",
		"archive.tar.gz":  "archive.tar",
		"nested/thing.py": "thing",
	}
	for in, want := range tests {
		assert.Equal(t, want, AppName(in), in)
	}
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("helloworld.py"))
	for _, bad := range []string{"", "  ", "../x.py", "a/b.py", `a\b.py`, ".", ".."} {
		err := ValidateName(bad)
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidRequest), "name %q", bad)
	}
}

// exerciseStore runs the common Store contract against any backend.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "helloworld.py")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound), "got %v", err)

	require.NoError(t, s.Put(ctx, "helloworld.py", []byte("print(undefined_variable)\n")))
	require.NoError(t, s.Put(ctx, "helloworld.py", []byte(script)))

	got, err := s.Get(ctx, "helloworld.py")
	require.NoError(t, err)
	assert.Equal(t, script, string(got), "re-upload supersedes")

	assert.Error(t, s.Put(ctx, "../escape.py", []byte("x")))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	exerciseStore(t, s)

	_, err = NewFileStore("")
	assert.Error(t, err)
}

func TestOCIStore(t *testing.T) {
	exerciseStore(t, newOCIStoreWithTarget(memory.New()))
}

func TestParseRepository(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "oci://ghcr.io/nvidia/vetter-artifacts", want: "ghcr.io/nvidia/vetter-artifacts"},
		{in: "oci://localhost:5000/scripts", want: "localhost:5000/scripts"},
		{in: "ghcr.io/nvidia/x", wantErr: true},
		{in: "oci://ghcr.io/nvidia/x:v1", wantErr: true},
		{in: "oci://INVALID/Upper", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseRepository(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTagFor(t *testing.T) {
	assert.Equal(t, "helloworld.py", tagFor("helloworld.py"))
	assert.Equal(t, "my-script-v2.py", tagFor("my script+v2.py"))
	assert.Len(t, tagFor(strings.Repeat("a", 300)), 128)
}

// fakeS3 is a path-style bucket that keeps objects in memory.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		b, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = b
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		b, ok := f.objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		_, _ = w.Write(b)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3Store(t *testing.T) {
	backend := &fakeS3{objects: map[string][]byte{}}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	client := s3.New(s3.Options{
		Region:                     "us-east-1",
		BaseEndpoint:               aws.String(srv.URL),
		UsePathStyle:               true,
		Credentials:                aws.AnonymousCredentials{},
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
	})
	s := newS3StoreWithClient(client, S3StoreConfig{Bucket: "artifacts", Prefix: "scripts/"})

	exerciseStore(t, s)

	backend.mu.Lock()
	_, ok := backend.objects["/artifacts/scripts/helloworld.py"]
	backend.mu.Unlock()
	assert.True(t, ok, "object should be stored under bucket/prefix/name")
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()

	s, err := NewStore(ctx, StoreConfig{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = NewStore(ctx, StoreConfig{Type: "file", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = NewStore(ctx, StoreConfig{Type: "s3"})
	assert.Error(t, err, "bucket is required")

	_, err = NewStore(ctx, StoreConfig{Type: "oci", OCI: OCIStoreConfig{Repository: "nope"}})
	assert.Error(t, err)

	_, err = NewStore(ctx, StoreConfig{Type: "gcs"})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidRequest))
}

func TestFixed(t *testing.T) {
	f, ok := Fixed("helloworld.py")
	require.True(t, ok)
	assert.Equal(t, "helloworld_fixed.py", f.FileName)
	assert.Contains(t, string(f.Content), "Hello, World!")
	assert.Equal(t, "/api/fixed/helloworld.py", FixedRef("helloworld.py"))

	for _, name := range []string{"", "unknown.py", "../fixed.go", "fixes/helloworld.py"} {
		_, ok := Fixed(name)
		assert.False(t, ok, name)
	}
	assert.Empty(t, FixedRef("unknown.py"))
}
