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
package serializer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHttpReader_ReadWithContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			if r.Header.Get("Authorization") != "token abc" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if r.Header.Get("User-Agent") != HttpReaderUserAgent {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte("hello"))
		case "/big":
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("file does not exist" + strings.Repeat(".", 2048)))
		}
	}))
	defer srv.Close()

	r := NewHttpReader(WithClient(srv.Client()), WithRequestDecorator(TokenAuth("abc")), WithMaxBytes(32))

	t.Run("success", func(t *testing.T) {
		b, err := r.ReadWithContext(context.Background(), srv.URL+"/ok")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(b) != "hello" {
			t.Errorf("got %q, want hello", b)
		}
	})

	t.Run("status error keeps excerpt", func(t *testing.T) {
		_, err := r.ReadWithContext(context.Background(), srv.URL+"/missing")
		var se *HTTPStatusError
		if !errors.As(err, &se) {
			t.Fatalf("expected *HTTPStatusError, got %v", err)
		}
		if se.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", se.StatusCode)
		}
		if !strings.HasPrefix(se.Body, "file does not exist") {
			t.Errorf("body = %q", se.Body)
		}
		if len(se.Body) != bodyExcerptBytes {
			t.Errorf("excerpt length = %d, want %d", len(se.Body), bodyExcerptBytes)
		}
	})

	t.Run("too large", func(t *testing.T) {
		if _, err := r.ReadWithContext(context.Background(), srv.URL+"/big"); !errors.Is(err, ErrResponseTooLarge) {
			t.Errorf("expected ErrResponseTooLarge, got %v", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := r.ReadWithContext(ctx, srv.URL+"/ok"); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("empty url", func(t *testing.T) {
		if _, err := r.ReadWithContext(context.Background(), ""); err == nil {
			t.Error("expected error for empty url")
		}
	})
}

func TestBasicAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	BasicAuth("bot", "s3cret")(req)
	user, pass, ok := req.BasicAuth()
	if !ok || user != "bot" || pass != "s3cret" {
		t.Errorf("BasicAuth() = %s/%s/%v", user, pass, ok)
	}
}

func TestNewHttpReader_Defaults(t *testing.T) {
	r := NewHttpReader(WithClient(nil), WithUserAgent(""))
	if r.Client == nil {
		t.Fatal("expected default client")
	}
	if r.UserAgent != HttpReaderUserAgent {
		t.Errorf("UserAgent = %s", r.UserAgent)
	}
	if _, ok := r.Client.Transport.(*http.Transport); !ok {
		t.Errorf("transport = %T", r.Client.Transport)
	}
}
