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
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/NVIDIA/vetter/pkg/defaults"
)

const (
	HttpReaderUserAgent = "vetter/1.0"

	// bodyExcerptBytes bounds how much of an error body is kept.
	bodyExcerptBytes = 512
)

var (
	HttpReaderDefaultMaxIdleConns        = 100
	HttpReaderDefaultMaxIdleConnsPerHost = 10
)

// ErrResponseTooLarge is returned when a body exceeds the reader's MaxBytes.
var ErrResponseTooLarge = errors.New("response body exceeds size limit")

// HTTPStatusError reports a non-200 response along with the start of its body.
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("failed to fetch %s: status %s", e.URL, e.Status)
}

// RequestDecorator mutates an outbound request before it is sent.
type RequestDecorator func(*http.Request)

// BasicAuth sets HTTP basic credentials.
func BasicAuth(user, password string) RequestDecorator {
	return func(req *http.Request) {
		req.SetBasicAuth(user, password)
	}
}

// TokenAuth sets a Gitea/GitHub style "token" Authorization header.
func TokenAuth(token string) RequestDecorator {
	return func(req *http.Request) {
		req.Header.Set("Authorization", "token "+token)
	}
}

// HttpReaderOption defines a configuration option for HttpReader.
type HttpReaderOption func(*HttpReader)

// HttpReader fetches documents over HTTP with configurable options.
type HttpReader struct {
	UserAgent string
	// MaxBytes caps the accepted body size. Zero means unlimited.
	MaxBytes   int64
	Client     *http.Client
	decorators []RequestDecorator
}

func WithUserAgent(userAgent string) HttpReaderOption {
	return func(r *HttpReader) {
		r.UserAgent = userAgent
	}
}

func WithClient(client *http.Client) HttpReaderOption {
	return func(r *HttpReader) {
		r.Client = client
	}
}

func WithMaxBytes(n int64) HttpReaderOption {
	return func(r *HttpReader) {
		r.MaxBytes = n
	}
}

func WithRequestDecorator(d RequestDecorator) HttpReaderOption {
	return func(r *HttpReader) {
		if d != nil {
			r.decorators = append(r.decorators, d)
		}
	}
}

// NewHttpReader creates a new HttpReader with the specified options.
func NewHttpReader(options ...HttpReaderOption) *HttpReader {
	r := &HttpReader{
		UserAgent: HttpReaderUserAgent,
		Client: &http.Client{
			Timeout:   defaults.HTTPClientTimeout,
			Transport: NewDefaultTransport(),
		},
	}
	for _, opt := range options {
		opt(r)
	}
	if r.Client == nil {
		r.Client = &http.Client{Timeout: defaults.HTTPClientTimeout, Transport: NewDefaultTransport()}
	}
	if r.UserAgent == "" {
		r.UserAgent = HttpReaderUserAgent
	}
	return r
}

// NewDefaultTransport returns a pooled transport with bounded dial, TLS and
// header timeouts. Callers may wrap it, e.g. for tracing.
func NewDefaultTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,

		MaxIdleConns:        HttpReaderDefaultMaxIdleConns,
		MaxIdleConnsPerHost: HttpReaderDefaultMaxIdleConnsPerHost,

		DialContext: (&net.Dialer{
			Timeout:   defaults.HTTPConnectTimeout,
			KeepAlive: defaults.HTTPKeepAlive,
		}).DialContext,
		TLSHandshakeTimeout:   defaults.HTTPTLSHandshakeTimeout,
		ResponseHeaderTimeout: defaults.HTTPResponseHeaderTimeout,
		ExpectContinueTimeout: 1 * time.Second,

		IdleConnTimeout:   defaults.HTTPIdleConnTimeout,
		ForceAttemptHTTP2: true,

		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
}

// ReadWithContext fetches url and returns its body. A non-200 response
// yields *HTTPStatusError; a body over MaxBytes yields ErrResponseTooLarge.
func (r *HttpReader) ReadWithContext(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("url is empty")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for url %s: %w", url, err)
	}
	if r.UserAgent != "" {
		req.Header.Set("User-Agent", r.UserAgent)
	}
	for _, d := range r.decorators {
		d(req)
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed for url %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, bodyExcerptBytes))
		return nil, &HTTPStatusError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(excerpt),
		}
	}

	body := io.Reader(resp.Body)
	if r.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, r.MaxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", url, err)
	}
	if r.MaxBytes > 0 && int64(len(data)) > r.MaxBytes {
		return nil, ErrResponseTooLarge
	}
	return data, nil
}
