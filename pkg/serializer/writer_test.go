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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

type step struct {
	Name   string `json:"name" yaml:"name"`
	Status string `json:"status" yaml:"status"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

type result struct {
	RunID   string  `json:"runId" yaml:"runId"`
	Message string  `json:"message" yaml:"message"`
	Details string  `json:"details,omitempty" yaml:"details,omitempty"`
	Steps   []step  `json:"steps,omitempty" yaml:"steps,omitempty"`
	Secret  []byte  `json:"-" yaml:"-"`
	Report  *result `json:"report,omitempty" yaml:"report,omitempty"`
}

func sample() result {
	return result{
		RunID:   "r-1",
		Message: "Test failed",
		Details: "line one\nline two\n",
		Steps:   []step{{Name: "deployment", Status: "created"}},
		Secret:  []byte("hidden"),
	}
}

func TestWriter_Formats(t *testing.T) {
	tests := []struct {
		format Format
		check  func(t *testing.T, out string)
	}{
		{FormatJSON, func(t *testing.T, out string) {
			var got result
			if err := json.Unmarshal([]byte(out), &got); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if got.RunID != "r-1" || len(got.Steps) != 1 {
				t.Errorf("unexpected decode: %+v", got)
			}
		}},
		{FormatYAML, func(t *testing.T, out string) {
			var got result
			if err := yaml.Unmarshal([]byte(out), &got); err != nil {
				t.Fatalf("invalid YAML: %v", err)
			}
			if got.Message != "Test failed" {
				t.Errorf("message = %q", got.Message)
			}
		}},
		{FormatTable, func(t *testing.T, out string) {
			for _, want := range []string{"FIELD", "runId", "steps.[0].status", `line one\nline two`} {
				if !strings.Contains(out, want) {
					t.Errorf("table missing %q:\n%s", want, out)
				}
			}
			for _, unwanted := range []string{"Secret", "hidden", "report", "error"} {
				if strings.Contains(out, unwanted) {
					t.Errorf("table should not contain %q:\n%s", unwanted, out)
				}
			}
		}},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewWriter(tt.format, &buf).Serialize(context.Background(), sample()); err != nil {
				t.Fatalf("Serialize() error = %v", err)
			}
			tt.check(t, buf.String())
		})
	}
}

func TestWriter_UnknownFormatIsJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := NewWriter(Format("xml"), &buf).Serialize(context.Background(), map[string]int{"a": 1}); err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	if !json.Valid(buf.Bytes()) {
		t.Errorf("expected JSON fallback, got %s", buf.String())
	}
}

func TestMarshalTable_Empty(t *testing.T) {
	b, err := Marshal(FormatTable, struct{}{})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(b) != "<empty>\n" {
		t.Errorf("got %q", b)
	}
}

func TestNewFileWriterOrStdout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	w := NewFileWriterOrStdout(FormatYAML, path)
	if err := w.Serialize(context.Background(), sample()); err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), "runId: r-1") {
		t.Errorf("unexpected file content:\n%s", b)
	}

	if _, ok := NewFileWriterOrStdout(FormatJSON, "").(*Writer); !ok {
		t.Error("empty path should yield a stdout Writer")
	}
	if _, ok := NewFileWriterOrStdout(FormatJSON, "cm://ns/name").(*ConfigMapWriter); !ok {
		t.Error("cm:// path should yield a ConfigMapWriter")
	}
	if _, ok := NewFileWriterOrStdout(FormatJSON, "cm://bad").(*Writer); !ok {
		t.Error("malformed cm:// path should fall back to stdout")
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]Format{
		"config.yaml": FormatYAML,
		"CONFIG.YML":  FormatYAML,
		"config.json": FormatJSON,
		"out.txt":     FormatTable,
		"noext":       FormatJSON,
	}
	for path, want := range tests {
		if got := FormatFromPath(path); got != want {
			t.Errorf("FormatFromPath(%q) = %s, want %s", path, got, want)
		}
	}
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.yaml")
	if err := os.WriteFile(good, []byte("runId: r-9\nmessage: ok\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := FromFile[result](good)
	if err != nil {
		t.Fatalf("FromFile() error = %v", err)
	}
	if got.RunID != "r-9" {
		t.Errorf("runId = %q", got.RunID)
	}

	typo := filepath.Join(dir, "typo.yaml")
	if err := os.WriteFile(typo, []byte("runID: r-9\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := FromFile[result](typo); err == nil {
		t.Error("unknown YAML key should be rejected")
	}

	typoJSON := filepath.Join(dir, "typo.json")
	if err := os.WriteFile(typoJSON, []byte(`{"runID":"x"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := FromFile[result](typoJSON); err == nil {
		t.Error("unknown JSON key should be rejected")
	}

	empty := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := FromFile[result](empty); err != nil {
		t.Errorf("empty YAML should decode to zero value, got %v", err)
	}

	if _, err := FromFile[result](filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file should error")
	}
}

func TestRespondJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondJSON(rec, http.StatusAccepted, map[string]string{"status": "triggered"})

	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %s", ct)
	}

	rec = httptest.NewRecorder()
	RespondJSON(rec, http.StatusOK, map[string]any{"bad": make(chan int)})
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("unencodable data should yield 500, got %d", rec.Code)
	}
}
