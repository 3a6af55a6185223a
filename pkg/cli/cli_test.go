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

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/vetter/pkg/artifact"
	"github.com/NVIDIA/vetter/pkg/classifier"
)

func runRoot(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.Writer = &out
	root.ErrWriter = &bytes.Buffer{}
	root.Reader = strings.NewReader(stdin)
	err := root.Run(context.Background(), append([]string{name}, args...))
	return out.String(), err
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		log       string
		wantErr   bool
		verdict   classifier.Verdict
		signature string
	}{
		{name: "clean", log: "Hello, World!\n", verdict: classifier.VerdictSuccess},
		{
			name:      "undefined variable",
			log:       "Traceback (most recent call last):\nNameError: name 'undefined_variable' is not defined\n",
			wantErr:   true,
			verdict:   classifier.VerdictFailure,
			signature: "undefined_variable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name+" from stdin", func(t *testing.T) {
			out, err := runRoot(t, tt.log, "classify", "--format", "json")
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			var outcome classifier.Outcome
			require.NoError(t, json.Unmarshal([]byte(out), &outcome), out)
			assert.Equal(t, tt.verdict, outcome.Verdict)
			assert.Equal(t, tt.signature, outcome.Signature)
		})

		t.Run(tt.name+" from file", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "pod.log")
			require.NoError(t, os.WriteFile(path, []byte(tt.log), 0o600))

			out, err := runRoot(t, "", "classify", "--format", "json", path)
			assert.Equal(t, tt.wantErr, err != nil)

			var outcome classifier.Outcome
			require.NoError(t, json.Unmarshal([]byte(out), &outcome), out)
			assert.Equal(t, tt.verdict, outcome.Verdict)
		})
	}
}

func TestClassify_MissingFile(t *testing.T) {
	_, err := runRoot(t, "", "classify", filepath.Join(t.TempDir(), "missing.log"))
	require.Error(t, err)
}

func TestClassify_UnknownFormat(t *testing.T) {
	_, err := runRoot(t, "Hello, World!", "classify", "--format", "xml")
	require.Error(t, err)
}

func TestFixed(t *testing.T) {
	want, ok := artifact.Fixed("helloworld.py")
	require.True(t, ok)

	t.Run("stdout", func(t *testing.T) {
		out, err := runRoot(t, "", "fixed")
		require.NoError(t, err)
		assert.Equal(t, string(want.Content), out)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), want.FileName)
		_, err := runRoot(t, "", "fixed", "--output", path, "helloworld.py")
		require.NoError(t, err)

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, want.Content, got)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := runRoot(t, "", "fixed", "other.py")
		require.Error(t, err)
	})
}

func TestRun_RequiresFile(t *testing.T) {
	_, err := runRoot(t, "", "run")
	require.Error(t, err)

	_, err = runRoot(t, "", "run", filepath.Join(t.TempDir(), "helloworld.py"))
	require.Error(t, err, "unreadable file fails before connecting")
}

func TestRerun_RequiresName(t *testing.T) {
	_, err := runRoot(t, "", "rerun")
	require.Error(t, err)
}
