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

package server

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/NVIDIA/vetter/pkg/artifact"
	"github.com/NVIDIA/vetter/pkg/errors"
)

// handleFixed handles GET /api/fixed/{name}: download the known-good
// version of an artifact. The legacy route serves the expected artifact.
func (s *Server) handleFixed(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		name = s.runner.ExpectedName()
	}

	fixed, ok := artifact.Fixed(name)
	if !ok {
		WriteError(w, r, http.StatusNotFound, errors.ErrCodeNotFound,
			"No fixed version available", false, map[string]any{"name": name})
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": fixed.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(fixed.Content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(fixed.Content)
}
