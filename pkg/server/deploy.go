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
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/NVIDIA/vetter/pkg/errors"
	"github.com/NVIDIA/vetter/pkg/pipeline"
	"github.com/NVIDIA/vetter/pkg/serializer"
)

// uploadField is the multipart form field carrying the artifact.
const uploadField = "file"

// multipartOverhead allows for boundaries and part headers around the file.
const multipartOverhead = 64 << 10

// handleDeploy handles POST /api/deploy: store, validate and promote an
// uploaded artifact. The reply is the run Result; 200 when promoted and 500
// otherwise.
func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes+multipartOverhead)

	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		s.writeUploadError(w, r, err)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, errors.ErrCodeInvalidRequest,
			"No file provided", false, map[string]any{"field": uploadField})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, s.config.MaxUploadBytes+1))
	if err != nil {
		s.writeUploadError(w, r, err)
		return
	}
	if int64(len(content)) > s.config.MaxUploadBytes {
		s.writeUploadError(w, r, &http.MaxBytesError{Limit: s.config.MaxUploadBytes})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.DeployTimeout)
	defer cancel()

	res, err := s.runner.Submit(ctx, header.Filename, content)
	s.writeResult(w, r, res, err)
}

// handleRerun handles POST /api/rerun/{name}: run the stored artifact again.
func (s *Server) handleRerun(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.config.DeployTimeout)
	defer cancel()

	res, err := s.runner.Rerun(ctx, r.PathValue("name"))
	s.writeResult(w, r, res, err)
}

func (s *Server) writeResult(w http.ResponseWriter, r *http.Request, res *pipeline.Result, err error) {
	if err != nil {
		slog.Warn("run not started", "requestID", RequestID(r.Context()), "error", err)
		writeErr(w, r, err)
		return
	}

	slog.Info("run finished",
		"requestID", RequestID(r.Context()),
		"runID", res.RunID,
		"state", res.State,
		"environment", res.Environment,
	)

	status := http.StatusOK
	if !res.Succeeded() {
		status = http.StatusInternalServerError
	}
	serializer.RespondJSON(w, status, res)
}

func (s *Server) writeUploadError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		WriteError(w, r, http.StatusRequestEntityTooLarge, errors.ErrCodeInvalidRequest,
			"File too large", false, map[string]any{"limit": s.config.MaxUploadBytes})
		return
	}
	WriteError(w, r, http.StatusBadRequest, errors.ErrCodeInvalidRequest,
		"Invalid upload", false, map[string]any{"error": err.Error()})
}
