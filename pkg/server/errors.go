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
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/NVIDIA/vetter/pkg/errors"
	"github.com/NVIDIA/vetter/pkg/serializer"
)

// ErrorResponse is the body of every non-pipeline error reply.
type ErrorResponse struct {
	Code      errors.ErrorCode `json:"code"`
	Message   string           `json:"message"`
	Details   map[string]any   `json:"details,omitempty"`
	RequestID string           `json:"requestId"`
	Timestamp time.Time        `json:"timestamp"`
	Retryable bool             `json:"retryable"`
}

// WriteError writes an ErrorResponse with statusCode.
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int,
	code errors.ErrorCode, message string, retryable bool, details map[string]any) {

	requestID := RequestID(r.Context())
	if requestID == "" {
		requestID = uuid.New().String()
	}

	serializer.RespondJSON(w, statusCode, ErrorResponse{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Retryable: retryable,
	})
}

// writeErr maps err onto an HTTP status by its code and writes it.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.CodeOf(err)
	status, retryable := httpStatus(code)

	message := err.Error()
	var details map[string]any
	if se, ok := err.(*errors.StructuredError); ok {
		message = se.Message
		details = se.Context
	}
	WriteError(w, r, status, code, message, retryable, details)
}

func httpStatus(code errors.ErrorCode) (status int, retryable bool) {
	switch code {
	case errors.ErrCodeInvalidRequest:
		return http.StatusBadRequest, false
	case errors.ErrCodeUnauthorized:
		return http.StatusUnauthorized, false
	case errors.ErrCodeNotFound:
		return http.StatusNotFound, false
	case errors.ErrCodeMethodNotAllowed:
		return http.StatusMethodNotAllowed, false
	case errors.ErrCodeConflict:
		return http.StatusConflict, false
	case errors.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests, true
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout, true
	case errors.ErrCodeUnavailable, errors.ErrCodeProvisioning, errors.ErrCodeFetch:
		return http.StatusServiceUnavailable, true
	default:
		return http.StatusInternalServerError, false
	}
}
