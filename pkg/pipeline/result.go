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

package pipeline

import (
	"github.com/NVIDIA/vetter/pkg/errors"
	"github.com/NVIDIA/vetter/pkg/promotion"
)

// State is a pipeline run state.
type State string

const (
	StateProvisioned State = "Provisioned"
	StateDeployed    State = "Deployed"
	StateClassified  State = "Classified"

	// Terminal states.
	StatePromoted        State = "Promoted"
	StatePromotionFailed State = "PromotionFailed"
	StateReportedFailure State = "ReportedFailure"
	StateAborted         State = "ProvisioningAborted"
)

// Status is the coarse result status.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Result is the structured answer for one run.
type Result struct {
	RunID            string            `json:"runId" yaml:"runId"`
	Status           Status            `json:"status" yaml:"status"`
	State            State             `json:"state" yaml:"state"`
	Message          string            `json:"message" yaml:"message"`
	Details          string            `json:"details,omitempty" yaml:"details,omitempty"`
	FixSuggestionRef string            `json:"fixSuggestionRef,omitempty" yaml:"fixSuggestionRef,omitempty"`
	Environment      string            `json:"environment" yaml:"environment"`
	ErrorCode        errors.ErrorCode  `json:"errorCode,omitempty" yaml:"errorCode,omitempty"`
	Promotion        *promotion.Report `json:"promotion,omitempty" yaml:"promotion,omitempty"`
}

// Succeeded reports whether the run promoted its artifact.
func (r *Result) Succeeded() bool {
	return r != nil && r.Status == StatusSuccess
}

func (r *Result) fail(err error, message string) {
	r.Status = StatusError
	r.Message = message
	r.Details = err.Error()
	r.ErrorCode = errors.CodeOf(err)
}
