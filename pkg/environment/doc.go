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

// Package environment provisions and reaps the ephemeral namespaces that
// isolate validation runs.
//
// Every run gets a fresh ID of the form prefix + 16 hex characters drawn from
// crypto/rand. Namespaces are labelled so the Reaper can find validation
// environments without touching production.
package environment
