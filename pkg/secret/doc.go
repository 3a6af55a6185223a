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

// Package secret resolves the named secrets vetter needs at startup.
//
// Names use the dashed form (CLUSTER-NAME, SOURCE-HOST, SOURCE-USER,
// SOURCE-TOKEN, WEBHOOK-SECRET). The env provider maps them to variables such
// as CLUSTER_NAME; the kubernetes provider reads keys of one Secret object;
// chain tries env first and falls back to the Secret.
//
// Resolve is the single place credentials are read:
//
//	creds, err := secret.Resolve(ctx, provider)
//	if err != nil {
//	    return err // missing CLUSTER-NAME or SOURCE-HOST
//	}
package secret
