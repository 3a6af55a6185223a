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

// Package cli implements vetterctl, the command line client of the vetter
// pipeline.
//
// # Commands
//
// run - Validate and promote a local script:
//
//	vetterctl run helloworld.py --format json
//
// Stores the file, executes it in a fresh validation namespace and promotes
// it to production when its output is clean. The run Result is printed and the
// exit code is non-zero when the run did not promote.
//
// rerun - Run the stored copy of an artifact again:
//
//	vetterctl rerun helloworld.py
//
// trigger - Fetch the artifact from source control and run it:
//
//	vetterctl trigger --ref refs/heads/main
//
// classify - Classify a captured pod log without a cluster:
//
//	kubectl logs -n helloworld-0123456789abcdef helloworld-test | vetterctl classify
//
// fixed - Write the known-good version of an artifact:
//
//	vetterctl fixed helloworld.py -o helloworld_fixed.py
//
// reap - Delete validation namespaces older than a TTL:
//
//	vetterctl reap --ttl 2h
//
// preflight - Check RBAC for every pipeline action:
//
//	vetterctl preflight --format table
//
// # Global Flags
//
//	--config, -c   Config file (env VETTER_CONFIG)
//	--log-level    Log level: debug, info, warn, error (env LOG_LEVEL)
//
// Commands that print results also accept --output/-o (file path or
// cm://namespace/name) and --format/-t (yaml, json, table).
package cli
