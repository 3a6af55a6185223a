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

// Package logging provides structured logging utilities for vetter components.
//
// # Overview
//
// This package wraps the standard library slog package with vetter defaults
// so the API server and the CLI emit the same JSON records. Every record
// carries the module and version that produced it, and debug records include
// the source location.
//
// # Log Levels
//
// Supported log levels (case-insensitive):
//   - DEBUG: Detailed diagnostic information with source location
//   - INFO: General informational messages (default)
//   - WARN/WARNING: Warning messages for potentially problematic situations
//   - ERROR: Error messages for failures requiring attention
//
// # Usage
//
// Setting the default logger early in main():
//
//	func main() {
//	    logging.SetDefaultStructuredLogger("vetterd", version)
//	    slog.Info("run finished", "state", result.State, "environment", env)
//	}
//
// Setting an explicit level (CLI --log-level):
//
//	logging.SetDefaultStructuredLoggerWithLevel("vetterctl", version, "debug")
//
// # Environment Configuration
//
// The LOG_LEVEL environment variable controls verbosity when no explicit
// level is given:
//
//	LOG_LEVEL=debug vetterd
//
// # Output Format
//
//	{
//	    "time": "2025-01-15T10:30:00.123Z",
//	    "level": "INFO",
//	    "msg": "environment provisioned",
//	    "module": "vetterd",
//	    "version": "v1.0.0",
//	    "environment": "helloworld-8f2c4e1a9b3d7c60"
//	}
package logging
