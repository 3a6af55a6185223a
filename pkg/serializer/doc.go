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

// Package serializer encodes command output and HTTP responses.
//
// Output formats are JSON, YAML and a flattened FIELD/VALUE table whose keys
// follow the JSON field names:
//
//	w := serializer.NewFileWriterOrStdout(serializer.FormatYAML, path)
//	defer w.Close()
//	if err := w.Serialize(ctx, result); err != nil {
//		return err
//	}
//
// A path of the form cm://namespace/name stores the output in a ConfigMap
// through server-side apply, which lets an in-cluster job leave its run
// result where operators can read it with kubectl.
//
// FromFile decodes JSON or YAML configuration files, rejecting unknown keys.
// RespondJSON writes HTTP responses without partial bodies on encoding
// failure.
package serializer
