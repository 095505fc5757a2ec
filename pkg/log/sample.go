// Copyright 2019 Anapaya Systems
// Copyright 2025 OpenOptics Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

const loggingConsoleSample = `
# Console logging level (debug|info|error) (default info)
level = "info"

# Console logging format (human|json) (default human)
format = "human"

# Level from which stack traces are included (debug|info|error|none) (default none)
stacktrace_level = "none"

# Disable caller annotation of log entries. (default false)
disable_caller = false
`
