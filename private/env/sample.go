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

package env

const generalSample = `
# Name of this switch instance in logs, metrics and traces. (required)
id = "%s"
`

const metricsSample = `
# Listen address of the Prometheus endpoint, served under /metrics.
# Leave empty to disable it. (default "")
prometheus = ""
`

const tracingSample = `
# Report spans to the jaeger agent. (default false)
enabled = false
# Sample every trace. (default false)
debug = false
# UDP address of the local jaeger agent. (default "localhost:6831")
agent = "localhost:6831"
`
