// Copyright 2021 Anapaya Systems
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

// Package testlog routes log output of the code under test to the test's own
// output, so it is only shown for failing or verbose tests.
package testlog

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/mpi-ncs/openoptics/pkg/log"
)

// NewLogger returns a Logger writing to t at debug level unless opts say
// otherwise.
func NewLogger(t testing.TB, opts ...zaptest.LoggerOption) log.Logger {
	return log.FromZap(zaptest.NewLogger(t, opts...))
}

// SetupGlobal points the package-level log functions at t until the test ends.
func SetupGlobal(t testing.TB) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t)))
}
