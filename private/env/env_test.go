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

package env_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpi-ncs/openoptics/private/config"
	"github.com/mpi-ncs/openoptics/private/env"
)

func TestGeneralSample(t *testing.T) {
	var sample bytes.Buffer
	var cfg env.General
	cfg.Sample(&sample, nil, config.CtxMap{config.ID: "tor0"})
	require.NoError(t, config.Decode(sample.Bytes(), &cfg))
	assert.Equal(t, "tor0", cfg.ID)
	assert.NoError(t, cfg.Validate())
	assert.Error(t, (&env.General{}).Validate())
}

func TestMetricsSample(t *testing.T) {
	var sample bytes.Buffer
	var cfg env.Metrics
	cfg.Sample(&sample, nil, nil)
	require.NoError(t, config.Decode(sample.Bytes(), &cfg))
	assert.Empty(t, cfg.Prometheus)
	// No address configured, nothing is served.
	assert.NoError(t, cfg.ServePrometheus(context.Background()))
}

func TestTracingSample(t *testing.T) {
	var sample bytes.Buffer
	var cfg env.Tracing
	cfg.Sample(&sample, nil, nil)
	require.NoError(t, config.Decode(sample.Bytes(), &cfg))
	defaulted := env.Tracing{}
	defaulted.InitDefaults()
	assert.Equal(t, defaulted.Agent, cfg.Agent)
	assert.False(t, cfg.Enabled)

	tracer, closer, err := cfg.NewTracer("tor0")
	require.NoError(t, err)
	assert.NotNil(t, tracer)
	assert.NoError(t, closer.Close())
}
