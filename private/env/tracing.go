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

import (
	"io"
	"net"
	"strconv"

	opentracing "github.com/opentracing/opentracing-go"
	jaeger "github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"

	"github.com/mpi-ncs/openoptics/private/config"
)

var _ config.Config = (*Tracing)(nil)

// Tracing is the [tracing] block.
type Tracing struct {
	config.NoValidator
	// Enabled turns on span reporting.
	Enabled bool `toml:"enabled,omitempty"`
	// Debug samples every trace instead of the remote sampler's choice.
	Debug bool `toml:"debug,omitempty"`
	// Agent is the UDP address of the local jaeger agent.
	Agent string `toml:"agent,omitempty"`
}

func (cfg *Tracing) InitDefaults() {
	if cfg.Agent != "" {
		return
	}
	cfg.Agent = net.JoinHostPort(jaeger.DefaultUDPSpanServerHost,
		strconv.Itoa(jaeger.DefaultUDPSpanServerPort))
}

func (cfg *Tracing) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, tracingSample)
}

func (cfg *Tracing) ConfigName() string {
	return "tracing"
}

// NewTracer returns a jaeger tracer reporting as service id. A disabled
// configuration yields a no-op tracer, so callers never need a nil check.
func (cfg *Tracing) NewTracer(id string) (opentracing.Tracer, io.Closer, error) {
	c := jaegercfg.Configuration{
		ServiceName: id,
		Disabled:    !cfg.Enabled,
		Reporter:    &jaegercfg.ReporterConfig{LocalAgentHostPort: cfg.Agent},
	}
	if cfg.Debug {
		c.Sampler = &jaegercfg.SamplerConfig{Type: jaeger.SamplerTypeConst, Param: 1}
	}
	propagator := jaeger.NewBinaryPropagator(nil)
	return c.NewTracer(
		jaegercfg.Injector(opentracing.Binary, propagator),
		jaegercfg.Extractor(opentracing.Binary, propagator),
	)
}
