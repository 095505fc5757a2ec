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

// Package env holds the configuration blocks every switch binary shares:
// element identity, the Prometheus endpoint and tracing.
package env

import (
	"fmt"
	"io"
	"time"

	"github.com/mpi-ncs/openoptics/pkg/private/serrors"
	"github.com/mpi-ncs/openoptics/private/config"
)

const (
	// ShutdownGraceInterval bounds how long Main may take to return after the
	// shutdown signal.
	ShutdownGraceInterval = 5 * time.Second
	// HandlerTimeout bounds the time spent gathering metrics for one scrape.
	HandlerTimeout = time.Minute
)

var _ config.Config = (*General)(nil)

// General is the [general] block.
type General struct {
	// ID names the element in logs, metrics and traces.
	ID string `toml:"id,omitempty"`
}

func (cfg *General) InitDefaults() {}

func (cfg *General) Validate() error {
	if cfg.ID == "" {
		return serrors.New("general.id must be set")
	}
	return nil
}

func (cfg *General) Sample(dst io.Writer, _ config.Path, ctx config.CtxMap) {
	config.WriteString(dst, fmt.Sprintf(generalSample, ctx[config.ID]))
}

func (cfg *General) ConfigName() string {
	return "general"
}
