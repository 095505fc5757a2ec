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
	"context"
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mpi-ncs/openoptics/pkg/log"
	"github.com/mpi-ncs/openoptics/pkg/private/serrors"
	"github.com/mpi-ncs/openoptics/private/config"
)

var _ config.Config = (*Metrics)(nil)

// Metrics is the [metrics] block.
type Metrics struct {
	config.NoValidator
	// Prometheus is the listen address of the /metrics endpoint. Empty
	// disables the endpoint.
	Prometheus string `toml:"prometheus,omitempty"`
}

func (cfg *Metrics) InitDefaults() {}

func (cfg *Metrics) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, metricsSample)
}

func (cfg *Metrics) ConfigName() string {
	return "metrics"
}

// ServePrometheus exposes the default registry on /metrics until ctx is done.
// Without a configured address it returns immediately.
func (cfg *Metrics) ServePrometheus(ctx context.Context) error {
	if cfg.Prometheus == "" {
		return nil
	}
	handler := promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		ErrorLog: promLogger{},
		Timeout:  HandlerTimeout,
	})
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.InstrumentMetricHandler(prometheus.DefaultRegisterer, handler))

	srv := &http.Server{
		Addr:        cfg.Prometheus,
		Handler:     mux,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	stop := context.AfterFunc(ctx, func() { srv.Close() })
	defer stop()

	log.Info("Serving Prometheus metrics", "addr", cfg.Prometheus)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return serrors.Wrap("serving Prometheus metrics", err, "addr", cfg.Prometheus)
	}
	return nil
}

// promLogger forwards promhttp errors to the root logger.
type promLogger struct{}

func (promLogger) Println(v ...any) {
	log.Error("Prometheus handler error", "err", v)
}
