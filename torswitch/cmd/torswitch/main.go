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

package main

import (
	"context"
	"errors"
	"net/http"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mpi-ncs/openoptics/pkg/log"
	"github.com/mpi-ncs/openoptics/pkg/private/serrors"
	"github.com/mpi-ncs/openoptics/private/app/command"
	"github.com/mpi-ncs/openoptics/private/app/launcher"
	"github.com/mpi-ncs/openoptics/torswitch"
	"github.com/mpi-ncs/openoptics/torswitch/capture"
	"github.com/mpi-ncs/openoptics/torswitch/classify"
	"github.com/mpi-ncs/openoptics/torswitch/config"
	"github.com/mpi-ncs/openoptics/torswitch/mgmtapi"
	"github.com/mpi-ncs/openoptics/torswitch/pkt"
	"github.com/mpi-ncs/openoptics/torswitch/underlay"
)

var globalCfg config.Config

func main() {
	application := launcher.Application{
		TOMLConfig: &globalCfg,
		ShortName:  "OpenOptics ToR Switch",
		Commands: func(p command.Pather) []*cobra.Command {
			return []*cobra.Command{newStatus(p)}
		},
		Main: realMain,
	}
	application.Run()
}

func realMain(ctx context.Context) error {
	tracer, trCloser, err := globalCfg.Tracing.NewTracer(globalCfg.General.ID)
	if err != nil {
		return serrors.Wrap("creating tracer", err)
	}
	defer trCloser.Close()
	opentracing.SetGlobalTracer(tracer)

	id := globalCfg.Identity()
	metrics := torswitch.NewMetrics()
	opts := []torswitch.Option{torswitch.WithMetrics(metrics)}

	var pcap *capture.Writer
	if globalCfg.Capture.Path != "" && !id.HasDropPortQueue() {
		if pcap, err = capture.Create(globalCfg.Capture.Path, globalCfg.Capture.SnapLen); err != nil {
			return err
		}
		defer pcap.Close()
		opts = append(opts, torswitch.WithCaptureSink(pcap))
		log.Info("Capturing redirected packets", "path", globalCfg.Capture.Path)
	}
	sw, err := torswitch.New(id, opts...)
	if err != nil {
		return serrors.Wrap("creating switch", err)
	}
	defer sw.Close()

	g, errCtx := errgroup.WithContext(ctx)

	var tx torswitch.Transmitter = torswitch.TransmitterFunc(
		func(uint32, *pkt.Packet) error { return nil },
	)
	if globalCfg.Underlay.Listen != "" {
		conn, err := underlay.Listen(globalCfg.Underlay.ListenAddr(), underlay.Config{
			SendBufferSize:    globalCfg.Underlay.SendBufferSize,
			ReceiveBufferSize: globalCfg.Underlay.ReceiveBufferSize,
		})
		if err != nil {
			return err
		}
		egress, err := underlay.NewEgress(conn, globalCfg.Underlay.Peers)
		if err != nil {
			conn.Close()
			return err
		}
		tx = egress
		cls, err := classify.New(
			globalCfg.Underlay.ClassifierRoutes(id.NbPorts), id.NbPriorityQueues)
		if err != nil {
			conn.Close()
			return serrors.Wrap("creating classifier", err)
		}
		ingress := &underlay.Ingress{
			Conn:       conn,
			Classifier: cls,
			Switch:     sw,
			BatchSize:  globalCfg.Underlay.BatchSize,
			Metrics:    underlay.NewIngressMetrics(),
		}
		g.Go(func() error {
			defer log.HandlePanic()
			return ingress.Run(errCtx)
		})
	} else {
		log.Info("No underlay configured, data plane disabled")
	}

	scheduler := &torswitch.Scheduler{
		Switch:      sw,
		Transmitter: tx,
		Metrics:     metrics,
		Logger:      log.New("component", "scheduler"),
	}
	g.Go(func() error {
		defer log.HandlePanic()
		if err := scheduler.Run(errCtx); err != nil {
			return serrors.Wrap("running scheduler", err)
		}
		return nil
	})

	if globalCfg.API.Addr != "" {
		server := mgmtapi.Server{
			Device:     sw,
			Calendar:   sw.Calendar(),
			Controller: scheduler,
			LogLevel:   log.ConsoleLevel,
		}
		log.Info("Exposing API", "addr", globalCfg.API.Addr)
		mgmtServer := &http.Server{
			Addr:    globalCfg.API.Addr,
			Handler: server.Handler(),
		}
		g.Go(func() error {
			defer log.HandlePanic()
			<-errCtx.Done()
			return mgmtServer.Close()
		})
		g.Go(func() error {
			defer log.HandlePanic()
			err := mgmtServer.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return serrors.Wrap("serving management API", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		defer log.HandlePanic()
		return globalCfg.Metrics.ServePrometheus(errCtx)
	})
	return g.Wait()
}
