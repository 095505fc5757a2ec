// Copyright 2020 Anapaya Systems
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

// Package launcher includes the shared application execution boilerplate of
// all switch binaries.
package launcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mpi-ncs/openoptics/pkg/log"
	"github.com/mpi-ncs/openoptics/pkg/private/prom"
	"github.com/mpi-ncs/openoptics/pkg/private/serrors"
	"github.com/mpi-ncs/openoptics/private/app/command"
	libconfig "github.com/mpi-ncs/openoptics/private/config"
	"github.com/mpi-ncs/openoptics/private/env"
)

// Configuration keys used by the launcher
const (
	cfgLogConsoleLevel           = "log.console.level"
	cfgLogConsoleFormat          = "log.console.format"
	cfgLogConsoleStacktraceLevel = "log.console.stacktrace_level"
	cfgGeneralID                 = "general.id"
	cfgConfigFile                = "config"
)

// Application models a switch application.
type Application struct {
	// TOMLConfig holds the Go data structure for the application-specific
	// TOML configuration.
	TOMLConfig libconfig.Config

	// ShortName is the short name of the application. If empty, the executable name is used.
	ShortName string

	// Commands returns additional subcommands to register on the root
	// command. The argument is the root command itself.
	Commands func(command.Pather) []*cobra.Command

	// Main is the custom logic of the application. If nil, no custom logic is executed
	// (and only the setup/teardown harness runs). If Main returns an error, the
	// Run method will return a non-zero exit code.
	Main func(ctx context.Context) error

	// ErrorWriter specifies where error output should be printed. If nil, os.Stderr is used.
	ErrorWriter io.Writer

	// config contains the Viper configuration KV store.
	config *viper.Viper
}

// Run sets up the common server harness, and then passes control to the Main
// function (if one exists).
//
// Run uses the following globals:
//
//	os.Args
//
// Run will exit the application if it encounters a fatal error.
func (a *Application) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := a.run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(a.getErrorWriter(), "fatal error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func (a *Application) run(ctx context.Context, args []string) error {
	executable := filepath.Base(os.Args[0])
	shortName := a.getShortName(executable)

	cmd := newCommandTemplate(executable, shortName, a.TOMLConfig)
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return a.executeCommand(cmd.Context(), shortName)
	}
	if a.Commands != nil {
		cmd.AddCommand(a.Commands(cmd)...)
	}
	a.config = viper.New()
	a.config.SetDefault(cfgLogConsoleLevel, log.DefaultConsoleLevel)
	a.config.SetDefault(cfgLogConsoleFormat, "human")
	a.config.SetDefault(cfgLogConsoleStacktraceLevel, log.DefaultStacktraceLevel)
	a.config.SetDefault(cfgGeneralID, executable)
	// The configuration file location is specified through command-line flags.
	// Once the comand-line flags are parsed, we register the location of the
	// config file with the viper config.
	if err := a.config.BindPFlag(cfgConfigFile, cmd.Flags().Lookup(cfgConfigFile)); err != nil {
		return err
	}
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func (a *Application) getShortName(executable string) string {
	if a.ShortName != "" {
		return a.ShortName
	}
	return executable
}

func (a *Application) executeCommand(ctx context.Context, shortName string) error {
	os.Setenv("TZ", "UTC")

	// Load launcher configurations from the same config file as the custom
	// application configuration.
	file := a.config.GetString(cfgConfigFile)
	a.config.SetConfigType("toml")
	a.config.SetConfigFile(file)
	if err := a.config.ReadInConfig(); err != nil {
		return serrors.Wrap("loading generic server config from file", err, "file", file)
	}
	if err := libconfig.LoadFile(file, a.TOMLConfig); err != nil {
		return serrors.Wrap("loading config from file", err, "file", file)
	}
	a.TOMLConfig.InitDefaults()

	logEntriesTotal := prom.NewCounterVec("", "log_emitted_entries_total",
		"Total number of log entries emitted.", []string{"level"})
	opt := log.WithEntriesCounter(log.EntriesCounter{
		Debug: logEntriesTotal.With(prometheus.Labels{"level": "debug"}),
		Info:  logEntriesTotal.With(prometheus.Labels{"level": "info"}),
		Error: logEntriesTotal.With(prometheus.Labels{"level": "error"}),
	})
	if err := log.Setup(a.getLogging(), opt); err != nil {
		return serrors.Wrap("initialize logging", err)
	}
	defer log.Flush()
	id := a.config.GetString(cfgGeneralID)
	env.LogAppStarted(shortName, id)
	defer env.LogAppStopped(shortName, id)
	defer log.HandlePanic()

	exportBuildInfo()
	prom.ExportElementID(id)
	if err := a.TOMLConfig.Validate(); err != nil {
		return serrors.Wrap("validate config", err)
	}
	if digest, err := libconfig.Digest(a.TOMLConfig); err == nil {
		log.Debug("Configuration loaded", "digest", fmt.Sprintf("%x", digest))
	}

	if a.Main == nil {
		return nil
	}
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer log.HandlePanic()
		select {
		case <-done:
			return
		case <-ctx.Done():
		}
		// If the main goroutine shuts down everything in time, this won't get
		// a chance to fire.
		timer := time.NewTimer(env.ShutdownGraceInterval)
		defer timer.Stop()
		select {
		case <-done:
		case <-timer.C:
			panic("Main goroutine did not shut down in time. It's probably stuck. " +
				"Forcing shutdown.")
		}
	}()
	return a.Main(ctx)
}

func (a *Application) getLogging() log.Config {
	return log.Config{
		Console: log.ConsoleConfig{
			Level:           a.config.GetString(cfgLogConsoleLevel),
			Format:          a.config.GetString(cfgLogConsoleFormat),
			StacktraceLevel: a.config.GetString(cfgLogConsoleStacktraceLevel),
		},
	}
}

func (a *Application) getErrorWriter() io.Writer {
	if a.ErrorWriter != nil {
		return a.ErrorWriter
	}
	return os.Stderr
}

func newCommandTemplate(executable, shortName string, config libconfig.Sampler) *cobra.Command {
	cmd := &cobra.Command{
		Use:           executable,
		Short:         shortName,
		Example:       fmt.Sprintf("  %s --config %s", executable, "config.toml"),
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
	}
	cmd.AddCommand(
		command.NewSample(cmd, config, libconfig.CtxMap{libconfig.ID: executable}),
		command.NewVersion(cmd),
	)
	cmd.Flags().String(cfgConfigFile, "", "Configuration file (required)")
	cmd.MarkFlagRequired(cfgConfigFile)
	return cmd
}

func exportBuildInfo() {
	version, revision := command.BuildInfo()
	prom.NewGaugeVec("", "build_info", "Build information of the running binary.",
		[]string{"version", "revision"}).WithLabelValues(version, revision).Set(1)
}
