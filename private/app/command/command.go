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

// Package command contains helpers shared by the cobra command trees of the
// switch binaries.
package command

import (
	"fmt"
	"io"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/mpi-ncs/openoptics/private/config"
)

// Pather returns the command path of the parent command. It is used to render
// examples that include the full invocation.
type Pather interface {
	CommandPath() string
}

// NewSample creates a sample command that writes the sample configuration of
// the given sampler to stdout.
func NewSample(pather Pather, sampler config.Sampler, ctx config.CtxMap) *cobra.Command {
	return &cobra.Command{
		Use:   "sample",
		Short: "Display a sample configuration file",
		Example: fmt.Sprintf("  %[1]s sample > config.toml",
			pather.CommandPath()),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sampler.Sample(cmd.OutOrStdout(), nil, ctx)
			return nil
		},
	}
}

// NewVersion creates a command that prints the build information.
func NewVersion(pather Pather) *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Show the version information",
		Example: fmt.Sprintf("  %[1]s version", pather.CommandPath()),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			WriteVersion(cmd.OutOrStdout())
			return nil
		},
	}
}

// WriteVersion writes the module version and VCS revision to w.
func WriteVersion(w io.Writer) {
	version, revision := BuildInfo()
	fmt.Fprintf(w, "Version:  %s\nRevision: %s\n", version, revision)
}

// BuildInfo returns the main module version and the VCS revision embedded by
// the go toolchain. Unknown values are reported as "unknown".
func BuildInfo() (version, revision string) {
	version, revision = "unknown", "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version, revision
	}
	if info.Main.Version != "" {
		version = info.Main.Version
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			revision = s.Value
		}
	}
	return version, revision
}
