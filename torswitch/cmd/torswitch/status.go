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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mpi-ncs/openoptics/pkg/private/serrors"
	"github.com/mpi-ncs/openoptics/private/app/command"
	"github.com/mpi-ncs/openoptics/torswitch"
	"github.com/mpi-ncs/openoptics/torswitch/mgmtapi"
)

type statusFlags struct {
	api     string
	timeout time.Duration
	json    bool
	noColor bool
}

func (f *statusFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.api, "api", "127.0.0.1:30400", "address of the management API")
	fs.DurationVar(&f.timeout, "timeout", 5*time.Second, "timeout for the request")
	fs.BoolVar(&f.json, "json", false, "write the raw device metric as JSON")
	fs.BoolVar(&f.noColor, "no-color", false, "disable colored output")
}

func newStatus(pather command.Pather) *cobra.Command {
	var flags statusFlags
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show queue depths and drop counters of a running switch",
		Example: fmt.Sprintf("  %[1]s status\n  %[1]s status --api 10.0.0.1:30400 --json",
			pather.CommandPath()),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), flags.timeout)
			defer cancel()
			m, err := fetchDeviceMetric(ctx, http.DefaultClient, flags.api)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if flags.json {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(m)
			}
			colored := !flags.noColor && isatty.IsTerminal(os.Stdout.Fd())
			renderStatus(out, m, colored)
			return nil
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

func fetchDeviceMetric(ctx context.Context, client *http.Client,
	addr string) (torswitch.DeviceMetric, error) {

	url := "http://" + addr + mgmtapi.BaseURL + "/metrics"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return torswitch.DeviceMetric{}, serrors.Wrap("creating request", err, "url", url)
	}
	rep, err := client.Do(req)
	if err != nil {
		return torswitch.DeviceMetric{}, serrors.Wrap("querying management API", err,
			"url", url)
	}
	defer rep.Body.Close()
	if rep.StatusCode != http.StatusOK {
		return torswitch.DeviceMetric{}, serrors.New("unexpected status",
			"url", url, "status", rep.Status)
	}
	var m torswitch.DeviceMetric
	if err := json.NewDecoder(rep.Body).Decode(&m); err != nil {
		return torswitch.DeviceMetric{}, serrors.Wrap("decoding device metric", err)
	}
	return m, nil
}

func renderStatus(w io.Writer, m torswitch.DeviceMetric, colored bool) {
	noColor := color.New()
	header := noColor
	busy := noColor
	bad := noColor
	if colored {
		header = color.New(color.FgHiBlack)
		busy = color.New(color.FgYellow)
		bad = color.New(color.FgRed)
	}
	// color disables itself on non-terminals, force the decision made here.
	for _, c := range []*color.Color{header, busy, bad} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	state := "active"
	if m.Paused {
		state = "paused"
	}
	header.Fprintf(w, "ToR %d, %s, slot %d (%s)\n", m.TorID, m.Mode, m.CurrentSlot, state)

	rows := make([][]string, 0, len(m.QueueDepths))
	for _, q := range m.QueueDepths {
		depth := strconv.Itoa(q.Depth)
		if q.Depth > 0 {
			depth = busy.Sprint(depth)
		}
		var drops uint64
		if int(q.Port) < len(m.Drops.PerPort) {
			drops = m.Drops.PerPort[q.Port]
		}
		dropStr := strconv.FormatUint(drops, 10)
		if drops > 0 {
			dropStr = bad.Sprint(dropStr)
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(q.Port), 10),
			strconv.Itoa(int(q.Queue)),
			depth,
			dropStr,
		})
	}
	table := newTable(w)
	table.SetHeader([]string{"PORT", "QUEUE", "DEPTH", "PORT DROPS"})
	table.AppendBulk(rows)
	table.Render()

	fmt.Fprintln(w)
	reasons := newTable(w)
	reasons.SetHeader([]string{"REASON", "DROPS"})
	for _, r := range sortedReasons(m.Drops.PerReason) {
		reasons.Append([]string{r, strconv.FormatUint(m.Drops.PerReason[r], 10)})
	}
	reasons.Append([]string{"total", strconv.FormatUint(m.DropCounter, 10)})
	reasons.Append([]string{"captured", strconv.FormatUint(m.Drops.Captured, 10)})
	reasons.Append([]string{"discarded", strconv.FormatUint(m.Drops.Discarded, 10)})
	reasons.Render()
}

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func sortedReasons(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
