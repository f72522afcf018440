/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"os"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/rotblauer/fieldcat/api"
	"github.com/rotblauer/fieldcat/common"
	"github.com/rotblauer/fieldcat/conceptual"
	"github.com/rotblauer/fieldcat/params"
	"github.com/rotblauer/fieldcat/stream"
	"github.com/spf13/cobra"
)

var optRouteID string
var optBattery float64
var optLatestOnly bool
var optPrint bool

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline over raw fixes from stdin",
	Long: `Raw fixes are decoded from stdin as JSON lines, JSON arrays or GeoJSON
and each one runs a pipeline pass followed by a delivery attempt.

Flags:

  --latest-only  Trigger passes without waiting for the previous one.
                 A fix arriving while another waits replaces it, like a live device would.
  --print        Print each fused result to stdout as a JSON line.

Examples:

  cat fixes.ndjson | fieldcat run --backend-url http://localhost:3000 --print
`,
	Run: func(cmd *cobra.Command, args []string) {
		config, err := loadConfig()
		if err != nil {
			log.Fatalln(err)
		}
		opts := api.Options{}
		if optBattery >= 0 {
			opts.Battery = api.StaticBattery(optBattery)
		}
		agent, err := api.Open(config, opts)
		if err != nil {
			log.Fatalln(err)
		}
		defer func() {
			if err := agent.Close(); err != nil {
				slog.Error("Failed to close agent", "error", err)
			}
		}()

		ctx, cancel := common.WithInterrupt(context.Background())
		defer cancel()
		go func() {
			if err := agent.RunSensors(ctx); err != nil && ctx.Err() == nil {
				slog.Error("Sensor loop failed", "error", err)
			}
		}()

		enc := json.NewEncoder(os.Stdout)
		var printMu sync.Mutex
		done := make(chan struct{}, 1)
		counts := map[api.Outcome]int{}

		sched := api.NewScheduler(agent)
		sched.OnResult = func(r api.JobResult) {
			printMu.Lock()
			counts[r.Outcome]++
			if optPrint && r.Err == nil {
				if err := enc.Encode(r.Result); err != nil {
					slog.Error("Failed to print result", "error", err)
				}
			}
			printMu.Unlock()
			if !optLatestOnly {
				select {
				case done <- struct{}{}:
				default:
				}
			}
		}
		schedDone := make(chan struct{})
		go func() {
			defer close(schedDone)
			_ = sched.Run(ctx)
		}()

		fixes, errs := stream.Fixes(ctx, os.Stdin, params.DefaultStdinMeterInterval)
		n := 0
		for f := range fixes {
			n++
			sched.Trigger(api.Job{
				Reading: api.Reading{Fix: f},
				RouteID: conceptual.RouteID(optRouteID),
			})
			if !optLatestOnly {
				select {
				case <-done:
				case <-ctx.Done():
				}
			}
		}
		if err := <-errs; err != nil {
			slog.Error("Failed to read fixes", "error", err)
		}
		// Run flushes a trigger still waiting in the slot before it returns.
		cancel()
		<-schedDone

		printMu.Lock()
		defer printMu.Unlock()
		slog.Info("Run done",
			"read", humanize.Comma(int64(n)),
			"delivered", counts[api.OutcomeDelivered],
			"queued", counts[api.OutcomeQueued],
			"dropped", counts[api.OutcomeDropped],
			"replaced", sched.Dropped())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	pFlags := runCmd.PersistentFlags()
	pFlags.StringVar(&optRouteID, "route-id", "", "route id attached to delivered fixes")
	pFlags.Float64Var(&optBattery, "battery", -1, "static battery level (0..1) reported with fixes; negative omits it")
	pFlags.BoolVar(&optLatestOnly, "latest-only", false, "do not wait for each pass; newer fixes replace waiting ones")
	pFlags.BoolVar(&optPrint, "print", false, "print fused results as JSON lines")
}
