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
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/rotblauer/fieldcat/params"
	"github.com/rotblauer/fieldcat/telemetry"
	"github.com/spf13/cobra"
)

var optSince time.Duration

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the durable metrics log",
	Long: `Prints accuracy improvement and processing time statistics over the
durable metrics log, overall and per movement context.

Examples:

  fieldcat stats --since 24h --format yaml
`,
	Run: func(cmd *cobra.Command, args []string) {
		config, err := loadConfig()
		if err != nil {
			log.Fatalln(err)
		}
		ms, err := readMetrics(config, optSince)
		if err != nil {
			log.Fatalln(err)
		}
		out := struct {
			Count      int                `json:"count" yaml:"count"`
			Statistics map[string]float64 `json:"statistics" yaml:"statistics"`
		}{len(ms), telemetry.Summarize(ms)}
		if err := writeFormatted(os.Stdout, optFormat, out); err != nil {
			log.Fatalln(err)
		}
	},
}

// readMetrics loads the durable metrics log, optionally only entries newer than since.
func readMetrics(config *params.Config, since time.Duration) ([]telemetry.Metric, error) {
	cfg := config.Telemetry
	cfg.Disabled = false
	rec := telemetry.Open(filepath.Join(config.DataDir, params.TelemetryDBName), cfg)
	defer rec.Close()

	var cutoff time.Time
	if since > 0 {
		cutoff = time.Now().Add(-since)
	}
	var ms []telemetry.Metric
	err := rec.Scan(func(m telemetry.Metric) bool {
		if m.Timestamp.Before(cutoff) {
			return true
		}
		ms = append(ms, m)
		return true
	})
	return ms, err
}

func init() {
	rootCmd.AddCommand(statsCmd)

	pFlags := statsCmd.PersistentFlags()
	pFlags.DurationVar(&optSince, "since", 0, "only metrics newer than this; 0 reads all")
	pFlags.StringVar(&optFormat, "format", "json", "output format: json, yaml")
}
