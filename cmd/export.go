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
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/rotblauer/fieldcat/app"
	"github.com/rotblauer/fieldcat/conceptual"
	"github.com/rotblauer/fieldcat/metrics/influxdb"
	"github.com/rotblauer/fieldcat/params"
	"github.com/spf13/cobra"
)

var optExportBatchSize int

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the durable metrics log to InfluxDB",
	Long: `Writes every metric in the durable log to InfluxDB as fieldcat_pass points.

The InfluxDB connection is read from INFLUXDB_URL, INFLUXDB_TOKEN, INFLUXDB_ORG
and INFLUXDB_BUCKET.

Examples:

  INFLUXDB_URL=http://localhost:8086 INFLUXDB_BUCKET=fieldcat fieldcat export --since 168h
`,
	Run: func(cmd *cobra.Command, args []string) {
		config, err := loadConfig()
		if err != nil {
			log.Fatalln(err)
		}
		device, err := app.LoadDevice(config.DataDir, conceptual.DeviceID(config.DeviceID))
		if err != nil {
			log.Fatalln(err)
		}
		ms, err := readMetrics(config, optSince)
		if err != nil {
			log.Fatalln(err)
		}
		influx := params.DefaultInfluxConfig()
		for start := 0; start < len(ms); start += optExportBatchSize {
			end := min(start+optExportBatchSize, len(ms))
			if err := influxdb.ExportMetrics(influx, device.ID, ms[start:end]); err != nil {
				log.Fatalln(err)
			}
			slog.Info("Exported metrics", "done", humanize.Comma(int64(end)), "of", humanize.Comma(int64(len(ms))))
		}
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	pFlags := exportCmd.PersistentFlags()
	pFlags.DurationVar(&optSince, "since", 0, "only metrics newer than this; 0 exports all")
	pFlags.IntVar(&optExportBatchSize, "batch-size", 1_000, "metrics per write batch")
}
