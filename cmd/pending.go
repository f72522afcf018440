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
	"log"
	"log/slog"
	"os"

	"github.com/rotblauer/fieldcat/api"
	"github.com/rotblauer/fieldcat/catdb/pending"
	"github.com/spf13/cobra"
)

var optPendingLimit int

// pendingCmd represents the pending command
var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Dump the pending delivery queue",
	Long: `Prints the fixes waiting for delivery, oldest first.

Examples:

  fieldcat pending --format yaml --limit 10
  fieldcat pending --pending-driver sqlite
`,
	Run: func(cmd *cobra.Command, args []string) {
		config, err := loadConfig()
		if err != nil {
			log.Fatalln(err)
		}
		store, err := pending.Open(config.Delivery.PendingDriver, api.PendingStorePath(config))
		if err != nil {
			log.Fatalln(err)
		}
		defer store.Close()

		records, err := store.List(context.Background(), optPendingLimit)
		if err != nil {
			log.Fatalln(err)
		}
		slog.Info("Pending records", "count", len(records))
		if err := writeFormatted(os.Stdout, optFormat, records); err != nil {
			log.Fatalln(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(pendingCmd)

	pFlags := pendingCmd.PersistentFlags()
	pFlags.IntVar(&optPendingLimit, "limit", 0, "max records to print; 0 prints all")
	pFlags.StringVar(&optFormat, "format", "json", "output format: json, yaml")
}
