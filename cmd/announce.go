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

	"github.com/rotblauer/fieldcat/app"
	"github.com/rotblauer/fieldcat/backend"
	"github.com/rotblauer/fieldcat/conceptual"
	"github.com/spf13/cobra"
)

// announceCmd represents the announce command
var announceCmd = &cobra.Command{
	Use:   "announce",
	Short: "Register this device with the http backend",
	Long:  `Posts the device id to {backend-url}/devices, retrying with a fixed backoff.`,
	Run: func(cmd *cobra.Command, args []string) {
		config, err := loadConfig()
		if err != nil {
			log.Fatalln(err)
		}
		device, err := app.LoadDevice(config.DataDir, conceptual.DeviceID(config.DeviceID))
		if err != nil {
			log.Fatalln(err)
		}
		client := backend.NewHTTPClient(config.Delivery)
		defer client.Close()
		if err := client.Announce(context.Background(), device.ID); err != nil {
			log.Fatalln(err)
		}
		slog.Info("Announced device", "device", device.ID)
	},
}

func init() {
	rootCmd.AddCommand(announceCmd)
}
