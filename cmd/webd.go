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

	"github.com/rotblauer/fieldcat/api"
	"github.com/rotblauer/fieldcat/common"
	"github.com/rotblauer/fieldcat/daemon/webd"
	"github.com/rotblauer/fieldcat/params"
	"github.com/spf13/cobra"
)

var optHTTPAddr string
var optSinkOnly bool

// webdCmd represents the serve command
var webdCmd = &cobra.Command{
	Use:   "webd",
	Short: "Start the webserver",
	Long: `Serves the pipeline over HTTP: raw fixes posted to /fixes run a pass and
are delivered, and /last, /stats, /pending, /metrics and /socket expose its state.

POST /locations is a reference backend sink, so one daemon can deliver to another
(or to itself). With --sink-only no pipeline is opened and only the sink is useful.

Set FIELDCAT_TOKEN to require a token on the write routes.`,
	Run: func(cmd *cobra.Command, args []string) {
		slog.Info("webd.Run")
		config, err := loadConfig()
		if err != nil {
			log.Fatalln(err)
		}

		var agent *api.Agent
		if !optSinkOnly {
			agent, err = api.Open(config, api.Options{})
			if err != nil {
				log.Fatalln(err)
			}
			defer func() {
				if err := agent.Close(); err != nil {
					slog.Error("Failed to close agent", "error", err)
				}
			}()
		}

		daemonConfig := params.DefaultWebDaemonConfig()
		daemonConfig.DataDir = config.DataDir
		daemonConfig.Address = optHTTPAddr
		server, err := webd.NewWebDaemon(daemonConfig, agent)
		if err != nil {
			log.Fatalln(err)
		}

		ctx, cancel := common.WithInterrupt(context.Background())
		defer cancel()
		if agent != nil {
			go func() {
				if err := agent.RunSensors(ctx); err != nil && ctx.Err() == nil {
					slog.Error("Sensor loop failed", "error", err)
				}
			}()
		}

		if err := server.Run(ctx); err != nil {
			slog.Error("Web daemon failed", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(webdCmd)

	defaults := params.DefaultWebDaemonConfig()

	pFlags := webdCmd.PersistentFlags()
	pFlags.StringVar(&optHTTPAddr, "address", defaults.Address, "HTTP address to listen on")
	pFlags.BoolVar(&optSinkOnly, "sink-only", false, "serve only the backend sink, without a pipeline")
}
