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
	"os"

	"github.com/rotblauer/fieldcat/api"
	"github.com/rotblauer/fieldcat/common"
	"github.com/spf13/cobra"
)

// drainCmd represents the drain command
var drainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Deliver the pending queue once",
	Long: `Checks the backend is reachable and delivers every pending fix, oldest first.
Delivered fixes are removed from the queue; fixes the backend rejects stay queued.
Exits non-zero when the backend is unreachable.`,
	Run: func(cmd *cobra.Command, args []string) {
		config, err := loadConfig()
		if err != nil {
			log.Fatalln(err)
		}
		agent, err := api.Open(config, api.Options{})
		if err != nil {
			log.Fatalln(err)
		}
		defer agent.Close()

		ctx, cancel := common.WithInterrupt(context.Background())
		defer cancel()

		report, err := agent.Drain(ctx)
		if werr := writeFormatted(os.Stdout, "json", report); werr != nil {
			log.Println(werr)
		}
		if err != nil {
			agent.Close()
			log.Fatalln(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(drainCmd)
}
