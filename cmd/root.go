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
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/rotblauer/fieldcat/params"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fieldcat",
	Short: "Fuse, assess and deliver device location fixes",
	Long: `fieldcat turns raw location fixes into fused, trust-assessed results
and delivers them to a backend, queueing them durably while it is unreachable.

Every flag can also be set with a FIELDCAT_ environment variable,
e.g. FIELDCAT_BACKEND_URL, or in a config file (--config).
A .env file in the working directory is loaded first.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setDefaultSlog(cmd, args)
		return bindConfig(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := params.DefaultConfig()
	pFlags := rootCmd.PersistentFlags()
	pFlags.StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	pFlags.Int("verbosity", int(slog.LevelInfo), "slog level; -4 debug, 0 info, 4 warn, 8 error")
	pFlags.Bool("log-json", false, "log as JSON")

	pFlags.String("datadir", defaults.DataDir, "data directory")
	pFlags.String("device-id", "", "device id (default: generated and persisted in the datadir)")
	pFlags.String("transport", defaults.Delivery.Transport, "delivery transport: http, nats, mqtt")
	pFlags.String("backend-url", defaults.Delivery.BackendURL, "backend base URL, nats server or mqtt broker")
	pFlags.String("subject", defaults.Delivery.Subject, "nats subject or mqtt topic")
	pFlags.String("stream", defaults.Delivery.Stream, "JetStream stream name")
	pFlags.String("token", "", "shared secret sent to the http backend (also read by webd's sink)")
	pFlags.String("pending-driver", defaults.Delivery.PendingDriver, "pending queue driver: bolt, sqlite")
	pFlags.Duration("timeout", defaults.Delivery.Timeout, "delivery timeout")
	pFlags.Int("telemetry-ring", defaults.Telemetry.RingSize, "in-memory telemetry window")
	pFlags.Bool("telemetry-disabled", defaults.Telemetry.Disabled, "do not keep a durable metrics log")
}

// initConfig reads in .env, config file and ENV variables if set.
func initConfig() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env", "error", err)
	}
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Expand("~/.fieldcat")
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("fieldcat")
	}
	viper.SetEnvPrefix("FIELDCAT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		slog.Info("Using config file", "file", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		slog.Error("Failed to read config file", "file", cfgFile, "error", err)
	}
}

func bindConfig(cmd *cobra.Command) error {
	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err == nil {
			err = viper.BindPFlag(f.Name, f)
		}
	})
	return err
}

// loadConfig assembles the pipeline configuration from defaults, flags, env and config file.
func loadConfig() (*params.Config, error) {
	c := params.DefaultConfig()
	setString := func(key string, target *string) {
		if viper.IsSet(key) {
			*target = viper.GetString(key)
		}
	}
	setString("datadir", &c.DataDir)
	setString("device-id", &c.DeviceID)
	setString("transport", &c.Delivery.Transport)
	setString("backend-url", &c.Delivery.BackendURL)
	setString("subject", &c.Delivery.Subject)
	setString("stream", &c.Delivery.Stream)
	setString("token", &c.Delivery.Token)
	setString("pending-driver", &c.Delivery.PendingDriver)
	if viper.IsSet("timeout") {
		c.Delivery.Timeout = viper.GetDuration("timeout")
	}
	if viper.IsSet("telemetry-ring") {
		c.Telemetry.RingSize = viper.GetInt("telemetry-ring")
	}
	if viper.IsSet("telemetry-disabled") {
		c.Telemetry.Disabled = viper.GetBool("telemetry-disabled")
	}
	if dir, err := homedir.Expand(c.DataDir); err == nil {
		c.DataDir = dir
	}

	// Component tunables are only settable from a config file.
	for key, target := range map[string]any{
		"detector":  &c.Detector,
		"fusion":    &c.Fusion,
		"predictor": &c.Predictor,
		"trust":     &c.Trust,
	} {
		if !viper.IsSet(key) {
			continue
		}
		if err := viper.UnmarshalKey(key, target); err != nil {
			return nil, fmt.Errorf("config %s: %w", key, err)
		}
	}
	if err := os.MkdirAll(c.DataDir, 0770); err != nil {
		return nil, err
	}
	return c, nil
}

func setDefaultSlog(cmd *cobra.Command, args []string) {
	verbosity, _ := cmd.Flags().GetInt("verbosity")
	asJSON, _ := cmd.Flags().GetBool("log-json")
	opts := &slog.HandlerOptions{Level: slog.Level(verbosity)}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if asJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
