package main

import (
	"context"
	"os"

	"github.com/form3tech-oss/pact-recorder/internal/app/configuration"
	"github.com/form3tech-oss/pact-recorder/internal/app/pactrecorder"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string
	logJSON    bool
	process    configuration.Process
)

var rootCmd = &cobra.Command{
	Use:   "pact-recorder",
	Short: "Records consumer pacts from the HTTP traffic of UI tests",
	Long: `pact-recorder sits between a UI under test and its provider, or receives captures from a
browser test runner, and writes each named exchange to a pact file. Re-running a test updates
its interaction in place.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("log-level") && process.LogLevel != "" {
			logLevel = process.LogLevel
		}
		if !cmd.Flags().Changed("log-json") {
			logJSON = process.LogJSON
		}
		return configuration.ConfigureLogging(logLevel, logJSON)
	},
}

func Execute() {
	var err error
	process, err = configuration.NewProcessFromEnv()
	if err != nil {
		log.Fatal(err)
	}

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the environment, then the --config file on top of it.
func loadConfig() (pactrecorder.Config, error) {
	config, err := configuration.NewFromEnv()
	if err != nil {
		return config, err
	}

	if configFile != "" {
		if err := configuration.LoadFile(configFile, &config); err != nil {
			return config, errors.Wrap(err, "load config")
		}
	}
	return config, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML file overriding the environment configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log as JSON")
}
