package main

import (
	"fmt"

	"github.com/form3tech-oss/pact-recorder/internal/app/configuration"
	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the pacts written by previous runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}

		if err := configuration.CleanPacts(config.Dir()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", config.Dir())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}
