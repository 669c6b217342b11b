package main

import (
	"fmt"

	"github.com/form3tech-oss/pact-recorder/internal/app/contract"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and the pact specification written",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (pact specification %s)\n",
			contract.ClientName, contract.ClientVersion, contract.SpecificationVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
