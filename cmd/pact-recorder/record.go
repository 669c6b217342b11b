package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/form3tech-oss/pact-recorder/internal/app/contract"
	"github.com/form3tech-oss/pact-recorder/internal/app/pactrecorder"
	"github.com/form3tech-oss/pact-recorder/internal/app/storage"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	captureFile       string
	description       string
	alias             string
	matchingRulesFile string
	consumerName      string
	providerName      string
	extraBlocklist    []string
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Merge one captured exchange into the pact of PACT_DIR",
	Long: `record builds an interaction from a capture file, the JSON a test runner observed for one
request and its response, and merges it into the pact for the configured consumer and provider.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}
		if consumerName != "" {
			config.ConsumerName = consumerName
		}
		if providerName != "" {
			config.ProviderName = providerName
		}

		document, key, err := recordCapture(cmd.Context(), config)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "recorded '%s' into %s (%d interactions)\n",
			contract.Describe(description, alias), key, interactionCount(document))
		return nil
	},
}

func recordCapture(ctx context.Context, config pactrecorder.Config) ([]byte, string, error) {
	data, err := os.ReadFile(captureFile)
	if err != nil {
		return nil, "", errors.Wrap(err, "read capture")
	}
	capture, err := contract.ParseCapture(data)
	if err != nil {
		return nil, "", err
	}

	var rules contract.MatchingRules
	if matchingRulesFile != "" {
		data, err := os.ReadFile(matchingRulesFile)
		if err != nil {
			return nil, "", errors.Wrap(err, "read matching rules")
		}
		if err := json.Unmarshal(data, &rules); err != nil {
			return nil, "", errors.Wrap(err, "parse matching rules")
		}
	}

	interaction, err := contract.BuildInteraction(
		capture,
		contract.Describe(description, alias),
		config.Blocklist().With(extraBlocklist...),
		rules,
	)
	if err != nil {
		return nil, "", err
	}

	identity := config.Identity()
	recorder := pactrecorder.NewRecorder(storage.NewFileStore(config.Dir()))
	document, err := recorder.Record(ctx, interaction, identity)
	if err != nil {
		return nil, "", err
	}
	return document, contract.DocumentKey(identity), nil
}

func interactionCount(document []byte) int {
	parsed, err := contract.ParseDocument(document)
	if err != nil {
		return 0
	}
	return len(parsed.Interactions)
}

func init() {
	recordCmd.Flags().StringVar(&captureFile, "capture", "", "JSON file holding the captured request and response")
	recordCmd.Flags().StringVar(&description, "description", "", "Test title the interaction is named after")
	recordCmd.Flags().StringVar(&alias, "alias", "", "Capture alias appended to the description")
	recordCmd.Flags().StringVar(&matchingRulesFile, "matching-rules", "", "JSON file of pact v2 response matching rules")
	recordCmd.Flags().StringVar(&consumerName, "consumer", "", "Consumer name, defaults to CONSUMER_NAME")
	recordCmd.Flags().StringVar(&providerName, "provider", "", "Provider name, defaults to PROVIDER_NAME")
	recordCmd.Flags().StringSliceVar(&extraBlocklist, "blocklist", nil, "Additional headers to leave out")
	_ = recordCmd.MarkFlagRequired("capture")
	_ = recordCmd.MarkFlagRequired("description")
	rootCmd.AddCommand(recordCmd)
}
