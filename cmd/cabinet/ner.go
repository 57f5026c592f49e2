// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/cabinet/internal/ner"
	"github.com/pdiddy/cabinet/pkg/types"
)

var nerCmd = &cobra.Command{
	Use:   "ner <text>...",
	Short: "Recognize concepts in texts with the NER API",
	Long: `NER posts each text to the NER API and prints the recognized concepts as
JSON lines, one per text: {"index": i, "outputs": [...]}. With --ws the texts
are streamed over the websocket endpoint instead, one best match per text.

The API base URL follows MODE (PROD or DEV) unless ner.api_url is set. A bearer
token is read from .secrets/ner-api-token when present. --terminal-node limits
results to concepts at or below the given SNOMED CT identifier.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		useWS, _ := cmd.Flags().GetBool("ws")
		progress, _ := cmd.Flags().GetBool("progress")

		ncfg := cfg.NER
		if n, _ := cmd.Flags().GetInt("concurrency"); n > 0 {
			ncfg.Concurrency = n
		}
		client := ner.New(ncfg)
		client.TerminalNode, _ = cmd.Flags().GetString("terminal-node")
		if progress {
			client.Progress = os.Stderr
		}

		enc := json.NewEncoder(os.Stdout)
		if useWS {
			return client.Stream(cmd.Context(), args, func(res types.IndexedNER) error {
				return enc.Encode(res)
			})
		}

		results, err := client.PostMany(cmd.Context(), args)
		if err != nil {
			return err
		}
		for _, res := range results {
			if err := enc.Encode(res); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	nerCmd.Flags().Bool("ws", false, "stream texts over the websocket endpoint")
	nerCmd.Flags().Bool("progress", false, "print progress to stderr")
	nerCmd.Flags().String("terminal-node", "", "SNOMED CT identifier to restrict results under")
	nerCmd.Flags().Int("concurrency", 0, "maximum in-flight requests (0 = config default)")

	rootCmd.AddCommand(nerCmd)
}
