// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/cabinet/internal/metamap"
	"github.com/pdiddy/cabinet/pkg/types"
)

var metamapCmd = &cobra.Command{
	Use:   "metamap <text>...",
	Short: "Run texts through a local MetaMap install",
	Long: `MetaMap starts the SKR/MedPost tagger and WSD servers of the public_mm
install at metamap.location when they are not already running, then runs every
text through MetaMap in parallel.

With --format mmi the fielded MMI lines are printed, or parsed records with
--parse. With --format json the raw MetaMap JSON is printed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		workers, _ := cmd.Flags().GetInt("workers")
		parse, _ := cmd.Flags().GetBool("parse")

		mcfg := cfg.MetaMap
		if loc, _ := cmd.Flags().GetString("location"); loc != "" {
			mcfg.Location = loc
		}
		if mcfg.Location == "" {
			return fmt.Errorf("metamap location required: set metamap.location or --location")
		}

		runner, err := metamap.New(mcfg, log)
		if err != nil {
			return err
		}
		if err := runner.Initialize(cmd.Context()); err != nil {
			return err
		}

		mmFormat := types.MetaMapFormat(strings.ToLower(format))
		outputs, err := runner.RunMany(cmd.Context(), args, mmFormat, workers)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		for _, out := range outputs {
			switch {
			case out.Format == types.FormatJSON:
				fmt.Println(strings.TrimSpace(out.Raw))
			case parse:
				records, err := metamap.ParseMMILines(out.Lines)
				if err != nil {
					return fmt.Errorf("text %d: %w", out.Index, err)
				}
				if err := enc.Encode(map[string]any{"index": out.Index, "records": records}); err != nil {
					return err
				}
			default:
				for _, line := range out.Lines {
					fmt.Println(line)
				}
			}
		}
		return nil
	},
}

func init() {
	metamapCmd.Flags().String("format", string(types.FormatMMI), "output format: mmi or json")
	metamapCmd.Flags().Int("workers", 0, "parallel MetaMap processes (0 = config default)")
	metamapCmd.Flags().Bool("parse", false, "print parsed MMI records as JSON lines")
	metamapCmd.Flags().String("location", "", "path to the public_mm directory")

	rootCmd.AddCommand(metamapCmd)
}
