// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/text/encoding/charmap"

	"github.com/pdiddy/cabinet/internal/stimulant"
)

var stimulantCmd = &cobra.Command{
	Use:   "stimulant",
	Short: "Search free text for stimulant signals",
}

var stimulantCDCCmd = &cobra.Command{
	Use:   "cdc <input.csv>",
	Short: "Run the CDC stimulant algorithm over a CSV column",
	Long: `CDC reads a CSV file, runs the CDC stimulant search over --column, and
writes the records with a signal column appended to --out (default stdout).
With --trace the step results and per-term match counts are appended too.

Patterns come from --patterns, a YAML or JSON file with codes, inclusion1,
inclusion2, exclusion, crack, crack_pairs, rum, and coke term lists.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patternsPath, _ := cmd.Flags().GetString("patterns")
		column, _ := cmd.Flags().GetString("column")
		outPath, _ := cmd.Flags().GetString("out")
		tracing, _ := cmd.Flags().GetBool("trace")
		latin1, _ := cmd.Flags().GetBool("latin1")

		patterns, err := stimulant.LoadPatterns(patternsPath)
		if err != nil {
			return err
		}
		cdc, err := stimulant.NewCDC(patterns)
		if err != nil {
			return err
		}

		in, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[0], err)
		}
		defer in.Close()

		var src io.Reader = in
		if latin1 {
			src = charmap.ISO8859_1.NewDecoder().Reader(in)
		}

		var out io.Writer = os.Stdout
		if outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("creating %s: %w", outPath, err)
			}
			defer f.Close()
			out = f
		}

		summary, err := cdc.SearchCSV(cmd.Context(), src, out, column, tracing)
		if err != nil {
			return err
		}
		log.WithField("rows", summary.Rows).WithField("signals", summary.Signals).Info("stimulant search done")
		return nil
	},
}

func init() {
	stimulantCDCCmd.Flags().String("patterns", "", "pattern file (YAML or JSON)")
	stimulantCDCCmd.Flags().String("column", "text", "CSV column holding the free text")
	stimulantCDCCmd.Flags().String("out", "", "output CSV file (default stdout)")
	stimulantCDCCmd.Flags().Bool("trace", false, "append step results and term counts")
	stimulantCDCCmd.Flags().Bool("latin1", false, "decode the input as ISO-8859-1")
	_ = stimulantCDCCmd.MarkFlagRequired("patterns")

	stimulantCmd.AddCommand(stimulantCDCCmd)
	rootCmd.AddCommand(stimulantCmd)
}
