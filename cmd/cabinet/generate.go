// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/cabinet/internal/generate"
	"github.com/pdiddy/cabinet/internal/pkgdata"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Build or remove the terminology package data",
	Long: `Generate builds the xz-compressed package data from licensed source files:
the CUI to SNOMED CT map from UMLS MRCONSO.RRF and the SNOMED CT is-a tree from
an RF2 relationship snapshot. Output goes to --out (default: the data dir).`,
}

var generateCUIMapCmd = &cobra.Command{
	Use:   "cui-map <MRCONSO.RRF>",
	Short: "Build cui_to_snomed.xz and concept_names.xz",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := generate.CUIMapFile(cmd.Context(), args[0], outputDir(cmd), os.Stdout)
		if err != nil {
			return err
		}
		fmt.Printf("lines: %d, kept: %d, skipped: %d, short: %d\n",
			stats.Lines, stats.Kept, stats.Skipped, stats.Short)
		return nil
	},
}

var generateTreeCmd = &cobra.Command{
	Use:   "tree <sct2_Relationship_Snapshot.txt>",
	Short: "Build snomed_tree.xz",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := generate.TreeFile(cmd.Context(), args[0], outputDir(cmd), os.Stdout)
		if err != nil {
			return err
		}
		fmt.Printf("lines: %d, kept: %d, skipped: %d, short: %d\n",
			stats.Lines, stats.Kept, stats.Skipped, stats.Short)
		return nil
	},
}

var generateCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove generated package data",
	RunE: func(cmd *cobra.Command, args []string) error {
		removed, err := pkgdata.Clean(outputDir(cmd))
		for _, name := range removed {
			fmt.Println("removed", name)
		}
		return err
	},
}

func outputDir(cmd *cobra.Command) string {
	if out, _ := cmd.Flags().GetString("out"); out != "" {
		return out
	}
	return cfg.Generate.OutputDir
}

func init() {
	generateCmd.PersistentFlags().String("out", "", "output directory for package data")

	generateCmd.AddCommand(generateCUIMapCmd)
	generateCmd.AddCommand(generateTreeCmd)
	generateCmd.AddCommand(generateCleanCmd)

	rootCmd.AddCommand(generateCmd)
}
