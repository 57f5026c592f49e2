// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/cabinet/internal/normalize"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Normalize tabular values",
}

var normalizeAgeCmd = &cobra.Command{
	Use:   "age <age>...",
	Short: "Print the age bucket for each age",
	Long: `Age maps each age in years to one of the buckets ` + fmt.Sprint(normalize.AgeBuckets) + `.
Invalid ages are reported and skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		failed := 0
		for _, arg := range args {
			bucket, err := normalize.CategorizeAgeString(arg)
			if err != nil {
				log.WithError(err).WithField("age", arg).Warn("skipping age")
				failed++
				continue
			}
			fmt.Printf("%s\t%s\n", arg, bucket)
		}
		if failed > 0 {
			return fmt.Errorf("%d invalid age(s)", failed)
		}
		return nil
	},
}

func init() {
	normalizeCmd.AddCommand(normalizeAgeCmd)
	rootCmd.AddCommand(normalizeCmd)
}
