// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/cabinet/internal/knowledge"
)

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Convert CUIs, traverse the SNOMED CT tree, and query the index",
	Long: `Knowledge works on the generated package data. Conversion and traversal
subcommands load the data directly; index, lookup, and export use the SQLite
store under the index directory.`,
}

// loadKnowledge reads the package data from the configured data directory.
func loadKnowledge() (*knowledge.Knowledge, error) {
	return knowledge.Load(cfg.Knowledge.DataDir)
}

// printList writes one item per line, or a JSON array with --json.
func printList(cmd *cobra.Command, items []string) error {
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		if items == nil {
			items = []string{}
		}
		return json.NewEncoder(os.Stdout).Encode(items)
	}
	for _, item := range items {
		fmt.Println(item)
	}
	return nil
}

// --- conversion and traversal ---

var knowledgeConvertCmd = &cobra.Command{
	Use:   "convert <cui>...",
	Short: "Print the SNOMED CT identifier for each CUI",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kb, err := loadKnowledge()
		if err != nil {
			return err
		}
		missing := 0
		for _, cui := range args {
			sctid, ok := kb.Convert(cui)
			if !ok {
				log.WithField("cui", cui).Warn("no SNOMED CT mapping")
				missing++
				continue
			}
			fmt.Printf("%s\t%s\n", cui, sctid)
		}
		if missing == len(args) {
			return knowledge.ErrNotFound
		}
		return nil
	},
}

// traversal builds a subcommand that prints the result of fn for one SCTID.
func traversal(use, short string, fn func(*knowledge.Knowledge, string) []string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <sctid>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kb, err := loadKnowledge()
			if err != nil {
				return err
			}
			if !kb.Contains(args[0]) {
				return fmt.Errorf("%w: %s", knowledge.ErrNotFound, args[0])
			}
			return printList(cmd, fn(kb, args[0]))
		},
	}
	cmd.Flags().Bool("json", false, "output as a JSON array")
	return cmd
}

var knowledgePathCmd = &cobra.Command{
	Use:   "path <sctid>",
	Short: "Print every path from the root to a concept",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sep, _ := cmd.Flags().GetString("sep")
		names, _ := cmd.Flags().GetBool("names")

		kb, err := loadKnowledge()
		if err != nil {
			return err
		}
		if !kb.Contains(args[0]) {
			return fmt.Errorf("%w: %s", knowledge.ErrNotFound, args[0])
		}

		var lines []string
		for _, path := range kb.PathsToRoot(args[0]) {
			lines = append(lines, kb.FormatPath(path, sep, names))
		}
		return printList(cmd, lines)
	},
}

var knowledgeCommonCmd = &cobra.Command{
	Use:   "common <sctid> <sctid>",
	Short: "Print the lowest common ancestors of two concepts",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kb, err := loadKnowledge()
		if err != nil {
			return err
		}
		for _, sctid := range args {
			if !kb.Contains(sctid) {
				return fmt.Errorf("%w: %s", knowledge.ErrNotFound, sctid)
			}
		}
		return printList(cmd, kb.CommonAncestors(args[0], args[1]))
	},
}

// --- store subcommands ---

func openStore(cmd *cobra.Command) (*knowledge.Store, error) {
	kcfg := cfg.Knowledge
	if n, _ := cmd.Flags().GetInt("max-results"); n > 0 {
		kcfg.MaxResults = n
	}
	return knowledge.NewStore(kcfg)
}

var knowledgeIndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Load the package data into the SQLite store",
	Long: `Index loads the CUI map, concept names, and SNOMED CT tree into SQLite
with a full-text index over concept names. Units whose files have not changed
since the last run are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		_, err = store.Index(cmd.Context(), os.Stdout)
		return err
	},
}

var knowledgeLookupCmd = &cobra.Command{
	Use:   "lookup [term]",
	Short: "Search indexed concepts by name, CUI, or SNOMED CT identifier",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := lookupOptsFromFlags(cmd, args)
		if opts.IsEmpty() {
			return fmt.Errorf("query or filter required: provide a search term, --cui, or --sctid")
		}

		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		results, err := store.Lookup(cmd.Context(), opts)
		if err != nil {
			return err
		}

		jsonOutput, _ := cmd.Flags().GetBool("json")
		return formatLookupOutput(results, jsonOutput)
	},
}

func formatLookupOutput(results []knowledge.Concept, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-10s  %-18s  %-40s  %s\n", "Rank", "CUI", "SCTID", "Name", "Parents")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))
	for i, c := range results {
		name := c.Name
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-10s  %-18s  %-40s  %s\n",
			i+1, c.CUI, c.SCTID, name, strings.Join(c.Parents, ","))
	}
	fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
	return nil
}

var knowledgeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export indexed concepts to YAML or JSON",
	Long: `Export writes the indexed concepts (or a filtered subset) to export.yaml or
export.json in the index directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		opts := lookupOptsFromFlags(cmd, args)

		var path string
		switch format {
		case "yaml", "":
			path, err = store.ExportYAML(cmd.Context(), opts)
		case "json":
			path, err = store.ExportJSON(cmd.Context(), opts)
		default:
			return fmt.Errorf("unsupported format %q: use yaml or json", format)
		}
		if err != nil {
			return err
		}
		fmt.Println("Exported to", path)
		return nil
	},
}

func lookupOptsFromFlags(cmd *cobra.Command, args []string) knowledge.LookupOptions {
	query, _ := cmd.Flags().GetString("query")
	if query == "" && len(args) > 0 {
		query = strings.Join(args, " ")
	}
	cui, _ := cmd.Flags().GetString("cui")
	sctid, _ := cmd.Flags().GetString("sctid")
	limit, _ := cmd.Flags().GetInt("limit")

	return knowledge.LookupOptions{
		Query:      query,
		CUI:        cui,
		SCTID:      sctid,
		MaxResults: limit,
	}
}

func init() {
	knowledgeCmd.PersistentFlags().Int("max-results", 0, "maximum number of lookup results (0 = config default)")

	knowledgePathCmd.Flags().String("sep", "/", "separator between concepts in a path")
	knowledgePathCmd.Flags().Bool("names", false, "show preferred terms instead of identifiers")
	knowledgePathCmd.Flags().Bool("json", false, "output as a JSON array")
	knowledgeCommonCmd.Flags().Bool("json", false, "output as a JSON array")

	for _, cmd := range []*cobra.Command{knowledgeLookupCmd, knowledgeExportCmd} {
		cmd.Flags().String("query", "", "full-text search over concept names")
		cmd.Flags().String("cui", "", "filter by CUI")
		cmd.Flags().String("sctid", "", "filter by SNOMED CT identifier")
		cmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	}
	knowledgeLookupCmd.Flags().Bool("json", false, "output results as JSON")
	knowledgeExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	knowledgeCmd.AddCommand(knowledgeConvertCmd)
	knowledgeCmd.AddCommand(traversal("parents", "Print the direct is-a parents of a concept",
		func(kb *knowledge.Knowledge, sctid string) []string {
			parents, _ := kb.Parents(sctid)
			return parents
		}))
	knowledgeCmd.AddCommand(traversal("children", "Print the direct is-a children of a concept",
		(*knowledge.Knowledge).Children))
	knowledgeCmd.AddCommand(traversal("ancestors", "Print every ancestor of a concept",
		(*knowledge.Knowledge).Ancestors))
	knowledgeCmd.AddCommand(traversal("descendants", "Print every descendant of a concept",
		(*knowledge.Knowledge).Descendants))
	knowledgeCmd.AddCommand(knowledgePathCmd)
	knowledgeCmd.AddCommand(knowledgeCommonCmd)
	knowledgeCmd.AddCommand(knowledgeIndexCmd)
	knowledgeCmd.AddCommand(knowledgeLookupCmd)
	knowledgeCmd.AddCommand(knowledgeExportCmd)

	rootCmd.AddCommand(knowledgeCmd)
}
