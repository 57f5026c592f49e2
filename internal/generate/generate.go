// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package generate builds the terminology package data from licensed source
// files: the CUI to SNOMED CT map from the UMLS MRCONSO.RRF concept file and
// the SNOMED CT is-a tree from an RF2 relationship snapshot.
package generate

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/cabinet/internal/pkgdata"
	"github.com/pdiddy/cabinet/pkg/types"
)

// MRCONSO.RRF column positions.
const (
	colCUI  = 0
	colTS   = 2
	colSTT  = 4
	colPREF = 6
	colSAB  = 11
	colTTY  = 12
	colCODE = 13
	colSTR  = 14

	mrconsoFields = 15
)

// RF2 relationship snapshot column positions.
const (
	colActive      = 2
	colSourceID    = 4
	colDestination = 5
	colTypeID      = 7

	relationshipFields = 8
)

const sabSnomedUS = "SNOMEDCT_US"

// maxLine bounds a single source line. MRCONSO strings can be long.
const maxLine = 1 << 20

// Stats counts how the lines of a source file were handled.
type Stats struct {
	Lines   int
	Kept    int
	Skipped int
	Short   int
}

// CUIMapResult is the output of BuildCUIMap.
type CUIMapResult struct {
	Map   types.ConceptMap
	Names types.ConceptNames
	Stats Stats
}

// keepConcept reports whether an MRCONSO row is the preferred, fully
// specified SNOMED CT US term for its concept.
func keepConcept(parts []string) bool {
	return parts[colSAB] == sabSnomedUS &&
		parts[colPREF] == "Y" &&
		parts[colTS] == "P" &&
		parts[colTTY] == "PT" &&
		parts[colSTT] == "PF"
}

// BuildCUIMap reads MRCONSO.RRF rows from r and maps each kept CUI to its
// SNOMED CT code. A later row for the same CUI overwrites an earlier one.
func BuildCUIMap(ctx context.Context, r io.Reader) (CUIMapResult, error) {
	res := CUIMapResult{
		Map:   make(types.ConceptMap),
		Names: make(types.ConceptNames),
	}

	err := scanLines(ctx, r, func(line string) {
		res.Stats.Lines++
		parts := strings.Split(line, "|")
		if len(parts) < mrconsoFields {
			res.Stats.Short++
			return
		}
		if !keepConcept(parts) {
			res.Stats.Skipped++
			return
		}
		res.Map[parts[colCUI]] = parts[colCODE]
		res.Names[parts[colCUI]] = parts[colSTR]
		res.Stats.Kept++
	})
	if err != nil {
		return res, fmt.Errorf("reading MRCONSO rows: %w", err)
	}
	return res, nil
}

// TreeResult is the output of BuildTree.
type TreeResult struct {
	Tree  types.SnomedTree
	Stats Stats
}

// BuildTree reads RF2 relationship rows from r and records every active is-a
// relationship as child (sourceId) -> parent (destinationId). The header row
// is dropped by the active filter.
func BuildTree(ctx context.Context, r io.Reader) (TreeResult, error) {
	res := TreeResult{Tree: make(types.SnomedTree)}

	err := scanLines(ctx, r, func(line string) {
		res.Stats.Lines++
		parts := strings.Split(strings.TrimRight(line, "\r"), "\t")
		if len(parts) < relationshipFields {
			res.Stats.Short++
			return
		}
		if parts[colActive] != "1" || parts[colTypeID] != types.IsARelationship {
			res.Stats.Skipped++
			return
		}
		res.Tree.Add(parts[colSourceID], parts[colDestination])
		res.Stats.Kept++
	})
	if err != nil {
		return res, fmt.Errorf("reading relationship rows: %w", err)
	}
	return res, nil
}

func scanLines(ctx context.Context, r io.Reader, fn func(line string)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	for n := 0; sc.Scan(); n++ {
		if n%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		line := sc.Text()
		if line == "" {
			continue
		}
		fn(line)
	}
	return sc.Err()
}

// CUIMapFile builds the CUI map from the MRCONSO.RRF file at src and writes
// cui_to_snomed.xz and concept_names.xz into outDir.
func CUIMapFile(ctx context.Context, src, outDir string, w io.Writer) (Stats, error) {
	f, err := os.Open(src)
	if err != nil {
		return Stats{}, fmt.Errorf("opening %s: %w", src, err)
	}
	defer f.Close()

	fmt.Fprintf(w, "making map from %s\n", src)
	res, err := BuildCUIMap(ctx, f)
	if err != nil {
		return res.Stats, err
	}

	mapPath := filepath.Join(outDir, pkgdata.CUIMapFile)
	if err := pkgdata.WriteJSON(mapPath, res.Map); err != nil {
		return res.Stats, err
	}
	fmt.Fprintf(w, "wrote %s (%d concepts)\n", mapPath, len(res.Map))

	namesPath := filepath.Join(outDir, pkgdata.ConceptNamesFile)
	if err := pkgdata.WriteJSON(namesPath, res.Names); err != nil {
		return res.Stats, err
	}
	fmt.Fprintf(w, "wrote %s\n", namesPath)

	return res.Stats, nil
}

// TreeFile builds the SNOMED CT tree from the RF2 relationship snapshot at
// src and writes snomed_tree.xz into outDir.
func TreeFile(ctx context.Context, src, outDir string, w io.Writer) (Stats, error) {
	f, err := os.Open(src)
	if err != nil {
		return Stats{}, fmt.Errorf("opening %s: %w", src, err)
	}
	defer f.Close()

	fmt.Fprintf(w, "making tree from %s\n", src)
	res, err := BuildTree(ctx, f)
	if err != nil {
		return res.Stats, err
	}

	treePath := filepath.Join(outDir, pkgdata.SnomedTreeFile)
	if err := pkgdata.WriteJSON(treePath, res.Tree.Lists()); err != nil {
		return res.Stats, err
	}
	fmt.Fprintf(w, "wrote %s (%d concepts)\n", treePath, len(res.Tree))

	return res.Stats, nil
}
