package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// sourcePath returns the value of env, or fallback when it is unset.
func sourcePath(env, fallback string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	return fallback
}

// GenerateData builds the package data in data/ from the licensed sources:
// MRCONSO.RRF ($CABINET_MRCONSO) and the RF2 relationship snapshot
// ($CABINET_RELATIONSHIPS).
func GenerateData() error {
	mg.Deps(Build, Init)

	bin := filepath.Join(binDir, binName)
	mrconso := sourcePath("CABINET_MRCONSO", filepath.Join("sources", "MRCONSO.RRF"))
	rels := sourcePath("CABINET_RELATIONSHIPS", filepath.Join("sources", "sct2_Relationship_Snapshot.txt"))

	for _, src := range []string{mrconso, rels} {
		if _, err := os.Stat(src); err != nil {
			return fmt.Errorf("source file %s: %w", src, err)
		}
	}

	if err := sh.RunV(bin, "generate", "cui-map", mrconso, "--out", "data"); err != nil {
		return err
	}
	return sh.RunV(bin, "generate", "tree", rels, "--out", "data")
}

// CleanData removes the generated package data and the index.
func CleanData() error {
	mg.Deps(Build)
	if err := sh.RunV(filepath.Join(binDir, binName), "generate", "clean", "--out", "data"); err != nil {
		return err
	}
	return sh.Rm(filepath.Join("data", "index"))
}
