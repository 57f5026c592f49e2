// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pkgdata reads and writes the generated package data: JSON documents
// compressed with xz. The files live together in a single data directory.
package pkgdata

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ulikunitz/xz"
)

// Package data file names.
const (
	CUIMapFile       = "cui_to_snomed.xz"
	SnomedTreeFile   = "snomed_tree.xz"
	ConceptNamesFile = "concept_names.xz"
)

// Files lists every file the generators produce.
var Files = []string{CUIMapFile, SnomedTreeFile, ConceptNamesFile}

// WriteJSON encodes v as JSON, compresses it with xz, and writes it to path.
// The file is written to a temporary sibling and renamed into place so a
// partially written file is never observed.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := encode(tmp, v); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming into %s: %w", path, err)
	}
	return nil
}

func encode(w io.Writer, v any) error {
	xw, err := xz.NewWriter(w)
	if err != nil {
		return fmt.Errorf("creating xz writer: %w", err)
	}
	if err := json.NewEncoder(xw).Encode(v); err != nil {
		xw.Close()
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return xw.Close()
}

// ReadJSON decompresses the xz file at path and decodes its JSON into v.
func ReadJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	xr, err := xz.NewReader(f)
	if err != nil {
		return fmt.Errorf("reading xz header of %s: %w", path, err)
	}
	if err := json.NewDecoder(xr).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// Clean removes every generated file from dir and returns the names it
// removed. Missing files are not errors.
func Clean(dir string) ([]string, error) {
	var removed []string
	for _, name := range Files {
		err := os.Remove(filepath.Join(dir, name))
		if err == nil {
			removed = append(removed, name)
			continue
		}
		if !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("removing %s: %w", name, err)
		}
	}
	return removed, nil
}
