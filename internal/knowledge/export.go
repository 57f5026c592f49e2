// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

const exportLimit = 1000000

// ExportYAML writes matching concepts to export.yaml in the index
// directory and returns the path. It supports the same filters as Lookup.
func (s *Store) ExportYAML(ctx context.Context, opts LookupOptions) (string, error) {
	concepts, err := s.exportConcepts(ctx, opts)
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(concepts)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	path := filepath.Join(s.indexDir, "export.yaml")
	return path, os.WriteFile(path, data, 0o644)
}

// ExportJSON writes matching concepts to export.json in the index
// directory and returns the path.
func (s *Store) ExportJSON(ctx context.Context, opts LookupOptions) (string, error) {
	concepts, err := s.exportConcepts(ctx, opts)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(concepts, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	path := filepath.Join(s.indexDir, "export.json")
	return path, os.WriteFile(path, data, 0o644)
}

func (s *Store) exportConcepts(ctx context.Context, opts LookupOptions) ([]Concept, error) {
	opts.MaxResults = exportLimit
	concepts, err := s.Lookup(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	if concepts == nil {
		concepts = []Concept{}
	}
	return concepts, nil
}
